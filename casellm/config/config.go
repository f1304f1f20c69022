package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/SCADASolve/CASE/casellm"

	"github.com/spf13/viper"
)

// Priming output modes.
const (
	PrimingOutputResponse = "response" // print the priming response and the done marker
	PrimingOutputTiming   = "timing"   // print only the priming latency
	PrimingOutputNone     = "none"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Session    SessionConfig    `mapstructure:"session"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

// ModelConfig is the immutable model record handed to the engine.
type ModelConfig struct {
	Name          string   `mapstructure:"name"`           // file name, path, or Ollama model name
	Dir           string   `mapstructure:"dir"`            // local model directory
	Threads       int      `mapstructure:"threads"`        // worker thread hint
	Device        string   `mapstructure:"device"`         // "cpu", "gpu", "auto", GPU index or name
	GPUs          []string `mapstructure:"gpus"`           // GPU names in device order, for named selection
	AllowDownload bool     `mapstructure:"allow_download"` // fetch the model when missing locally
	DownloadURL   string   `mapstructure:"download_url"`   // base URL the model file is fetched from

	ContextSize int     `mapstructure:"context_size"`
	GPULayers   int     `mapstructure:"gpu_layers"` // layers offloaded when device is not cpu
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
	TopP        float32 `mapstructure:"top_p"`
	Template    string  `mapstructure:"template"` // "mistral", "chatml", "gemma"; empty picks by name
	UseMMAP     bool    `mapstructure:"use_mmap"`
	F16Memory   bool    `mapstructure:"f16_memory"`
}

// PromptConfig locates the seed prompt.
type PromptConfig struct {
	TrainingPath string `mapstructure:"training_path"`
}

// SessionConfig controls the interactive loop.
type SessionConfig struct {
	PromptLabel       string        `mapstructure:"prompt_label"`
	Sentinel          string        `mapstructure:"sentinel"`
	DoneMarker        string        `mapstructure:"done_marker"`
	PrimingOutput     string        `mapstructure:"priming_output"`
	ClearDisplay      bool          `mapstructure:"clear_display"`
	RecoverTurnErrors bool          `mapstructure:"recover_turn_errors"` // keep looping after a failed turn
	TypewriterDelay   time.Duration `mapstructure:"typewriter_delay"`    // per-character output delay
	HistoryFile       string        `mapstructure:"history_file"`
}

// TranscriptConfig enables turn persistence.
type TranscriptConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// MetricsConfig exposes Prometheus metrics over HTTP.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // "console" or "json"
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model.name", internal.DefaultModelName)
	v.SetDefault("model.dir", internal.DefaultModelDir)
	v.SetDefault("model.threads", 4)
	v.SetDefault("model.device", internal.DefaultDevice)
	v.SetDefault("model.allow_download", false)
	v.SetDefault("model.download_url", "")
	v.SetDefault("model.context_size", 4096)
	v.SetDefault("model.gpu_layers", 99)
	v.SetDefault("model.gpus", []string{})
	v.SetDefault("model.max_tokens", 512)
	v.SetDefault("model.temperature", 0.7)
	v.SetDefault("model.top_p", 0.9)
	v.SetDefault("model.template", "")
	v.SetDefault("model.use_mmap", true)
	v.SetDefault("model.f16_memory", true)

	v.SetDefault("prompt.training_path", internal.DefaultTrainingPath)

	v.SetDefault("session.prompt_label", internal.DefaultPromptLabel)
	v.SetDefault("session.sentinel", internal.DefaultSentinel)
	v.SetDefault("session.done_marker", internal.DefaultDoneMarker)
	v.SetDefault("session.priming_output", PrimingOutputResponse)
	v.SetDefault("session.clear_display", false)
	v.SetDefault("session.recover_turn_errors", false)
	v.SetDefault("session.typewriter_delay", "0s")
	v.SetDefault("session.history_file", "") // opt-in; empty keeps operator input off disk

	v.SetDefault("transcript.enabled", false)
	v.SetDefault("transcript.database_path", internal.DefaultTranscriptPath)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWith(viper.New(), configPath)
}

// LoadConfigWith reads configuration into v, which may already carry bound flags.
func LoadConfigWith(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()
	// model.threads becomes CASE_MODEL_THREADS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the values the harness depends on.
func (c *Config) Validate() error {
	if c.Model.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Model.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", c.Model.Threads)
	}
	if c.Model.ContextSize <= 0 {
		return fmt.Errorf("context size must be positive, got %d", c.Model.ContextSize)
	}
	if c.Model.GPULayers < 0 {
		return fmt.Errorf("GPU layers cannot be negative, got %d", c.Model.GPULayers)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.Model.MaxTokens)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", c.Model.Temperature)
	}
	if c.Model.TopP < 0 || c.Model.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %f", c.Model.TopP)
	}
	if c.Model.AllowDownload && c.Model.DownloadURL == "" {
		return fmt.Errorf("allow_download requires model.download_url")
	}
	if c.Prompt.TrainingPath == "" {
		return fmt.Errorf("training path cannot be empty")
	}
	if c.Session.Sentinel == "" {
		return fmt.Errorf("sentinel cannot be empty")
	}
	switch c.Session.PrimingOutput {
	case PrimingOutputResponse, PrimingOutputTiming, PrimingOutputNone:
	default:
		return fmt.Errorf("unknown priming output %q", c.Session.PrimingOutput)
	}
	if c.Session.TypewriterDelay < 0 {
		return fmt.Errorf("typewriter delay cannot be negative, got %v", c.Session.TypewriterDelay)
	}
	if c.Transcript.Enabled && c.Transcript.DatabasePath == "" {
		return fmt.Errorf("transcript database path cannot be empty")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address cannot be empty")
	}
	return nil
}

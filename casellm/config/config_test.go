package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	internal "github.com/SCADASolve/CASE/casellm"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()

	// Change to temp directory so no stray config.yaml is picked up
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), internal.DefaultModelName, cfg.Model.Name)
	assert.Equal(suite.T(), 4, cfg.Model.Threads)
	assert.Equal(suite.T(), "cpu", cfg.Model.Device)
	assert.False(suite.T(), cfg.Model.AllowDownload)
	assert.Equal(suite.T(), internal.DefaultTrainingPath, cfg.Prompt.TrainingPath)
	assert.Equal(suite.T(), "UserPrompt>", cfg.Session.PromptLabel)
	assert.Equal(suite.T(), "exit", cfg.Session.Sentinel)
	assert.Equal(suite.T(), "--Done--", cfg.Session.DoneMarker)
	assert.Equal(suite.T(), PrimingOutputResponse, cfg.Session.PrimingOutput)
	assert.False(suite.T(), cfg.Session.RecoverTurnErrors)
	assert.False(suite.T(), cfg.Transcript.Enabled)
	assert.Equal(suite.T(), "info", cfg.Log.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
model:
  name: "mistral-7b-instruct-v0.1.Q4_0.gguf"
  threads: 490
  device: "NVIDIA GeForce RTX 2070 SUPER"
prompt:
  training_path: "C:\\testenv\\case\\chunk_1.txt"
session:
  priming_output: "timing"
  clear_display: true
  typewriter_delay: "10ms"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte(configContent), 0o644))

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), 490, cfg.Model.Threads)
	assert.Equal(suite.T(), "NVIDIA GeForce RTX 2070 SUPER", cfg.Model.Device)
	assert.Equal(suite.T(), `C:\testenv\case\chunk_1.txt`, cfg.Prompt.TrainingPath)
	assert.Equal(suite.T(), PrimingOutputTiming, cfg.Session.PrimingOutput)
	assert.True(suite.T(), cfg.Session.ClearDisplay)
	assert.Equal(suite.T(), 10*time.Millisecond, cfg.Session.TypewriterDelay)
	// untouched keys keep their defaults
	assert.Equal(suite.T(), "exit", cfg.Session.Sentinel)
}

func (suite *ConfigTestSuite) TestLoadConfigFromEnv() {
	suite.T().Setenv("CASE_MODEL_THREADS", "12")
	suite.T().Setenv("CASE_MODEL_DEVICE", "gpu")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 12, cfg.Model.Threads)
	assert.Equal(suite.T(), "gpu", cfg.Model.Device)
}

func (suite *ConfigTestSuite) TestLoadConfigWithBoundOverrides() {
	v := viper.New()
	v.Set("model.name", "override.gguf")

	cfg, err := LoadConfigWith(v, "")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "override.gguf", cfg.Model.Name)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
model:
  name: "model.gguf"
  invalid_yaml: [unclosed bracket
`

	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte(malformedContent), 0o644))

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigRejectsInvalidValues() {
	configFile := filepath.Join(suite.tempDir, "bad.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte("model:\n  threads: 0\n"), 0o644))

	cfg, err := LoadConfig(configFile)

	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "threads must be positive")
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigKeepsNothingOnDiskByDefault() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Empty(suite.T(), cfg.Session.HistoryFile)
	assert.False(suite.T(), cfg.Transcript.Enabled)
}

func validConfig(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"empty model", func(c *Config) { c.Model.Name = "" }, "model name"},
		{"negative threads", func(c *Config) { c.Model.Threads = -1 }, "threads"},
		{"negative gpu layers", func(c *Config) { c.Model.GPULayers = -2 }, "GPU layers"},
		{"temperature too high", func(c *Config) { c.Model.Temperature = 3 }, "temperature"},
		{"download without url", func(c *Config) { c.Model.AllowDownload = true }, "download_url"},
		{"empty training path", func(c *Config) { c.Prompt.TrainingPath = "" }, "training path"},
		{"empty sentinel", func(c *Config) { c.Session.Sentinel = "" }, "sentinel"},
		{"unknown priming output", func(c *Config) { c.Session.PrimingOutput = "verbose" }, "priming output"},
		{"negative typewriter delay", func(c *Config) { c.Session.TypewriterDelay = -time.Second }, "typewriter"},
		{"transcript without path", func(c *Config) {
			c.Transcript.Enabled = true
			c.Transcript.DatabasePath = ""
		}, "transcript"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// BenchmarkLoadConfig benchmarks config loading performance
func BenchmarkLoadConfig(b *testing.B) {
	for b.Loop() {
		if _, err := LoadConfig(""); err != nil {
			b.Fatal(err)
		}
	}
}

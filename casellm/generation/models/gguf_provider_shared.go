package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SCADASolve/CASE/casellm/config"
	"github.com/SCADASolve/CASE/casellm/generation"
	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
)

// GGUFModelConfig holds configuration for GGUF model loading
type GGUFModelConfig struct {
	ModelPath   string
	ContextSize int
	GPULayers   int
	MainGPU     string
	Threads     int
	F16Memory   bool
	MMAP        bool
	MaxTokens   int
	Temperature float32
	TopP        float32
	Stop        []string
}

// NewGGUFModelConfig derives the llama.cpp settings for a resolved model file.
// A named GPU must appear in cfg.GPUs so it can be passed on as an index.
func NewGGUFModelConfig(cfg config.ModelConfig, modelPath string, device Device) (*GGUFModelConfig, error) {
	index, err := device.ResolveIndex(cfg.GPUs)
	if err != nil {
		return nil, err
	}

	c := &GGUFModelConfig{
		ModelPath:   modelPath,
		ContextSize: cfg.ContextSize,
		GPULayers:   cfg.GPULayers,
		Threads:     cfg.Threads,
		F16Memory:   cfg.F16Memory,
		MMAP:        cfg.UseMMAP,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	if device.Kind == DeviceCPU {
		c.GPULayers = 0
	}
	if index >= 0 {
		c.MainGPU = strconv.Itoa(index)
	}

	return c, nil
}

// ValidateConfig validates the GGUF model configuration
func ValidateConfig(config *GGUFModelConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if config.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	if config.ContextSize <= 0 {
		return fmt.Errorf("context size must be positive, got %d", config.ContextSize)
	}

	if config.GPULayers < 0 {
		return fmt.Errorf("GPU layers cannot be negative, got %d", config.GPULayers)
	}

	if config.Threads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", config.Threads)
	}

	if config.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}

	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}

	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %f", config.TopP)
	}

	return nil
}

// ModelHealth tracks the health status of a model
type ModelHealth struct {
	IsHealthy      bool
	TotalCalls     int64
	SuccessCalls   int64
	FailureCalls   int64
	AverageLatency time.Duration
	LastUsed       time.Time
	LastError      string
}

// backend is the raw predictor behind a loaded model.
type backend interface {
	Predict(prompt string, cfg *GGUFModelConfig) (string, error)
	Free()
}

// GGUFEngine loads GGUF models for the harness.
type GGUFEngine struct {
	resolver *Resolver
	logger   zerolog.Logger
	open     func(cfg *GGUFModelConfig) (backend, error)
}

// NewGGUFEngine returns an engine resolving model identifiers with resolver.
func NewGGUFEngine(resolver *Resolver, logger zerolog.Logger) *GGUFEngine {
	return &GGUFEngine{
		resolver: resolver,
		logger:   logger.With().Str("component", "gguf_engine").Logger(),
		open:     openBackend,
	}
}

// Load resolves, validates and loads the configured model.
func (e *GGUFEngine) Load(ctx context.Context, cfg config.ModelConfig) (ports.Model, error) {
	device, err := ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	tmpl, err := generation.GetChatTemplate(cfg.Template, cfg.Name)
	if err != nil {
		return nil, err
	}

	path, err := e.resolver.Resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ggufCfg, err := NewGGUFModelConfig(cfg, path, device)
	if err != nil {
		return nil, err
	}
	ggufCfg.Stop = tmpl.Stop
	if err := ValidateConfig(ggufCfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e.logger.Info().
		Str("model_path", path).
		Str("device", device.String()).
		Int("threads", ggufCfg.Threads).
		Int("gpu_layers", ggufCfg.GPULayers).
		Str("main_gpu", ggufCfg.MainGPU).
		Str("template", tmpl.Name).
		Msg("Loading GGUF model")

	b, err := e.open(ggufCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return &GGUFModel{
		config:   ggufCfg,
		backend:  b,
		template: tmpl,
		health:   &ModelHealth{IsHealthy: true},
		logger:   e.logger.With().Str("model_path", path).Logger(),
	}, nil
}

// GGUFModel is a loaded model. It serves one chat session at a time.
type GGUFModel struct {
	config   *GGUFModelConfig
	backend  backend
	template *generation.ChatTemplate
	health   *ModelHealth
	mu       sync.RWMutex
	active   bool
	closed   bool
	logger   zerolog.Logger
}

// OpenSession starts the model's single conversation.
func (m *GGUFModel) OpenSession(ctx context.Context) (ports.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("model is closed")
	}
	if m.active {
		return nil, fmt.Errorf("a chat session is already open on this model")
	}
	m.active = true

	m.logger.Debug().Msg("Chat session opened")
	return &ChatSession{model: m}, nil
}

// Close frees the model.
func (m *GGUFModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.backend.Free()
	m.health.IsHealthy = false

	m.logger.Info().Msg("GGUF model closed")
	return nil
}

// GetHealth returns current model health status
func (m *GGUFModel) GetHealth() ModelHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.health
}

func (m *GGUFModel) releaseSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// recordSuccess updates health metrics on successful operation
func (m *GGUFModel) recordSuccess(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.health.TotalCalls++
	m.health.SuccessCalls++
	m.health.LastUsed = time.Now()

	if m.health.AverageLatency == 0 {
		m.health.AverageLatency = duration
	} else {
		alpha := 0.1
		m.health.AverageLatency = time.Duration(float64(m.health.AverageLatency)*(1-alpha) + float64(duration)*alpha)
	}

	m.health.IsHealthy = true
}

// recordFailure updates health metrics on failed operation
func (m *GGUFModel) recordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.health.TotalCalls++
	m.health.FailureCalls++
	m.health.LastUsed = time.Now()
	m.health.IsHealthy = false
	m.health.LastError = err.Error()

	m.logger.Warn().Err(err).Int64("failure_calls", m.health.FailureCalls).Msg("Prediction failed")
}

// ChatSession accumulates the conversation and replays it through the chat template on every turn.
type ChatSession struct {
	model   *GGUFModel
	history []generation.Message
	closed  bool
}

// Generate appends prompt as a user message and predicts the assistant reply.
func (s *ChatSession) Generate(ctx context.Context, prompt string) (string, error) {
	if s.closed {
		return "", fmt.Errorf("chat session is closed")
	}

	messages := append(s.history[:len(s.history):len(s.history)], generation.Message{Role: "user", Content: prompt})
	rendered, err := s.model.template.Render(messages, true)
	if err != nil {
		return "", err
	}

	start := time.Now()
	s.model.logger.Debug().Int("prompt_length", len(rendered)).Int("history", len(s.history)).Msg("Starting text generation")

	out, err := s.model.backend.Predict(rendered, s.model.config)
	if err != nil {
		s.model.recordFailure(err)
		return "", fmt.Errorf("prediction failed: %w", err)
	}

	duration := time.Since(start)
	s.model.recordSuccess(duration)

	reply := cleanReply(out, s.model.config.Stop)
	s.history = append(messages, generation.Message{Role: "assistant", Content: reply})

	s.model.logger.Debug().Int64("duration_ms", duration.Milliseconds()).Int("output_length", len(reply)).Msg("Text generation completed")
	return reply, nil
}

// History returns a copy of the conversation so far.
func (s *ChatSession) History() []generation.Message {
	return append([]generation.Message(nil), s.history...)
}

// Close ends the conversation and frees the model for another session.
func (s *ChatSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.history = nil
	s.model.releaseSession()
	s.model.logger.Debug().Msg("Chat session closed")
	return nil
}

// cleanReply trims whitespace and any stop word the backend echoed back.
func cleanReply(out string, stop []string) string {
	for _, sw := range stop {
		if i := strings.Index(out, sw); i >= 0 {
			out = out[:i]
		}
	}
	return strings.TrimSpace(out)
}

var (
	_ ports.Engine      = (*GGUFEngine)(nil)
	_ ports.Model       = (*GGUFModel)(nil)
	_ ports.ChatSession = (*ChatSession)(nil)
)

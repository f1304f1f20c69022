//go:build llama && !no_llama

package models

import (
	"fmt"

	"github.com/go-skynet/go-llama.cpp"
)

// llamaBackend wraps a llama.cpp model loaded through cgo.
type llamaBackend struct {
	model *llama.LLama
}

func openBackend(cfg *GGUFModelConfig) (backend, error) {
	options := []llama.ModelOption{
		llama.SetContext(cfg.ContextSize),
		llama.SetGPULayers(cfg.GPULayers),
		llama.SetMMap(cfg.MMAP),
	}
	if cfg.F16Memory {
		options = append(options, llama.EnableF16Memory)
	}
	if cfg.MainGPU != "" {
		options = append(options, llama.SetMainGPU(cfg.MainGPU))
	}

	model, err := llama.New(cfg.ModelPath, options...)
	if err != nil {
		return nil, fmt.Errorf("llama.New failed: %w", err)
	}
	return &llamaBackend{model: model}, nil
}

func (b *llamaBackend) Predict(prompt string, cfg *GGUFModelConfig) (string, error) {
	opts := []llama.PredictOption{
		llama.SetThreads(cfg.Threads),
		llama.SetTokens(cfg.MaxTokens),
		llama.SetTemperature(cfg.Temperature),
		llama.SetTopP(cfg.TopP),
	}
	if len(cfg.Stop) > 0 {
		opts = append(opts, llama.SetStopWords(cfg.Stop...))
	}
	return b.model.Predict(prompt, opts...)
}

func (b *llamaBackend) Free() {
	b.model.Free()
}

//go:build !llama || no_llama

package models

import "errors"

// errLlamaUnavailable is returned by builds without the llama tag.
var errLlamaUnavailable = errors.New("llama.cpp not available in this build; rebuild with -tags llama")

func openBackend(*GGUFModelConfig) (backend, error) {
	return nil, errLlamaUnavailable
}

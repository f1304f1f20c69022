package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/SCADASolve/CASE/casellm/config"
)

const (
	ollamaDefaultTag     = "latest"
	ollamaMediaTypeModel = "application/vnd.ollama.image.model"
)

// ErrModelNotFound is returned when no source can provide the model file.
var ErrModelNotFound = errors.New("model not found")

type ollamaManifest struct {
	SchemaVersion int           `json:"schemaVersion"`
	Layers        []ollamaLayer `json:"layers"`
}

type ollamaLayer struct {
	MediaType string `json:"mediaType"`
	Digest    string `json:"digest"`
	Size      int64  `json:"size"`
}

// Resolver turns a configured model identifier into a local GGUF file.
// Sources are tried in order: a direct path, the model directory, the Ollama
// store, models embedded in the binary, and finally an HTTP download.
type Resolver struct {
	ollamaDir  string
	downloader *Downloader
	logger     zerolog.Logger
}

// NewResolver builds a resolver. An empty ollamaDir uses OLLAMA_MODELS or ~/.ollama/models.
func NewResolver(ollamaDir string, downloader *Downloader, logger zerolog.Logger) *Resolver {
	if ollamaDir == "" {
		ollamaDir = defaultOllamaDir()
	}
	return &Resolver{
		ollamaDir:  ollamaDir,
		downloader: downloader,
		logger:     logger.With().Str("component", "model_resolver").Logger(),
	}
}

func defaultOllamaDir() string {
	if env := os.Getenv("OLLAMA_MODELS"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ollama", "models")
}

// Resolve returns the path of the model named by cfg.
func (r *Resolver) Resolve(ctx context.Context, cfg config.ModelConfig) (string, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return "", fmt.Errorf("%w: empty model name", ErrModelNotFound)
	}

	if isRegularFile(name) {
		return name, nil
	}

	var searched []string
	if cfg.Dir != "" {
		candidate := filepath.Join(cfg.Dir, name)
		if isRegularFile(candidate) {
			return candidate, nil
		}
		searched = append(searched, candidate)
	}

	if r.ollamaDir != "" && !strings.HasSuffix(strings.ToLower(name), ".gguf") {
		path, err := r.resolveOllama(name)
		if err == nil {
			r.logger.Debug().Str("model", name).Str("blob", path).Msg("Resolved model from Ollama store")
			return path, nil
		}
		r.logger.Debug().Err(err).Str("model", name).Msg("Model not in Ollama store")
		searched = append(searched, "ollama:"+name)
	}

	if path, err := r.extractEmbedded(name, cfg.Dir); err == nil {
		return path, nil
	} else if !errors.Is(err, errNoEmbeddedModels) {
		r.logger.Debug().Err(err).Str("model", name).Msg("Model not embedded")
	}

	if cfg.AllowDownload {
		if r.downloader == nil {
			return "", fmt.Errorf("download allowed but no downloader configured")
		}
		return r.downloader.Download(ctx, cfg.DownloadURL, name, cfg.Dir)
	}

	return "", fmt.Errorf("%w: %s (searched %s; downloads disabled)", ErrModelNotFound, name, strings.Join(searched, ", "))
}

// resolveOllama maps "name[:tag]" to its GGUF blob in the Ollama store.
func (r *Resolver) resolveOllama(modelName string) (string, error) {
	name, tag, ok := strings.Cut(modelName, ":")
	if !ok || tag == "" {
		tag = ollamaDefaultTag
	}

	manifestPath := filepath.Join(r.ollamaDir, "manifests", "registry.ollama.ai", "library", name, tag)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("model manifest not found at %s: %w", manifestPath, err)
	}

	var m ollamaManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("failed to decode manifest %s: %w", manifestPath, err)
	}

	var digest string
	for _, l := range m.Layers {
		if l.MediaType == ollamaMediaTypeModel {
			digest = l.Digest
			break
		}
	}
	if digest == "" {
		return "", fmt.Errorf("no model layer found in manifest %s", manifestPath)
	}

	// digest "sha256:abc" is stored as blobs/sha256-abc
	blobPath := filepath.Join(r.ollamaDir, "blobs", strings.Replace(digest, ":", "-", 1))
	if !isRegularFile(blobPath) {
		return "", fmt.Errorf("model blob not found at %s", blobPath)
	}
	return blobPath, nil
}

// extractEmbedded writes an embedded model into dir once and reuses it afterwards.
func (r *Resolver) extractEmbedded(name, dir string) (string, error) {
	data, err := readEmbeddedModelBytes(filepath.Base(name))
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = os.TempDir()
	}
	dest := filepath.Join(dir, filepath.Base(name))
	if info, err := os.Stat(dest); err == nil && info.Size() == int64(len(data)) {
		return dest, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to extract embedded model: %w", err)
	}
	r.logger.Info().Str("dest", dest).Int("bytes", len(data)).Msg("Extracted embedded model")
	return dest, nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

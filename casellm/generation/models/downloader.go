package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxErrorBodyBytes  = 8 * 1024
	defaultHTTPTimeout = 30 * time.Minute
)

// Downloader fetches model files into the local model directory.
type Downloader struct {
	client *http.Client
	logger zerolog.Logger
}

// NewDownloader returns a downloader using client, or a default client with a long timeout.
func NewDownloader(client *http.Client, logger zerolog.Logger) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Downloader{client: client, logger: logger.With().Str("component", "downloader").Logger()}
}

// Download fetches baseURL/name into dir and returns the local path.
// Bytes land in a temporary file first so an interrupted download never leaves a partial model behind.
func (d *Downloader) Download(ctx context.Context, baseURL, name, dir string) (string, error) {
	dest := filepath.Join(dir, filepath.Base(name))
	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
		return dest, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat dest: %w", err)
	}

	src, err := buildDownloadURL(baseURL, filepath.Base(name))
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")

	d.logger.Info().Str("url", src).Str("dest", dest).Msg("Downloading model")
	start := time.Now()

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return "", fmt.Errorf("download failed: %s: %s", resp.Status, msg)
		}
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".partial-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return "", fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("rename into place: %w", err)
	}

	d.logger.Info().
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Str("dest", dest).
		Msg("Model downloaded")
	return dest, nil
}

func buildDownloadURL(base, name string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("download url is empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported download url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + name
	return u.String(), nil
}

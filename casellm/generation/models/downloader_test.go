package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloaderFetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/models/tiny.gguf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("GGUF-weights"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(srv.Client(), zerolog.Nop())

	path, err := d.Download(context.Background(), srv.URL+"/models/", "tiny.gguf", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tiny.gguf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GGUF-weights", string(data))

	// cached file is reused
	_, err = d.Download(context.Background(), srv.URL+"/models", "tiny.gguf", dir)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloaderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(srv.Client(), zerolog.Nop())

	_, err := d.Download(context.Background(), srv.URL, "missing.gguf", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial file may remain")
}

func TestBuildDownloadURL(t *testing.T) {
	u, err := buildDownloadURL("https://example.com/repo/resolve/main/", "model q4.gguf")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/repo/resolve/main/model%20q4.gguf", u)

	_, err = buildDownloadURL("ftp://example.com", "m.gguf")
	assert.Error(t, err)

	_, err = buildDownloadURL("", "m.gguf")
	assert.Error(t, err)
}

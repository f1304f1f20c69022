//go:build embed_models

package models

// Building with -tags embed_models bundles gguf/*.gguf into the binary.

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed gguf/*.gguf
var embeddedGGUF embed.FS

// readEmbeddedModelBytes loads an embedded model by file name.
func readEmbeddedModelBytes(name string) ([]byte, error) {
	data, err := fs.ReadFile(embeddedGGUF, "gguf/"+name)
	if err != nil {
		return nil, fmt.Errorf("embedded model %s not found: %w", name, err)
	}
	return data, nil
}

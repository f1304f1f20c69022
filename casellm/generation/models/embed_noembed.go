//go:build !embed_models

package models

import "errors"

var errNoEmbeddedModels = errors.New("embedded models disabled; build with -tags embed_models")

func readEmbeddedModelBytes(string) ([]byte, error) {
	return nil, errNoEmbeddedModels
}

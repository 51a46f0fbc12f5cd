//go:build !onnx

package main

import (
	"github.com/engramhq/engram-go/config"
	"github.com/engramhq/engram-go/semantic"
	"github.com/engramhq/engram-go/semantic/embedder/mock"
)

// newEmbedder returns the deterministic hash embedder. Builds tagged
// `onnx` replace it with a real sentence-transformer model.
func newEmbedder(_ *config.Config) (semantic.Embedder, error) {
	return mock.New(), nil
}

//go:build onnx

package main

import (
	"github.com/engramhq/engram-go/config"
	"github.com/engramhq/engram-go/semantic"
	"github.com/engramhq/engram-go/semantic/embedder/onnx"
)

func newEmbedder(cfg *config.Config) (semantic.Embedder, error) {
	return onnx.New(onnx.Config{
		ModelPath:         cfg.Semantic.ModelPath,
		TokenizerPath:     cfg.Semantic.TokenizerPath,
		SharedLibraryPath: cfg.Semantic.LibraryPath,
		Dimensions:        cfg.Semantic.Dimensions,
	})
}

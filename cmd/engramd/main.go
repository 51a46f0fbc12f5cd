// Command engramd runs the memory pipeline daemon: it connects to a chat
// bridge over a websocket, extracts memory events from messages and
// persists them to SQLite.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/engramhq/engram-go/config"
	"github.com/engramhq/engram-go/extract"
	"github.com/engramhq/engram-go/ingest"
	"github.com/engramhq/engram-go/llm"
	"github.com/engramhq/engram-go/match"
	"github.com/engramhq/engram-go/semantic"
	"github.com/engramhq/engram-go/store/sqlite"
	"github.com/engramhq/engram-go/vocab"
)

func main() {
	configPath := flag.String("config", "engram.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[ENGRAMD] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var storeOpts []sqlite.Option
	if cfg.Semantic.Enabled {
		embedder, err := newEmbedder(cfg)
		if err != nil {
			log.Fatalf("[ENGRAMD] Embedder: %v", err)
		}
		index, err := semantic.NewIndex(embedder)
		if err != nil {
			log.Fatalf("[ENGRAMD] Semantic index: %v", err)
		}
		storeOpts = append(storeOpts, sqlite.WithSemanticIndex(index))
	}

	st, err := sqlite.Open(cfg.DBPath, storeOpts...)
	if err != nil {
		log.Fatalf("[ENGRAMD] Open store: %v", err)
	}
	defer st.Close()

	v := vocab.Default()
	if cfg.VocabPath != "" {
		if v, err = vocab.Load(cfg.VocabPath); err != nil {
			log.Fatalf("[ENGRAMD] Vocabulary: %v", err)
		}
	}

	var llmOpts []llm.Option
	if cfg.Model != "" {
		llmOpts = append(llmOpts, llm.WithModel(cfg.Model))
	}
	if cfg.MaxTokens > 0 {
		llmOpts = append(llmOpts, llm.WithMaxTokens(cfg.MaxTokens))
	}
	api := anthropic.NewClient()
	collaborator := llm.NewClient(&api, llmOpts...)

	extractor := extract.New(st, collaborator, v)
	matcher := match.New(st, collaborator, match.WithHotWindow(cfg.HotWindowDays))
	pipeline := ingest.New(st, collaborator, extractor,
		ingest.WithContextWindow(cfg.ContextWindow),
		ingest.WithActiveLimit(cfg.ActiveLimit),
		ingest.WithMatcher(matcher))

	log.Printf("[ENGRAMD] Listening on %s (db %s)", cfg.ListenURL, cfg.DBPath)
	listener := ingest.NewListener(cfg.ListenURL, pipeline)
	if err := listener.Listen(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("[ENGRAMD] Listener: %v", err)
	}
	log.Printf("[ENGRAMD] Shutting down")
}

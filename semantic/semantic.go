// Package semantic provides an embedded vector index over memory events.
//
// The index backs the store's full-text relevance search: events are
// embedded from their searchable text and queried by similarity when the
// context matcher's keyword cascade comes up empty.
//
// Architecture:
//   - Embedder: text-to-vector conversion (ONNX offline, mock for tests)
//   - Index: chromem-go collection keyed by event id
package semantic

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/engramhq/engram-go/core"
)

// Embedder converts text to vector embeddings.
// Implementations: onnx.Embedder (offline model), mock.Embedder (tests).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Index is a chromem-go backed vector index implementing
// store.SemanticIndex.
type Index struct {
	embedder Embedder

	mu  sync.Mutex
	db  *chromem.DB
	col *chromem.Collection
}

// NewIndex creates an in-memory index using the given embedder.
func NewIndex(embedder Embedder) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection("events", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{embedder: embedder, db: db, col: col}, nil
}

// searchText is the text an event is embedded from.
func searchText(e core.Event) string {
	parts := []string{e.Title, e.Description, e.Location, e.ContextURL,
		strings.ReplaceAll(e.Keywords, ",", " ")}
	parts = append(parts, e.Participants...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// IndexEvent adds or refreshes an event in the index.
func (ix *Index) IndexEvent(ctx context.Context, e core.Event) error {
	text := searchText(e)
	if text == "" {
		return nil
	}
	embedding, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed event %d: %w", e.ID, err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	err = ix.col.AddDocument(ctx, chromem.Document{
		ID:        strconv.FormatInt(e.ID, 10),
		Content:   text,
		Embedding: embedding,
		Metadata:  map[string]string{"event_id": strconv.FormatInt(e.ID, 10)},
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// RemoveEvent drops an event from the index.
func (ix *Index) RemoveEvent(ctx context.Context, id int64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.col.Delete(ctx, nil, nil, strconv.FormatInt(id, 10))
}

// Search returns event ids most similar to the query, best first.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	embedding, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// chromem-go rejects nResults larger than the collection; shrink until
	// the query goes through, empty collection included.
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		results, err = ix.col.QueryEmbedding(ctx, embedding, n, nil, nil)
		if err == nil {
			break
		}
		if !isInsufficientDocsError(err) {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
		if n == 1 {
			log.Printf("[SEMANTIC] Index is empty")
			return nil, nil
		}
	}

	ids := make([]int64, 0, len(results))
	for _, r := range results {
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	log.Printf("[SEMANTIC] Query %q matched %d event(s)", truncateLog(query, 40), len(ids))
	return ids, nil
}

// isInsufficientDocsError checks whether the query failed only because the
// collection holds fewer documents than requested.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "nResults must be") ||
		strings.Contains(err.Error(), "number of documents")
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

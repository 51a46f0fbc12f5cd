package semantic_test

import (
	"context"
	"testing"

	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/semantic"
	"github.com/engramhq/engram-go/semantic/embedder/mock"
)

func newIndex(t *testing.T) *semantic.Index {
	t.Helper()
	ix, err := semantic.NewIndex(mock.New())
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	return ix
}

func TestIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t)

	events := []core.Event{
		{ID: 1, Title: "Cancel Netflix subscription"},
		{ID: 2, Title: "Goa trip planning"},
	}
	for _, e := range events {
		if err := ix.IndexEvent(ctx, e); err != nil {
			t.Fatalf("Failed to index event %d: %v", e.ID, err)
		}
	}

	// The mock embedder hashes text, so a query identical to an indexed
	// text embeds identically and must rank that event first.
	ids, err := ix.Search(ctx, "Cancel Netflix subscription", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(ids) == 0 {
		t.Fatal("Expected results from a populated index")
	}
	if ids[0] != 1 {
		t.Errorf("Expected the exact-text event first, got %v", ids)
	}
}

func TestSearch_EmptyIndexIsNotAnError(t *testing.T) {
	ix := newIndex(t)
	ids, err := ix.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Expected an empty index to return no results, got error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no ids, got %v", ids)
	}
}

func TestSearch_LimitLargerThanCollection(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t)
	if err := ix.IndexEvent(ctx, core.Event{ID: 7, Title: "Dentist appointment"}); err != nil {
		t.Fatalf("Failed to index event: %v", err)
	}

	ids, err := ix.Search(ctx, "Dentist appointment", 10)
	if err != nil {
		t.Fatalf("Expected the query to shrink to the collection size, got %v", err)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Errorf("Unexpected results %v", ids)
	}
}

func TestRemoveEvent(t *testing.T) {
	ctx := context.Background()
	ix := newIndex(t)
	if err := ix.IndexEvent(ctx, core.Event{ID: 3, Title: "Water plants"}); err != nil {
		t.Fatalf("Failed to index event: %v", err)
	}
	if err := ix.RemoveEvent(ctx, 3); err != nil {
		t.Fatalf("Failed to remove event: %v", err)
	}

	ids, err := ix.Search(ctx, "Water plants", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, id := range ids {
		if id == 3 {
			t.Error("Expected the removed event gone from results")
		}
	}
}

func TestIndexEvent_EmptyTextSkipped(t *testing.T) {
	ix := newIndex(t)
	if err := ix.IndexEvent(context.Background(), core.Event{ID: 9}); err != nil {
		t.Errorf("Expected an empty event to be a no-op, got %v", err)
	}
}

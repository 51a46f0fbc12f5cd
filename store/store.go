// Package store defines the storage collaborator the pipeline consumes.
// Implementations: sqlite (embedded, the shipped backend). Tests use
// hand-rolled fakes.
//
// Every single mutation (insert, field update, status transition, delete)
// is atomic at the store layer. Read-then-decide sequences in the pipeline
// read an immediately-prior consistent snapshot; cross-call atomicity
// spanning read+write is explicitly not guaranteed here.
package store

import (
	"context"
	"time"

	"github.com/engramhq/engram-go/core"
)

// Store is the persistence interface for messages, events and triggers.
type Store interface {
	// InsertMessage durably records a raw inbound message. Called before
	// any model work so intake durability never depends on extraction.
	InsertMessage(ctx context.Context, msg *core.Message) error

	// UpsertContact records or refreshes a sender's display name.
	UpsertContact(ctx context.Context, jid, pushName string) error

	// RecentMessages returns up to limit messages from a conversation,
	// newest first, excluding the given message id.
	RecentMessages(ctx context.Context, conversationID string, limit int, excludeID string) ([]core.Message, error)

	// ActiveEvents returns the most-recently-active non-terminal events.
	ActiveEvents(ctx context.Context, limit int) ([]core.Event, error)

	// FindActiveEventsByKeyword returns active events whose keywords,
	// title or description match the keyword.
	FindActiveEventsByKeyword(ctx context.Context, keyword string) ([]core.Event, error)

	// GetEvent fetches one event by id; nil when absent.
	GetEvent(ctx context.Context, id int64) (*core.Event, error)

	// InsertEvent persists a new event and returns its id.
	InsertEvent(ctx context.Context, e *core.Event) (int64, error)

	// UpdateEvent overwrites an event's mutable fields.
	UpdateEvent(ctx context.Context, e *core.Event) error

	// SetEventStatus transitions an event's lifecycle status.
	SetEventStatus(ctx context.Context, id int64, status core.EventStatus) error

	// SnoozeEvent marks an event snoozed until the given re-arm time.
	SnoozeEvent(ctx context.Context, id int64, until time.Time) error

	// DeleteEvent removes an event; its triggers are deleted transitively.
	DeleteEvent(ctx context.Context, id int64) error

	// FindDuplicateEvent returns an event created at or after `since`
	// whose title duplicates the given title, or nil.
	FindDuplicateEvent(ctx context.Context, title string, since time.Time) (*core.Event, error)

	// ConflictingEvents returns scheduled events (other than excludeID)
	// whose time falls within +/-window of t.
	ConflictingEvents(ctx context.Context, t time.Time, window time.Duration, excludeID int64) ([]core.Event, error)

	// InsertTrigger persists a trigger for its owning event.
	InsertTrigger(ctx context.Context, tr *core.Trigger) (int64, error)

	// TriggersForEvent lists an event's triggers, oldest first.
	TriggersForEvent(ctx context.Context, eventID int64) ([]core.Trigger, error)

	// SearchEventsByLocation finds events no older than withinDays whose
	// location, context tag or keywords match the keyword exactly enough
	// for a location lookup. Capped at limit.
	SearchEventsByLocation(ctx context.Context, keyword string, withinDays, limit int) ([]core.Event, error)

	// SearchEventsByKeywords is the full-text relevance fallback over the
	// whole keyword set, same bounds as the location lookup.
	SearchEventsByKeywords(ctx context.Context, keywords []string, withinDays, limit int) ([]core.Event, error)

	// Close releases resources.
	Close() error
}

// SemanticIndex is an optional vector index a Store implementation can
// delegate full-text relevance search to. Implementations: semantic
// (chromem-go).
type SemanticIndex interface {
	// IndexEvent adds or refreshes an event in the index.
	IndexEvent(ctx context.Context, e core.Event) error

	// RemoveEvent drops an event from the index.
	RemoveEvent(ctx context.Context, id int64) error

	// Search returns event ids most relevant to the query, best first.
	Search(ctx context.Context, query string, limit int) ([]int64, error)
}

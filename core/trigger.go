package core

import "time"

// TriggerType identifies the delivery condition a trigger encodes.
type TriggerType string

const (
	TriggerTime24h TriggerType = "time_24h"
	TriggerTime1h  TriggerType = "time_1h"
	TriggerTime15m TriggerType = "time_15m"
	TriggerURL     TriggerType = "url"
	TriggerKeyword TriggerType = "keyword"
)

// Per-event trigger caps enforced at materialization.
const (
	MaxTimeTriggers    = 3
	MaxKeywordTriggers = 3
)

// Trigger is a scheduled delivery condition owned by exactly one event.
// Triggers are deleted transitively when their event is deleted; the store
// owns that cascade.
type Trigger struct {
	ID        int64
	EventID   int64
	Type      TriggerType
	Value     string // RFC3339 fire time for time triggers, tag/keyword otherwise
	Fired     bool
	CreatedAt time.Time
}

// PendingAction is a proposed modification awaiting explicit user
// confirmation. It is never persisted: the caller holds the full payload
// and must resubmit it to confirm. Lifetime is one request/response cycle.
type PendingAction struct {
	EventID    int64
	EventTitle string
	Changes    map[string]string // field name -> proposed value
	Summary    string            // human-readable diff
}

// EdgeRelation labels a detected pairwise relationship between events.
type EdgeRelation string

const (
	EdgeCancels   EdgeRelation = "cancels"
	EdgeUpdates   EdgeRelation = "updates"
	EdgeConflicts EdgeRelation = "conflicts"
	EdgeRelated   EdgeRelation = "related"
	EdgeSameTopic EdgeRelation = "same_topic"
)

// EventEdge is a derived relationship between two events. Edges are never
// persisted; they are recomputed on demand from the working set being
// compressed.
type EventEdge struct {
	SourceID int64
	TargetID int64
	Relation EdgeRelation
}

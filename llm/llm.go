// Package llm defines the language-model collaborator the pipeline talks
// to, and provides an Anthropic-backed implementation.
//
// The pipeline trusts the model's classifications but bounds them with
// deterministic guards (confidence thresholds, date heuristics, keyword
// tables); nothing in this package mutates state.
package llm

import (
	"context"
	"time"

	"github.com/engramhq/engram-go/core"
)

// ActionKind is the model's verdict on what an action message wants done.
type ActionKind string

const (
	ActionCancel   ActionKind = "cancel"
	ActionDelete   ActionKind = "delete"
	ActionComplete ActionKind = "complete"
	ActionIgnore   ActionKind = "ignore"
	ActionSnooze   ActionKind = "snooze"
	ActionPostpone ActionKind = "postpone"
	ActionModify   ActionKind = "modify"
	ActionNone     ActionKind = "none"
)

// ActionDetection is the result of the detect-action operation.
type ActionDetection struct {
	IsAction          bool       `json:"is_action"`
	Action            ActionKind `json:"action"`
	Confidence        float64    `json:"confidence"`
	TargetDescription string     `json:"target_description"`
	TargetKeywords    []string   `json:"target_keywords"`

	// Action-specific optional fields.
	SnoozeMinutes  int    `json:"snooze_minutes,omitempty"`
	NewTime        string `json:"new_time,omitempty"`
	NewTitle       string `json:"new_title,omitempty"`
	NewLocation    string `json:"new_location,omitempty"`
	NewDescription string `json:"new_description,omitempty"`
}

// EventAction routes an extracted candidate to create, update or merge.
type EventAction string

const (
	EventActionCreate EventAction = "create"
	EventActionUpdate EventAction = "update"
	EventActionMerge  EventAction = "merge"
)

// EventCandidate is one event proposed by the extract-events operation.
// EventTime is the model's raw time string; parsing and normalization are
// the extractor's job.
type EventCandidate struct {
	Type          string      `json:"type"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	EventTime     string      `json:"event_time"`
	Location      string      `json:"location"`
	Participants  []string    `json:"participants"`
	Keywords      []string    `json:"keywords"`
	Confidence    float64     `json:"confidence"`
	EventAction   EventAction `json:"event_action,omitempty"`
	TargetEventID int64       `json:"target_event_id,omitempty"`
}

// RelevanceResult is the result of the relevance-validation operation:
// indices into the candidate slice the model deems relevant, plus an
// overall confidence.
type RelevanceResult struct {
	Relevant   []int   `json:"relevant"`
	Confidence float64 `json:"confidence"`
}

// Collaborator is the language-model interface the pipeline consumes.
// Implementations: Client (Anthropic). Tests use hand-rolled fakes.
type Collaborator interface {
	// Classify is the trivial-noise pre-filter: true when the message is
	// substantive enough to be worth processing.
	Classify(ctx context.Context, text string) (bool, error)

	// DetectAction decides whether the message references and should
	// mutate an existing event.
	DetectAction(ctx context.Context, text string, context []string, active []core.Event, ts time.Time) (*ActionDetection, error)

	// ExtractEvents returns zero or more candidate events for a message
	// that was not resolved as an action.
	ExtractEvents(ctx context.Context, text string, context []string, now time.Time, existing []core.Event, ts time.Time) ([]EventCandidate, error)

	// ValidateRelevance narrows context-match candidates to the subset
	// actually relevant to the visited page.
	ValidateRelevance(ctx context.Context, url, title string, candidates []core.Event) (*RelevanceResult, error)
}

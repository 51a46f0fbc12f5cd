package core

import (
	"strings"
	"time"
	"unicode"
)

// EventType classifies what kind of commitment or interest an event captures.
type EventType string

const (
	EventMeeting        EventType = "meeting"
	EventDeadline       EventType = "deadline"
	EventReminder       EventType = "reminder"
	EventTravel         EventType = "travel"
	EventTask           EventType = "task"
	EventSubscription   EventType = "subscription"
	EventRecommendation EventType = "recommendation"
	EventOther          EventType = "other"
)

// ParseEventType maps a model-supplied type string to a known EventType.
// Unknown values fall back to EventOther rather than being rejected.
func ParseEventType(s string) EventType {
	switch EventType(strings.ToLower(strings.TrimSpace(s))) {
	case EventMeeting, EventDeadline, EventReminder, EventTravel,
		EventTask, EventSubscription, EventRecommendation, EventOther:
		return EventType(strings.ToLower(strings.TrimSpace(s)))
	default:
		return EventOther
	}
}

// EventStatus is the lifecycle state of an event.
//
// Lifecycle:
//
//	discovered -> scheduled | ignored | snoozed | (deleted)
//	scheduled  -> reminded | snoozed | completed | ignored | (deleted)
//	snoozed    -> scheduled | ignored | (deleted)
//	reminded   -> completed | snoozed | (deleted)
//
// completed and ignored are terminal. "expired" is a derived read-time
// label (event_time in the past), never stored.
type EventStatus string

const (
	StatusDiscovered EventStatus = "discovered"
	StatusScheduled  EventStatus = "scheduled"
	StatusReminded   EventStatus = "reminded"
	StatusSnoozed    EventStatus = "snoozed"
	StatusCompleted  EventStatus = "completed"
	StatusIgnored    EventStatus = "ignored"
)

// ParseEventStatus maps a stored status string to a known EventStatus,
// falling back to StatusDiscovered for unknown codes.
func ParseEventStatus(s string) EventStatus {
	switch EventStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusDiscovered, StatusScheduled, StatusReminded,
		StatusSnoozed, StatusCompleted, StatusIgnored:
		return EventStatus(strings.ToLower(strings.TrimSpace(s)))
	default:
		return StatusDiscovered
	}
}

// validTransitions captures the lifecycle state machine above.
var validTransitions = map[EventStatus][]EventStatus{
	StatusDiscovered: {StatusScheduled, StatusIgnored, StatusSnoozed},
	StatusScheduled:  {StatusReminded, StatusSnoozed, StatusCompleted, StatusIgnored},
	StatusSnoozed:    {StatusScheduled, StatusIgnored},
	StatusReminded:   {StatusCompleted, StatusSnoozed},
}

// CanTransition reports whether moving an event from one status to another
// is a legal lifecycle transition. Deletion is always permitted and is not
// modeled as a status.
func CanTransition(from, to EventStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Event is a structured memory unit extracted from a chat message.
type Event struct {
	ID           int64
	MessageID    string // source message reference, empty when unknown
	Type         EventType
	Title        string
	Description  string
	EventTime    *time.Time // absolute, nil when no time resolved
	Location     string
	Participants []string
	Keywords     string // lowercase tokens, comma-separated
	Confidence   float64
	Status       EventStatus
	ContextURL   string // canonical context tag, empty when none resolved
	Sender       string
	CreatedAt    time.Time
}

// KeywordList splits the serialized keyword string into tokens.
func (e *Event) KeywordList() []string {
	return SplitKeywords(e.Keywords)
}

// IsPast reports whether the event's resolved time has already passed.
func (e *Event) IsPast(now time.Time) bool {
	return e.EventTime != nil && e.EventTime.Before(now)
}

// ClampConfidence bounds a model-supplied confidence to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// JoinKeywords serializes keyword tokens as the canonical comma-separated
// lowercase string stored on an Event.
func JoinKeywords(keywords []string) string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return strings.Join(out, ",")
}

// SplitKeywords parses the serialized keyword string back into tokens.
func SplitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(s, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Tokenize lowercases free text and splits it into alphanumeric tokens
// longer than minLen. Shared by keyword overlap scoring and edge detection.
func Tokenize(text string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) > minLen {
			out = append(out, f)
		}
	}
	return out
}

// Package extract turns a message into zero or more persisted memory
// events.
//
// The model proposes candidates; deterministic policy decides what happens
// to each one: confidence gating, update/merge routing, duplicate
// suppression, time normalization, context-tag resolution, conflict
// annotation and trigger materialization.
package extract

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/llm"
	"github.com/engramhq/engram-go/store"
	"github.com/engramhq/engram-go/vocab"
)

const (
	// CandidateConfidenceThreshold discards low-certainty candidates.
	CandidateConfidenceThreshold = 0.65

	// DedupWindow bounds how far back duplicate titles are searched.
	DedupWindow = 48 * time.Hour

	// ConflictWindow is the +/- span other scheduled events are checked in.
	ConflictWindow = time.Hour
)

// Trigger fire offsets before the event time, one per time trigger type.
var timeOffsets = []struct {
	typ    core.TriggerType
	before time.Duration
}{
	{core.TriggerTime24h, 24 * time.Hour},
	{core.TriggerTime1h, time.Hour},
	{core.TriggerTime15m, 15 * time.Minute},
}

// EventResult describes what happened to one candidate.
type EventResult struct {
	// Event is the persisted state, absent for suppressed candidates.
	Event core.Event
	// Created is true for inserts, false for update/merge.
	Created bool
	// Deduped is true when the candidate was suppressed as a duplicate.
	Deduped bool
	// Conflicts are scheduled events within the conflict window. They
	// never block insertion; they are annotations.
	Conflicts []core.Event
	// Triggers are the materialized delivery conditions.
	Triggers []core.Trigger
}

// Result summarizes one message's extraction.
type Result struct {
	Created         int
	Updated         int
	TriggersCreated int
	Events          []EventResult
}

// Extractor applies the per-candidate upsert policy.
type Extractor struct {
	store store.Store
	llm   llm.Collaborator
	vocab *vocab.Vocab
}

// New creates an extractor. A nil vocabulary falls back to the defaults.
func New(st store.Store, collaborator llm.Collaborator, v *vocab.Vocab) *Extractor {
	if v == nil {
		v = vocab.Default()
	}
	return &Extractor{store: st, llm: collaborator, vocab: v}
}

// Process extracts events from one message and applies the upsert policy
// to each candidate in order.
func (x *Extractor) Process(ctx context.Context, text string, context []string, now, ts time.Time, active []core.Event, sender, messageID string) (*Result, error) {
	candidates, err := x.llm.ExtractEvents(ctx, text, context, now, active, ts)
	if err != nil {
		return nil, fmt.Errorf("extract events: %w", err)
	}

	result := &Result{}
	for _, cand := range candidates {
		cand.Confidence = core.ClampConfidence(cand.Confidence)
		if cand.Confidence < CandidateConfidenceThreshold {
			log.Printf("[EXTRACT] Discarding %q: confidence %.2f below threshold", cand.Title, cand.Confidence)
			continue
		}

		switch cand.EventAction {
		case llm.EventActionUpdate:
			if target := x.lookupTarget(ctx, cand.TargetEventID); target != nil {
				er, err := x.applyUpdate(ctx, target, cand, now)
				if err != nil {
					return nil, err
				}
				result.Updated++
				result.Events = append(result.Events, *er)
				continue
			}
			// Invalid target: fall through to create.

		case llm.EventActionMerge:
			if target := x.lookupTarget(ctx, cand.TargetEventID); target != nil {
				er, err := x.applyMerge(ctx, target, cand)
				if err != nil {
					return nil, err
				}
				result.Updated++
				result.Events = append(result.Events, *er)
				continue
			}
		}

		er, err := x.create(ctx, cand, now, sender, messageID)
		if err != nil {
			return nil, err
		}
		if er.Deduped {
			result.Events = append(result.Events, *er)
			continue
		}
		result.Created++
		result.TriggersCreated += len(er.Triggers)
		result.Events = append(result.Events, *er)
	}

	log.Printf("[EXTRACT] Message %s: %d created, %d updated, %d trigger(s)",
		messageID, result.Created, result.Updated, result.TriggersCreated)
	return result, nil
}

// lookupTarget fetches the update/merge target; nil invalidates the
// routing and demotes the candidate to a create.
func (x *Extractor) lookupTarget(ctx context.Context, id int64) *core.Event {
	if id <= 0 {
		return nil
	}
	target, err := x.store.GetEvent(ctx, id)
	if err != nil {
		log.Printf("[EXTRACT] Target event %d lookup failed: %v", id, err)
		return nil
	}
	return target
}

// applyUpdate overwrites only the fields the candidate explicitly
// supplies.
func (x *Extractor) applyUpdate(ctx context.Context, target *core.Event, cand llm.EventCandidate, now time.Time) (*EventResult, error) {
	if cand.Title != "" {
		target.Title = cand.Title
	}
	if cand.Description != "" {
		target.Description = cand.Description
	}
	if cand.Location != "" {
		target.Location = cand.Location
	}
	if cand.EventTime != "" {
		if t := core.NormalizeEventTime(cand.EventTime, now); t != nil {
			target.EventTime = t
		}
	}
	if len(cand.Keywords) > 0 {
		target.Keywords = core.JoinKeywords(cand.Keywords)
	}
	if len(cand.Participants) > 0 {
		target.Participants = cand.Participants
	}

	if err := x.store.UpdateEvent(ctx, target); err != nil {
		return nil, fmt.Errorf("update event %d: %w", target.ID, err)
	}
	return &EventResult{Event: *target}, nil
}

// applyMerge appends description and unions participants onto the target.
func (x *Extractor) applyMerge(ctx context.Context, target *core.Event, cand llm.EventCandidate) (*EventResult, error) {
	if cand.Description != "" {
		if target.Description != "" {
			target.Description = target.Description + ". " + cand.Description
		} else {
			target.Description = cand.Description
		}
	}
	target.Participants = unionParticipants(target.Participants, cand.Participants)

	if err := x.store.UpdateEvent(ctx, target); err != nil {
		return nil, fmt.Errorf("merge event %d: %w", target.ID, err)
	}
	return &EventResult{Event: *target}, nil
}

// create runs dedup, normalization, tagging, conflict annotation and
// trigger materialization for a fresh candidate.
func (x *Extractor) create(ctx context.Context, cand llm.EventCandidate, now time.Time, sender, messageID string) (*EventResult, error) {
	dup, err := x.store.FindDuplicateEvent(ctx, cand.Title, now.Add(-DedupWindow))
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if dup != nil {
		log.Printf("[EXTRACT] Suppressing duplicate of event %d (%q)", dup.ID, dup.Title)
		return &EventResult{Event: *dup, Deduped: true}, nil
	}

	eventTime := core.NormalizeEventTime(cand.EventTime, now)
	keywords := core.JoinKeywords(cand.Keywords)

	tag := x.vocab.ResolveTag(core.ParseEventType(cand.Type),
		cand.Title, cand.Description, cand.Location, strings.ReplaceAll(keywords, ",", " "))

	// A resolved context tag means the event can be delivered by browsing
	// context alone; it skips manual approval and goes straight to
	// scheduled.
	status := core.StatusDiscovered
	if tag != "" {
		status = core.StatusScheduled
	}

	event := core.Event{
		MessageID:    messageID,
		Type:         core.ParseEventType(cand.Type),
		Title:        cand.Title,
		Description:  cand.Description,
		EventTime:    eventTime,
		Location:     cand.Location,
		Participants: cand.Participants,
		Keywords:     keywords,
		Confidence:   cand.Confidence,
		Status:       status,
		ContextURL:   tag,
		Sender:       sender,
		CreatedAt:    now,
	}

	id, err := x.store.InsertEvent(ctx, &event)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	er := &EventResult{Event: event, Created: true}

	if eventTime != nil {
		conflicts, err := x.store.ConflictingEvents(ctx, *eventTime, ConflictWindow, id)
		if err != nil {
			return nil, fmt.Errorf("conflict check: %w", err)
		}
		er.Conflicts = conflicts
		if len(conflicts) > 0 {
			log.Printf("[EXTRACT] Event %d overlaps %d scheduled event(s)", id, len(conflicts))
		}
	}

	triggers, err := x.materializeTriggers(ctx, &event, now)
	if err != nil {
		return nil, err
	}
	er.Triggers = triggers
	return er, nil
}

// materializeTriggers creates the event's delivery conditions: up to three
// time triggers whose fire time is still in the future, one url trigger
// for a location or context tag, and up to three keyword triggers from the
// interest vocabulary.
func (x *Extractor) materializeTriggers(ctx context.Context, e *core.Event, now time.Time) ([]core.Trigger, error) {
	var triggers []core.Trigger

	insert := func(typ core.TriggerType, value string) error {
		tr := core.Trigger{EventID: e.ID, Type: typ, Value: value, CreatedAt: now}
		if _, err := x.store.InsertTrigger(ctx, &tr); err != nil {
			return fmt.Errorf("insert %s trigger: %w", typ, err)
		}
		triggers = append(triggers, tr)
		return nil
	}

	if e.EventTime != nil {
		for _, off := range timeOffsets {
			fireAt := e.EventTime.Add(-off.before)
			if !fireAt.After(now) {
				continue
			}
			if err := insert(off.typ, fireAt.Format(time.RFC3339)); err != nil {
				return nil, err
			}
		}
	}

	if e.Location != "" || e.ContextURL != "" {
		value := e.ContextURL
		if value == "" {
			value = strings.ToLower(e.Location)
		}
		if err := insert(core.TriggerURL, value); err != nil {
			return nil, err
		}
	}

	kwCount := 0
	for _, kw := range e.KeywordList() {
		if kwCount == core.MaxKeywordTriggers {
			break
		}
		if !x.vocab.IsInterestKeyword(kw) {
			continue
		}
		if err := insert(core.TriggerKeyword, kw); err != nil {
			return nil, err
		}
		kwCount++
	}

	return triggers, nil
}

// unionParticipants merges two participant lists preserving order and
// dropping duplicates case-insensitively.
func unionParticipants(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, p := range existing {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	for _, p := range incoming {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Package classify routes a message to an action on an existing event, or
// passes it on to extraction.
//
// Status transitions (cancel, complete, ignore, snooze) are applied
// immediately; field rewrites (modify) are never applied directly, they
// come back as a PendingAction the caller must confirm. The asymmetry is
// deliberate: status moves are cheap to undo, field rewrites are not.
package classify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/llm"
	"github.com/engramhq/engram-go/store"
)

const (
	// ActionConfidenceThreshold gates whether a detection is acted on.
	ActionConfidenceThreshold = 0.6

	// DefaultSnoozeMinutes applies when the user gave no duration.
	DefaultSnoozeMinutes = 30
)

// Outcome is the classifier's verdict for one message.
type Outcome struct {
	// Handled is true when the message was consumed as an action; the
	// extractor must not run for it.
	Handled bool
	// Action is the applied (or proposed) action kind.
	Action llm.ActionKind
	// Event is the resolved target, in its pre-mutation state.
	Event *core.Event
	// Pending carries the proposed changes for a modify action.
	Pending *core.PendingAction
	// Detail is a short human-readable description of what happened.
	Detail string
}

// Classifier detects and executes actions against active events.
type Classifier struct {
	store store.Store
	llm   llm.Collaborator
}

// New creates a classifier.
func New(st store.Store, collaborator llm.Collaborator) *Classifier {
	return &Classifier{store: st, llm: collaborator}
}

// Process runs action detection and routing for one message. The active
// set is the caller's fresh most-recently-active snapshot; it is passed
// in, never cached here.
func (c *Classifier) Process(ctx context.Context, text string, context []string, active []core.Event, ts time.Time) (*Outcome, error) {
	detection, err := c.llm.DetectAction(ctx, text, context, active, ts)
	if err != nil {
		return nil, fmt.Errorf("detect action: %w", err)
	}

	if !detection.IsAction ||
		detection.Confidence < ActionConfidenceThreshold ||
		detection.Action == llm.ActionNone {
		return &Outcome{Handled: false}, nil
	}

	target := c.resolveTarget(ctx, active, detection.TargetKeywords)
	if target == nil {
		log.Printf("[CLASSIFY] Action %s detected but no target event; passing to extractor", detection.Action)
		return &Outcome{Handled: false}, nil
	}

	outcome := &Outcome{Handled: true, Action: detection.Action, Event: target}

	switch detection.Action {
	case llm.ActionCancel, llm.ActionDelete:
		if err := c.store.DeleteEvent(ctx, target.ID); err != nil {
			return nil, fmt.Errorf("delete event %d: %w", target.ID, err)
		}
		outcome.Detail = fmt.Sprintf("Deleted %q", target.Title)

	case llm.ActionComplete:
		if err := c.store.SetEventStatus(ctx, target.ID, core.StatusCompleted); err != nil {
			return nil, fmt.Errorf("complete event %d: %w", target.ID, err)
		}
		outcome.Detail = fmt.Sprintf("Marked %q done", target.Title)

	case llm.ActionIgnore:
		if err := c.store.SetEventStatus(ctx, target.ID, core.StatusIgnored); err != nil {
			return nil, fmt.Errorf("ignore event %d: %w", target.ID, err)
		}
		outcome.Detail = fmt.Sprintf("Ignoring %q", target.Title)

	case llm.ActionSnooze, llm.ActionPostpone:
		minutes := detection.SnoozeMinutes
		if minutes <= 0 {
			minutes = DefaultSnoozeMinutes
		}
		until := ts.Add(time.Duration(minutes) * time.Minute)
		if err := c.store.SnoozeEvent(ctx, target.ID, until); err != nil {
			return nil, fmt.Errorf("snooze event %d: %w", target.ID, err)
		}
		outcome.Detail = fmt.Sprintf("Snoozed %q for %s", target.Title, SnoozeBand(minutes))

	case llm.ActionModify:
		outcome.Pending = buildPendingAction(target, detection, ts)
		outcome.Detail = outcome.Pending.Summary

	default:
		// Unknown verb from the model: treat as not an action.
		return &Outcome{Handled: false}, nil
	}

	log.Printf("[CLASSIFY] %s event %d (%q), confidence %.2f",
		detection.Action, target.ID, target.Title, detection.Confidence)
	return outcome, nil
}

// resolveTarget finds the event an action refers to. The store's active
// keyword search runs first so targets beyond the snapshot are still
// reachable; the in-memory snapshot is the fallback, best keyword overlap
// winning and the single most-recently-active event closing the gap when
// nothing overlaps.
func (c *Classifier) resolveTarget(ctx context.Context, active []core.Event, targetKeywords []string) *core.Event {
	for _, kw := range targetKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		hits, err := c.store.FindActiveEventsByKeyword(ctx, kw)
		if err != nil {
			log.Printf("[CLASSIFY] Keyword lookup %q failed: %v", kw, err)
			break
		}
		if len(hits) == 0 {
			continue
		}
		best := 0
		bestScore := overlapScore(&hits[0], targetKeywords)
		for i := 1; i < len(hits); i++ {
			if score := overlapScore(&hits[i], targetKeywords); score > bestScore {
				best, bestScore = i, score
			}
		}
		return &hits[best]
	}

	if len(active) == 0 {
		return nil
	}

	best := -1
	bestScore := 0
	for i := range active {
		score := overlapScore(&active[i], targetKeywords)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return &active[best]
	}
	// The active set is most-recent first.
	return &active[0]
}

// overlapScore counts how many target keywords appear in the event's
// keywords or title.
func overlapScore(e *core.Event, targetKeywords []string) int {
	haystack := strings.ToLower(e.Keywords + " " + e.Title)
	score := 0
	for _, kw := range targetKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			score++
		}
	}
	return score
}

// buildPendingAction normalizes a modify detection into a proposal the
// caller must resubmit to apply.
func buildPendingAction(target *core.Event, detection *llm.ActionDetection, now time.Time) *core.PendingAction {
	changes := make(map[string]string)
	var diffs []string

	if detection.NewTitle != "" {
		changes["title"] = detection.NewTitle
		diffs = append(diffs, fmt.Sprintf("title: %q -> %q", target.Title, detection.NewTitle))
	}
	if detection.NewTime != "" {
		if t := core.NormalizeEventTime(detection.NewTime, now); t != nil {
			changes["event_time"] = t.Format(time.RFC3339)
			old := "unset"
			if target.EventTime != nil {
				old = target.EventTime.Format("Jan 2 15:04")
			}
			diffs = append(diffs, fmt.Sprintf("time: %s -> %s", old, t.Format("Jan 2 15:04")))
		}
	}
	if detection.NewLocation != "" {
		changes["location"] = detection.NewLocation
		old := target.Location
		if old == "" {
			old = "unset"
		}
		diffs = append(diffs, fmt.Sprintf("location: %s -> %s", old, detection.NewLocation))
	}
	if detection.NewDescription != "" {
		changes["description"] = detection.NewDescription
		diffs = append(diffs, "description updated")
	}

	summary := fmt.Sprintf("Modify %q: %s", target.Title, strings.Join(diffs, ", "))
	if len(diffs) == 0 {
		summary = fmt.Sprintf("Modify %q: no concrete changes detected", target.Title)
	}

	return &core.PendingAction{
		EventID:    target.ID,
		EventTitle: target.Title,
		Changes:    changes,
		Summary:    summary,
	}
}

// SnoozeBand renders a snooze duration as the banded human-readable label.
func SnoozeBand(minutes int) string {
	switch {
	case minutes >= 10080:
		return "next week"
	case minutes >= 1440:
		return "tomorrow"
	case minutes >= 60:
		return fmt.Sprintf("%d hours", minutes/60)
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}

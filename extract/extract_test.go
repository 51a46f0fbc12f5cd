package extract_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/extract"
	"github.com/engramhq/engram-go/llm"
	"github.com/engramhq/engram-go/store/sqlite"
)

// fakeLLM returns scripted candidates; the other operations are unused by
// the extractor.
type fakeLLM struct {
	candidates []llm.EventCandidate
}

func (f *fakeLLM) Classify(ctx context.Context, text string) (bool, error) { return true, nil }

func (f *fakeLLM) DetectAction(ctx context.Context, text string, context []string, active []core.Event, ts time.Time) (*llm.ActionDetection, error) {
	return &llm.ActionDetection{}, nil
}

func (f *fakeLLM) ExtractEvents(ctx context.Context, text string, context []string, now time.Time, existing []core.Event, ts time.Time) ([]llm.EventCandidate, error) {
	return f.candidates, nil
}

func (f *fakeLLM) ValidateRelevance(ctx context.Context, url, title string, candidates []core.Event) (*llm.RelevanceResult, error) {
	return &llm.RelevanceResult{}, nil
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

var now = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func TestProcess_ConfidenceGate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	collab := &fakeLLM{candidates: []llm.EventCandidate{
		{Type: "task", Title: "Maybe call dentist", Confidence: 0.64},
		{Type: "task", Title: "Call plumber", Confidence: 0.65},
	}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "call people", nil, now, now, nil, "a@s", "m1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("Expected exactly the at-threshold candidate created, got %d", result.Created)
	}
	if result.Events[0].Event.Title != "Call plumber" {
		t.Errorf("Wrong candidate survived: %q", result.Events[0].Event.Title)
	}
}

func TestProcess_DuplicateSuppressedBothDirections(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := &fakeLLM{candidates: []llm.EventCandidate{
		{Type: "meeting", Title: "Dinner with Sam at Olive Garden", Confidence: 0.9},
	}}
	x := extract.New(st, first, nil)
	if _, err := x.Process(ctx, "dinner", nil, now, now, nil, "a@s", "m1"); err != nil {
		t.Fatalf("First process failed: %v", err)
	}

	// A near-identical title within the window is suppressed.
	second := &fakeLLM{candidates: []llm.EventCandidate{
		{Type: "meeting", Title: "dinner with sam at olive garden", Confidence: 0.9},
	}}
	x = extract.New(st, second, nil)
	result, err := x.Process(ctx, "dinner again", nil, now.Add(time.Hour), now.Add(time.Hour), nil, "a@s", "m2")
	if err != nil {
		t.Fatalf("Second process failed: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("Expected duplicate suppressed, created %d", result.Created)
	}
	if len(result.Events) != 1 || !result.Events[0].Deduped {
		t.Errorf("Expected a dedup marker in the result, got %+v", result.Events)
	}

	// A generic short title does not collapse into the specific one.
	third := &fakeLLM{candidates: []llm.EventCandidate{
		{Type: "meeting", Title: "Dinner", Confidence: 0.9},
	}}
	x = extract.New(st, third, nil)
	result, err = x.Process(ctx, "dinner", nil, now.Add(time.Hour), now.Add(time.Hour), nil, "a@s", "m3")
	if err != nil {
		t.Fatalf("Third process failed: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("Expected the generic title to create its own event, created %d", result.Created)
	}
}

func TestProcess_BeautyIntentScenario(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:       "task",
		Title:      "Buy lipstick for sister's birthday",
		Keywords:   []string{"lipstick", "gift", "birthday", "buy", "sister"},
		Confidence: 0.8,
	}}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "need to buy lipstick for sis bday", nil, now, now, nil, "a@s", "m1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("Expected one event, created %d", result.Created)
	}

	e := result.Events[0].Event
	if e.ContextURL != "shopping.beauty" {
		t.Errorf("Expected the beauty context tag, got %q", e.ContextURL)
	}
	if e.Status != core.StatusScheduled {
		t.Errorf("Expected a tagged event to go straight to scheduled, got %s", e.Status)
	}

	var timeTriggers, urlTriggers, keywordTriggers int
	for _, tr := range result.Events[0].Triggers {
		switch tr.Type {
		case core.TriggerURL:
			urlTriggers++
			if tr.Value != "shopping.beauty" {
				t.Errorf("Expected url trigger to carry the tag, got %q", tr.Value)
			}
		case core.TriggerKeyword:
			keywordTriggers++
		default:
			timeTriggers++
		}
	}
	if timeTriggers != 0 {
		t.Errorf("Expected no time triggers without a resolved time, got %d", timeTriggers)
	}
	if urlTriggers != 1 {
		t.Errorf("Expected exactly one url trigger, got %d", urlTriggers)
	}
	if keywordTriggers != 3 {
		t.Errorf("Expected the keyword trigger cap of 3, got %d", keywordTriggers)
	}

	stored, err := st.TriggersForEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("Failed to list triggers: %v", err)
	}
	if len(stored) != len(result.Events[0].Triggers) {
		t.Errorf("Expected triggers persisted, stored %d", len(stored))
	}
}

func TestProcess_TimeTriggersOnlyFutureOffsets(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Two hours out: the 24h offset already passed, 1h and 15m remain.
	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:       "meeting",
		Title:      "Dentist appointment",
		EventTime:  now.Add(2 * time.Hour).Format(time.RFC3339),
		Confidence: 0.9,
	}}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "dentist at 2", nil, now, now, nil, "a@s", "m1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	triggers := result.Events[0].Triggers
	if len(triggers) != 2 {
		t.Fatalf("Expected 2 future time triggers, got %d", len(triggers))
	}
	if triggers[0].Type != core.TriggerTime1h || triggers[1].Type != core.TriggerTime15m {
		t.Errorf("Unexpected trigger types: %s, %s", triggers[0].Type, triggers[1].Type)
	}
}

func TestProcess_TimeOnlyEventStaysDiscovered(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:       "meeting",
		Title:      "Catch up with Ravi",
		EventTime:  now.Add(72 * time.Hour).Format(time.RFC3339),
		Keywords:   []string{"ravi", "catchup"},
		Confidence: 0.9,
	}}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "catch up with ravi", nil, now, now, nil, "a@s", "m1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	e := result.Events[0].Event
	if e.ContextURL != "" {
		t.Errorf("Expected no context tag, got %q", e.ContextURL)
	}
	if e.Status != core.StatusDiscovered {
		t.Errorf("Expected an untagged event to stay discovered, got %s", e.Status)
	}
	if len(result.Events[0].Triggers) != 3 {
		t.Errorf("Expected all three time triggers, got %d", len(result.Events[0].Triggers))
	}
}

func TestProcess_StaleTimeForwardShifted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:       "meeting",
		Title:      "Weekly sync",
		EventTime:  now.AddDate(0, 0, -2).Format(time.RFC3339),
		Confidence: 0.9,
	}}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "sync", nil, now, now, nil, "a@s", "m1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	e := result.Events[0].Event
	if e.EventTime == nil || !e.EventTime.After(now) {
		t.Fatalf("Expected the stale time shifted into the future, got %v", e.EventTime)
	}
	want := now.AddDate(0, 0, 5)
	if !e.EventTime.Equal(want) {
		t.Errorf("Expected a single weekly step to %s, got %s", want, e.EventTime)
	}
}

func TestProcess_UpdateOverwritesOnlySuppliedFields(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seed := core.Event{
		Type: core.EventMeeting, Title: "Dinner with Sam", Description: "at the usual place",
		Location: "Olive Garden", Keywords: "dinner,sam", Confidence: 0.9,
		Status: core.StatusDiscovered, CreatedAt: now,
	}
	id, err := st.InsertEvent(ctx, &seed)
	if err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}

	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:          "meeting",
		Title:         "Dinner with Sam",
		EventTime:     now.Add(30 * time.Hour).Format(time.RFC3339),
		Confidence:    0.9,
		EventAction:   llm.EventActionUpdate,
		TargetEventID: id,
	}}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "dinner moved", nil, now, now, nil, "a@s", "m2")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Updated != 1 || result.Created != 0 {
		t.Fatalf("Expected an update, got created=%d updated=%d", result.Created, result.Updated)
	}

	got, err := st.GetEvent(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("Failed to reload event: %v", err)
	}
	if got.EventTime == nil {
		t.Fatal("Expected the time set")
	}
	if got.Location != "Olive Garden" || got.Description != "at the usual place" {
		t.Errorf("Expected unsupplied fields untouched, got %q / %q", got.Location, got.Description)
	}
}

func TestProcess_MergeAppendsAndUnionsParticipants(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seed := core.Event{
		Type: core.EventMeeting, Title: "Dinner with Sam", Description: "table for two",
		Participants: []string{"Sam"}, Confidence: 0.9,
		Status: core.StatusDiscovered, CreatedAt: now,
	}
	id, err := st.InsertEvent(ctx, &seed)
	if err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}

	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:          "meeting",
		Title:         "Dinner with Sam",
		Description:   "Priya is joining too",
		Participants:  []string{"sam", "Priya"},
		Confidence:    0.9,
		EventAction:   llm.EventActionMerge,
		TargetEventID: id,
	}}}
	x := extract.New(st, collab, nil)

	if _, err := x.Process(ctx, "priya joining dinner", nil, now, now, nil, "a@s", "m2"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	got, err := st.GetEvent(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("Failed to reload event: %v", err)
	}
	if got.Description != "table for two. Priya is joining too" {
		t.Errorf("Unexpected merged description %q", got.Description)
	}
	if len(got.Participants) != 2 {
		t.Errorf("Expected case-insensitive participant union, got %v", got.Participants)
	}
}

func TestProcess_InvalidTargetDemotesToCreate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:          "task",
		Title:         "Renew passport",
		Confidence:    0.9,
		EventAction:   llm.EventActionUpdate,
		TargetEventID: 999,
	}}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "renew passport", nil, now, now, nil, "a@s", "m1")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Created != 1 || result.Updated != 0 {
		t.Errorf("Expected fallback to create, got created=%d updated=%d", result.Created, result.Updated)
	}
}

func TestProcess_ConflictAnnotationDoesNotBlock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	eventTime := now.Add(48 * time.Hour)
	seed := core.Event{
		Type: core.EventMeeting, Title: "Standup", EventTime: &eventTime,
		Status: core.StatusScheduled, Confidence: 0.9, CreatedAt: now,
	}
	if _, err := st.InsertEvent(ctx, &seed); err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}

	collab := &fakeLLM{candidates: []llm.EventCandidate{{
		Type:       "meeting",
		Title:      "Client call",
		EventTime:  eventTime.Add(30 * time.Minute).Format(time.RFC3339),
		Confidence: 0.9,
	}}}
	x := extract.New(st, collab, nil)

	result, err := x.Process(ctx, "client call", nil, now, now, nil, "a@s", "m2")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("Expected the conflicting event still created, got %d", result.Created)
	}
	if len(result.Events[0].Conflicts) != 1 {
		t.Errorf("Expected one conflict annotation, got %d", len(result.Events[0].Conflicts))
	}
}

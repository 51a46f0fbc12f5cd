package core_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/engramhq/engram-go/core"
)

func TestParseEventType_UnknownFallsBack(t *testing.T) {
	if got := core.ParseEventType("meeting"); got != core.EventMeeting {
		t.Errorf("Expected meeting, got %s", got)
	}
	if got := core.ParseEventType("  Travel "); got != core.EventTravel {
		t.Errorf("Expected travel for padded input, got %s", got)
	}
	if got := core.ParseEventType("banana"); got != core.EventOther {
		t.Errorf("Expected unknown type to fall back to other, got %s", got)
	}
	if got := core.ParseEventType(""); got != core.EventOther {
		t.Errorf("Expected empty type to fall back to other, got %s", got)
	}
}

func TestParseEventStatus_UnknownFallsBack(t *testing.T) {
	if got := core.ParseEventStatus("scheduled"); got != core.StatusScheduled {
		t.Errorf("Expected scheduled, got %s", got)
	}
	if got := core.ParseEventStatus("garbage"); got != core.StatusDiscovered {
		t.Errorf("Expected unknown status to fall back to discovered, got %s", got)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to core.EventStatus
		ok       bool
	}{
		{core.StatusDiscovered, core.StatusScheduled, true},
		{core.StatusDiscovered, core.StatusCompleted, false},
		{core.StatusScheduled, core.StatusCompleted, true},
		{core.StatusSnoozed, core.StatusScheduled, true},
		{core.StatusReminded, core.StatusCompleted, true},
		{core.StatusCompleted, core.StatusScheduled, false},
		{core.StatusIgnored, core.StatusScheduled, false},
	}
	for _, c := range cases {
		if got := core.CanTransition(c.from, c.to); got != c.ok {
			t.Errorf("CanTransition(%s, %s) = %t, want %t", c.from, c.to, got, c.ok)
		}
	}
}

func TestJoinKeywords_DedupesAndLowercases(t *testing.T) {
	got := core.JoinKeywords([]string{"Netflix", " netflix ", "Cancel", "", "buy"})
	if got != "netflix,cancel,buy" {
		t.Errorf("Unexpected keyword serialization: %q", got)
	}
}

func TestSplitKeywords_Roundtrip(t *testing.T) {
	got := core.SplitKeywords("netflix, cancel ,,BUY")
	want := []string{"netflix", "cancel", "buy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitKeywords = %v, want %v", got, want)
	}
	if core.SplitKeywords("") != nil {
		t.Error("Expected nil for empty keyword string")
	}
}

func TestTokenize(t *testing.T) {
	got := core.Tokenize("Dinner with Sam at 8pm!", 2)
	want := []string{"dinner", "with", "sam", "8pm"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestEvent_IsPast(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&core.Event{}).IsPast(now) {
		t.Error("Expected an event without a time never to be past")
	}
	if !(&core.Event{EventTime: &past}).IsPast(now) {
		t.Error("Expected a past time to report past")
	}
	if (&core.Event{EventTime: &future}).IsPast(now) {
		t.Error("Expected a future time not to report past")
	}
	if (&core.Event{EventTime: &now}).IsPast(now) {
		t.Error("Expected the exact current time not to report past")
	}
}

func TestClampConfidence(t *testing.T) {
	if core.ClampConfidence(-0.5) != 0 {
		t.Error("Expected negative confidence to clamp to 0")
	}
	if core.ClampConfidence(1.5) != 1 {
		t.Error("Expected confidence above 1 to clamp to 1")
	}
	if core.ClampConfidence(0.73) != 0.73 {
		t.Error("Expected in-range confidence to pass through")
	}
}

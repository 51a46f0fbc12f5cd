package core_test

import (
	"testing"
	"time"

	"github.com/engramhq/engram-go/core"
)

func TestParseEventTime_AcceptedLayouts(t *testing.T) {
	for _, raw := range []string{
		"2026-08-28T20:00:00Z",
		"2026-08-28T20:00:00",
		"2026-08-28 20:00:00",
		"2026-08-28 20:00",
		"2026-08-28",
	} {
		if got := core.ParseEventTime(raw); got == nil {
			t.Errorf("Expected %q to parse", raw)
		}
	}
}

func TestParseEventTime_ZonelessLayoutsResolveAsUTC(t *testing.T) {
	got := core.ParseEventTime("2026-08-28 20:00")
	if got == nil {
		t.Fatal("Expected the time to parse")
	}
	if got.Location() != time.UTC {
		t.Errorf("Expected a zone-less layout resolved as UTC, got %v", got.Location())
	}
}

func TestParseEventTime_GarbageIsAbsentNotError(t *testing.T) {
	if got := core.ParseEventTime("next friday evening-ish"); got != nil {
		t.Errorf("Expected unparseable time to be treated as absent, got %v", got)
	}
	if got := core.ParseEventTime(""); got != nil {
		t.Errorf("Expected empty time to be absent, got %v", got)
	}
}

func TestForwardShift_RecentPastLeftAlone(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-30 * time.Minute)
	if got := core.ForwardShift(recent, now); !got.Equal(recent) {
		t.Errorf("Expected time %s in the grace window to stay, got %s", recent, got)
	}
}

func TestForwardShift_StalePastMovesWeekly(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	stale := now.AddDate(0, 0, -3)
	got := core.ForwardShift(stale, now)
	want := stale.AddDate(0, 0, 7)
	if !got.Equal(want) {
		t.Errorf("Expected one weekly step to %s, got %s", want, got)
	}
	if got.Weekday() != stale.Weekday() {
		t.Errorf("Expected weekday preserved, got %s", got.Weekday())
	}
}

func TestForwardShift_VeryStaleKeepsStepping(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	stale := now.AddDate(0, 0, -20)
	got := core.ForwardShift(stale, now)
	if !got.After(now) {
		t.Errorf("Expected shifted time in the future, got %s", got)
	}
	if got.Sub(now) > 7*24*time.Hour {
		t.Errorf("Expected the first future weekly slot, got %s", got)
	}
}

func TestForwardShift_FutureUnchanged(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	if got := core.ForwardShift(future, now); !got.Equal(future) {
		t.Errorf("Expected future time unchanged, got %s", got)
	}
}

func TestNormalizeEventTime(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	if got := core.NormalizeEventTime("not a time", now); got != nil {
		t.Errorf("Expected nil for unparseable input, got %v", got)
	}
	got := core.NormalizeEventTime("2026-08-20T10:00:00Z", now)
	if got == nil {
		t.Fatal("Expected a normalized time")
	}
	if !got.After(now) {
		t.Errorf("Expected stale time forward-shifted past now, got %s", got)
	}
}

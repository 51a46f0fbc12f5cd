package core

import (
	"strings"
	"time"
)

// stalePastGrace is how far in the past a parsed time may sit before the
// weekly forward shift kicks in.
const stalePastGrace = time.Hour

// timeLayouts are the accepted model-supplied time formats, most specific
// first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Jan 2 15:04",
}

// ParseEventTime parses a model-supplied time string. Parse failure means
// the time is treated as absent, never as an error.
func ParseEventTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	// Layouts without a zone resolve as UTC.
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// ForwardShift advances a stale time in 7-day steps until it is in the
// future. Times less than an hour in the past are left alone.
//
// This is a recurring-weekly heuristic for relative dates the model
// resolved against an old anchor ("every Friday" extracted on Saturday).
// It can misfire for genuinely one-off past corrections; that trade-off is
// accepted.
func ForwardShift(t time.Time, now time.Time) time.Time {
	if now.Sub(t) <= stalePastGrace {
		return t
	}
	for !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

// NormalizeEventTime parses and forward-shifts in one step, returning nil
// when the raw string does not parse.
func NormalizeEventTime(raw string, now time.Time) *time.Time {
	t := ParseEventTime(raw)
	if t == nil {
		return nil
	}
	shifted := ForwardShift(*t, now)
	return &shifted
}

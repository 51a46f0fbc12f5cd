package compress_test

import (
	"testing"
	"time"

	"github.com/engramhq/engram-go/compress"
	"github.com/engramhq/engram-go/core"
)

func findEdge(edges []core.EventEdge, source, target int64, relation core.EdgeRelation) bool {
	for _, e := range edges {
		if e.SourceID == source && e.TargetID == target && e.Relation == relation {
			return true
		}
	}
	return false
}

func TestDetectEdges_ConflictBoundary(t *testing.T) {
	c := compress.New(nil)
	base := now.Add(24 * time.Hour)

	cases := []struct {
		name     string
		delta    time.Duration
		conflict bool
	}{
		{"exactly one hour apart", 3600 * time.Second, true},
		{"just inside", 30 * time.Minute, true},
		{"identical times", 0, false},
		{"just outside", 3601 * time.Second, false},
	}
	for _, tc := range cases {
		events := []core.Event{
			{ID: 1, Type: core.EventMeeting, EventTime: timePtr(base)},
			{ID: 2, Type: core.EventMeeting, EventTime: timePtr(base.Add(tc.delta))},
		}
		edges := c.DetectEdges(events)
		if got := findEdge(edges, 1, 2, core.EdgeConflicts); got != tc.conflict {
			t.Errorf("%s: conflict = %t, want %t", tc.name, got, tc.conflict)
		}
	}
}

func TestDetectEdges_KeywordOverlap(t *testing.T) {
	c := compress.New(nil)

	// Two shared tokens, same type.
	events := []core.Event{
		{ID: 1, Type: core.EventTravel, Keywords: "goa,flight,beach"},
		{ID: 2, Type: core.EventTravel, Keywords: "goa,flight,hotel"},
	}
	edges := c.DetectEdges(events)
	if !findEdge(edges, 1, 2, core.EdgeSameTopic) {
		t.Errorf("Expected same_topic edge, got %v", edges)
	}

	// Two shared tokens, different types.
	events[1].Type = core.EventTask
	edges = c.DetectEdges(events)
	if !findEdge(edges, 1, 2, core.EdgeRelated) {
		t.Errorf("Expected related edge, got %v", edges)
	}

	// One shared token is not enough.
	events[1].Keywords = "goa,plumber"
	if edges := c.DetectEdges(events); len(edges) != 0 {
		t.Errorf("Expected no edge for single-token overlap, got %v", edges)
	}
}

func TestDetectEdges_CancellationUpgrade(t *testing.T) {
	c := compress.New(nil)
	events := []core.Event{
		{ID: 10, Type: core.EventTask, Title: "Unsubscribe from Spotify", Keywords: "spotify,subscription,music"},
		{ID: 11, Type: core.EventSubscription, Title: "Spotify subscription renewal", Keywords: "spotify,subscription"},
	}
	edges := c.DetectEdges(events)
	if !findEdge(edges, 10, 11, core.EdgeCancels) {
		t.Errorf("Expected cancels edge regardless of pair order, got %v", edges)
	}
}

package compress

import (
	"strings"

	"github.com/engramhq/engram-go/core"
)

// cancellationTerms upgrade a related pair to a cancels edge when one side
// is a subscription.
var cancellationTerms = []string{"cancel", "unsubscribe"}

// DetectEdges recomputes pairwise relationships over the working set.
//
// For every unordered pair, a keyword-token intersection of size >= 2
// yields an edge: cancels when one side is a subscription and the other's
// title carries a cancellation term (either direction), same_topic when
// both events share a type, related otherwise. Independently, two resolved
// times within (0, 3600] seconds of each other yield a conflicts edge.
func (c *Compressor) DetectEdges(events []core.Event) []core.EventEdge {
	var edges []core.EventEdge

	tokens := make([]map[string]bool, len(events))
	for i, e := range events {
		set := make(map[string]bool)
		for _, tok := range core.Tokenize(e.Keywords, 2) {
			set[tok] = true
		}
		tokens[i] = set
	}

	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]

			overlap := 0
			for tok := range tokens[i] {
				if tokens[j][tok] {
					overlap++
				}
			}
			if overlap >= 2 {
				relation := core.EdgeRelated
				if a.Type == b.Type {
					relation = core.EdgeSameTopic
				}
				if isCancellationPair(a, b) || isCancellationPair(b, a) {
					relation = core.EdgeCancels
				}
				edges = append(edges, core.EventEdge{SourceID: a.ID, TargetID: b.ID, Relation: relation})
			}

			if a.EventTime != nil && b.EventTime != nil {
				delta := a.EventTime.Sub(*b.EventTime)
				if delta < 0 {
					delta = -delta
				}
				if delta > 0 && delta.Seconds() <= 3600 {
					edges = append(edges, core.EventEdge{SourceID: a.ID, TargetID: b.ID, Relation: core.EdgeConflicts})
				}
			}
		}
	}
	return edges
}

// isCancellationPair reports whether sub is a subscription that other's
// title is trying to cancel.
func isCancellationPair(sub, other core.Event) bool {
	if sub.Type != core.EventSubscription {
		return false
	}
	title := strings.ToLower(other.Title)
	for _, term := range cancellationTerms {
		if strings.Contains(title, term) {
			return true
		}
	}
	return false
}

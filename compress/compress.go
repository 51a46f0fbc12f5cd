// Package compress ranks, encodes and summarizes memory events and chat
// history before anything is sent to the language model.
//
// Architecture:
//   - Signal filter: heuristic priority scoring on a clamped 0-10 scale
//   - Dense encoding: fixed 8-field pipe-delimited line per event
//   - Edge detection: derived pairwise relationships, recomputed on demand
//   - Memory packet: compressed stand-in for older conversation turns
//
// The dense line format is a de facto wire contract: extraction and
// validation prompt quality depends on field order and delimiter staying
// stable.
package compress

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/vocab"
)

// Defaults for the compressor knobs.
const (
	DefaultTopN         = 60
	DefaultRecentWindow = 6
	maxReportedEdges    = 10
)

// Compressor ranks and serializes events for prompt construction.
type Compressor struct {
	vocab        *vocab.Vocab
	topN         int
	recentWindow int
}

// Option configures the compressor.
type Option func(*Compressor)

// WithTopN caps how many events survive the signal filter.
func WithTopN(n int) Option {
	return func(c *Compressor) {
		if n > 0 {
			c.topN = n
		}
	}
}

// WithRecentWindow sets how many trailing chat turns pass through verbatim.
func WithRecentWindow(n int) Option {
	return func(c *Compressor) {
		if n > 0 {
			c.recentWindow = n
		}
	}
}

// New creates a compressor. A nil vocabulary falls back to the defaults.
func New(v *vocab.Vocab, opts ...Option) *Compressor {
	if v == nil {
		v = vocab.Default()
	}
	c := &Compressor{
		vocab:        v,
		topN:         DefaultTopN,
		recentWindow: DefaultRecentWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score computes the signal-filter priority of an event on the clamped
// 0-10 scale. Everything starts at baseline 5 and moves by time proximity,
// status, context tag, age, and type.
func (c *Compressor) Score(e core.Event, now time.Time) int {
	score := 5

	if e.EventTime != nil {
		until := e.EventTime.Sub(now)
		switch {
		case e.IsPast(now):
			score -= 2
		case until <= 2*time.Hour:
			score += 4
		case until <= 24*time.Hour:
			score += 3
		case until <= 7*24*time.Hour:
			score += 2
		case until <= 30*24*time.Hour:
			score += 1
		}
	}

	switch e.Status {
	case core.StatusCompleted, core.StatusIgnored:
		score -= 3
	case core.StatusScheduled, core.StatusSnoozed:
		score++
	}

	if e.ContextURL != "" {
		score++
	}

	age := now.Sub(e.CreatedAt)
	if age > 30*24*time.Hour {
		score--
	}
	if age > 90*24*time.Hour {
		score -= 2
	}

	if e.Type == core.EventRecommendation && e.ContextURL != "" {
		score++
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score
}

// Rank sorts events by descending priority. The sort is stable: ties keep
// their original relative order.
func (c *Compressor) Rank(events []core.Event, now time.Time) []core.Event {
	ranked := make([]core.Event, len(events))
	copy(ranked, events)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.Score(ranked[i], now) > c.Score(ranked[j], now)
	})
	return ranked
}

// typeCodes maps event types to their fixed 3-letter dense codes.
var typeCodes = map[core.EventType]string{
	core.EventMeeting:        "MTG",
	core.EventDeadline:       "DDL",
	core.EventReminder:       "REM",
	core.EventTravel:         "TRV",
	core.EventTask:           "TSK",
	core.EventSubscription:   "SUB",
	core.EventRecommendation: "REC",
	core.EventOther:          "OTH",
}

// statusGlyphs maps statuses to their fixed single-character glyphs.
var statusGlyphs = map[core.EventStatus]string{
	core.StatusDiscovered: "D",
	core.StatusScheduled:  "S",
	core.StatusReminded:   "R",
	core.StatusSnoozed:    "Z",
	core.StatusCompleted:  "C",
	core.StatusIgnored:    "I",
}

const fieldPlaceholder = "-"

// EncodeLine serializes one event as the dense 8-field pipe-delimited
// line: id|type|status|"title"|time|location|sender|keywords. Absent
// optional fields become "-"; unknown types and statuses map to generic
// codes instead of being rejected.
func EncodeLine(e core.Event, now time.Time) string {
	code, ok := typeCodes[e.Type]
	if !ok {
		code = "OTH"
	}
	glyph, ok := statusGlyphs[e.Status]
	if !ok {
		glyph = "?"
	}

	when := fieldPlaceholder
	if e.EventTime != nil {
		when = e.EventTime.Format("Jan 2 15:04")
		if e.IsPast(now) {
			when += " [past]"
		}
	}

	location := e.Location
	if location == "" {
		location = fieldPlaceholder
	}
	sender := e.Sender
	if sender == "" {
		sender = fieldPlaceholder
	}
	keywords := e.Keywords
	if keywords == "" {
		keywords = fieldPlaceholder
	}

	// Pipes inside values would break the field count contract.
	title := strings.ReplaceAll(e.Title, "|", "/")
	location = strings.ReplaceAll(location, "|", "/")
	keywords = strings.ReplaceAll(keywords, "|", "/")

	return fmt.Sprintf("%d|%s|%s|%q|%s|%s|%s|%s",
		e.ID, code, glyph, title, when, location, sender, keywords)
}

// Encoded is the result of compressing an event working set.
type Encoded struct {
	// Events are the selected events, highest priority first.
	Events []core.Event
	// Lines holds one dense line per selected event.
	Lines []string
	// Edges are all detected relationships in the selected set.
	Edges []core.EventEdge
	// Ratio is dense size / verbose size in characters, reported for
	// observability.
	Ratio float64
	// Text is the full compressed block: dense lines plus the trailing
	// relationship line when any edges were found.
	Text string
}

// EncodeEvents runs the full compression pass: rank by priority, keep the
// top N, serialize densely, detect edges, and measure the shrink against
// the verbose rendition.
func (c *Compressor) EncodeEvents(events []core.Event, now time.Time) *Encoded {
	ranked := c.Rank(events, now)
	if len(ranked) > c.topN {
		ranked = ranked[:c.topN]
	}

	lines := make([]string, 0, len(ranked))
	verboseChars := 0
	denseChars := 0
	for _, e := range ranked {
		line := EncodeLine(e, now)
		lines = append(lines, line)
		denseChars += len(line)
		verboseChars += len(verboseForm(e))
	}

	edges := c.DetectEdges(ranked)

	var sb strings.Builder
	sb.WriteString(strings.Join(lines, "\n"))
	if len(edges) > 0 {
		reported := edges
		if len(reported) > maxReportedEdges {
			reported = reported[:maxReportedEdges]
		}
		parts := make([]string, 0, len(reported))
		for _, edge := range reported {
			parts = append(parts, fmt.Sprintf("%d-%d:%s", edge.SourceID, edge.TargetID, edge.Relation))
		}
		sb.WriteString("\nREL: ")
		sb.WriteString(strings.Join(parts, " "))
	}

	ratio := 1.0
	if verboseChars > 0 {
		ratio = float64(denseChars) / float64(verboseChars)
	}
	log.Printf("[COMPRESS] Encoded %d/%d events, %d edge(s), size ratio %.2f",
		len(ranked), len(events), len(edges), ratio)

	return &Encoded{
		Events: ranked,
		Lines:  lines,
		Edges:  edges,
		Ratio:  ratio,
		Text:   sb.String(),
	}
}

// verboseForm is the long-hand per-event rendition the dense encoding is
// measured against.
func verboseForm(e core.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Event #%d: %s\n", e.ID, e.Title)
	fmt.Fprintf(&sb, "  Type: %s\n", e.Type)
	fmt.Fprintf(&sb, "  Status: %s\n", e.Status)
	if e.EventTime != nil {
		fmt.Fprintf(&sb, "  Scheduled for: %s\n", e.EventTime.Format(time.RFC1123))
	} else {
		sb.WriteString("  Scheduled for: no time resolved\n")
	}
	if e.Location != "" {
		fmt.Fprintf(&sb, "  Location: %s\n", e.Location)
	}
	if e.Description != "" {
		fmt.Fprintf(&sb, "  Description: %s\n", e.Description)
	}
	if e.Sender != "" {
		fmt.Fprintf(&sb, "  From: %s\n", e.Sender)
	}
	if e.Keywords != "" {
		fmt.Fprintf(&sb, "  Keywords: %s\n", e.Keywords)
	}
	fmt.Fprintf(&sb, "  Confidence: %.2f\n", e.Confidence)
	return sb.String()
}

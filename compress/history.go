package compress

import (
	"regexp"
	"strings"

	"github.com/engramhq/engram-go/core"
)

// Memory packet caps.
const (
	maxUserSummaries   = 5
	maxKeyFacts        = 5
	maxEventRefs       = 10
	userSummaryMaxLen  = 100
	keyFactMaxLen      = 120
	keyFactMinSentence = 15
)

var eventRefPattern = regexp.MustCompile(`#\d+`)

// MemoryPacket is the compressed stand-in for older conversation turns.
type MemoryPacket struct {
	// CompressedTurns is how many turns the packet replaces.
	CompressedTurns int
	// UserSummaries are the last few user turns, truncated.
	UserSummaries []string
	// KeyFacts are assistant sentences that mention the domain vocabulary.
	KeyFacts []string
	// EventRefs are unique #<id> references scraped from assistant turns.
	EventRefs []string
}

// HistoryResult is the output of chat history compression.
type HistoryResult struct {
	// Recent holds the trailing turns passed through verbatim.
	Recent []core.ChatTurn
	// Packet summarizes everything older, nil when nothing was compressed.
	Packet *MemoryPacket
}

// CompressHistory splits conversation history into a verbatim recent
// window and a memory packet for the older prefix. History at or below the
// window length is returned untouched with no packet.
func (c *Compressor) CompressHistory(history []core.ChatTurn) *HistoryResult {
	if len(history) <= c.recentWindow {
		return &HistoryResult{Recent: history}
	}

	cut := len(history) - c.recentWindow
	older := history[:cut]
	recent := history[cut:]

	packet := &MemoryPacket{CompressedTurns: len(older)}

	var userSummaries []string
	var keyFacts []string
	seenRefs := make(map[string]bool)
	var refs []string

	for _, turn := range older {
		switch turn.Role {
		case "user":
			userSummaries = append(userSummaries, truncate(turn.Content, userSummaryMaxLen))
		case "assistant":
			for _, sentence := range splitSentences(turn.Content) {
				if len(sentence) > keyFactMinSentence && c.vocab.MentionsKeyFact(sentence) {
					keyFacts = append(keyFacts, truncate(sentence, keyFactMaxLen))
				}
			}
			for _, ref := range eventRefPattern.FindAllString(turn.Content, -1) {
				if !seenRefs[ref] {
					seenRefs[ref] = true
					refs = append(refs, ref)
				}
			}
		}
	}

	packet.UserSummaries = lastN(userSummaries, maxUserSummaries)
	packet.KeyFacts = lastN(keyFacts, maxKeyFacts)
	if len(refs) > maxEventRefs {
		refs = refs[:maxEventRefs]
	}
	packet.EventRefs = refs

	return &HistoryResult{Recent: recent, Packet: packet}
}

// splitSentences breaks assistant text into candidate key-fact sentences.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// truncate shortens s to max runes with an ellipsis marker.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// lastN returns the trailing n items of a slice.
func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/engramhq/engram-go/compress"
	"github.com/engramhq/engram-go/core"
)

// classifySystemPrompt backs the trivial-noise pre-filter.
const classifySystemPrompt = `You decide whether a chat message is substantive.

A message is substantive when it could contain a commitment, plan, intent,
purchase, trip, subscription, deadline, or a request to change one.
Greetings, acknowledgements ("ok", "lol", "thanks"), stickers described as
text, and pure small talk are not substantive.`

// detectActionSystemPrompt backs the action-detection operation.
const detectActionSystemPrompt = `You detect whether a chat message is an ACTION on an existing memory event
(cancel it, delete it, mark done, ignore, snooze, postpone, or modify a field)
rather than new information.

Rules:
- Only report an action when the message clearly refers to something already
  tracked. Otherwise set is_action=false and action="none".
- target_keywords must be words usable to find the target event by keyword
  overlap.
- For snooze/postpone without an explicit duration, omit snooze_minutes.
- For modify, fill only the new_* fields the user actually changed.
- Events below are one per line: id|type|status|"title"|time|location|sender|keywords.`

// extractEventsSystemPrompt backs the event-extraction operation.
const extractEventsSystemPrompt = `You extract structured memory events from a chat message.

Rules:
- Extract zero events when nothing is worth remembering.
- type is one of: meeting, deadline, reminder, travel, task, subscription,
  recommendation, other.
- event_time: an absolute ISO-8601 timestamp when the message implies one,
  else empty. Resolve relative dates ("tomorrow 5pm") against the current
  time you are given.
- keywords: 3-6 lowercase search words for the event.
- If the message adds detail to one of the existing events listed (one per
  line: id|type|status|"title"|time|location|sender|keywords), set
  event_action to "update" (field corrections) or "merge" (additional
  detail/participants) and target_event_id accordingly; otherwise use
  "create".
- confidence reflects how certain you are this is a real event.`

// validateRelevanceSystemPrompt backs the relevance-validation operation.
const validateRelevanceSystemPrompt = `You judge which stored memory events are relevant to the page a user is
visiting right now. Candidates are one per line, numbered, in the format
index. id|type|status|"title"|time|location|sender|keywords.

Return the indices of genuinely relevant candidates only; an empty list is
a correct answer. confidence is your overall certainty in the judgment.`

// formatContext renders the preceding conversation messages for a prompt.
func formatContext(context []string) string {
	if len(context) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, m := range context {
		sb.WriteString("- ")
		sb.WriteString(m)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// formatEvents renders events in the dense wire format. The field order and
// delimiter are a contract: extraction and validation quality depend on the
// model seeing the exact format the prompts describe.
func formatEvents(events []core.Event, now time.Time, numbered bool) string {
	if len(events) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, e := range events {
		if numbered {
			fmt.Fprintf(&sb, "%d. ", i)
		}
		sb.WriteString(compress.EncodeLine(e, now))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func detectActionUserPrompt(text string, context []string, active []core.Event, ts time.Time) string {
	return fmt.Sprintf(
		"Message (sent %s):\n%s\n\nPreceding messages:\n%s\n\nActive events:\n%s",
		ts.Format(time.RFC3339), text, formatContext(context), formatEvents(active, ts, false))
}

func extractEventsUserPrompt(text string, context []string, now time.Time, existing []core.Event, ts time.Time) string {
	return fmt.Sprintf(
		"Current time: %s\nMessage (sent %s):\n%s\n\nPreceding messages:\n%s\n\nExisting events:\n%s",
		now.Format(time.RFC3339), ts.Format(time.RFC3339), text,
		formatContext(context), formatEvents(existing, now, false))
}

func validateRelevanceUserPrompt(url, title string, candidates []core.Event) string {
	return fmt.Sprintf(
		"Visited URL: %s\nPage title: %s\n\nCandidates:\n%s",
		url, title, formatEvents(candidates, time.Now(), true))
}

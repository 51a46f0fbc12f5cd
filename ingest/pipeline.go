// Package ingest runs the end-to-end message pipeline: durable intake,
// noise filtering, action classification and event extraction. A failure
// on one message never affects another; by the time any model call runs,
// the raw message is already persisted.
package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/engramhq/engram-go/classify"
	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/extract"
	"github.com/engramhq/engram-go/llm"
	"github.com/engramhq/engram-go/match"
	"github.com/engramhq/engram-go/store"
)

const (
	// DefaultContextWindow is how many prior conversation messages are
	// handed to the model as context.
	DefaultContextWindow = 5

	// DefaultActiveLimit bounds the most-recently-active event snapshot.
	DefaultActiveLimit = 20
)

// Summary reports what the pipeline did with one message.
type Summary struct {
	MessageID string
	// Skipped is true when the message never reached classification.
	Skipped bool
	Reason  string
	// Action is set when the message was consumed as an action.
	Action *classify.Outcome
	// Extraction is set when the message went through the extractor.
	Extraction *extract.Result
	// Matches holds related stored events when the message shared a URL
	// and a matcher is configured.
	Matches *match.Result
}

// Pipeline wires the store, the model collaborator and the two routing
// stages together.
type Pipeline struct {
	store         store.Store
	llm           llm.Collaborator
	classifier    *classify.Classifier
	extractor     *extract.Extractor
	matcher       *match.Matcher
	contextWindow int
	activeLimit   int
	now           func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithContextWindow sets how many prior messages are passed as context.
func WithContextWindow(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.contextWindow = n
		}
	}
}

// WithActiveLimit sets the size of the active-event snapshot.
func WithActiveLimit(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.activeLimit = n
		}
	}
}

// WithMatcher enables context matching for messages that share a URL.
func WithMatcher(m *match.Matcher) Option {
	return func(p *Pipeline) {
		p.matcher = m
	}
}

// WithClock overrides the pipeline's time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a pipeline around a store, a model collaborator and an
// extractor. The classifier is built internally; it shares the store.
func New(st store.Store, collaborator llm.Collaborator, extractor *extract.Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         st,
		llm:           collaborator,
		classifier:    classify.New(st, collaborator),
		extractor:     extractor,
		contextWindow: DefaultContextWindow,
		activeLimit:   DefaultActiveLimit,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleFrame decodes a raw webhook frame and processes it. Frames with
// no textual content are persistence-free no-ops.
func (p *Pipeline) HandleFrame(ctx context.Context, data []byte) (*Summary, error) {
	frame, err := core.ParseInboundFrame(data)
	if err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	msg, ok := frame.ToMessage()
	if !ok {
		return &Summary{Skipped: true, Reason: "no text content"}, nil
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return p.Process(ctx, msg)
}

// Process runs one message through intake, the noise gate, the action
// classifier and, if unhandled, the extractor.
func (p *Pipeline) Process(ctx context.Context, msg *core.Message) (*Summary, error) {
	if err := p.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	if msg.PushName != "" {
		if err := p.store.UpsertContact(ctx, msg.Sender, msg.PushName); err != nil {
			log.Printf("[INGEST] Contact upsert failed for %s: %v", msg.Sender, err)
		}
	}

	summary := &Summary{MessageID: msg.ID}

	substantive, err := p.llm.Classify(ctx, msg.Content)
	if err != nil {
		return nil, fmt.Errorf("classify message %s: %w", msg.ID, err)
	}
	if !substantive {
		log.Printf("[INGEST] Message %s filtered as noise", msg.ID)
		summary.Skipped = true
		summary.Reason = "noise"
		return summary, nil
	}

	if p.matcher != nil {
		if shared := firstURL(msg.Content); shared != "" {
			matched, err := p.matcher.Match(ctx, shared, "")
			if err != nil {
				log.Printf("[INGEST] Context match failed for %s: %v", shared, err)
			} else {
				summary.Matches = matched
			}
		}
	}

	convo, err := p.conversationContext(ctx, msg)
	if err != nil {
		return nil, err
	}
	active, err := p.store.ActiveEvents(ctx, p.activeLimit)
	if err != nil {
		return nil, fmt.Errorf("active events: %w", err)
	}

	outcome, err := p.classifier.Process(ctx, msg.Content, convo, active, msg.Timestamp)
	if err != nil {
		return nil, err
	}
	if outcome.Handled {
		summary.Action = outcome
		return summary, nil
	}

	extraction, err := p.extractor.Process(ctx, msg.Content, convo, p.now(), msg.Timestamp, active, msg.Sender, msg.ID)
	if err != nil {
		return nil, err
	}
	summary.Extraction = extraction
	return summary, nil
}

// ConfirmChange applies a previously proposed modification. Proposals are
// never applied implicitly; the caller resubmits the proposal after the
// user approves it.
func (p *Pipeline) ConfirmChange(ctx context.Context, pending *core.PendingAction) error {
	if pending == nil || pending.EventID <= 0 {
		return fmt.Errorf("confirm change: empty proposal")
	}
	event, err := p.store.GetEvent(ctx, pending.EventID)
	if err != nil {
		return fmt.Errorf("confirm change: %w", err)
	}
	if event == nil {
		return fmt.Errorf("confirm change: event %d no longer exists", pending.EventID)
	}

	for field, value := range pending.Changes {
		switch field {
		case "title":
			event.Title = value
		case "description":
			event.Description = value
		case "location":
			event.Location = value
		case "event_time":
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return fmt.Errorf("confirm change: bad event_time %q: %w", value, err)
			}
			event.EventTime = &t
		default:
			log.Printf("[INGEST] Ignoring unknown change field %q for event %d", field, pending.EventID)
		}
	}

	if err := p.store.UpdateEvent(ctx, event); err != nil {
		return fmt.Errorf("confirm change: %w", err)
	}
	log.Printf("[INGEST] Applied confirmed change to event %d (%q)", event.ID, event.Title)
	return nil
}

// firstURL returns the first URL-looking token of the text, stripped of
// trailing punctuation, or "".
func firstURL(text string) string {
	for _, tok := range strings.Fields(text) {
		lower := strings.ToLower(tok)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
			return strings.TrimRight(tok, ".,;:!?)")
		}
	}
	return ""
}

// conversationContext formats the most recent prior messages of the
// conversation, oldest first.
func (p *Pipeline) conversationContext(ctx context.Context, msg *core.Message) ([]string, error) {
	recent, err := p.store.RecentMessages(ctx, msg.ConversationID, p.contextWindow, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	// RecentMessages is newest first.
	out := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		name := m.PushName
		if name == "" {
			name = m.Sender
		}
		out = append(out, fmt.Sprintf("%s: %s", name, m.Content))
	}
	return out, nil
}

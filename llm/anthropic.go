package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/engramhq/engram-go/core"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// Client implements Collaborator against the Anthropic Messages API.
// Every operation forces a single tool call so the model must answer with
// schema-conforming JSON instead of prose.
type Client struct {
	api       *anthropic.Client
	model     string
	maxTokens int64
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens overrides the default response token cap.
func WithMaxTokens(n int64) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// NewClient creates a Collaborator backed by the given Anthropic client.
func NewClient(api *anthropic.Client, opts ...Option) *Client {
	c := &Client{
		api:       api,
		model:     DefaultModel,
		maxTokens: 2048,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// callTool sends one user message with a single forced tool and unmarshals
// the tool input into out.
func (c *Client) callTool(ctx context.Context, system, user, toolName, toolDesc string, schema map[string]interface{}, out interface{}) error {
	props, _ := schema["properties"].(map[string]interface{})
	var required []string
	if req, ok := schema["required"].([]string); ok {
		required = req
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        toolName,
					Description: anthropic.String(toolDesc),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: props,
						Required:   required,
					},
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		},
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return fmt.Errorf("claude API error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "tool_use" {
			if err := json.Unmarshal(block.Input, out); err != nil {
				return fmt.Errorf("decode %s result: %w", toolName, err)
			}
			return nil
		}
	}
	return fmt.Errorf("no %s tool call in response", toolName)
}

// Classify implements the trivial-noise pre-filter.
func (c *Client) Classify(ctx context.Context, text string) (bool, error) {
	var result struct {
		Substantive bool `json:"substantive"`
	}
	schema := ObjectSchema(map[string]interface{}{
		"substantive": BooleanProperty("True when the message could carry a memory-worthy commitment, plan or change."),
	}, "substantive")

	err := c.callTool(ctx, classifySystemPrompt, "Message:\n"+text,
		"classify_message", "Report whether the message is substantive.", schema, &result)
	if err != nil {
		return false, err
	}
	return result.Substantive, nil
}

// DetectAction implements the action-detection operation.
func (c *Client) DetectAction(ctx context.Context, text string, context []string, active []core.Event, ts time.Time) (*ActionDetection, error) {
	schema := ObjectSchema(map[string]interface{}{
		"is_action":  BooleanProperty("True when the message acts on an existing event."),
		"action":     StringEnumProperty("What the message wants done.", "cancel", "delete", "complete", "ignore", "snooze", "postpone", "modify", "none"),
		"confidence": NumberProperty("Certainty in [0,1]."),
		"target_description": StringProperty("Free-text description of the targeted event."),
		"target_keywords":    StringArrayProperty("Lowercase words to locate the target event."),
		"snooze_minutes":     IntegerProperty("Explicit snooze duration in minutes, if any."),
		"new_time":           StringProperty("For modify: the new time as stated or ISO-8601."),
		"new_title":          StringProperty("For modify: the new title."),
		"new_location":       StringProperty("For modify: the new location."),
		"new_description":    StringProperty("For modify: the new description."),
	}, "is_action", "action", "confidence")

	var result ActionDetection
	err := c.callTool(ctx, detectActionSystemPrompt,
		detectActionUserPrompt(text, context, active, ts),
		"detect_action", "Report whether the message is an action on an existing event.", schema, &result)
	if err != nil {
		return nil, err
	}
	result.Confidence = core.ClampConfidence(result.Confidence)
	log.Printf("[LLM] detect_action: is_action=%t action=%s confidence=%.2f", result.IsAction, result.Action, result.Confidence)
	return &result, nil
}

// ExtractEvents implements the event-extraction operation.
func (c *Client) ExtractEvents(ctx context.Context, text string, context []string, now time.Time, existing []core.Event, ts time.Time) ([]EventCandidate, error) {
	eventSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"type":            StringEnumProperty("Event type.", "meeting", "deadline", "reminder", "travel", "task", "subscription", "recommendation", "other"),
			"title":           StringProperty("Short event title."),
			"description":     StringProperty("One-sentence description."),
			"event_time":      StringProperty("Absolute ISO-8601 time, or empty."),
			"location":        StringProperty("Location or destination, or empty."),
			"participants":    StringArrayProperty("Names of involved people."),
			"keywords":        StringArrayProperty("3-6 lowercase search keywords."),
			"confidence":      NumberProperty("Certainty in [0,1]."),
			"event_action":    StringEnumProperty("How to apply this candidate.", "create", "update", "merge"),
			"target_event_id": IntegerProperty("Existing event id for update/merge."),
		},
		"required": []string{"type", "title", "confidence"},
	}
	schema := ObjectSchema(map[string]interface{}{
		"events": ArrayProperty("Extracted events; empty when nothing is memory-worthy.", eventSchema),
	}, "events")

	var result struct {
		Events []EventCandidate `json:"events"`
	}
	err := c.callTool(ctx, extractEventsSystemPrompt,
		extractEventsUserPrompt(text, context, now, existing, ts),
		"extract_events", "Extract structured memory events from the message.", schema, &result)
	if err != nil {
		return nil, err
	}
	log.Printf("[LLM] extract_events: %d candidate(s)", len(result.Events))
	return result.Events, nil
}

// ValidateRelevance implements the relevance-validation operation.
func (c *Client) ValidateRelevance(ctx context.Context, url, title string, candidates []core.Event) (*RelevanceResult, error) {
	schema := ObjectSchema(map[string]interface{}{
		"relevant":   IntegerArrayProperty("Indices of candidates relevant to this page."),
		"confidence": NumberProperty("Overall certainty in [0,1]."),
	}, "relevant", "confidence")

	var result RelevanceResult
	err := c.callTool(ctx, validateRelevanceSystemPrompt,
		validateRelevanceUserPrompt(url, title, candidates),
		"validate_relevance", "Pick the candidates relevant to the visited page.", schema, &result)
	if err != nil {
		return nil, err
	}
	result.Confidence = core.ClampConfidence(result.Confidence)
	return &result, nil
}

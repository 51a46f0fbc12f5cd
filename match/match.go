// Package match maps a visited URL to the stored events it should
// re-surface.
//
// The search cascades: deterministic keyword extraction from an ordered
// URL rule table, an exact location lookup per keyword, a full-text
// relevance fallback over the whole keyword set, and finally model
// validation of the narrowed candidates. A cheaper realtime variant skips
// validation for latency-sensitive checks and caches its results.
package match

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/engramhq/engram-go/core"
	"github.com/engramhq/engram-go/llm"
	"github.com/engramhq/engram-go/store"
)

// Cascade bounds.
const (
	DefaultHotWindowDays = 30
	candidateCap         = 10
	realtimeKeywordCap   = 3
	realtimeCandidateCap = 5
	genericTokenCap      = 5
	realtimeCacheTTL     = 2 * time.Minute
)

// Result is the outcome of a context check.
type Result struct {
	// Matched is true when at least one event is relevant.
	Matched bool
	// Events are the relevant events, empty when Matched is false.
	Events []core.Event
	// Confidence is the validator's overall certainty. The realtime
	// variant never validates and always reports 0.
	Confidence float64
	// Activity is the rule table's label for the page, "" when only
	// generic extraction applied.
	Activity string
	// Keywords are the extracted search keywords, for observability.
	Keywords []string
}

// Matcher runs the cascading context search.
type Matcher struct {
	store         store.Store
	llm           llm.Collaborator
	rules         []Rule
	hotWindowDays int
	cache         *ristretto.Cache
}

// Option configures the matcher.
type Option func(*Matcher)

// WithHotWindow bounds candidate age in days.
func WithHotWindow(days int) Option {
	return func(m *Matcher) {
		if days > 0 {
			m.hotWindowDays = days
		}
	}
}

// WithRules replaces the shipped rule table. Ordering is preserved as
// given.
func WithRules(rules []Rule) Option {
	return func(m *Matcher) {
		m.rules = rules
	}
}

// New creates a matcher. The realtime variant's result cache is created
// eagerly; cache failures only disable caching.
func New(st store.Store, collaborator llm.Collaborator, opts ...Option) *Matcher {
	m := &Matcher{
		store:         st,
		llm:           collaborator,
		rules:         DefaultRules(),
		hotWindowDays: DefaultHotWindowDays,
	}
	for _, opt := range opts {
		opt(m)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 12,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		log.Printf("[MATCH] Realtime cache disabled: %v", err)
	} else {
		m.cache = cache
	}
	return m
}

// ExtractKeywords runs Step 1: the ordered rule table, unioned with
// generic path tokens; title words are the last resort.
func (m *Matcher) ExtractKeywords(rawURL, title string) (activity string, keywords []string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + rawURL)
		if err != nil {
			return "", nil
		}
	}

	var ruleKeywords []string
	for _, rule := range m.rules {
		if rule.Match(u) {
			activity = rule.Activity
			ruleKeywords = rule.Extract(u, title)
			break
		}
	}

	generic := pathTokens(u)
	if activity == "" {
		// No rule claimed the page: generic tokens plus title words.
		keywords = dedupe(append(generic, titleWords(title, 3, genericTokenCap)...))
		return "", keywords
	}
	return activity, dedupe(append(ruleKeywords, generic...))
}

// Match runs the full three-step context search for a visited page.
func (m *Matcher) Match(ctx context.Context, rawURL, title string) (*Result, error) {
	activity, keywords := m.ExtractKeywords(rawURL, title)
	result := &Result{Activity: activity, Keywords: keywords}
	if len(keywords) == 0 {
		return result, nil
	}

	candidates, err := m.lookup(ctx, keywords, keywords, candidateCap)
	if err != nil {
		return nil, err
	}
	log.Printf("[MATCH] %s: %d keyword(s) -> %d candidate(s)", rawURL, len(keywords), len(candidates))
	if len(candidates) == 0 {
		return result, nil
	}

	validation, err := m.llm.ValidateRelevance(ctx, rawURL, title, candidates)
	if err != nil {
		return nil, fmt.Errorf("validate relevance: %w", err)
	}
	result.Confidence = validation.Confidence

	for _, idx := range validation.Relevant {
		if idx >= 0 && idx < len(candidates) {
			result.Events = append(result.Events, candidates[idx])
		}
	}
	result.Matched = len(result.Events) > 0
	return result, nil
}

// RealtimeCheck is the cheap variant: extraction plus the Step-2 keyword
// search over the top keywords only, no model validation. Results are
// cached briefly because browsers re-fire context checks on every
// navigation within the same site.
func (m *Matcher) RealtimeCheck(ctx context.Context, rawURL, title string) (*Result, error) {
	cacheKey := rawURL + "|" + title
	if m.cache != nil {
		if cached, ok := m.cache.Get(cacheKey); ok {
			if r, ok := cached.(*Result); ok {
				return r, nil
			}
		}
	}

	activity, keywords := m.ExtractKeywords(rawURL, title)
	result := &Result{Activity: activity, Keywords: keywords}
	if len(keywords) == 0 {
		return result, nil
	}
	top := keywords
	if len(top) > realtimeKeywordCap {
		top = top[:realtimeKeywordCap]
	}

	candidates, err := m.lookup(ctx, top, top, realtimeCandidateCap)
	if err != nil {
		return nil, err
	}
	result.Events = candidates
	result.Matched = len(candidates) > 0

	if m.cache != nil {
		m.cache.SetWithTTL(cacheKey, result, 1, realtimeCacheTTL)
	}
	return result, nil
}

// lookup is Step 2: one exact location lookup per keyword in order,
// stopping at the first keyword with any hits, then the full-text fallback
// over the whole set.
func (m *Matcher) lookup(ctx context.Context, cascade, full []string, limit int) ([]core.Event, error) {
	for _, kw := range cascade {
		events, err := m.store.SearchEventsByLocation(ctx, kw, m.hotWindowDays, limit)
		if err != nil {
			return nil, fmt.Errorf("location lookup %q: %w", kw, err)
		}
		if len(events) > 0 {
			return events, nil
		}
	}

	events, err := m.store.SearchEventsByKeywords(ctx, full, m.hotWindowDays, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return events, nil
}

// pathTokens extracts generic keywords from URL path segments: URL-decoded,
// lowercased, longer than 2 characters, not purely numeric, capped.
func pathTokens(u *url.URL) []string {
	var out []string
	for _, seg := range strings.Split(u.Path, "/") {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			decoded = seg
		}
		for _, tok := range strings.FieldsFunc(strings.ToLower(decoded), func(r rune) bool {
			return r == '-' || r == '_' || r == '+' || r == '.' || r == ' '
		}) {
			if len(tok) > 2 && !isNumeric(tok) {
				out = append(out, tok)
				if len(out) == genericTokenCap {
					return out
				}
			}
		}
	}
	return out
}

// dedupe removes duplicate keywords preserving first-seen order.
func dedupe(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

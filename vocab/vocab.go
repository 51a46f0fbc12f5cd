// Package vocab holds the hand-curated keyword vocabularies the pipeline
// resolves context tags and interest triggers against.
//
// The tables are configuration data, not logic: defaults are compiled in
// and any table can be replaced from a YAML file, so resolution order and
// matching stay independently testable from the language-model calls.
package vocab

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/engramhq/engram-go/core"
)

// Vocab bundles every static vocabulary the pipeline consults.
type Vocab struct {
	// Services maps a streaming/software/subscription service name to its
	// canonical context tag.
	Services map[string]string `yaml:"services"`

	// Destinations are travel destination names, consulted only for events
	// of type travel or recommendation.
	Destinations []string `yaml:"destinations"`

	BeautyTerms  []string `yaml:"beauty_terms"`
	FashionTerms []string `yaml:"fashion_terms"`
	GiftTerms    []string `yaml:"gift_terms"`

	BeautyTag  string `yaml:"beauty_tag"`
	FashionTag string `yaml:"fashion_tag"`
	GiftTag    string `yaml:"gift_tag"`

	// Cities are location names matched directly against an event's
	// location field, the lowest-priority bucket.
	Cities []string `yaml:"cities"`

	// InterestKeywords is the fixed vocabulary that promotes an event
	// keyword into a keyword trigger.
	InterestKeywords []string `yaml:"interest_keywords"`

	// KeyFactTerms is the domain vocabulary used to pick assistant "key
	// fact" sentences during chat history compression.
	KeyFactTerms []string `yaml:"key_fact_terms"`
}

// Default returns the compiled-in vocabulary tables.
func Default() *Vocab {
	return &Vocab{
		Services: map[string]string{
			"netflix":  "netflix.com",
			"spotify":  "spotify.com",
			"hotstar":  "hotstar.com",
			"disney":   "disneyplus.com",
			"prime":    "primevideo.com",
			"youtube":  "youtube.com",
			"hulu":     "hulu.com",
			"notion":   "notion.so",
			"figma":    "figma.com",
			"slack":    "slack.com",
			"zoom":     "zoom.us",
			"github":   "github.com",
			"adobe":    "adobe.com",
			"canva":    "canva.com",
			"dropbox":  "dropbox.com",
			"audible":  "audible.com",
			"linkedin": "linkedin.com",
		},
		Destinations: []string{
			"goa", "bali", "paris", "london", "dubai", "tokyo", "manali",
			"jaipur", "singapore", "thailand", "maldives", "udaipur",
			"rishikesh", "kerala", "ladakh", "amsterdam", "barcelona",
		},
		BeautyTerms: []string{
			"lipstick", "makeup", "skincare", "serum", "foundation",
			"mascara", "perfume", "moisturizer", "shampoo", "eyeliner",
			"nailpolish", "concealer",
		},
		FashionTerms: []string{
			"dress", "shoes", "sneakers", "jeans", "shirt", "tshirt",
			"saree", "kurta", "jacket", "handbag", "heels", "hoodie",
		},
		GiftTerms: []string{"gift", "present", "surprise"},

		BeautyTag:  "shopping.beauty",
		FashionTag: "shopping.fashion",
		GiftTag:    "shopping",

		Cities: []string{
			"goa", "bali", "paris", "london", "dubai", "tokyo", "manali",
			"jaipur", "singapore", "mumbai", "delhi", "bangalore", "pune",
			"hyderabad", "chennai", "kolkata", "new york", "berlin",
		},
		InterestKeywords: []string{
			"travel", "flight", "hotel", "buy", "gift", "birthday",
			"meeting", "deadline", "dinner", "lunch", "coffee",
		},
		KeyFactTerms: []string{
			"event", "meeting", "reminder", "deadline", "scheduled",
			"cancel", "done", "recommend", "gift", "travel",
			"subscription", "tomorrow", "today", "next week",
		},
	}
}

// Load reads vocabulary overrides from a YAML file. Tables present in the
// file replace the corresponding default table wholesale; absent tables
// keep their defaults.
func Load(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab file: %w", err)
	}
	var override Vocab
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse vocab file: %w", err)
	}

	v := Default()
	if len(override.Services) > 0 {
		v.Services = override.Services
	}
	if len(override.Destinations) > 0 {
		v.Destinations = override.Destinations
	}
	if len(override.BeautyTerms) > 0 {
		v.BeautyTerms = override.BeautyTerms
	}
	if len(override.FashionTerms) > 0 {
		v.FashionTerms = override.FashionTerms
	}
	if len(override.GiftTerms) > 0 {
		v.GiftTerms = override.GiftTerms
	}
	if len(override.Cities) > 0 {
		v.Cities = override.Cities
	}
	if len(override.InterestKeywords) > 0 {
		v.InterestKeywords = override.InterestKeywords
	}
	if len(override.KeyFactTerms) > 0 {
		v.KeyFactTerms = override.KeyFactTerms
	}
	if override.BeautyTag != "" {
		v.BeautyTag = override.BeautyTag
	}
	if override.FashionTag != "" {
		v.FashionTag = override.FashionTag
	}
	if override.GiftTag != "" {
		v.GiftTag = override.GiftTag
	}
	return v, nil
}

// ResolveTag scans an event's combined text against the vocabulary buckets
// in priority order and returns the first matching context tag, or "" when
// no bucket matches.
//
// Bucket order is semantically significant: services, travel destinations
// (travel/recommendation types only), beauty, fashion, gift intent, and
// finally direct location-name matches.
func (v *Vocab) ResolveTag(evType core.EventType, title, description, location, keywords string) string {
	text := strings.ToLower(strings.Join([]string{title, description, location, keywords}, " "))

	// Map iteration order is random; scan service terms sorted so a text
	// mentioning two services always resolves the same tag.
	terms := make([]string, 0, len(v.Services))
	for term := range v.Services {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	for _, term := range terms {
		if strings.Contains(text, term) {
			return v.Services[term]
		}
	}

	if evType == core.EventTravel || evType == core.EventRecommendation {
		for _, dest := range v.Destinations {
			if strings.Contains(text, dest) {
				return "travel." + strings.ReplaceAll(dest, " ", "")
			}
		}
	}

	for _, term := range v.BeautyTerms {
		if strings.Contains(text, term) {
			return v.BeautyTag
		}
	}
	for _, term := range v.FashionTerms {
		if strings.Contains(text, term) {
			return v.FashionTag
		}
	}
	for _, term := range v.GiftTerms {
		if strings.Contains(text, term) {
			return v.GiftTag
		}
	}

	loc := strings.ToLower(location)
	for _, city := range v.Cities {
		if loc != "" && strings.Contains(loc, city) {
			return "location." + strings.ReplaceAll(city, " ", "")
		}
	}
	return ""
}

// IsInterestKeyword reports whether a keyword belongs to the fixed interest
// vocabulary that qualifies it for a keyword trigger.
func (v *Vocab) IsInterestKeyword(keyword string) bool {
	k := strings.ToLower(keyword)
	for _, term := range v.InterestKeywords {
		if k == term || strings.Contains(k, term) {
			return true
		}
	}
	return false
}

// MentionsKeyFact reports whether a sentence mentions the compressor's
// domain vocabulary.
func (v *Vocab) MentionsKeyFact(sentence string) bool {
	s := strings.ToLower(sentence)
	for _, term := range v.KeyFactTerms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

package match

import (
	"net/url"
	"strings"
)

// Rule is one entry of the ordered URL table: a predicate over the parsed
// URL and a keyword extractor for pages it claims.
//
// Ordering is semantically significant: specific rules come before generic
// domain rules, and the first matching rule wins.
type Rule struct {
	// Activity labels what the user is doing on a matching page.
	Activity string

	// Match reports whether the rule claims the URL.
	Match func(u *url.URL) bool

	// Extract returns rule-specific keywords for the page.
	Extract func(u *url.URL, title string) []string
}

// hostContains builds a predicate matching a host fragment.
func hostContains(fragment string) func(u *url.URL) bool {
	return func(u *url.URL) bool {
		return strings.Contains(strings.ToLower(u.Host), fragment)
	}
}

// fixedKeywords builds an extractor returning constant keywords plus title
// words.
func fixedKeywords(keywords ...string) func(u *url.URL, title string) []string {
	return func(u *url.URL, title string) []string {
		return append(append([]string{}, keywords...), titleWords(title, 3, 3)...)
	}
}

// DefaultRules is the shipped ordered rule table.
func DefaultRules() []Rule {
	return []Rule{
		// Specific product pages before their generic domains.
		{
			Activity: "watching a title page",
			Match: func(u *url.URL) bool {
				return strings.Contains(u.Host, "netflix") && strings.Contains(u.Path, "/title/")
			},
			Extract: func(u *url.URL, title string) []string {
				return append([]string{"netflix"}, titleWords(title, 3, 4)...)
			},
		},
		{
			Activity: "browsing a product",
			Match: func(u *url.URL) bool {
				return strings.Contains(u.Host, "amazon") &&
					(strings.Contains(u.Path, "/dp/") || strings.Contains(u.Path, "/gp/product/"))
			},
			Extract: func(u *url.URL, title string) []string {
				return append(titleWords(title, 3, 4), "buy")
			},
		},
		{
			Activity: "searching flights",
			Match: func(u *url.URL) bool {
				return strings.Contains(u.Host, "google") && strings.Contains(u.Path, "/travel/flights")
			},
			Extract: fixedKeywords("flight", "travel"),
		},

		// Generic domain rules.
		{Activity: "streaming", Match: hostContains("netflix"), Extract: fixedKeywords("netflix", "streaming")},
		{Activity: "streaming", Match: hostContains("hotstar"), Extract: fixedKeywords("hotstar", "streaming")},
		{Activity: "streaming", Match: hostContains("primevideo"), Extract: fixedKeywords("prime", "streaming")},
		{Activity: "listening", Match: hostContains("spotify"), Extract: fixedKeywords("spotify", "music")},
		{Activity: "watching videos", Match: hostContains("youtube"), Extract: fixedKeywords("youtube", "video")},
		{Activity: "shopping", Match: hostContains("amazon"), Extract: fixedKeywords("amazon", "shopping", "buy")},
		{Activity: "shopping", Match: hostContains("flipkart"), Extract: fixedKeywords("flipkart", "shopping", "buy")},
		{Activity: "shopping fashion", Match: hostContains("myntra"), Extract: fixedKeywords("myntra", "fashion", "shopping")},
		{Activity: "shopping beauty", Match: hostContains("nykaa"), Extract: fixedKeywords("nykaa", "beauty", "makeup", "shopping")},
		{Activity: "planning travel", Match: hostContains("booking."), Extract: fixedKeywords("hotel", "travel")},
		{Activity: "planning travel", Match: hostContains("airbnb"), Extract: fixedKeywords("airbnb", "stay", "travel")},
		{Activity: "planning travel", Match: hostContains("makemytrip"), Extract: fixedKeywords("flight", "hotel", "travel")},
		{Activity: "navigating", Match: hostContains("maps.google"), Extract: fixedKeywords("location", "directions")},
		{Activity: "checking calendar", Match: hostContains("calendar.google"), Extract: fixedKeywords("meeting", "calendar")},
		{Activity: "working", Match: hostContains("github"), Extract: fixedKeywords("github", "work")},
		{Activity: "messaging", Match: hostContains("web.whatsapp"), Extract: fixedKeywords("whatsapp", "chat")},
	}
}

// titleWords returns up to max lowercase title words longer than minLen.
func titleWords(title string, minLen, max int) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, ".,!?;:()[]\"'|-")
		if len(w) > minLen && !isNumeric(w) {
			out = append(out, w)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

// isNumeric reports whether a token is purely digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

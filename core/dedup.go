package core

import "strings"

// titleOverlapRatio is the minimum length ratio for a substring containment
// to count as a duplicate. It guards against a short title ("Meeting")
// falsely matching inside a longer, more specific one ("Meeting with
// Nityam at 5pm"), and vice versa.
const titleOverlapRatio = 0.8

// NormalizeTitle lowercases a title and collapses interior whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// TitlesDuplicate reports whether two event titles describe the same event.
// Titles match when equal after normalization, or when one contains the
// other and their lengths are close enough that the containment is not an
// accident of specificity.
func TitlesDuplicate(a, b string) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	shorter, longer := na, nb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return false
	}
	return float64(len(shorter)) >= titleOverlapRatio*float64(len(longer))
}

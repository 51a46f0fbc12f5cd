package core_test

import (
	"testing"

	"github.com/engramhq/engram-go/core"
)

func TestTitlesDuplicate_EqualAfterNormalization(t *testing.T) {
	if !core.TitlesDuplicate("Dinner with Sam", "dinner  with sam") {
		t.Error("Expected titles equal after normalization to be duplicates")
	}
}

func TestTitlesDuplicate_CloseContainment(t *testing.T) {
	// The shorter title covers most of the longer one.
	if !core.TitlesDuplicate("Cancel Netflix subscription", "Cancel Netflix subscription!") {
		t.Error("Expected near-identical titles to be duplicates")
	}
}

func TestTitlesDuplicate_ShortTitleDoesNotSwallowSpecificOne(t *testing.T) {
	// "Meeting" appears inside the longer title, but the longer title is a
	// different, more specific event.
	if core.TitlesDuplicate("Meeting", "Meeting with Nityam at 5pm") {
		t.Error("Expected a generic short title not to match a specific longer one")
	}
	if core.TitlesDuplicate("Meeting with Nityam at 5pm", "Meeting") {
		t.Error("Expected the containment guard to apply in both directions")
	}
}

func TestTitlesDuplicate_Empty(t *testing.T) {
	if core.TitlesDuplicate("", "Dinner") {
		t.Error("Expected empty title never to match")
	}
	if core.TitlesDuplicate("", "") {
		t.Error("Expected two empty titles not to match")
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := core.NormalizeTitle("  Dinner   WITH Sam "); got != "dinner with sam" {
		t.Errorf("NormalizeTitle = %q", got)
	}
}

package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Met Ana today, write to ana@example.com or call +1 (555) 123-9876, card 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
	if strings.Contains(out, "ana@example.com") {
		t.Fatalf("email leaked: %q", out)
	}
}

func TestRedactPIILeavesPlainJournalText(t *testing.T) {
	input := "Walked by the lake and felt calm 🌸"
	out, changed := RedactPII(input)
	if changed || out != input {
		t.Fatalf("RedactPII(%q) = %q, %v", input, out, changed)
	}
}

func TestLogPreviewTruncatesAndFlattens(t *testing.T) {
	got := LogPreview("first line\nsecond   line ✨ with more words", 20)
	if strings.Contains(got, "\n") {
		t.Fatalf("preview kept newline: %q", got)
	}
	if got != "first line second li…" {
		t.Fatalf("LogPreview() = %q", got)
	}
}

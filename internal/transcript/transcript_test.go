package transcript

import (
	"fmt"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"hello", "hello"},
		{"  hello   there\tworld \n", "hello there world"},
		{"already normal", "already normal"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", "  a  b  ", "x\ty\nz", "one two three"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestIsRepetitionEmptyInputs(t *testing.T) {
	if IsRepetition("some words here", "", 0.7) {
		t.Error("empty previous text must not be a repetition")
	}
	if IsRepetition("", "some words here", 0.7) {
		t.Error("empty new text must not be a repetition")
	}
}

func TestIsRepetitionShortText(t *testing.T) {
	// Fewer than three words is too short to judge, even with full overlap.
	if IsRepetition("the quick", "the quick brown fox", 0.1) {
		t.Error("two-word segment must not be judged a repetition")
	}
}

func TestIsRepetition(t *testing.T) {
	cases := []struct {
		name      string
		newText   string
		prevText  string
		threshold float64
		want      bool
	}{
		{
			name:      "same phrase repeated",
			newText:   "the quick fox",
			prevText:  "the quick fox jumped",
			threshold: 0.7,
			want:      true,
		},
		{
			name:      "unrelated sentence",
			newText:   "completely different sentence here",
			prevText:  "the quick fox jumped",
			threshold: 0.7,
			want:      false,
		},
		{
			name:      "case insensitive match",
			newText:   "The Quick FOX",
			prevText:  "the quick fox jumped",
			threshold: 0.7,
			want:      true,
		},
		{
			name:      "only trailing window of previous text counts",
			newText:   "alpha beta gamma",
			prevText:  "alpha beta gamma one two three four five six seven eight nine ten",
			threshold: 0.5,
			want:      false,
		},
		{
			name:      "exact threshold is not a repetition",
			newText:   "aa bb cc dd",
			prevText:  "aa bb words words",
			threshold: 0.5,
			want:      false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsRepetition(tc.newText, tc.prevText, tc.threshold)
			if got != tc.want {
				t.Errorf("IsRepetition(%q, %q, %v) = %v, want %v",
					tc.newText, tc.prevText, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestRemoveOverlap(t *testing.T) {
	cases := []struct {
		name      string
		newText   string
		prevWords []string
		limit     int
		want      string
	}{
		{
			name:      "two word overlap stripped",
			newText:   "jumped over the lazy dog",
			prevWords: []string{"the", "quick", "brown", "fox", "jumped", "over"},
			limit:     5,
			want:      "the lazy dog",
		},
		{
			name:      "no overlap leaves text unchanged",
			newText:   "brand new content",
			prevWords: []string{"unrelated", "words", "here"},
			limit:     5,
			want:      "brand new content",
		},
		{
			name:      "entire segment consumed",
			newText:   "are you",
			prevWords: []string{"how", "are", "you"},
			limit:     5,
			want:      "",
		},
		{
			name:      "overlap longer than limit is not found",
			newText:   "a b c d e",
			prevWords: []string{"a", "b", "c", "d", "e"},
			limit:     3,
			want:      "a b c d e",
		},
		{
			name:      "largest match wins over smaller",
			newText:   "you you did it",
			prevWords: []string{"there", "you", "you"},
			limit:     5,
			want:      "did it",
		},
		{
			name:      "case sensitive comparison",
			newText:   "Jumped over the fence",
			prevWords: []string{"he", "jumped"},
			limit:     5,
			want:      "Jumped over the fence",
		},
		{
			name:      "empty previous words",
			newText:   "hello there",
			prevWords: nil,
			limit:     5,
			want:      "hello there",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RemoveOverlap(tc.newText, tc.prevWords, tc.limit)
			if got != tc.want {
				t.Errorf("RemoveOverlap(%q, %v, %d) = %q, want %q",
					tc.newText, tc.prevWords, tc.limit, got, tc.want)
			}
		})
	}
}

func TestContextWindowEviction(t *testing.T) {
	w := NewContextWindow(4)
	for i := 0; i < 20; i++ {
		w.Append(fmt.Sprintf("segment %d", i))
		if w.Len() > 4 {
			t.Fatalf("window grew past capacity after %d appends: %d", i+1, w.Len())
		}
	}
	got := w.Snapshot()
	want := []string{"segment 16", "segment 17", "segment 18", "segment 19"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContextWindowDisabled(t *testing.T) {
	w := NewContextWindow(0)
	w.Append("ignored")
	if w.Len() != 0 {
		t.Fatalf("disabled window retained %d entries", w.Len())
	}
}

func TestContextWindowSnapshotIsCopy(t *testing.T) {
	w := NewContextWindow(2)
	w.Append("one")
	snap := w.Snapshot()
	snap[0] = "mutated"
	if w.Snapshot()[0] != "one" {
		t.Error("snapshot mutation leaked into window")
	}
}

// Package transcript assembles independently transcribed, overlapping audio
// chunks into a single coherent transcript. It owns the text-side pipeline:
// whitespace normalization, repetition rejection, and boundary overlap
// deduplication.
package transcript

import "strings"

// Normalize collapses runs of whitespace to single spaces and trims the
// result. It is idempotent.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// WordCount reports the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// IsRepetition reports whether newText is judged a near-duplicate of
// previousText. Short chunked transcription is prone to model loop
// hallucination where the same short phrase repeats across chunks; this is a
// cheap bag-of-words containment check, not an edit distance. Words of
// newText are counted against the trailing window (at most 10 words) of
// previousText, case-insensitively; the segment is a repetition when the
// matched fraction exceeds threshold.
func IsRepetition(newText, previousText string, threshold float64) bool {
	if newText == "" || previousText == "" {
		return false
	}

	newWords := strings.Fields(strings.ToLower(newText))
	prevWords := strings.Fields(strings.ToLower(previousText))

	// Too short to judge reliably.
	if len(newWords) < 3 {
		return false
	}

	window := len(prevWords)
	if window > 10 {
		window = 10
	}
	tail := make(map[string]struct{}, window)
	for _, w := range prevWords[len(prevWords)-window:] {
		tail[w] = struct{}{}
	}

	matches := 0
	for _, w := range newWords {
		if _, ok := tail[w]; ok {
			matches++
		}
	}

	similarity := float64(matches) / float64(len(newWords))
	return similarity > threshold
}

// RemoveOverlap strips the leading words of newText that duplicate the
// trailing words of the previous segment. Consecutive chunks are recorded
// with deliberate time overlap, so the same words legitimately appear on
// both sides of a chunk boundary. The scan starts at the largest candidate
// length and stops at the first exact match. An empty return value means the
// whole segment was overlap and there is nothing new to display.
func RemoveOverlap(newText string, previousWords []string, overlapLimit int) string {
	if len(previousWords) == 0 || newText == "" {
		return newText
	}

	newWords := strings.Fields(newText)
	maxCheck := len(newWords)
	if len(previousWords) < maxCheck {
		maxCheck = len(previousWords)
	}
	if overlapLimit < maxCheck {
		maxCheck = overlapLimit
	}

	overlap := 0
	for i := maxCheck; i >= 1; i-- {
		if wordsEqual(previousWords[len(previousWords)-i:], newWords[:i]) {
			overlap = i
			break
		}
	}

	return strings.Join(newWords[overlap:], " ")
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package transcript

// ContextWindow retains the most recent accepted segment texts, oldest
// evicted first. It is bookkeeping only for now: nothing reads it back into
// the recognizer. Snapshot is the extension point for future context
// conditioning.
type ContextWindow struct {
	max     int
	entries []string
}

// NewContextWindow creates a window holding at most max entries. A max of
// zero or less disables retention entirely.
func NewContextWindow(max int) *ContextWindow {
	return &ContextWindow{max: max}
}

// Append records an accepted segment text, evicting the oldest entry when
// the window is full.
func (w *ContextWindow) Append(text string) {
	if w.max <= 0 {
		return
	}
	w.entries = append(w.entries, text)
	if len(w.entries) > w.max {
		w.entries = w.entries[1:]
	}
}

// Len reports the number of retained entries.
func (w *ContextWindow) Len() int {
	return len(w.entries)
}

// Snapshot returns a copy of the retained entries, oldest first.
func (w *ContextWindow) Snapshot() []string {
	out := make([]string, len(w.entries))
	copy(out, w.entries)
	return out
}

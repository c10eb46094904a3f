package session

// State is the mutable loop state. It has exactly one owner (the Loop) and
// is mutated only at segment-acceptance points.
type State struct {
	// SegmentNum counts loop iterations, including skipped ones.
	SegmentNum int
	// LastText is the most recent accepted segment, pre-dedup; it feeds the
	// repetition comparison.
	LastText string
	// LastWords is the word sequence of LastText, used for the overlap
	// comparison.
	LastWords []string
	// TotalWords counts words actually appended to the display.
	TotalWords int
	// AudioSeconds accumulates the audio duration of accepted segments.
	AudioSeconds float64
	// Accepted counts displayed segments.
	Accepted int

	startedOutput bool
}

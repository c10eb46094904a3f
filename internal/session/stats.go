package session

import (
	"fmt"
	"strings"
	"time"
)

// Stats aggregates throughput for the finished session.
type Stats struct {
	Elapsed      time.Duration
	AudioSeconds float64
	TotalWords   int
	Segments     int
	Accepted     int
}

// SpeedFactor reports processed audio seconds per elapsed wall-clock second.
func (s Stats) SpeedFactor() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return s.AudioSeconds / s.Elapsed.Seconds()
}

// String renders the end-of-session statistics block.
func (s Stats) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 70)
	b.WriteString(line + "\n")
	b.WriteString("  PERFORMANCE STATISTICS\n")
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "Total Runtime: %.1fs\n", s.Elapsed.Seconds())
	fmt.Fprintf(&b, "Total Audio Processed: %.1fs\n", s.AudioSeconds)
	fmt.Fprintf(&b, "Total Words Transcribed: %d\n", s.TotalWords)
	if s.AudioSeconds > 0 && s.Elapsed > 0 {
		fmt.Fprintf(&b, "Speed Factor: %.2fx real-time\n", s.SpeedFactor())
	}
	b.WriteString(line)
	return b.String()
}

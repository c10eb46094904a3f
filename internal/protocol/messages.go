// Package protocol defines the wire types published on the bus for
// subscribers following a live transcription session.
package protocol

import "time"

// Segment is one accepted, deduplicated transcript piece.
type Segment struct {
	SessionID    string    `json:"session_id"`
	Ordinal      int       `json:"ordinal"`
	Text         string    `json:"text"`
	DedupedText  string    `json:"deduped_text"`
	Words        int       `json:"words"`
	AudioSeconds float64   `json:"audio_seconds"`
	Timestamp    time.Time `json:"timestamp"`
}

// SessionStarted is broadcast once when a session begins.
type SessionStarted struct {
	SessionID    string    `json:"session_id"`
	Backend      string    `json:"backend"`
	ModelVariant string    `json:"model_variant"`
	StartedAt    time.Time `json:"started_at"`
}

// SessionSummary is broadcast once when a session ends.
type SessionSummary struct {
	SessionID      string    `json:"session_id"`
	Segments       int       `json:"segments"`
	TotalWords     int       `json:"total_words"`
	AudioSeconds   float64   `json:"audio_seconds"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	SpeedFactor    float64   `json:"speed_factor"`
	EndedAt        time.Time `json:"ended_at"`
}

const (
	SubjectSegment        = "transcript.segment"
	SubjectSessionStarted = "transcript.session.started"
	SubjectSessionEnded   = "transcript.session.ended"
)

// Package stt abstracts speech-to-text backends behind a single Recognizer
// contract. The CPU model (whisper.cpp) and the hardware accelerator (exec)
// are indistinguishable from the session loop's point of view.
package stt

import (
	"context"
)

// Result captures recognizer output for one audio chunk.
type Result struct {
	Text       string
	Confidence float64
}

// Recognizer maps one mono 16 kHz chunk to raw text. Implementations must
// honor ctx cancellation and deadlines.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32) (Result, error)
	Close() error
}

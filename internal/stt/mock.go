package stt

import (
	"context"
	"fmt"
)

type mockRecognizer struct {
	scripted []string
	errs     map[int]error
	calls    int
}

// NewMockRecognizer returns a recognizer that replays scripted texts in
// order, then echoes chunk lengths. With a nil script every call echoes.
func NewMockRecognizer(scripted ...string) Recognizer {
	return &mockRecognizer{scripted: scripted}
}

// NewFailingMockRecognizer replays scripted texts but returns errs[i] for
// call index i instead, to exercise skip paths.
func NewFailingMockRecognizer(scripted []string, errs map[int]error) Recognizer {
	return &mockRecognizer{scripted: scripted, errs: errs}
}

func (m *mockRecognizer) Transcribe(ctx context.Context, samples []float32) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	call := m.calls
	m.calls++
	if err, ok := m.errs[call]; ok {
		return Result{}, err
	}
	if call < len(m.scripted) {
		return Result{Text: m.scripted[call]}, nil
	}
	return Result{Text: fmt.Sprintf("[mock transcript samples=%d]", len(samples))}, nil
}

func (m *mockRecognizer) Close() error {
	return nil
}

package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type whisperRecognizer struct {
	model    whisper.Model
	language string
	mu       sync.Mutex
}

// NewWhisperRecognizer loads a ggml whisper model for CPU inference. The
// model stays loaded for the life of the session; each Transcribe call runs
// in a fresh whisper context.
func NewWhisperRecognizer(modelPath, language string) (Recognizer, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", modelPath, err)
	}
	return &whisperRecognizer{model: model, language: language}, nil
}

func (r *whisperRecognizer) Transcribe(ctx context.Context, samples []float32) (Result, error) {
	// The binding is not safe for concurrent Process calls on one model.
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	wctx, err := r.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("create whisper context: %w", err)
	}
	if r.language != "" {
		if err := wctx.SetLanguage(r.language); err != nil {
			return Result{}, fmt.Errorf("set language %q: %w", r.language, err)
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("whisper segment: %w", err)
		}
		parts = append(parts, seg.Text)
	}

	return Result{Text: strings.TrimSpace(strings.Join(parts, " "))}, nil
}

func (r *whisperRecognizer) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}

// Package session drives the record, gate, transcribe, sanitize, filter,
// dedupe, display cycle until the context is cancelled, and reports
// aggregate throughput on exit.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shreyashguptas/raspberry-pi-transcription/internal/audio"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/config"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/history"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/protocol"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/stt"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/telemetry"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/transcript"
)

// Publisher broadcasts accepted segments to bus subscribers.
type Publisher interface {
	PublishSegment(protocol.Segment)
}

// Archive persists accepted segments.
type Archive interface {
	AppendSegment(ctx context.Context, seg history.Segment) error
}

// Options collects the loop's collaborators. Publisher, Archive, Metrics,
// and Clock are optional.
type Options struct {
	SessionID         string
	Config            config.SessionConfig
	Source            audio.Source
	Recognizer        stt.Recognizer
	TranscribeTimeout time.Duration
	Output            io.Writer
	Logger            *slog.Logger
	Publisher         Publisher
	Archive           Archive
	Metrics           *telemetry.Metrics
	Clock             func() time.Time
}

// Loop owns the SessionState and runs the pipeline synchronously: one
// capture and at most one transcription in flight at any time.
type Loop struct {
	opts   Options
	window *transcript.ContextWindow
	state  State
}

func NewLoop(opts Options) *Loop {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TranscribeTimeout <= 0 {
		opts.TranscribeTimeout = 45 * time.Second
	}
	return &Loop{
		opts:   opts,
		window: transcript.NewContextWindow(opts.Config.MaxContextChunks),
	}
}

// Context returns the rolling context window. It is bookkeeping only; see
// transcript.ContextWindow.
func (l *Loop) Context() *transcript.ContextWindow {
	return l.window
}

// Run executes the session until ctx is cancelled or the audio device is
// lost. Cancellation is a normal exit: Run returns the session statistics
// and a nil error. Device loss and other fatal conditions return a non-nil
// error alongside the statistics collected so far.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	start := l.opts.Clock()
	chunkDuration := time.Duration(l.opts.Config.ChunkDurationSec) * time.Second

	for {
		select {
		case <-ctx.Done():
			return l.stats(start), nil
		default:
		}

		l.state.SegmentNum++

		chunk, err := l.opts.Source.Capture(ctx, chunkDuration)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return l.stats(start), nil
			}
			if errors.Is(err, audio.ErrDeviceUnavailable) {
				return l.stats(start), fmt.Errorf("audio device lost: %w", err)
			}
			if errors.Is(err, audio.ErrEmptyCapture) {
				l.opts.Metrics.RecordSkip(ctx, telemetry.SkipEmpty)
				continue
			}
			l.opts.Logger.Warn("capture failed", slog.String("error", err.Error()))
			l.opts.Metrics.RecordSkip(ctx, telemetry.SkipCapture)
			continue
		}
		if len(chunk.Samples) == 0 {
			l.opts.Metrics.RecordSkip(ctx, telemetry.SkipEmpty)
			continue
		}

		// Gate on pre-gain energy so amplified noise never reaches the
		// recognizer.
		if !audio.HasSufficientAudio(chunk.Samples, l.opts.Config.MinAudioEnergy) {
			l.opts.Metrics.RecordSkip(ctx, telemetry.SkipEnergy)
			continue
		}

		audio.ApplyGain(chunk.Samples, l.opts.Config.Gain)

		tctx, cancel := context.WithTimeout(ctx, l.opts.TranscribeTimeout)
		result, err := l.opts.Recognizer.Transcribe(tctx, chunk.Samples)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return l.stats(start), nil
			}
			l.opts.Logger.Warn("transcription failed", slog.String("error", err.Error()))
			l.opts.Metrics.RecordSkip(ctx, telemetry.SkipTranscription)
			continue
		}

		text := transcript.Normalize(result.Text)
		if transcript.WordCount(text) < l.opts.Config.MinWords {
			l.opts.Metrics.RecordSkip(ctx, telemetry.SkipMinWords)
			continue
		}

		if transcript.IsRepetition(text, l.state.LastText, l.opts.Config.RepetitionThreshold) {
			l.opts.Metrics.RecordSkip(ctx, telemetry.SkipRepetition)
			continue
		}

		deduped := transcript.RemoveOverlap(text, l.state.LastWords, l.opts.Config.OverlapWords)
		if deduped == "" {
			// The whole segment was boundary overlap: nothing new to show,
			// but not an error.
			l.opts.Metrics.RecordSkip(ctx, telemetry.SkipOverlap)
			continue
		}

		l.accept(ctx, chunk, text, deduped)
	}
}

// accept displays the deduplicated text and performs every state mutation
// tied to segment acceptance.
func (l *Loop) accept(ctx context.Context, chunk audio.Chunk, text, deduped string) {
	if l.state.startedOutput {
		fmt.Fprint(l.opts.Output, " "+deduped)
	} else {
		fmt.Fprint(l.opts.Output, deduped)
		l.state.startedOutput = true
	}

	l.state.LastText = text
	l.state.LastWords = strings.Fields(text)
	l.window.Append(text)

	words := transcript.WordCount(deduped)
	l.state.TotalWords += words
	l.state.AudioSeconds += chunk.Seconds()
	l.state.Accepted++

	l.opts.Metrics.RecordAccepted(ctx, words, chunk.Seconds())

	if l.opts.Publisher != nil {
		l.opts.Publisher.PublishSegment(protocol.Segment{
			SessionID:    l.opts.SessionID,
			Ordinal:      l.state.SegmentNum,
			Text:         text,
			DedupedText:  deduped,
			Words:        words,
			AudioSeconds: chunk.Seconds(),
			Timestamp:    l.opts.Clock().UTC(),
		})
	}
	if l.opts.Archive != nil {
		if err := l.opts.Archive.AppendSegment(ctx, history.Segment{
			SessionID:   l.opts.SessionID,
			Ordinal:     l.state.SegmentNum,
			Text:        text,
			DedupedText: deduped,
			Words:       words,
		}); err != nil {
			l.opts.Logger.Warn("failed to archive segment", slog.String("error", err.Error()))
		}
	}
}

func (l *Loop) stats(start time.Time) Stats {
	return Stats{
		Elapsed:      l.opts.Clock().Sub(start),
		AudioSeconds: l.state.AudioSeconds,
		TotalWords:   l.state.TotalWords,
		Segments:     l.state.SegmentNum,
		Accepted:     l.state.Accepted,
	}
}

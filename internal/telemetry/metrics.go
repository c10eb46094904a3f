package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Skip reasons recorded on the segments_skipped counter.
const (
	SkipCapture       = "capture_failed"
	SkipEmpty         = "empty_capture"
	SkipEnergy        = "insufficient_energy"
	SkipTranscription = "transcription_failed"
	SkipMinWords      = "below_min_words"
	SkipRepetition    = "repetition"
	SkipOverlap       = "fully_overlapped"
)

// Metrics holds the session loop's instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	segmentsAccepted metric.Int64Counter
	segmentsSkipped  metric.Int64Counter
	wordsTotal       metric.Int64Counter
	audioSeconds     metric.Float64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	accepted, err := meter.Int64Counter("transcribe_segments_accepted_total",
		metric.WithDescription("Transcript segments accepted and displayed"))
	if err != nil {
		return nil, err
	}
	skipped, err := meter.Int64Counter("transcribe_segments_skipped_total",
		metric.WithDescription("Loop iterations skipped, by reason"))
	if err != nil {
		return nil, err
	}
	words, err := meter.Int64Counter("transcribe_words_total",
		metric.WithDescription("Words appended to the displayed transcript"))
	if err != nil {
		return nil, err
	}
	audio, err := meter.Float64Counter("transcribe_audio_seconds_total",
		metric.WithDescription("Seconds of audio accepted into the transcript"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		segmentsAccepted: accepted,
		segmentsSkipped:  skipped,
		wordsTotal:       words,
		audioSeconds:     audio,
	}, nil
}

func (m *Metrics) RecordAccepted(ctx context.Context, words int, audioSeconds float64) {
	if m == nil {
		return
	}
	m.segmentsAccepted.Add(ctx, 1)
	m.wordsTotal.Add(ctx, int64(words))
	m.audioSeconds.Add(ctx, audioSeconds)
}

func (m *Metrics) RecordSkip(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.segmentsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

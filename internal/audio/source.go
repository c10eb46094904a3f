package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrDeviceUnavailable marks capture failures where the device itself is
// gone, not merely busy. The session loop treats it as fatal.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// ErrEmptyCapture marks a capture that succeeded but produced no audio.
// The session loop skips the iteration.
var ErrEmptyCapture = errors.New("capture produced no audio")

// Source records one bounded-duration chunk per call, already mixed to mono
// and resampled to TargetSampleRate.
type Source interface {
	// Capture blocks for roughly the requested duration and returns the
	// recorded chunk.
	Capture(ctx context.Context, duration time.Duration) (Chunk, error)
	// Probe verifies the device is usable before the session starts.
	Probe(ctx context.Context) error
	Close() error
}

// ArecordSource captures via the ALSA arecord utility, writing each chunk to
// a working WAV file that is removed before Capture returns, on every path.
type ArecordSource struct {
	device   string
	rate     int
	channels int
	workDir  string
	log      *slog.Logger
	seq      int
}

// NewArecordSource creates a source recording from the named ALSA device at
// the given hardware rate and channel count.
func NewArecordSource(device string, rate, channels int, log *slog.Logger) (*ArecordSource, error) {
	if _, err := exec.LookPath("arecord"); err != nil {
		return nil, fmt.Errorf("arecord not found in PATH: %w", ErrDeviceUnavailable)
	}
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid capture format: rate=%d channels=%d", rate, channels)
	}
	return &ArecordSource{
		device:   device,
		rate:     rate,
		channels: channels,
		workDir:  os.TempDir(),
		log:      log,
	}, nil
}

func (s *ArecordSource) Capture(ctx context.Context, duration time.Duration) (Chunk, error) {
	s.seq++
	path := filepath.Join(s.workDir, fmt.Sprintf("transcribe_seg_%d.wav", s.seq))
	defer os.Remove(path)

	seconds := int(duration.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	cmd := exec.CommandContext(ctx, "arecord",
		"-D", s.device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(s.rate),
		"-c", strconv.Itoa(s.channels),
		"-d", strconv.Itoa(seconds),
		path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Chunk{}, ctx.Err()
		}
		return Chunk{}, classifyArecordError(err, stderr.String())
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return Chunk{}, ErrEmptyCapture
	}

	samples, channels, rate, err := ReadWAV(path)
	if err != nil {
		return Chunk{}, fmt.Errorf("read capture: %w", err)
	}
	if len(samples) == 0 {
		return Chunk{}, ErrEmptyCapture
	}

	mono := MixdownMono(samples, channels)
	mono = Resample(mono, rate, TargetSampleRate)

	return Chunk{Samples: mono, SampleRate: TargetSampleRate}, nil
}

// Probe records a one-second throwaway chunk to verify the device opens.
func (s *ArecordSource) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.Capture(probeCtx, time.Second)
	if errors.Is(err, ErrEmptyCapture) {
		// The device opened; silence is fine for a probe.
		return nil
	}
	return err
}

func (s *ArecordSource) Close() error {
	return nil
}

// classifyArecordError distinguishes device loss from transient capture
// failures based on arecord's diagnostics.
func classifyArecordError(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"no such device", "no such file", "cannot open", "not found", "no soundcards"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("arecord: %s: %w", strings.TrimSpace(stderr), ErrDeviceUnavailable)
		}
	}
	if strings.TrimSpace(stderr) != "" {
		return fmt.Errorf("arecord failed: %s: %w", strings.TrimSpace(stderr), err)
	}
	return fmt.Errorf("arecord failed: %w", err)
}

package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHasSufficientAudioRejectsSilence(t *testing.T) {
	silence := make([]float32, 16000)
	for _, threshold := range []float64{0.0001, 0.001, 0.01} {
		if HasSufficientAudio(silence, threshold) {
			t.Errorf("all-zero buffer accepted at threshold %v", threshold)
		}
	}
	if HasSufficientAudio(nil, 0.001) {
		t.Error("empty buffer accepted")
	}
}

func TestHasSufficientAudioPeakOnly(t *testing.T) {
	// One full-amplitude sample: RMS is far below threshold but the peak
	// clears the 3x multiplier.
	buf := make([]float32, 16000)
	buf[100] = 1.0
	if !HasSufficientAudio(buf, 0.01) {
		t.Error("expected acceptance on peak amplitude alone")
	}
}

func TestHasSufficientAudioRMS(t *testing.T) {
	buf := make([]float32, 1000)
	for i := range buf {
		buf[i] = 0.05
	}
	if !HasSufficientAudio(buf, 0.01) {
		t.Error("expected acceptance on RMS")
	}
	if HasSufficientAudio(buf, 0.1) {
		t.Error("expected rejection below both RMS and peak thresholds")
	}
}

func TestApplyGainClips(t *testing.T) {
	buf := []float32{0.01, -0.01, 0.5, -0.5, 0}
	ApplyGain(buf, 30.0)
	want := []float32{0.3, -0.3, 1.0, -1.0, 0}
	for i := range want {
		if math.Abs(float64(buf[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, buf[i], want[i])
		}
	}
}

func TestMixdownMono(t *testing.T) {
	stereo := []float32{1.0, 0.0, 0.5, 0.5, -1.0, 1.0}
	mono := MixdownMono(stereo, 2)
	want := []float32{0.5, 0.5, 0.0}
	if len(mono) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(mono))
	}
	for i := range want {
		if math.Abs(float64(mono[i]-want[i])) > 1e-6 {
			t.Errorf("frame %d: got %v, want %v", i, mono[i], want[i])
		}
	}
}

func TestMixdownMonoPassthrough(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := MixdownMono(in, 1)
	if len(out) != 3 {
		t.Fatalf("mono input changed length: %d", len(out))
	}
}

func TestResampleLength(t *testing.T) {
	in := make([]float32, 48000)
	out := Resample(in, 48000, 16000)
	if len(out) != 16000 {
		t.Errorf("48k->16k of 1s: expected 16000 samples, got %d", len(out))
	}
	same := Resample(in, 16000, 16000)
	if len(same) != len(in) {
		t.Errorf("same-rate resample changed length")
	}
}

func TestResamplePreservesConstantSignal(t *testing.T) {
	in := make([]float32, 4800)
	for i := range in {
		in[i] = 0.25
	}
	out := Resample(in, 48000, 16000)
	for i, v := range out {
		if math.Abs(float64(v-0.25)) > 1e-6 {
			t.Fatalf("sample %d drifted: %v", i, v)
		}
	}
}

func TestChunkDuration(t *testing.T) {
	c := Chunk{Samples: make([]float32, 32000), SampleRate: 16000}
	if c.Duration() != 2*time.Second {
		t.Errorf("expected 2s, got %v", c.Duration())
	}
	if c.Seconds() != 2.0 {
		t.Errorf("expected 2.0, got %v", c.Seconds())
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.wav")
	in := []float32{0, 0.5, -0.5, 0.99, -0.99}
	if err := WriteWAV(path, in, 16000); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	out, channels, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if channels != 1 || rate != 16000 {
		t.Fatalf("expected mono 16kHz, got %d channels at %d Hz", channels, rate)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1.0/16000 {
			t.Errorf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestClassifyArecordError(t *testing.T) {
	base := errors.New("exit status 1")

	err := classifyArecordError(base, "arecord: main:830: audio open error: No such device")
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("device loss not classified as ErrDeviceUnavailable: %v", err)
	}

	err = classifyArecordError(base, "arecord: device busy")
	if errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("busy device wrongly classified as device loss: %v", err)
	}
	if !errors.Is(err, base) {
		t.Errorf("transient error lost its cause: %v", err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeArecord installs an arecord stand-in on PATH. The script prefix binds
// $last to the output file path, which arecord takes as its final argument.
func fakeArecord(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\neval \"last=\\${$#}\"\n" + body
	if err := os.WriteFile(filepath.Join(dir, "arecord"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func segmentFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "transcribe_seg_*.wav"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestArecordCaptureRemovesWorkingFiles(t *testing.T) {
	work := t.TempDir()
	t.Setenv("TMPDIR", work)

	fixture := filepath.Join(t.TempDir(), "speech.wav")
	samples := make([]float32, TargetSampleRate)
	for i := range samples {
		samples[i] = 0.1
	}
	if err := WriteWAV(fixture, samples, TargetSampleRate); err != nil {
		t.Fatal(err)
	}
	fakeArecord(t, "cp '"+fixture+"' \"$last\"\n")

	src, err := NewArecordSource("plughw:0,0", 48000, 2, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	chunk, err := src.Capture(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if chunk.SampleRate != TargetSampleRate {
		t.Errorf("sample rate = %d, want %d", chunk.SampleRate, TargetSampleRate)
	}
	if len(chunk.Samples) == 0 {
		t.Error("captured chunk is empty")
	}
	if left := segmentFiles(t, work); len(left) != 0 {
		t.Errorf("working files left behind: %v", left)
	}
}

func TestArecordCaptureEmptyResult(t *testing.T) {
	work := t.TempDir()
	t.Setenv("TMPDIR", work)
	fakeArecord(t, ": > \"$last\"\n")

	src, err := NewArecordSource("plughw:0,0", 48000, 2, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Capture(context.Background(), time.Second); !errors.Is(err, ErrEmptyCapture) {
		t.Fatalf("Capture error = %v, want ErrEmptyCapture", err)
	}
	if left := segmentFiles(t, work); len(left) != 0 {
		t.Errorf("working files left behind: %v", left)
	}

	// A silent device still passes the preflight.
	if err := src.Probe(context.Background()); err != nil {
		t.Errorf("Probe: %v", err)
	}
}

func TestArecordCaptureDeviceLoss(t *testing.T) {
	work := t.TempDir()
	t.Setenv("TMPDIR", work)
	fakeArecord(t, "echo 'cannot open audio device' >&2\nexit 1\n")

	src, err := NewArecordSource("plughw:0,0", 48000, 2, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Capture(context.Background(), time.Second); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Capture error = %v, want ErrDeviceUnavailable", err)
	}
	if left := segmentFiles(t, work); len(left) != 0 {
		t.Errorf("working files left behind: %v", left)
	}
}

// Package audio provides microphone capture and the sample-domain half of
// the transcription pipeline: channel mixdown, resampling to the recognizer
// rate, energy gating, and gain with clipping.
package audio

import (
	"math"
	"time"
)

// TargetSampleRate is the rate every chunk is resampled to before gating and
// recognition.
const TargetSampleRate = 16000

// Chunk is one captured buffer of mono samples in [-1, 1] at SampleRate.
// Chunks live for a single loop iteration and are never retained.
type Chunk struct {
	Samples    []float32
	SampleRate int
}

// Duration reports the chunk length as wall-clock audio time.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// Seconds reports the chunk length in seconds.
func (c Chunk) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// RMS computes the root-mean-square amplitude of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak computes the maximum absolute amplitude of samples.
func Peak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// HasSufficientAudio reports whether a chunk likely contains speech and is
// worth a recognition call. Policy: accept when RMS exceeds the threshold or
// the peak exceeds three times the threshold, so a short loud transient
// passes even when the average energy over the chunk is low. Runs on
// pre-gain samples.
func HasSufficientAudio(samples []float32, threshold float64) bool {
	if len(samples) == 0 {
		return false
	}
	return RMS(samples) > threshold || Peak(samples) > threshold*3
}

// ApplyGain multiplies every sample by gain and clamps to [-1, 1], in place.
func ApplyGain(samples []float32, gain float64) {
	for i, s := range samples {
		v := float64(s) * gain
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		samples[i] = float32(v)
	}
}

// MixdownMono averages interleaved multi-channel samples into mono. Mono
// input is returned as-is.
func MixdownMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// Resample converts samples from srcRate to dstRate using linear
// interpolation. Adequate for speech downsampling from common capture rates.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(samples) {
			out[i] = samples[srcIdx]*(1-frac) + samples[srcIdx+1]*frac
		} else if srcIdx < len(samples) {
			out[i] = samples[srcIdx]
		}
	}
	return out
}

package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/shreyashguptas/raspberry-pi-transcription/internal/audio"
)

// execRecognizer shells out to an accelerator inference CLI. The chunk is
// handed over as a 16 kHz mono working WAV that is removed before Transcribe
// returns, on every path; the tool prints a JSON result on stdout.
type execRecognizer struct {
	cmd       []string
	modelPath string
	language  string
	mu        sync.Mutex
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// NewExecRecognizer builds a recognizer that invokes command once per chunk.
func NewExecRecognizer(command, modelPath, language string) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &execRecognizer{cmd: args, modelPath: modelPath, language: language}, nil
}

func (r *execRecognizer) Transcribe(ctx context.Context, samples []float32) (Result, error) {
	// The accelerator runs one inference at a time.
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.CreateTemp("", "transcribe_proc_*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp file: %w", err)
	}
	path := file.Name()
	file.Close()
	defer os.Remove(path)

	if err := audio.WriteWAV(path, samples, audio.TargetSampleRate); err != nil {
		return Result{}, fmt.Errorf("write working wav: %w", err)
	}

	args := append([]string{}, r.cmd[1:]...)
	args = append(args, "--audio", path)
	if r.modelPath != "" {
		args = append(args, "--model", r.modelPath)
	}
	if r.language != "" {
		args = append(args, "--language", r.language)
	}

	command := exec.CommandContext(ctx, r.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Result{}, fmt.Errorf("decode stt response: %w", err)
	}
	if resp.Error != "" {
		return Result{}, fmt.Errorf("stt backend: %s", resp.Error)
	}
	return Result{Text: resp.Text, Confidence: resp.Confidence}, nil
}

func (r *execRecognizer) Close() error {
	return nil
}

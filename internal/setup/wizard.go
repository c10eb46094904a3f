// Package setup implements the interactive pre-session wizard: pick a
// speed/quality preset or tune the pipeline by hand, review the resulting
// settings, then start, reconfigure, or quit.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/shreyashguptas/raspberry-pi-transcription/internal/config"
)

// ErrCancelled is returned when the user quits the wizard instead of
// starting a session.
var ErrCancelled = errors.New("setup cancelled")

// IsInteractive reports whether both stdin and stdout are terminals. When
// either side is a pipe the caller should skip the wizard and run with the
// loaded configuration as-is.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// Wizard prompts on out and reads answers from in, one per line.
type Wizard struct {
	in  *bufio.Reader
	out io.Writer
}

func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{in: bufio.NewReader(in), out: out}
}

// Run walks the user through configuration, mutating cfg in place. It
// returns nil when the user chooses to start, ErrCancelled when they quit,
// and a read error if input closes mid-wizard.
func (w *Wizard) Run(cfg *config.Config) error {
	for {
		if err := w.configure(cfg); err != nil {
			return err
		}
		w.printSummary(*cfg)

		choice, err := w.askOption("Start transcription? [Y]es / [r]econfigure / [q]uit: ", map[string]string{
			"": "start", "y": "start", "yes": "start",
			"r": "reconfigure", "reconfigure": "reconfigure",
			"q": "quit", "quit": "quit",
		})
		if err != nil {
			return err
		}
		switch choice {
		case "start":
			return nil
		case "reconfigure":
			continue
		case "quit":
			return ErrCancelled
		}
	}
}

func (w *Wizard) configure(cfg *config.Config) error {
	fmt.Fprintln(w.out, "Choose a configuration preset:")
	fmt.Fprintln(w.out, "  1) fastest   - tiny model, lowest latency")
	fmt.Fprintln(w.out, "  2) balanced  - base model, recommended")
	fmt.Fprintln(w.out, "  3) custom    - tune every knob")

	preset, err := w.askOption("Preset [2]: ", map[string]string{
		"1": "fastest", "fastest": "fastest",
		"2": "balanced", "balanced": "balanced", "": "balanced",
		"3": "custom", "custom": "custom",
	})
	if err != nil {
		return err
	}
	if err := config.ApplyPreset(cfg, preset); err != nil {
		return err
	}
	if preset != "custom" {
		return nil
	}

	variant, err := w.askOption("Model variant (tiny/base/small) [base]: ", map[string]string{
		"": "base", "tiny": "tiny", "base": "base", "small": "small",
	})
	if err != nil {
		return err
	}
	cfg.STT.ModelVariant = variant

	chunk, err := w.askIntFrom("Chunk duration in seconds (3/5/7/10/15) [7]: ", 7, []int{3, 5, 7, 10, 15})
	if err != nil {
		return err
	}
	cfg.Session.ChunkDurationSec = chunk

	overlap, err := w.askIntFrom("Overlap in seconds (1/2/3) [2]: ", 2, []int{1, 2, 3})
	if err != nil {
		return err
	}
	if overlap >= chunk {
		fmt.Fprintf(w.out, "Overlap must be shorter than the chunk, using %d.\n", chunk-1)
		overlap = chunk - 1
	}
	cfg.Session.OverlapDurationSec = overlap

	gain, err := w.askFloatRange("Microphone gain (10-50) [30]: ", 30, 10, 50)
	if err != nil {
		return err
	}
	cfg.Session.Gain = gain

	energy, err := w.askFloatRange("Minimum audio energy (0.0001-0.001) [0.0002]: ", 0.0002, 0.0001, 0.001)
	if err != nil {
		return err
	}
	cfg.Session.MinAudioEnergy = energy

	return nil
}

func (w *Wizard) printSummary(cfg config.Config) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Session settings:")
	fmt.Fprintf(w.out, "  Model:          %s\n", cfg.STT.ModelVariant)
	fmt.Fprintf(w.out, "  Chunk duration: %ds\n", cfg.Session.ChunkDurationSec)
	fmt.Fprintf(w.out, "  Overlap:        %ds\n", cfg.Session.OverlapDurationSec)
	fmt.Fprintf(w.out, "  Gain:           %.0fx\n", cfg.Session.Gain)
	fmt.Fprintf(w.out, "  Energy gate:    %g\n", cfg.Session.MinAudioEnergy)
	fmt.Fprintf(w.out, "  Audio device:   %s\n", cfg.Audio.Device)
	fmt.Fprintln(w.out)
}

func (w *Wizard) ask(prompt string) (string, error) {
	fmt.Fprint(w.out, prompt)
	line, err := w.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("input closed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// askOption reprompts until the answer is a key in choices, then returns
// the mapped canonical value.
func (w *Wizard) askOption(prompt string, choices map[string]string) (string, error) {
	for {
		answer, err := w.ask(prompt)
		if err != nil {
			return "", err
		}
		if value, ok := choices[strings.ToLower(answer)]; ok {
			return value, nil
		}
		fmt.Fprintf(w.out, "Unrecognized choice %q, try again.\n", answer)
	}
}

func (w *Wizard) askIntFrom(prompt string, def int, allowed []int) (int, error) {
	for {
		answer, err := w.ask(prompt)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		value, err := strconv.Atoi(answer)
		if err == nil {
			for _, a := range allowed {
				if value == a {
					return value, nil
				}
			}
		}
		fmt.Fprintf(w.out, "Pick one of %v.\n", allowed)
	}
}

func (w *Wizard) askFloatRange(prompt string, def, min, max float64) (float64, error) {
	for {
		answer, err := w.ask(prompt)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		value, err := strconv.ParseFloat(answer, 64)
		if err == nil && value >= min && value <= max {
			return value, nil
		}
		fmt.Fprintf(w.out, "Enter a number between %g and %g.\n", min, max)
	}
}

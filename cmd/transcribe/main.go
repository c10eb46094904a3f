// Command transcribe captures microphone audio in overlapping chunks,
// transcribes each chunk, and appends the deduplicated text to a single
// progressive line on stdout until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/shreyashguptas/raspberry-pi-transcription/internal/audio"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/bus"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/config"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/history"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/natsserver"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/protocol"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/session"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/setup"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/stt"
	"github.com/shreyashguptas/raspberry-pi-transcription/internal/telemetry"
)

var version = "0.1.0-dev"

const defaultConfigPath = "transcribe.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		showVersion bool
		skipWizard  bool
	)

	flag.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&skipWizard, "yes", false, "Skip the interactive setup wizard")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return 0
	}

	// The default config file is optional; an explicitly passed one is not.
	if configPath == defaultConfigPath {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = ""
		}
	}

	// Logs go to stderr: stdout carries only the progressive transcript.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: telemetry.ParseLevel(cfg.Telemetry.LogLevel),
	}))

	if !skipWizard && setup.IsInteractive() {
		if err := setup.NewWizard(os.Stdin, os.Stderr).Run(&cfg); err != nil {
			if errors.Is(err, setup.ErrCancelled) {
				return 0
			}
			logger.Error("setup failed", slog.String("error", err.Error()))
			return 1
		}
		if err := config.Validate(cfg); err != nil {
			logger.Error("invalid configuration", slog.String("error", err.Error()))
			return 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A second interrupt is drained rather than re-delivered, so shutdown
	// always finishes and the statistics block is printed.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, finishing current chunk")
		cancel()
		for range sigCh {
		}
	}()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer tel.Close(context.Background())

	recognizer, err := buildRecognizer(cfg.STT, logger)
	if err != nil {
		logger.Error("failed to initialize speech recognition", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer recognizer.Close()

	source, err := audio.NewArecordSource(cfg.Audio.Device, cfg.Audio.SampleRate, cfg.Audio.Channels, logger)
	if err != nil {
		logger.Error("audio capture unavailable", slog.String("error", err.Error()))
		return 1
	}
	defer source.Close()

	logger.Info("probing audio device", slog.String("device", cfg.Audio.Device))
	if err := source.Probe(ctx); err != nil {
		logger.Error("audio device preflight failed",
			slog.String("device", cfg.Audio.Device),
			slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Cannot record from %q. Check the device name with `arecord -l` and the mixer levels with `alsamixer`.\n", cfg.Audio.Device)
		return 1
	}

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.Error("failed to open transcript history", slog.String("error", err.Error()))
		return 1
	}
	defer store.Close()

	var (
		embedded  *natsserver.EmbeddedServer
		busClient *bus.Client
	)
	if cfg.Bus.Enabled {
		embedded, err = natsserver.Start(cfg.Bus, logger)
		if err != nil {
			logger.Error("failed to start embedded NATS server", slog.String("error", err.Error()))
			return 1
		}
		defer embedded.Shutdown()

		busClient, err = bus.Connect(ctx, cfg.Bus, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", slog.String("error", err.Error()))
			return 1
		}
		defer busClient.Close()
	}

	sessionID := uuid.NewString()
	logger.Info("session starting",
		slog.String("session_id", sessionID),
		slog.String("backend", cfg.STT.Backend),
		slog.String("model", cfg.STT.ModelVariant),
		slog.Int("chunk_seconds", cfg.Session.ChunkDurationSec))

	if err := store.BeginSession(ctx, sessionID, cfg.STT.Backend, cfg.STT.ModelVariant); err != nil {
		logger.Warn("failed to record session start", slog.String("error", err.Error()))
	}
	busClient.PublishStarted(protocol.SessionStarted{
		SessionID:    sessionID,
		Backend:      cfg.STT.Backend,
		ModelVariant: cfg.STT.ModelVariant,
		StartedAt:    nowUTC(),
	})

	fmt.Fprintln(os.Stderr, "Listening. Press Ctrl+C to stop.")

	loopOpts := session.Options{
		SessionID:         sessionID,
		Config:            cfg.Session,
		Source:            source,
		Recognizer:        recognizer,
		TranscribeTimeout: sttTimeout(cfg.STT),
		Output:            os.Stdout,
		Logger:            logger,
		Archive:           store,
		Metrics:           tel.Metrics,
	}
	// Assigning a nil *bus.Client would make the Publisher interface
	// non-nil; leave it unset when the bus is off.
	if busClient != nil {
		loopOpts.Publisher = busClient
	}
	loop := session.NewLoop(loopOpts)

	stats, runErr := loop.Run(ctx)

	// Terminate the progressive line before printing the summary block.
	fmt.Println()
	fmt.Println(stats.String())

	busClient.PublishSummary(protocol.SessionSummary{
		SessionID:      sessionID,
		Segments:       stats.Segments,
		TotalWords:     stats.TotalWords,
		AudioSeconds:   stats.AudioSeconds,
		ElapsedSeconds: stats.Elapsed.Seconds(),
		SpeedFactor:    stats.SpeedFactor(),
		EndedAt:        nowUTC(),
	})

	if runErr != nil {
		logger.Error("session ended with error", slog.String("error", runErr.Error()))
		return 1
	}
	logger.Info("session complete",
		slog.String("session_id", sessionID),
		slog.Int("segments", stats.Accepted),
		slog.Int("words", stats.TotalWords))
	return 0
}

func sttTimeout(cfg config.STTConfig) time.Duration {
	return time.Duration(cfg.TimeoutSec) * time.Second
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func buildRecognizer(cfg config.STTConfig, logger *slog.Logger) (stt.Recognizer, error) {
	switch cfg.Backend {
	case "whisper":
		modelPath, err := stt.ResolveModelPath(cfg.ModelPath, cfg.ModelVariant)
		if err != nil {
			return nil, err
		}
		logger.Info("loading whisper model", slog.String("path", modelPath))
		return stt.NewWhisperRecognizer(modelPath, cfg.Language)
	case "exec":
		return stt.NewExecRecognizer(cfg.Command, cfg.ModelPath, cfg.Language)
	case "mock":
		return stt.NewMockRecognizer(), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.Backend)
	}
}

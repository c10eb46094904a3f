// Package config loads and validates the transcription tool's configuration
// from a yaml file plus TRANSCRIBE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SessionConfig holds the pipeline tuning knobs. Immutable once the session
// starts.
type SessionConfig struct {
	ChunkDurationSec    int     `yaml:"chunk_duration_sec"`
	OverlapDurationSec  int     `yaml:"overlap_duration_sec"`
	Gain                float64 `yaml:"gain"`
	MinAudioEnergy      float64 `yaml:"min_audio_energy"`
	MinWords            int     `yaml:"min_words"`
	RepetitionThreshold float64 `yaml:"repetition_threshold"`
	OverlapWords        int     `yaml:"overlap_words"`
	MaxContextChunks    int     `yaml:"max_context_chunks"`
}

type AudioConfig struct {
	Device     string `yaml:"device"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type STTConfig struct {
	Backend      string `yaml:"backend"` // whisper, exec, mock
	ModelVariant string `yaml:"model_variant"`
	ModelPath    string `yaml:"model_path"`
	Language     string `yaml:"language"`
	Command      string `yaml:"command"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	MetricsBind  string `yaml:"metrics_bind"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"` // ephemeral, session, persistent
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Audio     AudioConfig     `yaml:"audio"`
	STT       STTConfig       `yaml:"stt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Bus       BusConfig       `yaml:"bus"`
	History   HistoryConfig   `yaml:"history"`
}

func Default() Config {
	return Config{
		Session: SessionConfig{
			ChunkDurationSec:    7,
			OverlapDurationSec:  2,
			Gain:                30.0,
			MinAudioEnergy:      0.0002,
			MinWords:            1,
			RepetitionThreshold: 0.7,
			OverlapWords:        5,
			MaxContextChunks:    4,
		},
		Audio: AudioConfig{
			Device:     "plughw:0,0",
			SampleRate: 48000,
			Channels:   2,
		},
		STT: STTConfig{
			Backend:      "whisper",
			ModelVariant: "base",
			Language:     "en",
			TimeoutSec:   45,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		History: HistoryConfig{
			Path:          "./data/transcripts.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxSessions:   1000,
		},
	}
}

// Load reads the config file when path is non-empty, applies environment
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyPreset adjusts cfg to one of the named speed/quality presets.
func ApplyPreset(cfg *Config, preset string) error {
	switch preset {
	case "fastest":
		cfg.STT.ModelVariant = "tiny"
	case "balanced":
		cfg.STT.ModelVariant = "base"
	case "custom":
		// wizard fills in the rest
	default:
		return fmt.Errorf("unknown preset %q", preset)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.Session.ChunkDurationSec, "TRANSCRIBE_CHUNK_DURATION_SEC")
	overrideInt(&cfg.Session.OverlapDurationSec, "TRANSCRIBE_OVERLAP_DURATION_SEC")
	overrideFloat(&cfg.Session.Gain, "TRANSCRIBE_GAIN")
	overrideFloat(&cfg.Session.MinAudioEnergy, "TRANSCRIBE_MIN_AUDIO_ENERGY")
	overrideInt(&cfg.Session.MinWords, "TRANSCRIBE_MIN_WORDS")
	overrideFloat(&cfg.Session.RepetitionThreshold, "TRANSCRIBE_REPETITION_THRESHOLD")
	overrideInt(&cfg.Session.OverlapWords, "TRANSCRIBE_OVERLAP_WORDS")
	overrideInt(&cfg.Session.MaxContextChunks, "TRANSCRIBE_MAX_CONTEXT_CHUNKS")
	overrideString(&cfg.Audio.Device, "TRANSCRIBE_AUDIO_DEVICE")
	overrideInt(&cfg.Audio.SampleRate, "TRANSCRIBE_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "TRANSCRIBE_AUDIO_CHANNELS")
	overrideString(&cfg.STT.Backend, "TRANSCRIBE_STT_BACKEND")
	overrideString(&cfg.STT.ModelVariant, "TRANSCRIBE_STT_MODEL_VARIANT")
	overrideString(&cfg.STT.ModelPath, "TRANSCRIBE_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "TRANSCRIBE_STT_LANGUAGE")
	overrideString(&cfg.STT.Command, "TRANSCRIBE_STT_COMMAND")
	overrideInt(&cfg.STT.TimeoutSec, "TRANSCRIBE_STT_TIMEOUT_SEC")
	overrideString(&cfg.Telemetry.LogLevel, "TRANSCRIBE_LOG_LEVEL")
	overrideString(&cfg.Telemetry.MetricsBind, "TRANSCRIBE_METRICS_BIND")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "TRANSCRIBE_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "TRANSCRIBE_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "TRANSCRIBE_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "TRANSCRIBE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "TRANSCRIBE_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "TRANSCRIBE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "TRANSCRIBE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "TRANSCRIBE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "TRANSCRIBE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "TRANSCRIBE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "TRANSCRIBE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.History.Path, "TRANSCRIBE_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "TRANSCRIBE_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "TRANSCRIBE_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxSessions, "TRANSCRIBE_HISTORY_MAX_SESSIONS")
	overrideBool(&cfg.History.VacuumOnStart, "TRANSCRIBE_HISTORY_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

// Validate checks cross-field invariants. The session loop relies on these
// holding and never re-checks them.
func Validate(cfg Config) error {
	s := cfg.Session
	if s.ChunkDurationSec <= 0 {
		return errors.New("session.chunk_duration_sec must be positive")
	}
	if s.OverlapDurationSec < 0 || s.OverlapDurationSec >= s.ChunkDurationSec {
		return errors.New("session.overlap_duration_sec must be in [0, chunk_duration_sec)")
	}
	if s.Gain <= 0 {
		return errors.New("session.gain must be positive")
	}
	if s.MinAudioEnergy <= 0 {
		return errors.New("session.min_audio_energy must be positive")
	}
	if s.MinWords < 1 {
		return errors.New("session.min_words must be >= 1")
	}
	if s.RepetitionThreshold <= 0 || s.RepetitionThreshold > 1 {
		return errors.New("session.repetition_threshold must be in (0, 1]")
	}
	if s.OverlapWords < 1 {
		return errors.New("session.overlap_words must be >= 1")
	}
	if s.MaxContextChunks < 0 {
		return errors.New("session.max_context_chunks must be >= 0")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	switch cfg.STT.Backend {
	case "whisper", "exec", "mock":
	default:
		return errors.New("stt.backend must be one of whisper|exec|mock")
	}
	if cfg.STT.Backend == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when backend=exec")
	}
	if cfg.STT.TimeoutSec <= 0 {
		return errors.New("stt.timeout_sec must be positive")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionMode != "ephemeral" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty when retention is enabled")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}

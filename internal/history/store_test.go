package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shreyashguptas/raspberry-pi-transcription/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeralIsNoOp(t *testing.T) {
	ctx := context.Background()
	cfg := config.HistoryConfig{RetentionMode: "ephemeral"}
	st, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if err := st.AppendSegment(ctx, Segment{SessionID: "s", Ordinal: 1, Text: "hello"}); err != nil {
		t.Fatalf("ephemeral append should be a no-op: %v", err)
	}
	segs, err := st.SessionSegments(ctx, "s", 10)
	if err != nil || segs != nil {
		t.Fatalf("ephemeral store must retain nothing, got (%v, %v)", segs, err)
	}
}

func TestAppendAndQuery(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.HistoryConfig{Path: filepath.Join(tmp, "transcripts.db"), RetentionMode: "session"}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	sessionID := "session-123"
	if err := st.BeginSession(ctx, sessionID, "whisper", "tiny"); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := st.AppendSegment(ctx, Segment{SessionID: sessionID, Ordinal: 1, Text: "hello there how", DedupedText: "hello there how", Words: 3}); err != nil {
		t.Fatalf("append segment: %v", err)
	}
	if err := st.AppendSegment(ctx, Segment{SessionID: sessionID, Ordinal: 2, Text: "there how are you", DedupedText: "are you", Words: 2}); err != nil {
		t.Fatalf("append segment: %v", err)
	}

	segs, err := st.SessionSegments(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Ordinal != 1 || segs[1].Ordinal != 2 {
		t.Fatalf("segments out of order: %+v", segs)
	}
	if segs[1].DedupedText != "are you" {
		t.Fatalf("unexpected deduped text: %q", segs[1].DedupedText)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.HistoryConfig{Path: filepath.Join(tmp, "transcripts.db"), RetentionMode: "persistent", RetentionDays: 1, MaxSessions: 1}
	st, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	st.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := st.BeginSession(ctx, "old-session", "whisper", "base"); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := st.AppendSegment(ctx, Segment{SessionID: "old-session", Ordinal: 1, Text: "old words"}); err != nil {
		t.Fatalf("append segment: %v", err)
	}

	st.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := st.BeginSession(ctx, "new-session", "whisper", "base"); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := st.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	segs, err := st.SessionSegments(ctx, "old-session", 10)
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segs) != 0 {
		t.Fatalf("expected old session pruned, got %d segments", len(segs))
	}
}

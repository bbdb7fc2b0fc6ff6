package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"emperror.dev/errors"
)

func TestRecordHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "asset added",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tasset added\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "repository request",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\trepository request\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "attachment added",
			attrs:   []slog.Attr{slog.String("asset", "id-1"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tattachment added\tasset=id-1\tsize=42\n",
		},
		{
			name:    "group attrs are flattened",
			opID:    "op-1",
			level:   slog.LevelWarn,
			message: "skipped",
			attrs:   []slog.Attr{slog.Group("version", slog.String("found", "3.0"), slog.String("max", "2.0"))},
			want:    "2024-06-15T14:30:45Z\tWARN\top-1\tskipped\tversion.found=3.0\tversion.max=2.0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &recordHandler{file: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestRecordHandler_ErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	h := &recordHandler{file: &buf, opID: "op-1"}

	err := errors.WithDetails(errors.New("reading repository"), "path", "/srv/repo")
	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelError, "failed", 0)
	r.AddAttrs(slog.Any("error", err))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "\terror=reading repository") {
		t.Errorf("expected error message, got: %q", got)
	}
	if !strings.Contains(got, "\terror.path=/srv/repo") {
		t.Errorf("expected error detail error.path, got: %q", got)
	}
}

func TestRecordHandler_ConsoleLevel(t *testing.T) {
	var file, console bytes.Buffer
	logger := slog.New(&recordHandler{file: &file, console: &console, consoleLevel: slog.LevelWarn, opID: "op"})

	logger.Debug("quiet")
	logger.Warn("loud")

	if !strings.Contains(file.String(), "quiet") || !strings.Contains(file.String(), "loud") {
		t.Errorf("log file should receive every record, got: %q", file.String())
	}
	if strings.Contains(console.String(), "quiet") {
		t.Errorf("console should not receive debug records, got: %q", console.String())
	}
	if !strings.Contains(console.String(), "loud") {
		t.Errorf("console should receive warn records, got: %q", console.String())
	}
}

func TestRecordHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := &recordHandler{file: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "rest")}).WithGroup("req")
	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "sent", 0)
	r.AddAttrs(slog.String("method", "GET"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "\tcomponent=rest") {
		t.Errorf("expected pre-set attr component=rest, got: %q", got)
	}
	if !strings.Contains(got, "\treq.method=GET") {
		t.Errorf("expected grouped attr req.method=GET, got: %q", got)
	}
	if len(h.attrs) != 0 {
		t.Errorf("original handler attrs modified: got %d, want 0", len(h.attrs))
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op", nil, slog.LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hello", "k", "v")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\thello\tk=v") {
		t.Errorf("log file = %q, want the hello record", string(data))
	}
}

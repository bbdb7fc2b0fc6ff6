package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"emperror.dev/errors"
)

// LogFileName is the log file created inside the configured log directory.
const LogFileName = "assetrepo.log"

// recordHandler is a slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Every record goes to file. Records at or above consoleLevel also go to
// console. Details attached to error values with emperror are written as
// extra key=value pairs.
type recordHandler struct {
	file         io.Writer
	console      io.Writer
	consoleLevel slog.Leveler
	opID         string
	prefix       string
	attrs        []slog.Attr
}

func (h *recordHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	line := fmt.Sprintf("%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level.String(), h.opID, r.Message)
	for _, a := range h.attrs {
		line += formatAttr("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		line += formatAttr(h.prefix, a)
		return true
	})
	line += "\n"

	if h.file != nil {
		if _, err := io.WriteString(h.file, line); err != nil {
			return err
		}
	}
	if h.console != nil && h.consoleLevel != nil && r.Level >= h.consoleLevel.Level() {
		if _, err := io.WriteString(h.console, line); err != nil {
			return err
		}
	}
	return nil
}

func formatAttr(prefix string, a slog.Attr) string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return ""
	}
	key := prefix + a.Key
	if a.Value.Kind() == slog.KindGroup {
		out := ""
		for _, ga := range a.Value.Group() {
			out += formatAttr(key+".", ga)
		}
		return out
	}
	out := fmt.Sprintf("\t%s=%v", key, a.Value)
	if err, ok := a.Value.Any().(error); ok {
		details := errors.GetDetails(err)
		for i := 0; i+1 < len(details); i += 2 {
			out += fmt.Sprintf("\t%s.%v=%v", key, details[i], details[i+1])
		}
	}
	return out
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// newLogger creates a structured logger that writes every record to
// logDir/assetrepo.log and records at consoleLevel or above to console.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, opID string, console io.Writer, consoleLevel slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &recordHandler{file: f, console: console, consoleLevel: consoleLevel, opID: opID}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the repository.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

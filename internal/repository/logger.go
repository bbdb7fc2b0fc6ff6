package repository

// Logger provides structured logging for repository clients.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// LoggerOrNop returns l, or a NopLogger when l is nil.
func LoggerOrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

// LogSkipped reports assets dropped from a listing for an unsupported
// schema version.
func LogSkipped(l Logger, source string, skipped []*BadVersionError) {
	for _, bv := range skipped {
		l.Warn("skipping asset with unsupported version",
			"source", source, "version", bv.BadVersion,
			"min", bv.MinVersion, "max", bv.MaxVersion)
	}
}

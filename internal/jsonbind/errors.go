package jsonbind

import (
	"fmt"

	"emperror.dev/errors"
)

// BindError is a structural failure: malformed JSON, an unknown field in
// strict mode, or a value whose shape the target field cannot hold.
type BindError struct {
	Path   string
	Reason string
	Err    error
}

func (e *BindError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BindError) Unwrap() error { return e.Err }

func bindErrorf(path string, format string, args ...any) *BindError {
	return &BindError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// BadVersionError reports content whose declared schema version is outside
// the supported range.
type BadVersionError struct {
	BadVersion string
	MinVersion string
	MaxVersion string
}

func (e *BadVersionError) Error() string {
	return fmt.Sprintf("unsupported schema version %q: supported versions are at least %s and below %s",
		e.BadVersion, e.MinVersion, e.MaxVersion)
}

// IsBadVersion reports whether err wraps a *BadVersionError.
func IsBadVersion(err error) bool {
	var bv *BadVersionError
	return errors.As(err, &bv)
}

// IsBindError reports whether err wraps a *BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}

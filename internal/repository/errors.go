package repository

import (
	"fmt"

	"emperror.dev/errors"

	"assetrepo/internal/jsonbind"
)

const (
	// ErrAssetNotFound marks a lookup of an id the repository does not hold.
	ErrAssetNotFound = errors.Sentinel("asset not found")

	ErrAssetHasID            = errors.Sentinel("asset already has an id")
	ErrUnsupported           = errors.Sentinel("operation not supported by this repository")
	ErrMixedVisibility       = errors.Sentinel("visibility filter mixes values stored under different keys")
	ErrMissingAttachmentType = errors.Sentinel("attachment type is required")
)

// BadVersionError is returned when an asset declares a schema version this
// client cannot read.
type BadVersionError = jsonbind.BadVersionError

// RequestFailureError describes a non-2xx response from a REST repository,
// or a response missing something the client relies on.
type RequestFailureError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *RequestFailureError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Message)
}

// ClientFailureError reports a call the client refuses to make.
type ClientFailureError struct {
	Message string
	Details map[string]any
	cause   error
}

// NewClientFailure builds a ClientFailureError wrapping cause, which is
// usually one of the sentinels above.
func NewClientFailure(cause error, message string, details ...any) *ClientFailureError {
	e := &ClientFailureError{Message: message, cause: cause}
	if len(details) > 0 {
		e.Details = make(map[string]any, len(details)/2)
		for i := 0; i+1 < len(details); i += 2 {
			e.Details[fmt.Sprint(details[i])] = details[i+1]
		}
	}
	return e
}

func (e *ClientFailureError) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *ClientFailureError) Unwrap() error { return e.cause }

// IsRequestFailure reports whether err is or wraps a RequestFailureError.
func IsRequestFailure(err error) bool {
	var rf *RequestFailureError
	return errors.As(err, &rf)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var rf *RequestFailureError
	if errors.As(err, &rf) {
		return rf.StatusCode
	}
	return 0
}

// IsClientFailure reports whether err is or wraps a ClientFailureError.
func IsClientFailure(err error) bool {
	var cf *ClientFailureError
	return errors.As(err, &cf)
}

func IsBadVersion(err error) bool {
	return jsonbind.IsBadVersion(err)
}

// IsNotFound reports whether err means the asset does not exist, either
// from a file-backed repository or as a 404 from a REST one.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssetNotFound) || StatusCode(err) == 404
}

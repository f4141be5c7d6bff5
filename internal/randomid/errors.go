package randomid

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamConnection means the random number service could not be reached
	ErrUpstreamConnection = errors.New("random number service unreachable")

	// ErrUpstreamFormat means the service answered with content that is not a usable number
	ErrUpstreamFormat = errors.New("random number service returned unusable content")
)

// UpstreamError carries the failing endpoint, the failure class and its cause
type UpstreamError struct {
	Endpoint string
	Kind     error // ErrUpstreamConnection or ErrUpstreamFormat
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Endpoint, e.Kind, e.Err)
}

// Unwrap exposes both the failure class and the cause
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func connectionError(endpoint string, err error) *UpstreamError {
	return &UpstreamError{Endpoint: endpoint, Kind: ErrUpstreamConnection, Err: err}
}

func formatError(endpoint string, format string, args ...any) *UpstreamError {
	return &UpstreamError{Endpoint: endpoint, Kind: ErrUpstreamFormat, Err: fmt.Errorf(format, args...)}
}

// IsConnection reports a connection-class failure
func IsConnection(err error) bool {
	return errors.Is(err, ErrUpstreamConnection)
}

// IsFormat reports a format-class failure
func IsFormat(err error) bool {
	return errors.Is(err, ErrUpstreamFormat)
}

// IsUpstream reports any failure of the random number service
func IsUpstream(err error) bool {
	return IsConnection(err) || IsFormat(err)
}

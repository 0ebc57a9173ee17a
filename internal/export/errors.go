package export

import (
	"errors"
	"fmt"
)

var (
	ErrAnalyticsRequired = errors.New("Analytics data is required")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Error reports a failure inside a format renderer.
type Error struct {
	Format string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("Failed to generate %s report", e.Format)
	if e.Err != nil && e.Err.Error() != "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return "Unsupported format: " + e.Format
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// guard converts a renderer panic into an *Error so callers only ever see
// error returns.
func guard(format string, fn func() ([]byte, error)) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &Error{Format: format, Err: fmt.Errorf("%v", r)}
		}
	}()
	out, err = fn()
	if err != nil {
		var exportErr *Error
		if !errors.As(err, &exportErr) {
			err = &Error{Format: format, Err: err}
		}
	}
	return out, err
}

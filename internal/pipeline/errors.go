package pipeline

import (
	"errors"
	"fmt"
	"os"
)

// ReadError is a fatal failure of the byte source.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read from source: %v", e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is a fatal failure of the sink.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write to sink: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// IsTimeout reports whether err means "no data within the read timeout".
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

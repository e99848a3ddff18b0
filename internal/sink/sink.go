// Package sink opens the destination for converted serial data.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	// ErrUnknownMode is returned for output modes that do not exist.
	ErrUnknownMode = errors.New("sink: unknown output mode")
	// ErrNotImplemented is returned for the interactive output modes.
	ErrNotImplemented = errors.New("sink: output mode not implemented")
)

// Kind is an output mode.
type Kind string

const (
	Stdout Kind = "stdout"
	File   Kind = "file"
	ITerm  Kind = "iterm"
	Lines  Kind = "lines"
)

// ParseKind parses a case-insensitive output mode.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return Stdout, nil
	case Stdout, File, ITerm, Lines:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Options selects and configures a sink.
type Options struct {
	Kind   Kind
	Path   string // File only
	Append bool   // File only; false truncates
}

// Sink is an opened output.
type Sink struct {
	io.Writer
	Kind Kind
	Name string

	// Interactive is true when the output is a terminal.
	Interactive bool

	closer io.Closer
}

// Open opens the sink described by opts.
func Open(opts Options) (*Sink, error) {
	switch opts.Kind {
	case Stdout, "":
		return fromFile(Stdout, os.Stdout, nil), nil
	case File:
		if opts.Path == "" {
			return nil, errors.New("sink: file mode needs a path")
		}
		flags := os.O_WRONLY | os.O_CREATE
		if opts.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(opts.Path, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open output file: %w", err)
		}
		return fromFile(File, f, f), nil
	case ITerm, Lines:
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, opts.Kind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, string(opts.Kind))
	}
}

func fromFile(kind Kind, f *os.File, closer io.Closer) *Sink {
	return &Sink{
		Writer:      f,
		Kind:        kind,
		Name:        f.Name(),
		Interactive: term.IsTerminal(int(f.Fd())),
		closer:      closer,
	}
}

// Close closes the underlying file. Standard output is left open.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

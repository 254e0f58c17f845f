package gridio

import (
	"errors"
	"fmt"
)

// Kind classifies the ways that loading a file can fail. None of them are
// retryable: a malformed data file stays malformed.
type Kind int

const (
	FileNotFound Kind = iota + 1
	MalformedHeader
	MalformedRow
	DimensionMismatch
)

var (
	// ErrMalformedInput matches every failure caused by the contents of a
	// file rather than its absence.
	ErrMalformedInput = errors.New("malformed input")

	ErrFileNotFound      = errors.New("file not found")
	ErrMalformedHeader   = fmt.Errorf("malformed header: %w", ErrMalformedInput)
	ErrMalformedRow      = fmt.Errorf("malformed row: %w", ErrMalformedInput)
	ErrDimensionMismatch = fmt.Errorf("dimension mismatch: %w",
		ErrMalformedInput)
)

func (k Kind) String() string {
	switch k {
	case FileNotFound:
		return "file not found"
	case MalformedHeader:
		return "malformed header"
	case MalformedRow:
		return "malformed row"
	case DimensionMismatch:
		return "dimension mismatch"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case FileNotFound:
		return ErrFileNotFound
	case MalformedHeader:
		return ErrMalformedHeader
	case MalformedRow:
		return ErrMalformedRow
	case DimensionMismatch:
		return ErrDimensionMismatch
	}
	return nil
}

// LoadError is returned when a file can't be turned into a grid. It matches
// the sentinel error for its Kind with errors.Is.
type LoadError struct {
	Kind Kind
	Path string
	// Line is the 1-based line the problem was found on, or 0 if there isn't
	// a specific line to blame.
	Line int
	Msg  string
	Err  error
}

func (e *LoadError) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if loc == "" {
		return msg
	}
	return loc + ": " + msg
}

func (e *LoadError) Unwrap() []error {
	errs := []error{}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func headerError(line int, format string, a ...interface{}) *LoadError {
	return &LoadError{Kind: MalformedHeader, Line: line,
		Msg: fmt.Sprintf(format, a...)}
}

func rowError(line int, err error, format string, a ...interface{}) *LoadError {
	return &LoadError{Kind: MalformedRow, Line: line,
		Msg: fmt.Sprintf(format, a...), Err: err}
}

func dimensionError(line int, format string, a ...interface{}) *LoadError {
	return &LoadError{Kind: DimensionMismatch, Line: line,
		Msg: fmt.Sprintf(format, a...)}
}

package classfile

import "fmt"

// FormatError reports a malformed or truncated class file.
type FormatError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("class file offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("class file offset %d: %s", e.Offset, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(off int, format string, args ...any) *FormatError {
	return &FormatError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}

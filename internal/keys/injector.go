// internal/keys/injector.go
// Package keys implements the keystroke-forwarding collaborator. Actual OS
// keyboard event synthesis is an irreducible native binding and stays
// outside this repository; the writer injector covers piping decoded
// characters into a terminal or a typing helper process.
package keys

import (
	"errors"
	"io"
)

// ErrWriterRequired indicates the injector needs a destination writer
var ErrWriterRequired = errors.New("injector writer is required")

// WriterInjector forwards each decoded character to an io.Writer. Write
// errors are deliberately dropped: injection is fire-and-forget and must
// never stall the decode path.
type WriterInjector struct {
	w io.Writer
}

// NewWriterInjector creates an injector writing to w.
func NewWriterInjector(w io.Writer) (*WriterInjector, error) {
	if w == nil {
		return nil, ErrWriterRequired
	}
	return &WriterInjector{w: w}, nil
}

// TypeRune forwards one character.
func (k *WriterInjector) TypeRune(r rune) {
	_, _ = io.WriteString(k.w, string(r))
}

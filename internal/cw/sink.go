// internal/cw/sink.go
package cw

import (
	"errors"
	"io"
	"unicode"
)

// FlushCapacity is the buffered character count that forces a flush.
const FlushCapacity = 64

// CaseMode selects output case folding.
type CaseMode int

const (
	// CaseUpper folds decoded characters to upper case
	CaseUpper CaseMode = iota
	// CaseLower folds decoded characters to lower case
	CaseLower
)

// KeyInjector forwards decoded characters as synthetic keystrokes.
// Implementations must be fast and non-blocking; the return is not
// consulted, the call is fire-and-forget.
type KeyInjector interface {
	TypeRune(r rune)
}

var (
	// ErrDisplayRequired indicates the sink needs a display writer
	ErrDisplayRequired = errors.New("display writer is required")
	// ErrInjectorRequired indicates type mode needs a key injector
	ErrInjectorRequired = errors.New("type mode requires a key injector")
)

// SinkConfig holds output configuration.
type SinkConfig struct {
	// Case is the output case folding mode (from config: output_case)
	Case CaseMode
	// TypeMode forwards each character to the key injector as it is
	// decoded, not only at flush (from config: type_mode)
	TypeMode bool
}

// Sink buffers decoded characters for display and optionally forwards them
// to the keystroke-injection collaborator. It flushes when the buffer
// reaches FlushCapacity or when a space or line break is appended; the
// decode engine also flushes it on idle timeout and at shutdown.
type Sink struct {
	config   SinkConfig
	display  io.Writer
	injector KeyInjector
	buf      []rune
}

// NewSink creates an output sink writing flushed text to display.
// injector may be nil unless TypeMode is set.
func NewSink(cfg SinkConfig, display io.Writer, injector KeyInjector) (*Sink, error) {
	if display == nil {
		return nil, ErrDisplayRequired
	}
	if cfg.TypeMode && injector == nil {
		return nil, ErrInjectorRequired
	}
	return &Sink{
		config:   cfg,
		display:  display,
		injector: injector,
		buf:      make([]rune, 0, FlushCapacity),
	}, nil
}

// Append adds one decoded character, applying case folding. In type mode
// the character is forwarded to the injector immediately.
func (s *Sink) Append(r rune) {
	if s.config.Case == CaseLower {
		r = unicode.ToLower(r)
	} else {
		r = unicode.ToUpper(r)
	}

	if s.config.TypeMode {
		s.injector.TypeRune(r)
	}

	s.buf = append(s.buf, r)
	if r == ' ' || r == '\n' || len(s.buf) >= FlushCapacity {
		s.Flush()
	}
}

// Flush delivers the buffered text to the display collaborator and clears
// the buffer. Flushing an empty buffer is a no-op.
func (s *Sink) Flush() {
	if len(s.buf) == 0 {
		return
	}
	_, _ = io.WriteString(s.display, string(s.buf))
	s.buf = s.buf[:0]
}

// Len returns the number of buffered characters pending flush.
func (s *Sink) Len() int {
	return len(s.buf)
}

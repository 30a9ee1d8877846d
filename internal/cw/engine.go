// internal/cw/engine.go
package cw

import (
	"errors"
	"io"
	"time"
)

// Boundary timing defaults. The canonical Morse ratios are 3 dot units
// between characters and 7 between words; the thresholds sit slightly under
// those to tolerate jitter.
const (
	// DefaultCharGapRatio is the pause-to-dot ratio that completes the
	// current character
	DefaultCharGapRatio = 2.5
	// DefaultWordGapRatio is the pause-to-dot ratio that additionally
	// emits a word space
	DefaultWordGapRatio = 6.0
	// DefaultIdleTimeout completes a character when the operator stops
	// transmitting mid-sequence and no further record signals the boundary
	DefaultIdleTimeout = 1500 * time.Millisecond
)

var (
	// ErrInvalidCharGapRatio indicates the character gap ratio must be positive
	ErrInvalidCharGapRatio = errors.New("character gap ratio must be positive")
	// ErrInvalidWordGapRatio indicates the word gap ratio must not be below the character gap ratio
	ErrInvalidWordGapRatio = errors.New("word gap ratio must not be below the character gap ratio")
	// ErrInvalidIdleTimeout indicates the idle timeout must be positive
	ErrInvalidIdleTimeout = errors.New("idle timeout must be positive")
)

// ElementFunc is notified of each classified dot or dash together with the
// current dot duration estimate. Used for sidetone and debug displays; must
// be fast and non-blocking.
type ElementFunc func(sym Symbol, dotMs int)

// EngineConfig holds all timing and output parameters for the decode engine.
type EngineConfig struct {
	Classifier ClassifierConfig
	Sink       SinkConfig
	// CharGapRatio is the pause multiple of the dot that marks a character
	// boundary (from config: char_gap_ratio)
	CharGapRatio float64
	// WordGapRatio is the pause multiple of the dot that marks a word
	// boundary (from config: word_gap_ratio)
	WordGapRatio float64
	// IdleTimeout is the inactivity duration that force-completes a
	// sequence in progress (from config: idle_timeout_ms)
	IdleTimeout time.Duration
}

// Engine is the pulse classification and decoding pipeline: parsed records
// flow through the boundary check, the classifier and the accumulator into
// the output sink. All state is owned by the single polling goroutine; the
// engine is not safe for concurrent use.
type Engine struct {
	config     EngineConfig
	classifier *Classifier
	seq        Accumulator
	sink       *Sink

	// wordPending is set when a completion emitted a character and cleared
	// once a word space is emitted for it. Advisory: the space itself only
	// ever comes from an oversized pause on a new record.
	wordPending bool

	lastActivity time.Time
	now          func() time.Time

	elementFunc ElementFunc
}

// NewEngine creates a decode engine writing decoded text to display.
// injector may be nil unless type mode is enabled.
func NewEngine(cfg EngineConfig, display io.Writer, injector KeyInjector) (*Engine, error) {
	if cfg.CharGapRatio <= 0 {
		return nil, ErrInvalidCharGapRatio
	}
	if cfg.WordGapRatio < cfg.CharGapRatio {
		return nil, ErrInvalidWordGapRatio
	}
	if cfg.IdleTimeout <= 0 {
		return nil, ErrInvalidIdleTimeout
	}

	classifier, err := NewClassifier(cfg.Classifier)
	if err != nil {
		return nil, err
	}
	sink, err := NewSink(cfg.Sink, display, injector)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:     cfg,
		classifier: classifier,
		sink:       sink,
		now:        time.Now,
	}
	e.lastActivity = e.now()
	return e, nil
}

// SetElementFunc registers a per-element observer. Pass nil to remove it.
// Set before feeding data; the engine is single-goroutine by contract.
func (e *Engine) SetElementFunc(fn ElementFunc) {
	e.elementFunc = fn
}

// SetClock overrides the engine's time source. Used by tests and by hosts
// with their own monotonic clock.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
		e.lastActivity = now()
	}
}

// FeedLine scans one serial line for pulse records and runs each through
// the decode pipeline in encounter order.
func (e *Engine) FeedLine(line string) {
	for _, rec := range ParseLine(line) {
		e.handleRecord(rec)
	}
}

// handleRecord processes one record: the pause is evaluated for boundaries
// before the length is classified.
func (e *Engine) handleRecord(rec PulseRecord) {
	e.lastActivity = e.now()

	// The pause precedes this pulse, so it closes the previous sequence.
	// Only meaningful once the dot duration is learned.
	if e.classifier.Learned() {
		dot := float64(e.classifier.DotMs())
		if float64(rec.PauseMs) > dot*e.config.CharGapRatio {
			e.completeCharacter()
			if float64(rec.PauseMs) > dot*e.config.WordGapRatio && e.wordPending {
				e.sink.Append(' ')
				e.wordPending = false
			}
		}
	}

	sym := e.classifier.Classify(rec.LengthMs)
	if sym == Noise {
		return
	}
	e.seq.AddSymbol(sym)
	if e.elementFunc != nil {
		e.elementFunc(sym, e.classifier.DotMs())
	}
}

// Tick drives the inactivity check. It must be invoked once per polling
// iteration of the host I/O loop, whether or not data arrived: it is the
// only way a character ends when the operator stops mid-sequence.
func (e *Engine) Tick() {
	if e.seq.Len() == 0 {
		return
	}
	if e.now().Sub(e.lastActivity) > e.config.IdleTimeout {
		e.completeCharacter()
		e.sink.Flush()
	}
}

// Flush force-completes any sequence in progress and drains the output
// sink. Used at shutdown and on transport failure.
func (e *Engine) Flush() {
	e.completeCharacter()
	e.sink.Flush()
}

// completeCharacter resolves the accumulated sequence. Undefined codes emit
// nothing but still reset the accumulator.
func (e *Engine) completeCharacter() {
	ch, ok := e.seq.Complete()
	if !ok {
		return
	}
	e.sink.Append(ch)
	e.wordPending = true
}

// Timing returns the current dot and dash estimates (-1 if unlearned).
func (e *Engine) Timing() (dotMs, dashMs int) {
	return e.classifier.DotMs(), e.classifier.DashMs()
}

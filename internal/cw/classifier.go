// internal/cw/classifier.go
package cw

import "errors"

// Symbol is the classification of a single key-down pulse.
type Symbol int

const (
	// Noise is a sub-threshold glitch; it carries no Morse meaning
	Noise Symbol = iota
	// Dot is a short pulse
	Dot
	// Dash is a long pulse
	Dash
)

// String returns a human-readable symbol name for debug output.
func (s Symbol) String() string {
	switch s {
	case Dot:
		return "dot"
	case Dash:
		return "dash"
	default:
		return "noise"
	}
}

// Classifier timing constants, matching the CW Hotline hardware cadence
const (
	// DefaultNoiseFloorMs filters out key bounce and line glitches
	DefaultNoiseFloorMs = 30
	// DefaultToleranceMs is the window around a learned duration that still
	// counts as that duration
	DefaultToleranceMs = 50

	// unlearned marks a timing value that has not been observed yet
	unlearned = -1

	// shortDotRatio: a reading under this fraction of the learned dot means
	// the operator sped up and the old dot was really a dash
	shortDotRatio = 0.6
	// staleDashFactor: a dash this many times the dot is assumed poisoned
	// by an earlier spike
	staleDashFactor = 6
	// staleDashFloor: minimum multiple of the dot a reading must exceed to
	// replace a poisoned dash
	staleDashFloor = 2
)

var (
	// ErrInvalidNoiseFloor indicates the noise floor must be non-negative
	ErrInvalidNoiseFloor = errors.New("noise floor must be non-negative")
	// ErrInvalidTolerance indicates the timing tolerance must be positive
	ErrInvalidTolerance = errors.New("timing tolerance must be positive")
)

// ClassifierConfig holds the timing parameters for pulse classification.
// All values come from the application config file.
type ClassifierConfig struct {
	// NoiseFloorMs is the minimum pulse length treated as a real key-down
	// (from config: noise_floor_ms)
	NoiseFloorMs int
	// ToleranceMs is the +/- window for matching a learned duration
	// (from config: tolerance_ms)
	ToleranceMs int
}

// Classifier learns and continuously re-calibrates the dot and dash
// durations of an unknown, possibly drifting operator. Every input yields a
// Symbol; there is no error path.
type Classifier struct {
	config ClassifierConfig

	// Timing model: -1 until learned. Once both are learned dashMs exceeds
	// dotMs, except transiently inside the self-correction rules.
	dotMs  int
	dashMs int
}

// NewClassifier creates a classifier with an unlearned timing model.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if cfg.NoiseFloorMs < 0 {
		return nil, ErrInvalidNoiseFloor
	}
	if cfg.ToleranceMs <= 0 {
		return nil, ErrInvalidTolerance
	}
	return &Classifier{
		config: cfg,
		dotMs:  unlearned,
		dashMs: unlearned,
	}, nil
}

// Classify assigns a pulse length to Dot, Dash or Noise and adapts the
// timing model as a side effect. Callers must not advance the sequence
// accumulator for Noise.
func (c *Classifier) Classify(lengthMs int) Symbol {
	// Glitch filter: sub-threshold pulses never touch the model
	if lengthMs < c.config.NoiseFloorMs {
		return Noise
	}

	// Cold start: first real pulse defines the dot
	if c.dotMs == unlearned {
		c.dotMs = lengthMs
		return Dot
	}

	// Second-value learning: the first pulse that is not close to the dot
	// fixes the dash; re-assign the dot if the new reading was shorter
	if c.dashMs == unlearned {
		if c.isClose(lengthMs, c.dotMs) {
			return Dot
		}
		if lengthMs > c.dotMs {
			c.dashMs = lengthMs
		} else {
			c.dashMs = c.dotMs
			c.dotMs = lengthMs
		}
		if lengthMs == c.dotMs {
			return Dot
		}
		return Dash
	}

	// Short-pulse self-correction: the operator's cadence sped up, the old
	// dot is demoted to dash
	if lengthMs > c.config.NoiseFloorMs && float64(lengthMs) < float64(c.dotMs)*shortDotRatio {
		c.dashMs = c.dotMs
		c.dotMs = lengthMs
		return Dot
	}

	// Stale-dash self-correction: an earlier spike poisoned the dash
	// estimate; replace it with the current reading
	if c.dashMs > c.dotMs*staleDashFactor && lengthMs > c.dotMs*staleDashFloor && lengthMs < c.dashMs {
		c.dashMs = lengthMs
		return Dash
	}

	// Steady state: within tolerance classifies directly and nudges the
	// estimate toward the reading with weight 1/4
	if c.isClose(lengthMs, c.dotMs) {
		c.dotMs = (c.dotMs*3 + lengthMs) / 4
		return Dot
	}
	if c.isClose(lengthMs, c.dashMs) {
		c.dashMs = (c.dashMs*3 + lengthMs) / 4
		return Dash
	}

	// Neither fits: nearest absolute distance wins, ties go to Dot
	if absInt(lengthMs-c.dotMs) <= absInt(lengthMs-c.dashMs) {
		return Dot
	}
	return Dash
}

// isClose reports whether val is within the configured tolerance of target.
func (c *Classifier) isClose(val, target int) bool {
	return absInt(val-target) <= c.config.ToleranceMs
}

// Learned reports whether the dot duration has been observed.
func (c *Classifier) Learned() bool {
	return c.dotMs != unlearned
}

// DotMs returns the current dot estimate (-1 if unlearned).
func (c *Classifier) DotMs() int {
	return c.dotMs
}

// DashMs returns the current dash estimate (-1 if unlearned).
func (c *Classifier) DashMs() int {
	return c.dashMs
}

// absInt returns the absolute value of an int.
func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package cw

import (
	"strings"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		Classifier:   testClassifierConfig(),
		Sink:         SinkConfig{Case: CaseLower},
		CharGapRatio: DefaultCharGapRatio,
		WordGapRatio: DefaultWordGapRatio,
		IdleTimeout:  DefaultIdleTimeout,
	}
}

// newTestEngine returns an engine with a manual clock and its display buffer.
func newTestEngine(t *testing.T) (*Engine, *fakeClock, *strings.Builder) {
	t.Helper()
	var buf strings.Builder
	e, err := NewEngine(testEngineConfig(), &buf, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	e.SetClock(clock.Now)
	return e, clock, &buf
}

func TestNewEngine_Validation(t *testing.T) {
	var buf strings.Builder

	tests := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr error
	}{
		{"zero char gap", func(c *EngineConfig) { c.CharGapRatio = 0 }, ErrInvalidCharGapRatio},
		{"word gap below char gap", func(c *EngineConfig) { c.WordGapRatio = 2 }, ErrInvalidWordGapRatio},
		{"zero idle timeout", func(c *EngineConfig) { c.IdleTimeout = 0 }, ErrInvalidIdleTimeout},
		{"bad classifier", func(c *EngineConfig) { c.Classifier.ToleranceMs = 0 }, ErrInvalidTolerance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testEngineConfig()
			tt.mutate(&cfg)
			if _, err := NewEngine(cfg, &buf, nil); err != tt.wantErr {
				t.Errorf("NewEngine() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestEngine_LearnsDotThenDash replays the canonical calibration exchange:
// the first record teaches the dot, the second (pause below the character
// gap) teaches the dash, and the sequence dot-dash resolves to A on the
// next boundary.
func TestEngine_LearnsDotThenDash(t *testing.T) {
	e, _, buf := newTestEngine(t)

	e.FeedLine("S,0,200")
	dot, dash := e.Timing()
	if dot != 200 || dash != -1 {
		t.Fatalf("Timing() after first record = (%d, %d), want (200, -1)", dot, dash)
	}

	e.FeedLine("S,100,600")
	dot, dash = e.Timing()
	if dot != 200 || dash != 600 {
		t.Fatalf("Timing() after second record = (%d, %d), want (200, 600)", dot, dash)
	}
	if buf.Len() != 0 {
		t.Fatalf("output before boundary = %q, want empty", buf.String())
	}

	// Pause 600 > 2.5 * 200 closes the sequence
	e.FeedLine("S,600,200")
	e.Flush()
	if got := buf.String(); got != "ae" {
		t.Errorf("output = %q, want %q (A from dot-dash, E from trailing dot)", got, "ae")
	}
}

func TestEngine_WordSpaceEmission(t *testing.T) {
	e, _, buf := newTestEngine(t)

	e.FeedLine("S,0,200")
	e.FeedLine("S,100,600")
	// Pause 1300 exceeds 6 * 200: character completion then one space,
	// in that order. The noise-level length keeps the sequence empty.
	e.FeedLine("S,1300,10")

	if got := buf.String(); got != "a " {
		t.Errorf("output = %q, want %q", got, "a ")
	}

	// The pending gap was consumed: a second oversized pause with an
	// empty pipeline emits nothing further
	e.FeedLine("S,5000,10")
	if got := buf.String(); got != "a " {
		t.Errorf("output after second oversized pause = %q, want %q", got, "a ")
	}
}

func TestEngine_NoBoundaryBeforeTimingLearned(t *testing.T) {
	e, _, buf := newTestEngine(t)

	// A huge pause on the very first record cannot mean anything: the dot
	// duration is not learned yet
	e.FeedLine("S,100000,200")
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
	if dot, _ := e.Timing(); dot != 200 {
		t.Errorf("DotMs = %d, want 200", dot)
	}
}

func TestEngine_NoiseDoesNotAdvanceSequence(t *testing.T) {
	e, _, buf := newTestEngine(t)

	e.FeedLine("S,0,200") // dot
	e.FeedLine("S,50,10") // noise, below the 30ms floor
	e.FeedLine("S,600,200")
	e.Flush()

	// Were the noise counted as an element, the first character would be
	// I (dot dot) instead of E
	if got := buf.String(); got != "ee" {
		t.Errorf("output = %q, want %q", got, "ee")
	}
}

func TestEngine_MalformedLineLeavesStateUntouched(t *testing.T) {
	e, _, buf := newTestEngine(t)

	e.FeedLine("garbageSxyz,12,abc more text")

	if dot, dash := e.Timing(); dot != -1 || dash != -1 {
		t.Errorf("Timing() = (%d, %d), want (-1, -1)", dot, dash)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestEngine_IdleTimeoutCompletesAndFlushes(t *testing.T) {
	e, clock, buf := newTestEngine(t)

	e.FeedLine("S,0,200") // one dot accumulated

	clock.Advance(1400 * time.Millisecond)
	e.Tick()
	if buf.Len() != 0 {
		t.Fatalf("Tick() before timeout flushed %q", buf.String())
	}

	clock.Advance(200 * time.Millisecond)
	e.Tick()
	if got := buf.String(); got != "e" {
		t.Errorf("output after timeout = %q, want %q", got, "e")
	}

	// Nothing accumulated: further ticks are no-ops
	clock.Advance(time.Hour)
	e.Tick()
	if got := buf.String(); got != "e" {
		t.Errorf("output after idle tick = %q, want %q", got, "e")
	}
}

// TestEngine_IdleTimeoutNeverEmitsSpace pins the deliberate asymmetry: a
// word space only ever comes from an oversized pause on a new record; pure
// inactivity, however long, emits none.
func TestEngine_IdleTimeoutNeverEmitsSpace(t *testing.T) {
	e, clock, buf := newTestEngine(t)

	e.FeedLine("S,0,200")
	e.FeedLine("S,100,600")

	clock.Advance(time.Hour)
	e.Tick()
	e.Tick()

	if got := buf.String(); got != "a" {
		t.Errorf("output = %q, want %q (no trailing space)", got, "a")
	}
}

// TestEngine_SpaceAfterIdleCompletedCharacter covers the flag's purpose: a
// character completed by the idle timeout still gets its word space when a
// later record arrives with an oversized pause.
func TestEngine_SpaceAfterIdleCompletedCharacter(t *testing.T) {
	e, clock, buf := newTestEngine(t)

	e.FeedLine("S,0,200")
	clock.Advance(2 * time.Second)
	e.Tick()
	if got := buf.String(); got != "e" {
		t.Fatalf("output after timeout = %q, want %q", got, "e")
	}

	// New transmission after a long break: the pause record both closes
	// the (empty) sequence and pays out the pending word gap
	e.FeedLine("S,5000,200")
	if got := buf.String(); got != "e " {
		t.Errorf("output = %q, want %q", got, "e ")
	}
}

func TestEngine_UndefinedCodeEmitsNothing(t *testing.T) {
	e, _, buf := newTestEngine(t)

	// dot dot dash dash has no assigned character
	e.FeedLine("S,0,200S,100,200S,100,600S,100,600")
	// The oversized pause completes the undefined sequence: no character,
	// and with no character ever emitted, no word space either
	e.FeedLine("S,9000,10")
	e.Flush()

	if got := buf.String(); got != "" {
		t.Errorf("output = %q, want empty", got)
	}
}

func TestEngine_ElementFunc(t *testing.T) {
	e, _, _ := newTestEngine(t)

	var symbols []Symbol
	var units []int
	e.SetElementFunc(func(sym Symbol, dotMs int) {
		symbols = append(symbols, sym)
		units = append(units, dotMs)
	})

	e.FeedLine("S,0,200S,100,600")
	e.FeedLine("S,50,10") // noise must not be reported

	if len(symbols) != 2 || symbols[0] != Dot || symbols[1] != Dash {
		t.Fatalf("observed symbols = %v, want [dot dash]", symbols)
	}
	for _, u := range units {
		if u != 200 {
			t.Errorf("observed dot unit = %d, want 200", u)
		}
	}
}

func TestEngine_FlushCompletesPartialCharacter(t *testing.T) {
	e, _, buf := newTestEngine(t)

	e.FeedLine("S,0,200")
	e.FeedLine("S,100,600")
	e.Flush()

	if got := buf.String(); got != "a" {
		t.Errorf("output = %q, want %q", got, "a")
	}
}

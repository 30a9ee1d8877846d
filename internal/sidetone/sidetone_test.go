package sidetone

import (
	"testing"

	"github.com/ColonelBlimp/cwkey/internal/cw"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"defaults", DefaultConfig(), nil},
		{"frequency too low", Config{Frequency: 50, SampleRate: 48000}, ErrInvalidFrequency},
		{"frequency too high", Config{Frequency: 5000, SampleRate: 48000}, ErrInvalidFrequency},
		{"sample rate too low", Config{Frequency: 600, SampleRate: 4000}, ErrInvalidSampleRate},
		{"sample rate too high", Config{Frequency: 600, SampleRate: 400000}, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err != tt.wantErr {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlayer_ElementQueuesBeep(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name  string
		sym   cw.Symbol
		dotMs int
		want  int64 // samples at 48kHz
	}{
		{"dot", cw.Dot, 100, 4800},
		{"dash is three units", cw.Dash, 100, 14400},
		{"short dot clamped up", cw.Dot, 5, 960},
		{"long dot clamped down", cw.Dot, 2000, 14400},
		{"noise ignored", cw.Noise, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.remaining.Store(0)
			p.Element(tt.sym, tt.dotMs)
			if got := p.remaining.Load(); got != tt.want {
				t.Errorf("remaining = %d samples, want %d", got, tt.want)
			}
		})
	}
}

func TestPlayer_RenderConsumesBeepThenSilence(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Queue a beep shorter than one render block
	p.remaining.Store(100)
	out := make([]byte, 256*2)
	p.render(out, 256)

	if got := p.remaining.Load(); got != 0 {
		t.Errorf("remaining after render = %d, want 0", got)
	}

	tone := false
	for i := 0; i < 100; i++ {
		if out[i*2] != 0 || out[i*2+1] != 0 {
			tone = true
			break
		}
	}
	if !tone {
		t.Error("render produced only silence during the beep window")
	}
	for i := 100; i < 256; i++ {
		if out[i*2] != 0 || out[i*2+1] != 0 {
			t.Fatalf("sample %d is non-zero past the beep window", i)
		}
	}
}

func TestPlayer_StartRequiresInit(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.Start(); err != ErrNotInitialized {
		t.Errorf("Start() before Init() error = %v, want %v", err, ErrNotInitialized)
	}
}

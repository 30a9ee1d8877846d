// internal/sidetone/sidetone.go
// Package sidetone plays a short or long beep per decoded element, mirroring
// the hardware keyer's sidetone on the decoding side.
package sidetone

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/ColonelBlimp/cwkey/internal/cw"
)

var (
	ErrNotInitialized = errors.New("sidetone not initialized")
	ErrAlreadyRunning = errors.New("sidetone already running")
	// ErrInvalidFrequency indicates the tone frequency is out of range
	ErrInvalidFrequency = errors.New("sidetone frequency must be between 100 and 3000 Hz")
	// ErrInvalidSampleRate indicates the sample rate is out of range
	ErrInvalidSampleRate = errors.New("sidetone sample rate must be between 8000 and 192000 Hz")
)

// Beep length bounds in dot units of milliseconds. The learned dot can be
// arbitrarily short or long; the audible beep is clamped to stay useful.
const (
	minUnitMs = 20
	maxUnitMs = 300
	// dashUnits is the audible dash length in dot units
	dashUnits = 3
)

// Config holds sidetone configuration.
type Config struct {
	// Frequency is the tone frequency in Hz (from config: sidetone_frequency)
	Frequency float64
	// SampleRate is the playback sample rate in Hz (from config: sidetone_sample_rate)
	SampleRate uint32
}

// DefaultConfig returns the conventional CW sidetone settings.
func DefaultConfig() Config {
	return Config{
		Frequency:  600,
		SampleRate: 48000,
	}
}

// Player renders decoded elements as sine beeps on the default playback
// device. Beep requests are a single atomic sample count so the decode path
// never blocks on audio; the audio thread owns the oscillator phase.
type Player struct {
	config Config

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool

	// remaining beep samples, written by Element, consumed on the audio thread
	remaining atomic.Int64
	phase     float64
}

// New creates a sidetone player. Init must be called before Start.
func New(cfg Config) (*Player, error) {
	if cfg.Frequency < 100 || cfg.Frequency > 3000 {
		return nil, ErrInvalidFrequency
	}
	if cfg.SampleRate < 8000 || cfg.SampleRate > 192000 {
		return nil, ErrInvalidSampleRate
	}
	return &Player{config: cfg}, nil
}

// Init initializes the audio backend.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	p.ctx = ctx
	return nil
}

// Start opens the default playback device and begins rendering.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return ErrNotInitialized
	}
	if p.running {
		return ErrAlreadyRunning
	}

	deviceConfig := malgo.DeviceConfig{
		DeviceType: malgo.Playback,
		SampleRate: p.config.SampleRate,
		Playback: malgo.SubConfig{
			Format:   malgo.FormatS16,
			Channels: 1,
		},
	}

	onSendFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		p.render(outputSamples, frameCount)
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start playback device: %w", err)
	}

	p.device = device
	p.running = true
	return nil
}

// Element queues a beep for a decoded element: one dot unit for a dot,
// three for a dash. Safe to call from the decode goroutine; never blocks.
func (p *Player) Element(sym cw.Symbol, dotMs int) {
	if sym != cw.Dot && sym != cw.Dash {
		return
	}
	unit := dotMs
	if unit < minUnitMs {
		unit = minUnitMs
	} else if unit > maxUnitMs {
		unit = maxUnitMs
	}
	if sym == cw.Dash {
		unit *= dashUnits
	}
	p.remaining.Store(int64(unit) * int64(p.config.SampleRate) / 1000)
}

// render fills the output buffer with sine samples while a beep is pending
// and silence otherwise. Runs on the audio thread.
func (p *Player) render(out []byte, frameCount uint32) {
	step := 2 * math.Pi * p.config.Frequency / float64(p.config.SampleRate)
	remaining := p.remaining.Load()
	consumed := int64(0)

	for i := uint32(0); i < frameCount; i++ {
		var sample int16
		if remaining > consumed {
			sample = int16(math.Sin(p.phase) * 0.4 * math.MaxInt16)
			p.phase += step
			if p.phase > 2*math.Pi {
				p.phase -= 2 * math.Pi
			}
			consumed++
		}
		out[i*2] = byte(sample)
		out[i*2+1] = byte(sample >> 8)
	}

	// Add rather than Store so a beep queued mid-render is not lost
	p.remaining.Add(-consumed)
}

// Close stops playback and releases all audio resources.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		_ = p.device.Stop()
		p.device.Uninit()
		p.device = nil
	}
	p.running = false

	if p.ctx != nil {
		if err := p.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit audio context: %w", err)
		}
		p.ctx.Free()
		p.ctx = nil
	}
	return nil
}

// IsRunning reports whether the playback device is active.
func (p *Player) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// internal/cli/wizard/wizard.go
// Package wizard drives the CW Hotline's interactive settings menu over the
// serial link: enter the menu, step every setting, answer "keep" for all but
// the target one.
package wizard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ColonelBlimp/cwkey/internal/serial"
)

// Settings menu layout of the CW Hotline firmware
const (
	// TotalSettings is how many prompts the menu walks through
	TotalSettings = 14
	// SpeakerIndex is the menu position of the speaker on/off setting
	SpeakerIndex = 9
	// WPMIndex is the menu position of the keyer speed setting
	WPMIndex = 12

	// entryCommand switches the hardware into its settings menu
	entryCommand = "***\r"
	// banner appears once the hardware has entered the menu
	banner = "Settings"

	// promptPolls x pollInterval bounds the wait for each prompt
	promptPolls  = 40
	pollInterval = 100 * time.Millisecond
	// settleDelay between answers, the firmware drops input sent too fast
	settleDelay = 200 * time.Millisecond
)

var (
	// ErrPortRequired indicates a serial port is required
	ErrPortRequired = errors.New("serial port is required")
	// ErrInvalidSetting indicates the target setting index is out of range
	ErrInvalidSetting = errors.New("setting index out of range")
	// ErrNoBanner indicates the hardware never entered the settings menu
	ErrNoBanner = errors.New("device did not enter settings menu")
)

// Wizard automates one pass through the device settings menu.
type Wizard struct {
	port  serial.Port
	log   *slog.Logger
	out   io.Writer
	sleep func(time.Duration)
}

// New creates a wizard. out receives the device's menu output for the
// operator to follow along; sleep is injectable for tests.
func New(port serial.Port, logger *slog.Logger, out io.Writer) (*Wizard, error) {
	if port == nil {
		return nil, ErrPortRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Wizard{
		port:  port,
		log:   logger,
		out:   out,
		sleep: time.Sleep,
	}, nil
}

// Apply walks all settings, writing value at the target index and a bare
// carriage return (keep current) everywhere else. The device must be power
// cycled afterwards for the change to take effect.
func (w *Wizard) Apply(target int, value string) error {
	if target < 1 || target > TotalSettings {
		return ErrInvalidSetting
	}

	w.log.Info("entering settings menu", "target", target, "value", value)
	if _, err := w.port.Write([]byte(entryCommand)); err != nil {
		return fmt.Errorf("send menu entry: %w", err)
	}

	if !w.awaitText(banner) {
		return ErrNoBanner
	}

	for setting := 1; setting <= TotalSettings; setting++ {
		if !w.awaitText(":") {
			// The firmware sometimes swallows a prompt; answer anyway so
			// the menu position stays in step
			w.log.Warn("timeout waiting for prompt", "setting", setting)
		}

		answer := "\r"
		if setting == target {
			answer = value + "\r"
			w.log.Info("writing setting", "setting", setting, "value", value)
		}
		if _, err := w.port.Write([]byte(answer)); err != nil {
			return fmt.Errorf("answer setting %d: %w", setting, err)
		}
		w.sleep(settleDelay)
	}

	w.log.Info("configuration complete, power cycle the device")
	return nil
}

// awaitText polls the port until the wanted text appears in the accumulated
// output or the poll budget runs out. Device output is echoed to w.out with
// control characters sanitized.
func (w *Wizard) awaitText(want string) bool {
	buf := make([]byte, 1024)
	var acc strings.Builder

	for i := 0; i < promptPolls; i++ {
		w.sleep(pollInterval)
		n, err := w.port.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			w.echo(chunk)
			acc.Write(chunk)
			if strings.Contains(acc.String(), want) {
				return true
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return false
		}
	}
	return false
}

// echo forwards device output to the operator, replacing control characters
// other than line breaks with dots.
func (w *Wizard) echo(data []byte) {
	if w.out == nil {
		return
	}
	clean := make([]byte, len(data))
	for i, b := range data {
		if b < 32 && b != '\n' && b != '\r' {
			b = '.'
		}
		clean[i] = b
	}
	_, _ = w.out.Write(clean)
}

// internal/serial/port.go
// Package serial provides the bounded-timeout serial transport the decode
// loop reads pulse reports from.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"
)

var (
	// ErrPortRequired indicates a device path must be configured
	ErrPortRequired = errors.New("serial port name is required")
	// ErrInvalidBaud indicates the baud rate must be positive
	ErrInvalidBaud = errors.New("baud rate must be positive")
	// ErrInvalidReadTimeout indicates the read timeout must be positive
	ErrInvalidReadTimeout = errors.New("read timeout must be positive")
)

// Port is the narrow transport capability the core depends on. Read is
// bounded by the configured read timeout; an expired timeout surfaces as
// (0, nil) or (0, io.EOF) depending on the platform, both of which callers
// must treat as "no data yet", not as disconnection.
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial transport configuration.
type Config struct {
	// Name is the device path, e.g. /dev/tty.usbserial-11240 or COM3
	// (from config: port)
	Name string
	// Baud is the line rate (from config: baud)
	Baud int
	// ReadTimeout bounds every Read call so the polling loop can run its
	// inactivity check even when the line is silent (from config:
	// read_timeout_ms)
	ReadTimeout time.Duration
}

// Open opens the serial device in raw mode at the configured rate.
func Open(cfg Config) (Port, error) {
	if cfg.Name == "" {
		return nil, ErrPortRequired
	}
	if cfg.Baud <= 0 {
		return nil, ErrInvalidBaud
	}
	if cfg.ReadTimeout <= 0 {
		return nil, ErrInvalidReadTimeout
	}

	p, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Name, err)
	}
	return p, nil
}

// IsTimeout reports whether a Read result means the timeout expired with no
// data, as opposed to a transport failure.
func IsTimeout(n int, err error) bool {
	return n == 0 && (err == nil || errors.Is(err, io.EOF))
}

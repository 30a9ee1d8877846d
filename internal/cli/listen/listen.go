// internal/cli/listen/listen.go
// Package listen runs the serial polling loop that feeds the decode engine.
package listen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ColonelBlimp/cwkey/internal/cw"
	"github.com/ColonelBlimp/cwkey/internal/serial"
)

var (
	// ErrPortRequired indicates a serial port is required
	ErrPortRequired = errors.New("serial port is required")
	// ErrEngineRequired indicates a decode engine is required
	ErrEngineRequired = errors.New("decode engine is required")
)

const (
	// readChunkSize is the per-poll read buffer size
	readChunkSize = 256
	// lineBufCap caps line accumulation; on overflow the whole buffer is
	// discarded, matching the hardware protocol's short-line assumption
	lineBufCap = 4096
)

// Loop polls the serial transport, splits the byte stream into lines for
// the engine and drives the engine's inactivity check once per iteration
// whether or not data arrived.
type Loop struct {
	port    serial.Port
	engine  *cw.Engine
	log     *slog.Logger
	dumpOut io.Writer
	dumpHex bool

	lineBuf []byte
}

// New creates a polling loop. dumpOut receives the raw hex dump when
// dumpHex is set; the engine is bypassed in that mode.
func New(port serial.Port, engine *cw.Engine, logger *slog.Logger, dumpOut io.Writer, dumpHex bool) (*Loop, error) {
	if port == nil {
		return nil, ErrPortRequired
	}
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		port:    port,
		engine:  engine,
		log:     logger,
		dumpOut: dumpOut,
		dumpHex: dumpHex,
		lineBuf: make([]byte, 0, lineBufCap),
	}, nil
}

// Run polls until the context is cancelled or the transport fails. The
// bounded serial read is the only suspension point; a read timeout with no
// data still ticks the engine so mid-character silence can complete. Any
// partial character is force-flushed before returning.
func (l *Loop) Run(ctx context.Context) error {
	buf := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			l.engine.Flush()
			return nil
		default:
		}

		n, err := l.port.Read(buf)
		switch {
		case n > 0:
			l.handleBytes(buf[:n])
		case serial.IsTimeout(n, err):
			// No data within the read timeout; fall through to the tick
		case err != nil:
			// Transport failure is fatal to the loop
			l.engine.Flush()
			return fmt.Errorf("serial read: %w", err)
		}

		l.engine.Tick()
	}
}

// handleBytes routes received bytes to the hex dump or the line splitter.
func (l *Loop) handleBytes(data []byte) {
	if l.dumpHex {
		l.dump(data)
		return
	}

	if len(l.lineBuf)+len(data) > lineBufCap {
		// Discard the whole accumulation rather than a prefix: a line this
		// long is not protocol traffic
		l.log.Warn("line buffer overflow, discarding", "buffered", len(l.lineBuf))
		l.lineBuf = l.lineBuf[:0]
	}
	l.lineBuf = append(l.lineBuf, data...)
	l.drainLines()
}

// drainLines feeds every complete line to the engine. CR and LF both
// terminate a line; a CRLF (or LFCR) pair collapses to one boundary.
func (l *Loop) drainLines() {
	for {
		end := -1
		for i, b := range l.lineBuf {
			if b == '\n' || b == '\r' {
				end = i
				break
			}
		}
		if end == -1 {
			return
		}

		line := string(l.lineBuf[:end])
		if line != "" {
			l.log.Debug("raw line", "line", line)
			l.engine.FeedLine(line)
			dot, dash := l.engine.Timing()
			l.log.Debug("timing", "dot_ms", dot, "dash_ms", dash)
		}

		// Consume one immediately following terminator so CRLF is a single
		// boundary
		next := end + 1
		if next < len(l.lineBuf) && (l.lineBuf[next] == '\n' || l.lineBuf[next] == '\r') {
			next++
		}
		l.lineBuf = append(l.lineBuf[:0], l.lineBuf[next:]...)
	}
}

// dump prints each byte as hex plus its printable form, one poll per line.
func (l *Loop) dump(data []byte) {
	if l.dumpOut == nil {
		return
	}
	for _, b := range data {
		c := byte('.')
		if b >= 32 && b < 127 {
			c = b
		}
		_, _ = fmt.Fprintf(l.dumpOut, "[%02X] %c ", b, c)
	}
	_, _ = fmt.Fprintln(l.dumpOut)
}

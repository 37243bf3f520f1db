// Package serial provides the device plugged into the link port. Test ROMs
// print their results through it.
package serial

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/bit"
)

// transferCycles is how long a byte takes on the internal clock (8192 Hz).
const transferCycles = 4096

// Capture is a serial device with nothing on the other end. Every byte sent
// is recorded, logged one line at a time and copied to an optional writer;
// every byte received is 0xFF.
type Capture struct {
	irqHandler     func()
	sb, sc         byte
	transferActive bool
	countdown      int

	logger    *slog.Logger
	immediate bool
	out       io.Writer

	output bytes.Buffer
	line   []byte
}

type CaptureOption func(*Capture)

// WithFixedTiming completes transfers after the DMG transfer time instead of
// immediately.
func WithFixedTiming() CaptureOption { return func(c *Capture) { c.immediate = false } }

// WithWriter copies every byte sent to w.
func WithWriter(w io.Writer) CaptureOption { return func(c *Capture) { c.out = w } }

// WithLogger replaces slog.Default for line logging.
func WithLogger(l *slog.Logger) CaptureOption { return func(c *Capture) { c.logger = l } }

// NewCapture creates a capturing serial device. irq is called when a
// transfer completes and should request the serial interrupt.
func NewCapture(irq func(), opts ...CaptureOption) *Capture {
	c := &Capture{
		irqHandler: irq,
		immediate:  true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

func (c *Capture) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		c.sb = value
	case addr.SC:
		c.sc = value
		c.startTransfer()
	default:
		panic(fmt.Sprintf("serial: invalid write address 0x%04X", address))
	}
}

func (c *Capture) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return c.sb
	case addr.SC:
		return c.sc | 0x7E
	default:
		panic(fmt.Sprintf("serial: invalid read address 0x%04X", address))
	}
}

func (c *Capture) Tick(cycles int) {
	if !c.transferActive {
		return
	}
	c.countdown -= cycles
	if c.countdown <= 0 {
		c.completeTransfer()
	}
}

// Reset clears the registers and any transfer in flight. Captured output is
// kept.
func (c *Capture) Reset() {
	c.sb = 0
	c.sc = 0
	c.transferActive = false
	c.countdown = 0
	c.line = c.line[:0]
}

// Output returns everything sent so far.
func (c *Capture) Output() string {
	return c.output.String()
}

func (c *Capture) startTransfer() {
	// bit 7 starts a transfer, bit 0 selects the internal clock. With an
	// external clock nothing on the other end would ever drive it.
	if c.transferActive || !bit.IsSet(7, c.sc) || !bit.IsSet(0, c.sc) {
		return
	}

	c.record(c.sb)

	if c.immediate {
		c.completeTransfer()
		return
	}
	c.transferActive = true
	c.countdown = transferCycles
}

func (c *Capture) record(b byte) {
	c.output.WriteByte(b)
	if c.out != nil {
		if _, err := c.out.Write([]byte{b}); err != nil {
			c.logger.Warn("serial output write failed", "err", err)
			c.out = nil
		}
	}

	if b == 0 || b == '\n' || b == '\r' {
		if len(c.line) > 0 {
			c.logger.Info("serial", "line", string(c.line))
			c.line = c.line[:0]
		}
		return
	}
	c.line = append(c.line, b)
}

func (c *Capture) completeTransfer() {
	c.sb = 0xFF
	c.sc = bit.Reset(7, c.sc)
	c.transferActive = false
	c.countdown = 0
	if c.irqHandler != nil {
		c.irqHandler()
	}
}

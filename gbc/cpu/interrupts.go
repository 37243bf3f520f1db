package cpu

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-gbc/gbc/addr"
)

// RequestEnableInterrupts schedules IME to be set (EI). It replaces any
// transition still in flight.
func (c *CPU) RequestEnableInterrupts() {
	c.imeDelay = 2
}

// RequestDisableInterrupts schedules IME to be cleared (DI). It replaces any
// transition still in flight.
func (c *CPU) RequestDisableInterrupts() {
	c.imeDelay = -2
}

// Wait puts the CPU to sleep until an enabled interrupt is requested (HALT).
func (c *CPU) Wait() {
	c.asleep = true
	c.haltBug = 2
}

// handleInterrupts runs once at the end of every step.
func (c *CPU) handleInterrupts() {
	switch {
	case c.imeDelay > 0:
		c.imeDelay--
		if c.imeDelay == 0 {
			c.ime = true
		}
	case c.imeDelay < 0:
		c.imeDelay++
		if c.imeDelay == 0 {
			c.ime = false
		}
	}

	pending := c.bus.PendingInterrupts()

	switch {
	case c.ime && pending != 0:
		c.ime = false
		c.imeDelay = 0
		c.asleep = false
		c.haltBug = 0
		c.dispatch(pending)
	case c.asleep && pending != 0:
		// IME is off: wake up, but leave the request alone.
		c.asleep = false
	case c.asleep:
		c.haltBug = 0
	}

	if !c.asleep && c.haltBug > 0 {
		c.haltBug--
	}
}

// dispatch services the highest priority interrupt in pending.
func (c *CPU) dispatch(pending uint8) {
	for _, interrupt := range addr.Interrupts {
		if pending&interrupt.Mask() == 0 {
			continue
		}
		c.bus.AckInterrupt(interrupt)
		c.pushStack(c.regs.PC)
		c.regs.PC = interrupt.Vector()
		c.incrCycles(interruptCycles)
		return
	}

	slog.Warn("pending interrupt matches no known source", "mask", fmt.Sprintf("0x%02X", pending))
	c.BreakNow()
}

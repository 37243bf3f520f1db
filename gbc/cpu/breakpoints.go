package cpu

import (
	"fmt"
	"log/slog"
	"sort"
)

// Breakpoint is attached to an address and fires every time PC reaches it,
// before the instruction there runs.
type Breakpoint struct {
	// OnHit is called with the opcode at the breakpoint. It may call BreakNow
	// to pause.
	OnHit func(c *CPU, opcode uint8)
	// Steps and Verbose replace the step countdown and trace setting when
	// OverrideSteps is set.
	Steps         int
	OverrideSteps bool
	Verbose       bool
}

// SetBreakpoint installs bp at address, replacing any previous one.
func (c *CPU) SetBreakpoint(address uint16, bp Breakpoint) {
	c.breakpoints[address] = bp
}

// SetPausepoint installs a breakpoint that pauses into the debugger.
func (c *CPU) SetPausepoint(address uint16) {
	c.SetBreakpoint(address, Breakpoint{
		OnHit: func(c *CPU, _ uint8) { c.BreakNow() },
	})
}

func (c *CPU) RemoveBreakpoint(address uint16) {
	delete(c.breakpoints, address)
}

func (c *CPU) ClearBreakpoints() {
	c.breakpoints = make(map[uint16]Breakpoint)
}

// Breakpoints returns the addresses with a breakpoint, in ascending order.
func (c *CPU) Breakpoints() []uint16 {
	addresses := make([]uint16, 0, len(c.breakpoints))
	for address := range c.breakpoints {
		addresses = append(addresses, address)
	}
	sort.Slice(addresses, func(i, j int) bool { return addresses[i] < addresses[j] })
	return addresses
}

// BreakNow pauses before the next instruction.
func (c *CPU) BreakNow() {
	c.breakNow = true
}

// BreakOnSteps pauses every n instructions. Zero runs freely.
func (c *CPU) BreakOnSteps(n int) {
	c.breakSteps = n
	c.breakStepsLeft = n
}

// breakChecks runs before every fetch and reports whether the machine is
// still running afterwards.
func (c *CPU) breakChecks() bool {
	if c.breakTime() {
		c.pause()
		return c.running
	}

	if bp, ok := c.breakpoints[c.regs.PC]; ok {
		if bp.OnHit != nil {
			bp.OnHit(c, c.bus.Read(c.regs.PC))
		}
		if bp.OverrideSteps {
			c.BreakOnSteps(bp.Steps)
			c.mon.Verbose = bp.Verbose
		}
		if c.breakNow {
			c.pause()
		}
	}

	return c.running
}

func (c *CPU) breakTime() bool {
	if c.breakNow {
		return true
	}
	if c.breakSteps == 0 {
		return false
	}

	c.breakStepsLeft--
	if c.breakStepsLeft <= 0 {
		c.breakStepsLeft = c.breakSteps
		return true
	}
	return false
}

// pause hands control to the Pauser until it resumes without asking for
// another break, or stops the machine.
func (c *CPU) pause() {
	for c.running {
		c.breakNow = false
		if c.mon.Pauser == nil {
			slog.Warn("break requested with no debugger attached", "pc", fmt.Sprintf("0x%04X", c.regs.PC))
			return
		}
		c.mon.Pauser.Pause(c, c.bus.Read(c.regs.PC))
		if !c.breakNow {
			return
		}
	}
}

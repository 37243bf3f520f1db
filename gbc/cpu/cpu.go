package cpu

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/valerio/go-gbc/gbc/addr"
)

// Bus is everything the CPU needs from the rest of the machine: memory access
// and the interrupt registers owned by the IO subsystem.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	Read16(address uint16) uint16
	Write16(address uint16, value uint16)

	// PendingInterrupts returns IE & IF, limited to the five known sources.
	PendingInterrupts() uint8
	// AckInterrupt clears the request bit of a serviced interrupt.
	AckInterrupt(interrupt addr.Interrupt)
}

// Pauser handles a debug break. It is called before the instruction at PC
// runs and blocks until execution should resume.
type Pauser interface {
	Pause(c *CPU, opcode uint8)
}

// PauserFunc adapts a function to the Pauser interface.
type PauserFunc func(c *CPU, opcode uint8)

func (f PauserFunc) Pause(c *CPU, opcode uint8) { f(c, opcode) }

// Monitor is the debugging context of a CPU: where the instruction trace is
// written, whether it is on, and who handles breaks.
type Monitor struct {
	Verbose bool
	Trace   io.Writer
	Pauser  Pauser
}

// Option configures a CPU in New.
type Option func(*CPU)

// WithMonitor replaces the default monitor, which traces to stdout and has no
// Pauser attached.
func WithMonitor(m *Monitor) Option {
	return func(c *CPU) {
		c.mon = m
	}
}

// WithEntryPoint sets the PC used on reset.
func WithEntryPoint(pc uint16) Option {
	return func(c *CPU) {
		c.entry = pc
	}
}

const (
	haltCycles      = 4
	interruptCycles = 20
)

// CPU is the LR35902 core. It is not safe for concurrent use; the machine
// drives it from a single goroutine through Step.
type CPU struct {
	regs Registers
	bus  Bus
	mon  *Monitor

	entry   uint16
	cycles  uint64
	opcode  uint8
	running bool

	// ime is the interrupt master enable. imeDelay counts down (> 0) to an
	// enable or up (< 0) to a disable, one unit per step.
	ime      bool
	imeDelay int8

	asleep bool
	// haltBug is armed by HALT. While it is non-zero at fetch time the
	// opcode is executed without moving PC past it.
	haltBug uint8

	breakpoints    map[uint16]Breakpoint
	breakNow       bool
	breakSteps     int
	breakStepsLeft int
	lastFlags      uint8
}

// New returns a CPU in its power-on state, running from the cartridge entry
// point unless configured otherwise.
func New(bus Bus, opts ...Option) *CPU {
	c := &CPU{
		bus:         bus,
		entry:       CartridgeEntry,
		running:     true,
		breakpoints: make(map[uint16]Breakpoint),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mon == nil {
		c.mon = &Monitor{Trace: os.Stdout}
	}
	if c.mon.Trace == nil {
		c.mon.Trace = io.Discard
	}

	c.Reset()
	return c
}

// Reset restores the power-on register values and clears the cycle counter
// and all interrupt and halt state. Breakpoints are kept.
func (c *CPU) Reset() {
	c.regs.reset(c.entry)
	c.cycles = 0
	c.opcode = 0
	c.ime = false
	c.imeDelay = 0
	c.asleep = false
	c.haltBug = 0
	c.lastFlags = c.regs.F()
}

// Step runs a single instruction, or a single idle slot if the CPU is
// asleep, then services interrupts. It returns the T-states elapsed,
// interrupt dispatch included, or 0 if the machine was stopped while paused.
func (c *CPU) Step() int {
	if c.asleep {
		start := c.cycles
		c.incrCycles(haltCycles)
		c.handleInterrupts()
		return int(c.cycles - start)
	}

	if !c.breakChecks() {
		return 0
	}

	// a pause may have reset the cycle counter
	start := c.cycles

	pc := c.regs.PC
	opcode := c.bus.Read(pc)
	c.opcode = opcode
	instr := Classify(opcode)

	if c.mon.Verbose {
		fmt.Fprintf(c.mon.Trace, "%9d: [pc 0x%04x] opcode 0x%02x: %s\n", c.cycles, pc, opcode, instr.Print(c, opcode))
	}

	if c.haltBug == 0 {
		c.regs.PC++
	}

	cycles := instr.handler(c, opcode)

	if c.mon.Verbose {
		c.traceFlags()
	}

	c.incrCycles(cycles)
	c.handleInterrupts()

	return int(c.cycles - start)
}

func (c *CPU) traceFlags() {
	flags := c.regs.F()
	if flags == c.lastFlags {
		return
	}
	c.lastFlags = flags
	fmt.Fprintf(c.mon.Trace, "* Flags changed: [%s]\n", c.regs.FlagString())
}

// incrCycles is the only place the cycle counter moves.
func (c *CPU) incrCycles(count int) {
	if count < 0 {
		slog.Error("negative cycle count", "count", count, "opcode", fmt.Sprintf("0x%02X", c.opcode))
		panic(fmt.Sprintf("negative cycle count %d for opcode 0x%02X", count, c.opcode))
	}
	c.cycles += uint64(count)
}

// IsRunning reports whether the machine is still meant to be driven.
func (c *CPU) IsRunning() bool {
	return c.running
}

// Stop clears the running flag. The driver loop is expected to notice and
// return.
func (c *CPU) Stop() {
	c.running = false
}

func (c *CPU) Registers() *Registers { return &c.regs }
func (c *CPU) Bus() Bus              { return c.bus }
func (c *CPU) Cycles() uint64        { return c.cycles }
func (c *CPU) IsAsleep() bool        { return c.asleep }
func (c *CPU) IME() bool             { return c.ime }

// Opcode returns the last opcode fetched.
func (c *CPU) Opcode() uint8 { return c.opcode }

func (c *CPU) Verbose() bool { return c.mon.Verbose }

func (c *CPU) SetVerbose(verbose bool) { c.mon.Verbose = verbose }

// Package gbc wires the CPU, memory, LCD timing, sound stub and serial port
// into a DMG Game Boy.
package gbc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/cpu"
	"github.com/valerio/go-gbc/gbc/debug"
	"github.com/valerio/go-gbc/gbc/memory"
	"github.com/valerio/go-gbc/gbc/serial"
	"github.com/valerio/go-gbc/gbc/timing"
	"github.com/valerio/go-gbc/gbc/video"
)

// ErrStopped is returned by RunUntilFrame once the machine has been stopped.
var ErrStopped = errors.New("machine stopped")

type config struct {
	boot      []byte
	console   *debug.Console
	serialOut io.Writer
	trace     io.Writer
	verbose   bool
}

type Option func(*config)

// WithBootROM maps a 256 byte boot ROM at 0x0000 and starts executing from
// there instead of the cartridge entry point.
func WithBootROM(data []byte) Option {
	return func(c *config) { c.boot = data }
}

// WithConsole attaches the interactive debugger to console. Without it,
// breaks are logged and ignored.
func WithConsole(console *debug.Console) Option {
	return func(c *config) { c.console = console }
}

// WithSerialOutput copies every byte sent over the link port to w.
func WithSerialOutput(w io.Writer) Option {
	return func(c *config) { c.serialOut = w }
}

// WithTrace sets where the instruction trace goes, stdout by default.
// verbose turns it on from the start.
func WithTrace(w io.Writer, verbose bool) Option {
	return func(c *config) {
		c.trace = w
		c.verbose = verbose
	}
}

// DMG is a complete machine. It implements debug.Machine.
type DMG struct {
	cpu     *cpu.CPU
	mem     *memory.MMU
	gpu     *video.GPU
	capture *serial.Capture

	debugHandler     func(d *DMG)
	lastDebugTrigger uint64
}

var _ debug.Machine = (*DMG)(nil)

// New creates a machine with cart inserted. A nil cart leaves an empty 32KB
// ROM in the slot.
func New(cart *memory.Cartridge, opts ...Option) (*DMG, error) {
	cfg := config{trace: os.Stdout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cart == nil {
		cart = memory.NewCartridge()
	}
	if cart.MBCType() == memory.MBCUnknownType {
		return nil, fmt.Errorf("unsupported cartridge type 0x%02X", cart.Type())
	}

	d := &DMG{debugHandler: logDebugInterrupt}

	d.capture = serial.NewCapture(
		func() { d.mem.RequestInterrupt(addr.SerialInterrupt) },
		serial.WithWriter(cfg.serialOut),
	)
	d.mem = memory.NewWithCartridge(cart, memory.WithSerial(d.capture))

	entry := cpu.CartridgeEntry
	if cfg.boot != nil {
		if err := d.mem.LoadBootROM(cfg.boot); err != nil {
			return nil, err
		}
		entry = cpu.BootROMEntry
	}

	mon := &cpu.Monitor{Trace: cfg.trace, Verbose: cfg.verbose}
	if cfg.console != nil {
		mon.Pauser = debug.New(cfg.console, d)
	}
	d.cpu = cpu.New(d.mem, cpu.WithMonitor(mon), cpu.WithEntryPoint(entry))

	d.gpu = video.New(d.mem)
	d.gpu.OnFrame(func(frame uint64) {
		slog.Debug("frame completed", "frame", frame, "cycles", d.cpu.Cycles())
	})

	return d, nil
}

// NewWithFile loads the ROM at path from fs and creates a machine with it.
func NewWithFile(fs afero.Fs, path string, opts ...Option) (*DMG, error) {
	cart, err := memory.LoadCartridge(fs, path)
	if err != nil {
		return nil, err
	}

	slog.Info("loaded ROM",
		"title", cart.Title(),
		"mbc", cart.MBCType().String(),
		"size", cart.ROMSize(),
		"id", fmt.Sprintf("%016x", cart.ID()),
		"checksum_ok", cart.ChecksumOK())

	return New(cart, opts...)
}

// Step runs one CPU step and advances the rest of the machine by the same
// number of T-states.
func (d *DMG) Step() int {
	cycles := d.cpu.Step()
	d.mem.Tick(cycles)
	d.gpu.Tick(cycles)
	return cycles
}

// RunUntilFrame steps until the next frame is completed. With the LCD off it
// gives up after a frame's worth of T-states.
func (d *DMG) RunUntilFrame() error {
	start := d.gpu.Frames()
	elapsed := 0
	for d.gpu.Frames() == start && elapsed < timing.CyclesPerFrame {
		if !d.cpu.IsRunning() {
			return ErrStopped
		}
		elapsed += d.Step()
	}
	if !d.cpu.IsRunning() {
		return ErrStopped
	}
	return nil
}

func (d *DMG) Running() bool { return d.cpu.IsRunning() }

// Reset brings memory, the LCD and the CPU back to their power-on state.
func (d *DMG) Reset() {
	d.mem.Reset()
	d.gpu.Reset()
	d.cpu.Reset()
	slog.Debug("machine reset")
}

// RenderAndVBlank forces the current frame out and requests VBlank.
func (d *DMG) RenderAndVBlank() {
	d.gpu.RenderAndVBlank()
}

// DebugInterrupt runs the debug handler and records when it fired.
func (d *DMG) DebugInterrupt() {
	d.debugHandler(d)
	d.lastDebugTrigger = d.cpu.Cycles()
}

// SetDebugHandler replaces the handler run by DebugInterrupt, which logs a
// summary of the machine state by default.
func (d *DMG) SetDebugHandler(fn func(d *DMG)) {
	d.debugHandler = fn
}

// LastDebugInterrupt returns the cycle count at the last DebugInterrupt.
func (d *DMG) LastDebugInterrupt() uint64 { return d.lastDebugTrigger }

func (d *DMG) CPU() *cpu.CPU        { return d.cpu }
func (d *DMG) MMU() *memory.MMU     { return d.mem }
func (d *DMG) GPU() *video.GPU      { return d.gpu }
func (d *DMG) Frames() uint64       { return d.gpu.Frames() }
func (d *DMG) SerialOutput() string { return d.capture.Output() }

func logDebugInterrupt(d *DMG) {
	regs := d.cpu.Registers()
	slog.Info("debug interrupt",
		"pc", fmt.Sprintf("0x%04X", regs.PC),
		"sp", fmt.Sprintf("0x%04X", regs.SP),
		"cycles", d.cpu.Cycles(),
		"frames", d.gpu.Frames(),
		"ly", d.gpu.Line())
}

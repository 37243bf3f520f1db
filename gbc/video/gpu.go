// Package video implements the timing side of the LCD controller: modes,
// scanlines, LY/LYC coincidence and the interrupts they raise. No pixels are
// produced.
package video

import (
	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/bit"
)

// GpuMode is the LCD mode as reported in the two low bits of STAT.
type GpuMode uint8

const (
	hblank GpuMode = iota
	vblank
	oamRead
	vramRead
)

const (
	hblankCycles       = 204
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles

	visibleLines = 144
	totalLines   = 154
)

// STAT bits
const (
	coincidenceFlag = 2
	hblankIRQ       = 3
	vblankIRQ       = 4
	oamIRQ          = 5
	coincidenceIRQ  = 6
)

const lcdEnable = 7

// Bus is what the GPU needs from the memory subsystem.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
	RequestInterrupt(interrupt addr.Interrupt)
}

type GPU struct {
	bus Bus

	line    uint8
	mode    GpuMode
	cycles  int
	enabled bool

	frames  uint64
	onFrame func(frame uint64)
}

func New(bus Bus) *GPU {
	g := &GPU{bus: bus}
	g.Reset()
	return g
}

// Reset puts the LCD back at the start of the first scanline.
func (g *GPU) Reset() {
	g.cycles = 0
	g.frames = 0
	g.enabled = true
	g.setLine(0)
	g.setMode(oamRead)
}

// OnFrame registers a callback run every time a frame is completed.
func (g *GPU) OnFrame(fn func(frame uint64)) {
	g.onFrame = fn
}

// Frames returns how many frames were completed since the last reset.
func (g *GPU) Frames() uint64 {
	return g.frames
}

func (g *GPU) Line() uint8   { return g.line }
func (g *GPU) Mode() GpuMode { return g.mode }

// Tick simulates gpu behaviour for a certain amount of clock cycles.
func (g *GPU) Tick(cycles int) {
	if !bit.IsSet(lcdEnable, g.bus.Read(addr.LCDC)) {
		if g.enabled {
			g.turnOff()
		}
		return
	}
	if !g.enabled {
		g.enabled = true
		g.setMode(oamRead)
	}

	g.cycles += cycles
	for g.advance() {
	}
}

// advance moves to the next mode if the current one is over.
func (g *GPU) advance() bool {
	switch g.mode {
	case oamRead:
		if g.cycles < oamScanlineCycles {
			return false
		}
		g.cycles -= oamScanlineCycles
		g.setMode(vramRead)
	case vramRead:
		if g.cycles < vramScanlineCycles {
			return false
		}
		g.cycles -= vramScanlineCycles
		g.setMode(hblank)
	case hblank:
		if g.cycles < hblankCycles {
			return false
		}
		g.cycles -= hblankCycles
		g.setLine(g.line + 1)
		if g.line == visibleLines {
			g.setMode(vblank)
			g.RenderAndVBlank()
		} else {
			g.setMode(oamRead)
		}
	case vblank:
		if g.cycles < scanlineCycles {
			return false
		}
		g.cycles -= scanlineCycles
		if g.line+1 == totalLines {
			g.setLine(0)
			g.setMode(oamRead)
		} else {
			g.setLine(g.line + 1)
		}
	}
	return true
}

// RenderAndVBlank completes the current frame and signals VBlank. It is
// called when the last visible line is done, and by the debugger to force a
// frame out.
func (g *GPU) RenderAndVBlank() {
	g.frames++
	g.bus.RequestInterrupt(addr.VBlankInterrupt)
	if g.onFrame != nil {
		g.onFrame(g.frames)
	}
}

// turnOff resets LY and the mode while the LCD is disabled.
func (g *GPU) turnOff() {
	g.enabled = false
	g.cycles = 0
	g.setLine(0)
	g.mode = hblank
	g.writeStatMode()
}

func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	stat := g.writeStatMode()

	irq := false
	switch mode {
	case hblank:
		irq = bit.IsSet(hblankIRQ, stat)
	case vblank:
		irq = bit.IsSet(vblankIRQ, stat)
	case oamRead:
		irq = bit.IsSet(oamIRQ, stat)
	}
	if irq {
		g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) writeStatMode() uint8 {
	stat := g.bus.Read(addr.STAT)&^0x03 | uint8(g.mode)
	g.bus.Write(addr.STAT, stat)
	return stat
}

// setLine updates LY and the coincidence flag.
func (g *GPU) setLine(line uint8) {
	g.line = line
	g.bus.Write(addr.LY, line)

	stat := g.bus.Read(addr.STAT)
	if line == g.bus.Read(addr.LYC) {
		stat = bit.Set(coincidenceFlag, stat)
		if bit.IsSet(coincidenceIRQ, stat) {
			g.bus.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(coincidenceFlag, stat)
	}
	g.bus.Write(addr.STAT, stat)
}

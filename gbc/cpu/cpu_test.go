package cpu

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/bit"
)

// testBus is a flat 64KB memory with IE/IF at their usual addresses.
type testBus struct {
	mem   [0x10000]uint8
	extra uint8
	acked []addr.Interrupt
}

func (b *testBus) Read(address uint16) uint8         { return b.mem[address] }
func (b *testBus) Write(address uint16, value uint8) { b.mem[address] = value }

func (b *testBus) Read16(address uint16) uint16 {
	return bit.Combine(b.mem[address+1], b.mem[address])
}

func (b *testBus) Write16(address uint16, value uint16) {
	b.mem[address] = bit.Low(value)
	b.mem[address+1] = bit.High(value)
}

func (b *testBus) PendingInterrupts() uint8 {
	return b.mem[addr.IE]&b.mem[addr.IF]&addr.InterruptMask | b.extra
}

func (b *testBus) AckInterrupt(interrupt addr.Interrupt) {
	b.mem[addr.IF] &^= interrupt.Mask()
	b.acked = append(b.acked, interrupt)
}

func (b *testBus) request(interrupts ...addr.Interrupt) {
	for _, i := range interrupts {
		b.mem[addr.IE] |= i.Mask()
		b.mem[addr.IF] |= i.Mask()
	}
}

// newTestCPU loads program at the cartridge entry point.
func newTestCPU(program ...uint8) (*CPU, *testBus) {
	bus := &testBus{}
	copy(bus.mem[CartridgeEntry:], program)
	c := New(bus, WithMonitor(&Monitor{Trace: io.Discard}))
	return c, bus
}

func TestResetIsIdempotent(t *testing.T) {
	c, _ := newTestCPU(0x3C, 0x3C)
	c.Step()
	c.Step()
	c.RequestEnableInterrupts()

	c.Reset()
	first := *c.Registers()
	c.Reset()

	assert.Equal(t, first, *c.Registers())
	assert.Equal(t, uint64(0), c.Cycles())
	assert.False(t, c.IME())
	assert.False(t, c.IsAsleep())
	assert.Equal(t, Registers{AF: 0x01B0, BC: 0x0013, DE: 0x00D8, HL: 0x014D, SP: 0xFFFE, PC: 0x0100}, first)
}

func TestBootROMEntryPoint(t *testing.T) {
	c := New(&testBus{}, WithEntryPoint(BootROMEntry), WithMonitor(&Monitor{}))
	assert.Equal(t, uint16(0x0000), c.Registers().PC)
	c.Reset()
	assert.Equal(t, uint16(0x0000), c.Registers().PC)
}

func TestRegisters(t *testing.T) {
	var r Registers
	r.SetAF(0x12FF)
	assert.Equal(t, uint16(0x12F0), r.AF, "low nibble of F reads as zero")

	r.SetF(0x0F)
	assert.Equal(t, uint8(0x00), r.F())

	r.SetH(0xAB)
	r.SetL(0xCD)
	assert.Equal(t, uint16(0xABCD), r.HL)

	r.SetAF(0x00A0)
	assert.Equal(t, "Z-H-", r.FlagString())
}

func TestSleepingStep(t *testing.T) {
	c, _ := newTestCPU(0x76, 0x00)

	assert.Equal(t, 4, c.Step())
	require.True(t, c.IsAsleep())

	pc := c.Registers().PC
	before := c.Cycles()
	for i := 0; i < 10; i++ {
		assert.Equal(t, 4, c.Step())
	}
	assert.Equal(t, before+40, c.Cycles())
	assert.Equal(t, pc, c.Registers().PC)
}

func TestInstructions(t *testing.T) {
	testCases := []struct {
		desc    string
		program []uint8
		setup   func(c *CPU, bus *testBus)
		steps   int
		cycles  uint64
		check   func(t *testing.T, c *CPU, bus *testBus)
	}{
		{
			desc:    "LD B, n",
			program: []uint8{0x06, 0x42},
			steps:   1,
			cycles:  8,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint8(0x42), c.Registers().B())
				assert.Equal(t, uint16(0x0102), c.Registers().PC)
			},
		},
		{
			desc:    "LD (HL), n then INC (HL)",
			program: []uint8{0x21, 0x00, 0xC0, 0x36, 0x0F, 0x34},
			steps:   3,
			cycles:  12 + 12 + 12,
			check: func(t *testing.T, c *CPU, bus *testBus) {
				assert.Equal(t, uint8(0x10), bus.mem[0xC000])
				assert.Equal(t, "--HC", c.Registers().FlagString(), "INC keeps the carry")
			},
		},
		{
			desc:    "ADD A, n with carries",
			program: []uint8{0x3E, 0xF8, 0xC6, 0x08},
			steps:   2,
			cycles:  16,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint8(0x00), c.Registers().A())
				assert.Equal(t, "Z-HC", c.Registers().FlagString())
			},
		},
		{
			desc:    "SUB B",
			program: []uint8{0x3E, 0x10, 0x06, 0x01, 0x90},
			steps:   3,
			cycles:  20,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint8(0x0F), c.Registers().A())
				assert.Equal(t, "-NH-", c.Registers().FlagString())
			},
		},
		{
			desc:    "CP n leaves A untouched",
			program: []uint8{0x3E, 0x05, 0xFE, 0x05},
			steps:   2,
			cycles:  16,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint8(0x05), c.Registers().A())
				assert.Equal(t, "ZN--", c.Registers().FlagString())
			},
		},
		{
			desc:    "DAA after BCD addition",
			program: []uint8{0x3E, 0x45, 0xC6, 0x38, 0x27},
			steps:   3,
			cycles:  20,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint8(0x83), c.Registers().A())
			},
		},
		{
			desc:    "JR not taken and taken",
			program: []uint8{0xAF, 0x20, 0x10, 0x28, 0x02},
			steps:   3,
			cycles:  4 + 8 + 12,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0x0107), c.Registers().PC)
			},
		},
		{
			desc:    "CALL and RET",
			program: []uint8{0xCD, 0x00, 0x02},
			setup: func(_ *CPU, bus *testBus) {
				bus.mem[0x0200] = 0xC9
			},
			steps:  2,
			cycles: 24 + 16,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0x0103), c.Registers().PC)
				assert.Equal(t, uint16(0xFFFE), c.Registers().SP)
			},
		},
		{
			desc:    "CALL Z not taken",
			program: []uint8{0xCC, 0x00, 0x02},
			setup: func(c *CPU, _ *testBus) {
				c.Registers().SetF(0x00)
			},
			steps:  1,
			cycles: 12,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0x0103), c.Registers().PC)
			},
		},
		{
			desc:    "PUSH BC then POP AF masks the flags",
			program: []uint8{0x01, 0xFF, 0x12, 0xC5, 0xF1},
			steps:   3,
			cycles:  12 + 16 + 12,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0x12F0), c.Registers().AF)
			},
		},
		{
			desc:    "RST 38",
			program: []uint8{0xFF},
			steps:   1,
			cycles:  16,
			check: func(t *testing.T, c *CPU, bus *testBus) {
				assert.Equal(t, uint16(0x0038), c.Registers().PC)
				assert.Equal(t, uint16(0x0101), bus.Read16(c.Registers().SP))
			},
		},
		{
			desc:    "LD (nn), SP",
			program: []uint8{0x08, 0x00, 0xC0},
			steps:   1,
			cycles:  20,
			check: func(t *testing.T, _ *CPU, bus *testBus) {
				assert.Equal(t, uint16(0xFFFE), bus.Read16(0xC000))
			},
		},
		{
			desc:    "LDH round trip",
			program: []uint8{0x3E, 0x99, 0xE0, 0x80, 0xAF, 0xF0, 0x80},
			steps:   4,
			cycles:  8 + 12 + 4 + 12,
			check: func(t *testing.T, c *CPU, bus *testBus) {
				assert.Equal(t, uint8(0x99), bus.mem[0xFF80])
				assert.Equal(t, uint8(0x99), c.Registers().A())
			},
		},
		{
			desc:    "LD (HL-), A",
			program: []uint8{0x21, 0x00, 0xC0, 0x32},
			steps:   2,
			cycles:  20,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0xBFFF), c.Registers().HL)
			},
		},
		{
			desc:    "ADD SP, e",
			program: []uint8{0xE8, 0xFE},
			steps:   1,
			cycles:  16,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0xFFFC), c.Registers().SP)
				assert.Equal(t, "--HC", c.Registers().FlagString())
			},
		},
		{
			desc:    "CB BIT 7, H and SET 0, (HL)",
			program: []uint8{0x21, 0x00, 0xC0, 0xCB, 0x7C, 0xCB, 0xC6},
			steps:   3,
			cycles:  12 + 8 + 16,
			check: func(t *testing.T, c *CPU, bus *testBus) {
				assert.Equal(t, uint8(0x01), bus.mem[0xC000])
				assert.True(t, c.isSetFlag(halfCarryFlag))
				assert.False(t, c.isSetFlag(zeroFlag))
			},
		},
		{
			desc:    "CB SWAP A",
			program: []uint8{0x3E, 0xA5, 0xCB, 0x37},
			steps:   2,
			cycles:  16,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint8(0x5A), c.Registers().A())
			},
		},
		{
			desc:    "RLA uses the carry and clears Z",
			program: []uint8{0x37, 0x3E, 0x80, 0x17},
			steps:   3,
			cycles:  16,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint8(0x01), c.Registers().A())
				assert.Equal(t, "---C", c.Registers().FlagString())
			},
		},
		{
			desc:    "unused opcode is a 4 cycle no-op",
			program: []uint8{0xDB},
			steps:   1,
			cycles:  4,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0x0101), c.Registers().PC)
			},
		},
		{
			desc:    "STOP consumes its operand and sleeps",
			program: []uint8{0x10, 0x00},
			steps:   1,
			cycles:  4,
			check: func(t *testing.T, c *CPU, _ *testBus) {
				assert.Equal(t, uint16(0x0102), c.Registers().PC)
				assert.True(t, c.IsAsleep())
			},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, bus := newTestCPU(tC.program...)
			if tC.setup != nil {
				tC.setup(c, bus)
			}
			for i := 0; i < tC.steps; i++ {
				c.Step()
			}
			assert.Equal(t, tC.cycles, c.Cycles())
			tC.check(t, c, bus)
		})
	}
}

func TestMissingOpcodePanics(t *testing.T) {
	c, _ := newTestCPU(0xD3)
	assert.Panics(t, func() { c.Step() })
}

func TestNegativeCyclesPanic(t *testing.T) {
	c, _ := newTestCPU()
	assert.Panics(t, func() { c.incrCycles(-1) })
}

func TestTrace(t *testing.T) {
	var out bytes.Buffer
	bus := &testBus{}
	copy(bus.mem[CartridgeEntry:], []uint8{0x06, 0x42, 0xAF})
	c := New(bus, WithMonitor(&Monitor{Verbose: true, Trace: &out}))

	c.Step()
	c.Step()

	assert.Equal(t,
		"        0: [pc 0x0100] opcode 0x06: LD B, 0x42\n"+
			"        8: [pc 0x0102] opcode 0xaf: XOR A\n"+
			"* Flags changed: [Z---]\n",
		out.String())
}

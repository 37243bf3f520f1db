package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-gbc/gbc/addr"
)

func TestInterruptHandling(t *testing.T) {
	t.Run("interrupts disabled by default", func(t *testing.T) {
		c, bus := newTestCPU(0x00)
		bus.request(addr.VBlankInterrupt)

		c.Step()
		assert.Equal(t, uint16(0x0101), c.Registers().PC)
		assert.Empty(t, bus.acked)
	})

	t.Run("EI takes effect after the following instruction", func(t *testing.T) {
		c, _ := newTestCPU(0xFB, 0x00, 0x00)

		c.Step()
		assert.False(t, c.IME())
		c.Step()
		assert.True(t, c.IME())
	})

	t.Run("DI is delayed too", func(t *testing.T) {
		c, _ := newTestCPU(0xF3, 0x00)
		c.ime = true

		c.Step()
		assert.True(t, c.IME())
		c.Step()
		assert.False(t, c.IME())
	})

	t.Run("later request wins", func(t *testing.T) {
		c, _ := newTestCPU(0x00, 0x00, 0x00, 0x00)
		c.RequestEnableInterrupts()
		c.RequestDisableInterrupts()
		c.Step()
		c.Step()
		assert.False(t, c.IME())

		c.RequestDisableInterrupts()
		c.RequestEnableInterrupts()
		c.Step()
		c.Step()
		assert.True(t, c.IME())
	})

	t.Run("dispatch follows priority and services one source", func(t *testing.T) {
		c, bus := newTestCPU(0x00)
		c.ime = true
		bus.request(addr.TimerInterrupt, addr.VBlankInterrupt)

		cycles := c.Step()

		assert.Equal(t, 4+20, cycles)
		assert.Equal(t, uint16(0x0040), c.Registers().PC)
		assert.Equal(t, uint16(0x0101), bus.Read16(c.Registers().SP))
		assert.Equal(t, []addr.Interrupt{addr.VBlankInterrupt}, bus.acked)
		assert.Equal(t, addr.TimerInterrupt.Mask(), bus.PendingInterrupts())
		assert.False(t, c.IME())
	})

	t.Run("RETI enables interrupts immediately", func(t *testing.T) {
		c, bus := newTestCPU(0xD9)
		c.Registers().SP = 0xFFFC
		bus.Write16(0xFFFC, 0x0150)
		c.RequestDisableInterrupts()

		c.Step()
		assert.True(t, c.IME())
		assert.Equal(t, uint16(0x0150), c.Registers().PC)
	})

	t.Run("impossible mask forces a break", func(t *testing.T) {
		c, bus := newTestCPU(0x00, 0x00)
		c.ime = true
		bus.extra = 0x20

		c.Step()
		assert.True(t, c.breakNow)
		assert.Equal(t, uint16(0x0101), c.Registers().PC)
	})
}

func TestHALTBehavior(t *testing.T) {
	t.Run("HALT with IME=1 and pending interrupt dispatches", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C)
		c.ime = true
		bus.request(addr.TimerInterrupt)

		c.Step()
		assert.False(t, c.IsAsleep())
		assert.Equal(t, uint16(0x0050), c.Registers().PC)
		assert.Equal(t, uint16(0x0101), bus.Read16(c.Registers().SP))
	})

	t.Run("HALT with IME=1 sleeps until an interrupt", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C)
		c.ime = true

		c.Step()
		c.Step()
		require.True(t, c.IsAsleep())

		bus.request(addr.SerialInterrupt)
		c.Step()
		assert.False(t, c.IsAsleep())
		assert.Equal(t, uint16(0x0058), c.Registers().PC)
		assert.Equal(t, uint16(0x0101), bus.Read16(c.Registers().SP))
	})

	t.Run("HALT with IME=0 wakes without dispatch", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C, 0x00)
		c.Registers().SetA(0)

		c.Step()
		c.Step()
		require.True(t, c.IsAsleep())

		bus.request(addr.JoypadInterrupt)
		c.Step()
		assert.False(t, c.IsAsleep())

		c.Step()
		assert.Equal(t, uint8(1), c.Registers().A())
		assert.Equal(t, uint16(0x0102), c.Registers().PC)
		assert.Empty(t, bus.acked)
	})

	t.Run("halt bug repeats the byte after HALT", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x3C, 0x00)
		c.Registers().SetA(0)
		bus.request(addr.VBlankInterrupt)

		c.Step()
		assert.False(t, c.IsAsleep())
		assert.Equal(t, uint16(0x0101), c.Registers().PC)

		c.Step()
		assert.Equal(t, uint16(0x0101), c.Registers().PC, "PC is not advanced past the opcode")
		c.Step()
		assert.Equal(t, uint8(2), c.Registers().A())
		assert.Equal(t, uint16(0x0102), c.Registers().PC)
	})

	t.Run("halt bug re-reads the opcode as operand", func(t *testing.T) {
		c, bus := newTestCPU(0x76, 0x06, 0x00)
		bus.request(addr.VBlankInterrupt)

		c.Step()
		c.Step()
		assert.Equal(t, uint8(0x06), c.Registers().B())
		assert.Equal(t, uint16(0x0102), c.Registers().PC)
	})
}

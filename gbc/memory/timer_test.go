package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-gbc/gbc/addr"
)

func TestTimerFrequencies(t *testing.T) {
	testCases := []struct {
		tac    uint8
		period int
	}{
		{tac: 0x04, period: 1024},
		{tac: 0x05, period: 16},
		{tac: 0x06, period: 64},
		{tac: 0x07, period: 256},
	}
	for _, tC := range testCases {
		t.Run(fmt.Sprintf("TAC 0x%02x", tC.tac), func(t *testing.T) {
			timer := NewTimer(nil)
			timer.Write(addr.TAC, tC.tac)

			timer.Tick(tC.period - 1)
			assert.Equal(t, uint8(0), timer.Read(addr.TIMA))
			timer.Tick(1)
			assert.Equal(t, uint8(1), timer.Read(addr.TIMA))
			timer.Tick(10 * tC.period)
			assert.Equal(t, uint8(11), timer.Read(addr.TIMA))
		})
	}
}

func TestTimerDisabled(t *testing.T) {
	timer := NewTimer(nil)
	timer.Write(addr.TAC, 0x01)
	timer.Tick(1000)
	assert.Equal(t, uint8(0), timer.Read(addr.TIMA))
	assert.Equal(t, uint8(0xF9), timer.Read(addr.TAC))
}

func TestDividerResetGlitch(t *testing.T) {
	timer := NewTimer(nil)
	timer.Write(addr.TAC, 0x05)
	timer.Tick(8) // selected bit is now high

	timer.Write(addr.DIV, 0x12)
	assert.Equal(t, uint8(1), timer.Read(addr.TIMA), "falling edge from the reset")
	assert.Equal(t, uint8(0), timer.Read(addr.DIV))
}

func TestDividerCounts(t *testing.T) {
	timer := NewTimer(nil)
	timer.Tick(256 * 3)
	assert.Equal(t, uint8(3), timer.Read(addr.DIV))
}

func TestTimerOverflow(t *testing.T) {
	var irqs int
	timer := NewTimer(func() { irqs++ })
	timer.Write(addr.TMA, 0x80)
	timer.Write(addr.TIMA, 0xFF)
	timer.Write(addr.TAC, 0x05)

	timer.Tick(16)
	assert.Equal(t, uint8(0), timer.Read(addr.TIMA))
	assert.Equal(t, 0, irqs)

	timer.Tick(4)
	assert.Equal(t, uint8(0x80), timer.Read(addr.TIMA))
	timer.Tick(1)
	assert.Equal(t, 1, irqs)

	t.Run("writing TIMA cancels the reload", func(t *testing.T) {
		timer.Write(addr.TIMA, 0xFF)
		timer.Tick(11)
		assert.Equal(t, uint8(0), timer.Read(addr.TIMA))
		timer.Write(addr.TIMA, 0x10)
		timer.Tick(8)
		assert.Equal(t, uint8(0x10), timer.Read(addr.TIMA))
		assert.Equal(t, 1, irqs)
	})
}

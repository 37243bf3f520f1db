package memory

import (
	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/bit"
)

// timerBits selects which bit of the internal divider clocks TIMA, indexed by
// the TAC clock select (bits 0-1): 4096, 262144, 65536 and 16384 Hz.
var timerBits = [4]uint16{9, 3, 5, 7}

// reloadDelay is how many T-states TIMA reads as zero after an overflow
// before TMA is loaded into it.
const reloadDelay = 4

// Timer implements DIV, TIMA, TMA and TAC. TIMA counts falling edges of the
// divider bit selected by TAC, so writes to DIV or TAC can tick it as well.
type Timer struct {
	divider    uint16
	lastBit    bool
	reloadLeft int
	irqPending bool

	tima uint8
	tma  uint8
	tac  uint8

	// TimerInterruptHandler is called when TIMA has been reloaded.
	TimerInterruptHandler func()
}

// NewTimer returns a stopped timer calling onOverflow when TIMA overflows.
func NewTimer(onOverflow func()) *Timer {
	return &Timer{TimerInterruptHandler: onOverflow}
}

func (t *Timer) Tick(cycles int) {
	for range cycles {
		if t.irqPending {
			t.irqPending = false
			if t.TimerInterruptHandler != nil {
				t.TimerInterruptHandler()
			}
		}

		t.divider++

		if t.reloadLeft > 0 {
			t.reloadLeft--
			if t.reloadLeft == 0 {
				t.tima = t.tma
				t.irqPending = true
			}
			continue
		}

		t.clock()
	}
}

// clock samples the selected divider bit and bumps TIMA on a falling edge.
func (t *Timer) clock() {
	current := bit.IsSet(2, t.tac) && bit.IsSet16(timerBits[t.tac&3], t.divider)
	if t.lastBit && !current {
		if t.tima == 0xFF {
			t.reloadLeft = reloadDelay
		}
		t.tima++
	}
	t.lastBit = current
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return bit.High(t.divider)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	}
	return 0xFF
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		t.divider = 0
		t.clock()
	case addr.TIMA:
		t.tima = value
		t.reloadLeft = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
		t.clock()
	}
}

package memory

import "github.com/valerio/go-gbc/gbc/bit"

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// P1 select lines, active low.
const (
	selectDpad    = 4
	selectButtons = 5
)

// Joypad implements P1. Keys are active low: a cleared bit is a pressed key.
type Joypad struct {
	buttons uint8
	dpad    uint8
	line    uint8

	irq func()
}

// NewJoypad creates a joypad with every key released. irq is called when a
// pressed key pulls a selected line low.
func NewJoypad(irq func()) *Joypad {
	j := &Joypad{irq: irq}
	j.Reset()
	return j
}

// Reset releases every key and selects both lines, so that P1 reads 0xCF.
func (j *Joypad) Reset() {
	j.buttons = 0x0F
	j.dpad = 0x0F
	j.line = 0x00
}

func (j *Joypad) Read() uint8 {
	keys := uint8(0x0F)
	if !bit.IsSet(selectDpad, j.line) {
		keys &= j.dpad
	}
	if !bit.IsSet(selectButtons, j.line) {
		keys &= j.buttons
	}
	return 0xC0 | j.line | keys
}

// Write sets the joypad line to be read
func (j *Joypad) Write(value uint8) {
	j.line = value & 0x30
}

// Press updates the joypad state when a key is pressed
func (j *Joypad) Press(key JoypadKey) {
	before := j.Read()
	j.set(key, false)
	if before&^j.Read()&0x0F != 0 && j.irq != nil {
		j.irq()
	}
}

// Release updates the joypad state when a key is released
func (j *Joypad) Release(key JoypadKey) {
	j.set(key, true)
}

func (j *Joypad) set(key JoypadKey, released bool) {
	update := bit.Reset
	if released {
		update = bit.Set
	}

	index := uint8(key) % 4
	if key < JoypadA {
		j.dpad = update(index, j.dpad)
	} else {
		j.buttons = update(index, j.buttons)
	}
}

package addr

import "fmt"

// Interrupt identifies one of the five interrupt sources by its bit index in
// the IE/IF registers. Lower bits have higher priority.
type Interrupt uint8

const (
	// VBlankInterrupt is fired when the LCD has completed a frame.
	VBlankInterrupt Interrupt = iota
	// LCDSTATInterrupt is fired based on one of the conditions in the STAT register.
	LCDSTATInterrupt
	// TimerInterrupt is fired when TIMA overflows.
	TimerInterrupt
	// SerialInterrupt is fired when a serial transfer has completed.
	SerialInterrupt
	// JoypadInterrupt is fired when any of the keypad inputs goes from high to low.
	JoypadInterrupt
)

// Interrupts lists every source in dispatch priority order.
var Interrupts = [...]Interrupt{
	VBlankInterrupt,
	LCDSTATInterrupt,
	TimerInterrupt,
	SerialInterrupt,
	JoypadInterrupt,
}

// InterruptMask covers the five meaningful bits of IE and IF.
const InterruptMask uint8 = 0x1F

const baseInterruptAddress uint16 = 0x40

// Mask returns the IE/IF bit for the interrupt.
func (i Interrupt) Mask() uint8 {
	return 1 << i
}

// Vector returns the handler address: 0x40, 0x48, 0x50, 0x58, 0x60.
func (i Interrupt) Vector() uint16 {
	return baseInterruptAddress + uint16(i)*8
}

func (i Interrupt) String() string {
	switch i {
	case VBlankInterrupt:
		return "vblank"
	case LCDSTATInterrupt:
		return "lcd_stat"
	case TimerInterrupt:
		return "timer"
	case SerialInterrupt:
		return "serial"
	case JoypadInterrupt:
		return "joypad"
	}
	return fmt.Sprintf("interrupt(%d)", uint8(i))
}

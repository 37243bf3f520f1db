// Package audio is a stand-in for the sound unit. It only tracks the master
// on/off switch in NR52; programs touching any other sound register are not
// supported.
package audio

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/bit"
)

// APU holds the NR52 register: bit 7 is the master switch, bits 0-3 the
// channel status flags.
type APU struct {
	nr52 uint8
}

func New() *APU {
	return &APU{}
}

// Reset switches the sound unit off.
func (a *APU) Reset() {
	a.nr52 = 0
}

// Enabled reports whether the sound unit is switched on.
func (a *APU) Enabled() bool {
	return bit.IsSet(7, a.nr52)
}

func (a *APU) ReadRegister(address uint16) uint8 {
	if address == addr.NR52 {
		return a.nr52
	}
	slog.Error("unhandled sound register read", "addr", fmt.Sprintf("0x%04X", address), "reg", fmt.Sprintf("0x%02X", a.nr52))
	panic(fmt.Sprintf("unhandled sound register read at 0x%04X", address))
}

// WriteRegister only accepts NR52. The channel status bits are read only.
func (a *APU) WriteRegister(address uint16, value uint8) {
	if address == addr.NR52 {
		a.nr52 = a.nr52&0x0F | value&0x80
		return
	}
	slog.Error("unhandled sound register write", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
	panic(fmt.Sprintf("unhandled sound register write at 0x%04X: 0x%02X", address, value))
}

package cpu

import (
	"fmt"

	"github.com/valerio/go-gbc/gbc/bit"
)

// Flag is one of the 4 possible flags used in the flag register (low part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// Entry points the register file can be reset to.
const (
	// CartridgeEntry is where execution starts once the boot ROM has run.
	CartridgeEntry uint16 = 0x0100
	// BootROMEntry is where execution starts when a boot ROM is mapped.
	BootROMEntry uint16 = 0x0000
)

// Registers is the CPU register file. All pairs wrap around at 16 bits; the
// low nibble of F always reads as zero.
type Registers struct {
	AF uint16
	BC uint16
	DE uint16
	HL uint16
	SP uint16
	PC uint16
}

func (r *Registers) reset(entry uint16) {
	r.AF = 0x01B0
	r.BC = 0x0013
	r.DE = 0x00D8
	r.HL = 0x014D
	r.SP = 0xFFFE
	r.PC = entry
}

func (r Registers) A() uint8 { return bit.High(r.AF) }
func (r Registers) F() uint8 { return bit.Low(r.AF) }
func (r Registers) B() uint8 { return bit.High(r.BC) }
func (r Registers) C() uint8 { return bit.Low(r.BC) }
func (r Registers) D() uint8 { return bit.High(r.DE) }
func (r Registers) E() uint8 { return bit.Low(r.DE) }
func (r Registers) H() uint8 { return bit.High(r.HL) }
func (r Registers) L() uint8 { return bit.Low(r.HL) }

func (r *Registers) SetA(v uint8) { r.AF = bit.Combine(v, bit.Low(r.AF)) }
func (r *Registers) SetF(v uint8) { r.AF = bit.Combine(bit.High(r.AF), v&0xF0) }
func (r *Registers) SetB(v uint8) { r.BC = bit.Combine(v, bit.Low(r.BC)) }
func (r *Registers) SetC(v uint8) { r.BC = bit.Combine(bit.High(r.BC), v) }
func (r *Registers) SetD(v uint8) { r.DE = bit.Combine(v, bit.Low(r.DE)) }
func (r *Registers) SetE(v uint8) { r.DE = bit.Combine(bit.High(r.DE), v) }
func (r *Registers) SetH(v uint8) { r.HL = bit.Combine(v, bit.Low(r.HL)) }
func (r *Registers) SetL(v uint8) { r.HL = bit.Combine(bit.High(r.HL), v) }

// SetAF sets both A and F, dropping the unused low nibble of F.
func (r *Registers) SetAF(v uint16) { r.AF = v & 0xFFF0 }

// FlagString returns the flags as ZNHC, with a dash for every cleared flag.
func (r Registers) FlagString() string {
	flags := []byte("----")
	f := r.F()
	for i, flag := range []Flag{zeroFlag, subFlag, halfCarryFlag, carryFlag} {
		if f&uint8(flag) != 0 {
			flags[i] = "ZNHC"[i]
		}
	}
	return string(flags)
}

func (r Registers) String() string {
	return fmt.Sprintf("\tAF = 0x%04x  BC = 0x%04x  DE = 0x%04x\n\tHL = 0x%04x  SP = 0x%04x  PC = 0x%04x\n\tF  = [%s]",
		r.AF, r.BC, r.DE, r.HL, r.SP, r.PC, r.FlagString())
}

func (c *CPU) setFlag(flag Flag) {
	c.regs.AF |= uint16(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.regs.AF &^= uint16(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.regs.AF&uint16(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
		return
	}
	c.resetFlag(flag)
}

// readReg8 reads the 8 bit operand encoded as a 3 bit index in opcodes:
// B, C, D, E, H, L, (HL), A.
func (c *CPU) readReg8(index uint8) uint8 {
	switch index & 7 {
	case 0:
		return c.regs.B()
	case 1:
		return c.regs.C()
	case 2:
		return c.regs.D()
	case 3:
		return c.regs.E()
	case 4:
		return c.regs.H()
	case 5:
		return c.regs.L()
	case 6:
		return c.bus.Read(c.regs.HL)
	default:
		return c.regs.A()
	}
}

func (c *CPU) writeReg8(index uint8, value uint8) {
	switch index & 7 {
	case 0:
		c.regs.SetB(value)
	case 1:
		c.regs.SetC(value)
	case 2:
		c.regs.SetD(value)
	case 3:
		c.regs.SetE(value)
	case 4:
		c.regs.SetH(value)
	case 5:
		c.regs.SetL(value)
	case 6:
		c.bus.Write(c.regs.HL, value)
	default:
		c.regs.SetA(value)
	}
}

// pair returns the 16 bit register encoded in bits 4-5 of an opcode:
// BC, DE, HL, SP.
func (c *CPU) pair(index uint8) *uint16 {
	switch index & 3 {
	case 0:
		return &c.regs.BC
	case 1:
		return &c.regs.DE
	case 2:
		return &c.regs.HL
	default:
		return &c.regs.SP
	}
}

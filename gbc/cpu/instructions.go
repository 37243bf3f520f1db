package cpu

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-gbc/gbc/bit"
)

// Handlers run with PC already past the opcode byte and return the number of
// T-states the instruction took.

func nop(_ *CPU, _ uint8) int {
	return 4
}

// LD (nn), SP
func ldNNSP(c *CPU, _ uint8) int {
	c.bus.Write16(c.readImmediateWord(), c.regs.SP)
	return 20
}

// STOP 0
func stop(c *CPU, _ uint8) int {
	c.readImmediate()
	c.asleep = true
	return 4
}

// JR e, JR cc, e
func jr(c *CPU, opcode uint8) int {
	offset := c.readSignedImmediate()
	if opcode != 0x18 && !c.condition(opcode) {
		return 8
	}
	c.regs.PC += uint16(offset)
	return 12
}

func daa(c *CPU, _ uint8) int {
	c.daa()
	return 4
}

func cpl(c *CPU, _ uint8) int {
	c.regs.SetA(^c.regs.A())
	c.setFlag(subFlag)
	c.setFlag(halfCarryFlag)
	return 4
}

// ADD SP, e
func addSP(c *CPU, _ uint8) int {
	c.regs.SP = c.addSigned(c.readSignedImmediate())
	return 16
}

// LD HL, SP+e
func ldHLSP(c *CPU, _ uint8) int {
	c.regs.HL = c.addSigned(c.readSignedImmediate())
	return 12
}

func cbPrefix(c *CPU, _ uint8) int {
	return c.execCB(c.readImmediate())
}

// LD r, r'
func ldRR(c *CPU, opcode uint8) int {
	dst, src := bit.Extract(opcode, 5, 3), opcode&7
	c.writeReg8(dst, c.readReg8(src))
	if dst == 6 || src == 6 {
		return 8
	}
	return 4
}

func halt(c *CPU, _ uint8) int {
	c.Wait()
	return 4
}

// LD rr, nn
func ldRRNN(c *CPU, opcode uint8) int {
	*c.pair(bit.Extract(opcode, 5, 4)) = c.readImmediateWord()
	return 12
}

// LD (BC), A / LD A, (BC) / LD (DE), A / LD A, (DE)
func ldIndirect(c *CPU, opcode uint8) int {
	address := c.regs.BC
	if bit.IsSet(4, opcode) {
		address = c.regs.DE
	}
	if bit.IsSet(3, opcode) {
		c.regs.SetA(c.bus.Read(address))
	} else {
		c.bus.Write(address, c.regs.A())
	}
	return 8
}

// ADD HL, rr
func addHL(c *CPU, opcode uint8) int {
	c.addToHL(*c.pair(bit.Extract(opcode, 5, 4)))
	return 8
}

// INC rr / DEC rr
func incDecRR(c *CPU, opcode uint8) int {
	rr := c.pair(bit.Extract(opcode, 5, 4))
	if bit.IsSet(3, opcode) {
		*rr--
	} else {
		*rr++
	}
	return 8
}

// INC r / DEC r
func incDecR(c *CPU, opcode uint8) int {
	r := bit.Extract(opcode, 5, 3)
	if bit.IsSet(0, opcode) {
		c.writeReg8(r, c.dec(c.readReg8(r)))
	} else {
		c.writeReg8(r, c.inc(c.readReg8(r)))
	}
	if r == 6 {
		return 12
	}
	return 4
}

// RLCA / RRCA / RLA / RRA behave like their CB versions, but always clear Z.
func rotateA(c *CPU, opcode uint8) int {
	c.regs.SetA(c.rotate(bit.Extract(opcode, 4, 3), c.regs.A()))
	c.resetFlag(zeroFlag)
	return 4
}

// LD r, n
func ldRN(c *CPU, opcode uint8) int {
	r := bit.Extract(opcode, 5, 3)
	c.writeReg8(r, c.readImmediate())
	if r == 6 {
		return 12
	}
	return 8
}

// LD (HL+), A / LD A, (HL+) / LD (HL-), A / LD A, (HL-)
func ldHLIncDec(c *CPU, opcode uint8) int {
	address := c.regs.HL
	if bit.IsSet(3, opcode) {
		c.regs.SetA(c.bus.Read(address))
	} else {
		c.bus.Write(address, c.regs.A())
	}
	if bit.IsSet(4, opcode) {
		c.regs.HL--
	} else {
		c.regs.HL++
	}
	return 8
}

// SCF / CCF
func carryOp(c *CPU, opcode uint8) int {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, opcode == 0x37 || !c.isSetFlag(carryFlag))
	return 4
}

// ALU A, r / ALU A, n
func alu(c *CPU, opcode uint8) int {
	op := bit.Extract(opcode, 5, 3)
	if opcode&0xC0 == 0xC0 {
		c.aluOp(op, c.readImmediate())
		return 8
	}
	src := opcode & 7
	c.aluOp(op, c.readReg8(src))
	if src == 6 {
		return 8
	}
	return 4
}

// PUSH rr / POP rr, where rr is one of BC, DE, HL, AF
func pushPop(c *CPU, opcode uint8) int {
	index := bit.Extract(opcode, 5, 4)
	if bit.IsSet(2, opcode) {
		if index == 3 {
			c.pushStack(c.regs.AF)
		} else {
			c.pushStack(*c.pair(index))
		}
		return 16
	}

	value := c.popStack()
	if index == 3 {
		c.regs.SetAF(value)
	} else {
		*c.pair(index) = value
	}
	return 12
}

// RET / RETI / RET cc
func ret(c *CPU, opcode uint8) int {
	switch opcode {
	case 0xC9:
		c.regs.PC = c.popStack()
		return 16
	case 0xD9:
		c.regs.PC = c.popStack()
		c.ime = true
		c.imeDelay = 0
		return 16
	}

	if !c.condition(opcode) {
		return 8
	}
	c.regs.PC = c.popStack()
	return 20
}

// RST n
func rst(c *CPU, opcode uint8) int {
	c.pushStack(c.regs.PC)
	c.regs.PC = uint16(opcode & 0x38)
	return 16
}

// JP nn / JP cc, nn
func jp(c *CPU, opcode uint8) int {
	target := c.readImmediateWord()
	if opcode != 0xC3 && !c.condition(opcode) {
		return 12
	}
	c.regs.PC = target
	return 16
}

// CALL nn / CALL cc, nn
func call(c *CPU, opcode uint8) int {
	target := c.readImmediateWord()
	if opcode != 0xCD && !c.condition(opcode) {
		return 12
	}
	c.pushStack(c.regs.PC)
	c.regs.PC = target
	return 24
}

// LD (nn), A / LD A, (nn)
func ldNNA(c *CPU, opcode uint8) int {
	address := c.readImmediateWord()
	if bit.IsSet(4, opcode) {
		c.regs.SetA(c.bus.Read(address))
	} else {
		c.bus.Write(address, c.regs.A())
	}
	return 16
}

// LDH (n), A / LDH A, (n)
func ldh(c *CPU, opcode uint8) int {
	address := 0xFF00 + uint16(c.readImmediate())
	if bit.IsSet(4, opcode) {
		c.regs.SetA(c.bus.Read(address))
	} else {
		c.bus.Write(address, c.regs.A())
	}
	return 12
}

// LD (C), A / LD A, (C)
func ldhC(c *CPU, opcode uint8) int {
	address := 0xFF00 + uint16(c.regs.C())
	if bit.IsSet(4, opcode) {
		c.regs.SetA(c.bus.Read(address))
	} else {
		c.bus.Write(address, c.regs.A())
	}
	return 8
}

// JP HL / LD SP, HL
func fromHL(c *CPU, opcode uint8) int {
	if opcode == 0xE9 {
		c.regs.PC = c.regs.HL
		return 4
	}
	c.regs.SP = c.regs.HL
	return 8
}

// DI / EI
func setIME(c *CPU, opcode uint8) int {
	if opcode == 0xFB {
		c.RequestEnableInterrupts()
	} else {
		c.RequestDisableInterrupts()
	}
	return 4
}

func unused(_ *CPU, _ uint8) int {
	return 4
}

func missing(c *CPU, opcode uint8) int {
	pc := c.regs.PC - 1
	slog.Error("missing instruction", "opcode", fmt.Sprintf("0x%02X", opcode), "pc", fmt.Sprintf("0x%04X", pc))
	panic(fmt.Sprintf("missing instruction 0x%02X at 0x%04X", opcode, pc))
}

// execCB runs a CB prefixed instruction. Bits 6-7 select the group (shift,
// BIT, RES, SET), bits 3-5 the operation or bit index, bits 0-2 the operand.
func (c *CPU) execCB(op uint8) int {
	r := op & 7
	n := bit.Extract(op, 5, 3)
	value := c.readReg8(r)

	switch op >> 6 {
	case 0:
		c.writeReg8(r, c.rotate(n, value))
	case 1:
		c.setFlagToCondition(zeroFlag, !bit.IsSet(n, value))
		c.resetFlag(subFlag)
		c.setFlag(halfCarryFlag)
		if r == 6 {
			return 12
		}
		return 8
	case 2:
		c.writeReg8(r, bit.Reset(n, value))
	default:
		c.writeReg8(r, bit.Set(n, value))
	}

	if r == 6 {
		return 16
	}
	return 8
}

package cpu

import "github.com/valerio/go-gbc/gbc/bit"

func (c *CPU) pushStack(value uint16) {
	c.regs.SP--
	c.bus.Write(c.regs.SP, bit.High(value))
	c.regs.SP--
	c.bus.Write(c.regs.SP, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.regs.SP)
	c.regs.SP++
	high := c.bus.Read(c.regs.SP)
	c.regs.SP++

	return bit.Combine(high, low)
}

// readImmediate returns the byte at PC ('n' in mnemonics) and moves past it.
func (c *CPU) readImmediate() uint8 {
	n := c.bus.Read(c.regs.PC)
	c.regs.PC++
	return n
}

// readImmediateWord returns the little endian word at PC ('nn' in mnemonics)
// and moves past it.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

func (c *CPU) inc(value uint8) uint8 {
	result := value + 1

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0xF)
	c.resetFlag(subFlag)

	return result
}

func (c *CPU) dec(value uint8) uint8 {
	result := value - 1

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlagToCondition(halfCarryFlag, result&0xF == 0xF)
	c.setFlag(subFlag)

	return result
}

// aluOp applies one of the eight accumulator operations selected by bits 3-5
// of the opcode: ADD, ADC, SUB, SBC, AND, XOR, OR, CP.
func (c *CPU) aluOp(op uint8, value uint8) {
	switch op & 7 {
	case 0:
		c.addToA(value, 0)
	case 1:
		c.addToA(value, c.flagToBit(carryFlag))
	case 2:
		c.regs.SetA(c.sub(value, 0))
	case 3:
		c.regs.SetA(c.sub(value, c.flagToBit(carryFlag)))
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	default:
		c.sub(value, 0)
	}
}

func (c *CPU) addToA(value, carry uint8) {
	a := c.regs.A()
	result := uint16(a) + uint16(value) + uint16(carry)

	c.setFlagToCondition(zeroFlag, uint8(result) == 0)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+carry > 0xF)
	c.setFlagToCondition(carryFlag, result > 0xFF)
	c.resetFlag(subFlag)

	c.regs.SetA(uint8(result))
}

// sub computes A - value - carry and sets flags, leaving A untouched so that
// CP can share it.
func (c *CPU) sub(value, carry uint8) uint8 {
	a := c.regs.A()
	result := a - value - carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF+carry)
	c.setFlagToCondition(carryFlag, uint16(a) < uint16(value)+uint16(carry))
	c.setFlag(subFlag)

	return result
}

func (c *CPU) and(value uint8) {
	result := c.regs.A() & value
	c.regs.SetA(result)

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xor(value uint8) {
	result := c.regs.A() ^ value
	c.regs.SetA(result)

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) or(value uint8) {
	result := c.regs.A() | value
	c.regs.SetA(result)

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) addToHL(value uint16) {
	hl := c.regs.HL
	result := uint32(hl) + uint32(value)

	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(carryFlag, result > 0xFFFF)
	c.resetFlag(subFlag)

	c.regs.HL = uint16(result)
}

// addSigned returns SP + e. Carries are computed on the low byte as unsigned
// additions, Z and N are always cleared.
func (c *CPU) addSigned(e int8) uint16 {
	sp := c.regs.SP
	offset := uint16(e)

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (sp&0xF)+(offset&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, (sp&0xFF)+(offset&0xFF) > 0xFF)

	return sp + offset
}

// daa adjusts A back to BCD after an addition or subtraction.
func (c *CPU) daa() {
	a := c.regs.A()
	var correction uint8
	carry := false

	if c.isSetFlag(halfCarryFlag) || (!c.isSetFlag(subFlag) && a&0xF > 9) {
		correction |= 0x06
	}
	if c.isSetFlag(carryFlag) || (!c.isSetFlag(subFlag) && a > 0x99) {
		correction |= 0x60
		carry = true
	}

	if c.isSetFlag(subFlag) {
		a -= correction
	} else {
		a += correction
	}

	c.regs.SetA(a)
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

// rotate applies one of the eight shift operations selected by bits 3-5 of a
// CB opcode: RLC, RRC, RL, RR, SLA, SRA, SWAP, SRL.
func (c *CPU) rotate(op uint8, value uint8) uint8 {
	var result uint8
	carryOut := value&0x80 != 0

	switch op & 7 {
	case 0:
		result = value<<1 | value>>7
	case 1:
		result = value>>1 | value<<7
		carryOut = value&1 != 0
	case 2:
		result = value<<1 | c.flagToBit(carryFlag)
	case 3:
		result = value>>1 | c.flagToBit(carryFlag)<<7
		carryOut = value&1 != 0
	case 4:
		result = value << 1
	case 5:
		result = value>>1 | value&0x80
		carryOut = value&1 != 0
	case 6:
		result = value<<4 | value>>4
		carryOut = false
	default:
		result = value >> 1
		carryOut = value&1 != 0
	}

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carryOut)

	return result
}

// condition evaluates the cc field in bits 3-4: NZ, Z, NC, C.
func (c *CPU) condition(opcode uint8) bool {
	switch bit.Extract(opcode, 4, 3) {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	default:
		return c.isSetFlag(carryFlag)
	}
}

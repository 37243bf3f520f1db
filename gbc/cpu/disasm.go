package cpu

import (
	"fmt"

	"github.com/valerio/go-gbc/gbc/bit"
)

var (
	reg8Names   = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	pairNames   = [4]string{"BC", "DE", "HL", "SP"}
	stackNames  = [4]string{"BC", "DE", "HL", "AF"}
	condNames   = [4]string{"NZ", "Z", "NC", "C"}
	aluNames    = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
	rotateNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}
)

// operands gives printers access to the bytes following the opcode. PC
// points at the opcode while an instruction is being printed.
type operands struct {
	c *CPU
}

func (o operands) n() uint8 {
	return o.c.bus.Read(o.c.regs.PC + 1)
}

func (o operands) nn() uint16 {
	return bit.Combine(o.c.bus.Read(o.c.regs.PC+2), o.n())
}

func (o operands) e() int8 {
	return int8(o.n())
}

func fixed(name string) func(operands, uint8) string {
	return func(operands, uint8) string { return name }
}

func sprintfNN(format string, o operands) string {
	return fmt.Sprintf(format, o.nn())
}

func sprintfE(format string, o operands) string {
	return fmt.Sprintf(format, o.e())
}

func printJR(o operands, opcode uint8) string {
	target := o.c.regs.PC + 2 + uint16(o.e())
	if opcode == 0x18 {
		return fmt.Sprintf("JR 0x%04x", target)
	}
	return fmt.Sprintf("JR %s, 0x%04x", condNames[bit.Extract(opcode, 4, 3)], target)
}

func printCB(o operands, _ uint8) string {
	op := o.n()
	r := reg8Names[op&7]
	n := bit.Extract(op, 5, 3)
	switch op >> 6 {
	case 0:
		return fmt.Sprintf("%s %s", rotateNames[n], r)
	case 1:
		return fmt.Sprintf("BIT %d, %s", n, r)
	case 2:
		return fmt.Sprintf("RES %d, %s", n, r)
	}
	return fmt.Sprintf("SET %d, %s", n, r)
}

func printAlu(o operands, opcode uint8) string {
	name := aluNames[bit.Extract(opcode, 5, 3)]
	if opcode&0xC0 == 0xC0 {
		return fmt.Sprintf("%s 0x%02x", name, o.n())
	}
	return fmt.Sprintf("%s %s", name, reg8Names[opcode&7])
}

func printRet(_ operands, opcode uint8) string {
	switch opcode {
	case 0xC9:
		return "RET"
	case 0xD9:
		return "RETI"
	}
	return "RET " + condNames[bit.Extract(opcode, 4, 3)]
}

func printJP(o operands, opcode uint8) string {
	if opcode == 0xC3 {
		return fmt.Sprintf("JP 0x%04x", o.nn())
	}
	return fmt.Sprintf("JP %s, 0x%04x", condNames[bit.Extract(opcode, 4, 3)], o.nn())
}

func printCall(o operands, opcode uint8) string {
	if opcode == 0xCD {
		return fmt.Sprintf("CALL 0x%04x", o.nn())
	}
	return fmt.Sprintf("CALL %s, 0x%04x", condNames[bit.Extract(opcode, 4, 3)], o.nn())
}

func printLoadA(operand string, opcode uint8) string {
	if bit.IsSet(4, opcode) {
		return "LD A, " + operand
	}
	return "LD " + operand + ", A"
}

func printLDRR(_ operands, opcode uint8) string {
	return fmt.Sprintf("LD %s, %s", reg8Names[bit.Extract(opcode, 5, 3)], reg8Names[opcode&7])
}

func printLDRRNN(o operands, opcode uint8) string {
	return fmt.Sprintf("LD %s, 0x%04x", pairNames[bit.Extract(opcode, 5, 4)], o.nn())
}

func printLDIndirect(_ operands, opcode uint8) string {
	rr := "(BC)"
	if bit.IsSet(4, opcode) {
		rr = "(DE)"
	}
	if bit.IsSet(3, opcode) {
		return "LD A, " + rr
	}
	return "LD " + rr + ", A"
}

func printAddHL(_ operands, opcode uint8) string {
	return "ADD HL, " + pairNames[bit.Extract(opcode, 5, 4)]
}

func printIncDecRR(_ operands, opcode uint8) string {
	if bit.IsSet(3, opcode) {
		return "DEC " + pairNames[bit.Extract(opcode, 5, 4)]
	}
	return "INC " + pairNames[bit.Extract(opcode, 5, 4)]
}

func printIncDecR(_ operands, opcode uint8) string {
	if bit.IsSet(0, opcode) {
		return "DEC " + reg8Names[bit.Extract(opcode, 5, 3)]
	}
	return "INC " + reg8Names[bit.Extract(opcode, 5, 3)]
}

func printRotateA(_ operands, opcode uint8) string {
	return rotateNames[bit.Extract(opcode, 4, 3)] + "A"
}

func printLDRN(o operands, opcode uint8) string {
	return fmt.Sprintf("LD %s, 0x%02x", reg8Names[bit.Extract(opcode, 5, 3)], o.n())
}

func printLDHLIncDec(_ operands, opcode uint8) string {
	hl := "(HL+)"
	if bit.IsSet(4, opcode) {
		hl = "(HL-)"
	}
	if bit.IsSet(3, opcode) {
		return "LD A, " + hl
	}
	return "LD " + hl + ", A"
}

func printCarryOp(_ operands, opcode uint8) string {
	if opcode == 0x37 {
		return "SCF"
	}
	return "CCF"
}

func printPushPop(_ operands, opcode uint8) string {
	if bit.IsSet(2, opcode) {
		return "PUSH " + stackNames[bit.Extract(opcode, 5, 4)]
	}
	return "POP " + stackNames[bit.Extract(opcode, 5, 4)]
}

func printRST(_ operands, opcode uint8) string {
	return fmt.Sprintf("RST 0x%02x", opcode&0x38)
}

func printLDNNA(o operands, opcode uint8) string {
	return printLoadA(fmt.Sprintf("(0x%04x)", o.nn()), opcode)
}

func printLDH(o operands, opcode uint8) string {
	return printLoadA(fmt.Sprintf("(0xff00+0x%02x)", o.n()), opcode)
}

func printLDHC(_ operands, opcode uint8) string {
	return printLoadA("(0xff00+C)", opcode)
}

func printFromHL(_ operands, opcode uint8) string {
	if opcode == 0xE9 {
		return "JP HL"
	}
	return "LD SP, HL"
}

func printSetIME(_ operands, opcode uint8) string {
	if opcode == 0xFB {
		return "EI"
	}
	return "DI"
}

func printUnused(_ operands, opcode uint8) string {
	return fmt.Sprintf("unused opcode 0x%02x", opcode)
}

func printMissing(_ operands, opcode uint8) string {
	return fmt.Sprintf("missing opcode 0x%02x", opcode)
}

// Disassemble returns the mnemonic of the instruction at PC, operands
// included.
func (c *CPU) Disassemble() string {
	opcode := c.bus.Read(c.regs.PC)
	return Classify(opcode).Print(c, opcode)
}

package cpu

// Instruction describes a class of opcodes sharing the same handler. The
// handler decodes registers and conditions from the opcode bits it receives.
type Instruction struct {
	// Name identifies the class, e.g. "LD r,r'".
	Name string
	// Cycles is the cost of the cheapest form of the class. Handlers return
	// the actual cost, which depends on operands and taken branches.
	Cycles int

	print   func(o operands, opcode uint8) string
	handler func(c *CPU, opcode uint8) int
}

// Print returns the mnemonic for opcode, reading operands after PC.
func (i *Instruction) Print(c *CPU, opcode uint8) string {
	return i.print(operands{c: c}, opcode)
}

// Missing reports whether executing the instruction is fatal.
func (i *Instruction) Missing() bool {
	return i == instrMissing
}

var (
	instrNOP        = &Instruction{Name: "NOP", Cycles: 4, print: fixed("NOP"), handler: nop}
	instrLDNNSP     = &Instruction{Name: "LD (nn),SP", Cycles: 20, print: func(o operands, _ uint8) string { return sprintfNN("LD (0x%04x), SP", o) }, handler: ldNNSP}
	instrSTOP       = &Instruction{Name: "STOP", Cycles: 4, print: fixed("STOP"), handler: stop}
	instrJR         = &Instruction{Name: "JR e", Cycles: 8, print: printJR, handler: jr}
	instrDAA        = &Instruction{Name: "DAA", Cycles: 4, print: fixed("DAA"), handler: daa}
	instrCPL        = &Instruction{Name: "CPL", Cycles: 4, print: fixed("CPL"), handler: cpl}
	instrADDSP      = &Instruction{Name: "ADD SP,e", Cycles: 16, print: func(o operands, _ uint8) string { return sprintfE("ADD SP, %d", o) }, handler: addSP}
	instrLDHLSP     = &Instruction{Name: "LD HL,SP+e", Cycles: 12, print: func(o operands, _ uint8) string { return sprintfE("LD HL, SP%+d", o) }, handler: ldHLSP}
	instrCB         = &Instruction{Name: "CB", Cycles: 8, print: printCB, handler: cbPrefix}
	instrHALT       = &Instruction{Name: "HALT", Cycles: 4, print: fixed("HALT"), handler: halt}
	instrLDRR       = &Instruction{Name: "LD r,r'", Cycles: 4, print: printLDRR, handler: ldRR}
	instrLDRRNN     = &Instruction{Name: "LD rr,nn", Cycles: 12, print: printLDRRNN, handler: ldRRNN}
	instrLDIndirect = &Instruction{Name: "LD (rr),A", Cycles: 8, print: printLDIndirect, handler: ldIndirect}
	instrADDHL      = &Instruction{Name: "ADD HL,rr", Cycles: 8, print: printAddHL, handler: addHL}
	instrIncDecRR   = &Instruction{Name: "INC/DEC rr", Cycles: 8, print: printIncDecRR, handler: incDecRR}
	instrIncDecR    = &Instruction{Name: "INC/DEC r", Cycles: 4, print: printIncDecR, handler: incDecR}
	instrRotateA    = &Instruction{Name: "RLCA/RRCA/RLA/RRA", Cycles: 4, print: printRotateA, handler: rotateA}
	instrLDRN       = &Instruction{Name: "LD r,n", Cycles: 8, print: printLDRN, handler: ldRN}
	instrLDHLIncDec = &Instruction{Name: "LDI/LDD", Cycles: 8, print: printLDHLIncDec, handler: ldHLIncDec}
	instrCarryOp    = &Instruction{Name: "SCF/CCF", Cycles: 4, print: printCarryOp, handler: carryOp}
	instrALU        = &Instruction{Name: "ALU A,x", Cycles: 4, print: printAlu, handler: alu}
	instrPushPop    = &Instruction{Name: "PUSH/POP", Cycles: 12, print: printPushPop, handler: pushPop}
	instrRET        = &Instruction{Name: "RET", Cycles: 8, print: printRet, handler: ret}
	instrRST        = &Instruction{Name: "RST", Cycles: 16, print: printRST, handler: rst}
	instrJP         = &Instruction{Name: "JP nn", Cycles: 12, print: printJP, handler: jp}
	instrCALL       = &Instruction{Name: "CALL nn", Cycles: 12, print: printCall, handler: call}
	instrLDNNA      = &Instruction{Name: "LD (nn),A", Cycles: 16, print: printLDNNA, handler: ldNNA}
	instrLDH        = &Instruction{Name: "LDH (n),A", Cycles: 12, print: printLDH, handler: ldh}
	instrLDHC       = &Instruction{Name: "LD (C),A", Cycles: 8, print: printLDHC, handler: ldhC}
	instrFromHL     = &Instruction{Name: "JP HL/LD SP,HL", Cycles: 4, print: printFromHL, handler: fromHL}
	instrSetIME     = &Instruction{Name: "DI/EI", Cycles: 4, print: printSetIME, handler: setIME}
	instrUnused     = &Instruction{Name: "unused", Cycles: 4, print: printUnused, handler: unused}
	instrMissing    = &Instruction{Name: "missing", Cycles: 0, print: printMissing, handler: missing}
)

// rule matches opcodes where opcode&mask == value.
type rule struct {
	mask  uint8
	value uint8
	instr *Instruction
}

func exact(value uint8, instr *Instruction) rule {
	return rule{mask: 0xFF, value: value, instr: instr}
}

// rules is evaluated in order, the first match wins. Anything left over is
// missing.
var rules = []rule{
	exact(0x00, instrNOP),
	exact(0x08, instrLDNNSP),
	exact(0x10, instrSTOP),
	exact(0x18, instrJR),
	exact(0x27, instrDAA),
	exact(0x2F, instrCPL),
	exact(0xE8, instrADDSP),
	exact(0xF8, instrLDHLSP),
	exact(0xCB, instrCB),

	// 0x40-0x7F, where LD (HL),(HL) is HALT
	exact(0x76, instrHALT),
	{mask: 0xC0, value: 0x40, instr: instrLDRR},

	{mask: 0xCF, value: 0x01, instr: instrLDRRNN},
	{mask: 0xE7, value: 0x02, instr: instrLDIndirect},
	{mask: 0xCF, value: 0x09, instr: instrADDHL},
	{mask: 0xC7, value: 0x03, instr: instrIncDecRR},
	{mask: 0xC6, value: 0x04, instr: instrIncDecR},
	{mask: 0xE7, value: 0x07, instr: instrRotateA},
	{mask: 0xE7, value: 0x20, instr: instrJR},
	{mask: 0xC7, value: 0x06, instr: instrLDRN},
	{mask: 0xE7, value: 0x22, instr: instrLDHLIncDec},
	{mask: 0xF7, value: 0x37, instr: instrCarryOp},
	{mask: 0xC7, value: 0xC6, instr: instrALU},
	{mask: 0xC0, value: 0x80, instr: instrALU},
	{mask: 0xCB, value: 0xC1, instr: instrPushPop},
	{mask: 0xE7, value: 0xC0, instr: instrRET},
	{mask: 0xEF, value: 0xC9, instr: instrRET},
	{mask: 0xC7, value: 0xC7, instr: instrRST},
	exact(0xC3, instrJP),
	{mask: 0xE7, value: 0xC2, instr: instrJP},
	// CALL nn and CALL cc, nn. A looser 0xCD mask would also claim the
	// illegal 0xDD/0xED/0xFD and miss CALL Z/NC/C.
	exact(0xCD, instrCALL),
	{mask: 0xE7, value: 0xC4, instr: instrCALL},
	{mask: 0xEF, value: 0xEA, instr: instrLDNNA},
	{mask: 0xEF, value: 0xE0, instr: instrLDH},
	{mask: 0xEF, value: 0xE2, instr: instrLDHC},
	// never reached, 0xEA/0xFA are claimed above
	{mask: 0xEF, value: 0xEA, instr: instrLDH},
	{mask: 0xEF, value: 0xE9, instr: instrFromHL},
	{mask: 0xF7, value: 0xF3, instr: instrSetIME},

	exact(0xDB, instrUnused),
	exact(0xEB, instrUnused),
	exact(0xEC, instrUnused),
	exact(0xE4, instrUnused),
	exact(0xFC, instrUnused),
	exact(0xF4, instrUnused),
}

// classify walks the rules for a single opcode.
func classify(opcode uint8) *Instruction {
	for _, r := range rules {
		if opcode&r.mask == r.value {
			return r.instr
		}
	}
	return instrMissing
}

var table = buildTable()

func buildTable() (t [256]*Instruction) {
	for i := range t {
		t[i] = classify(uint8(i))
	}
	return t
}

// Classify returns the instruction descriptor for an opcode. It never
// returns nil.
func Classify(opcode uint8) *Instruction {
	return table[opcode]
}

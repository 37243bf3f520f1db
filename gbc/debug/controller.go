// Package debug implements the interactive command loop entered whenever the
// CPU breaks.
package debug

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/cpu"
)

const prompt = "Enter = cont, help, quit: "

const helpText = `
  usage: command [options]
    commands:
      ?, help               Show this informational text
      c, continue           Continue execution, disable stepping
      s, step [steps=1]     Run [steps] instructions, then break
      v, verbose            Toggle verbose instruction execution
      r, run                Disable verbose and stepping, then continue
      q, quit               Stop the machine
      b, break [addr]       Breakpoint on executing [addr]
      clear                 Clear all breakpoints
      reset                 Reset the machine
      read [addr] (len=1)   Read from [addr] (len) bytes and print
      write [addr] [value]  Write [value] to memory location [addr]
      debug                 Trigger the debug interrupt handler
      vblank                Render current screen and call vblank
`

// Machine is the part of the emulator the debugger can poke at besides the
// CPU itself.
type Machine interface {
	Reset()
	RenderAndVBlank()
	DebugInterrupt()
}

// Controller runs the command loop. It implements cpu.Pauser.
type Controller struct {
	console *Console
	machine Machine
}

// New creates a controller. machine may be nil, in which case reset only
// resets the CPU and the vblank and debug commands are unavailable.
func New(console *Console, machine Machine) *Controller {
	return &Controller{console: console, machine: machine}
}

// Pause prints the machine state and reads commands until one of them
// resumes execution. An exhausted input resumes as well.
func (d *Controller) Pause(c *cpu.CPU, opcode uint8) {
	d.PrintState(c, opcode)
	for {
		d.console.Prompt(prompt)
		line, err := d.console.ReadLine()
		if err != nil {
			slog.Debug("debugger input closed", "err", err)
			return
		}
		if !d.Execute(c, line) {
			return
		}
	}
}

// PrintState dumps the instruction about to run, the registers and the
// interrupt state.
func (d *Controller) PrintState(c *cpu.CPU, opcode uint8) {
	regs := c.Registers()
	d.console.Printf("\n>>> Breakpoint at [pc 0x%04x] opcode 0x%02x: %s\n",
		regs.PC, opcode, cpu.Classify(opcode).Print(c, opcode))
	d.console.Printf("%s\n", regs)

	bus := c.Bus()
	ime := 0
	if c.IME() {
		ime = 1
	}
	d.console.Printf("\tIF = 0x%02x  IE = 0x%02x  IME 0x%x\n", bus.Read(addr.IF), bus.Read(addr.IE), ime)

	hl, sp, ok := readPointers(bus, regs)
	if !ok {
		d.console.Printf("\tUnable to read from (HL) or (SP)\n")
		return
	}
	d.console.Printf("\t(HL) = 0x%02x  (SP) = 0x%04x\n", hl, sp)
}

func readPointers(bus cpu.Bus, regs *cpu.Registers) (hl uint8, sp uint16, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return bus.Read(regs.HL), bus.Read16(regs.SP), true
}

// Help prints the command summary.
func (d *Controller) Help() {
	d.console.Printf("%s\n", helpText)
}

// Execute runs one command line. It returns true if the debugger should
// keep reading commands and false if execution should resume.
func (d *Controller) Execute(c *cpu.CPU, line string) bool {
	params := strings.Fields(line)
	if len(params) == 0 {
		return false
	}

	switch cmd := params[0]; cmd {
	case "c", "continue":
		c.BreakOnSteps(0)
		return false
	case "s", "step":
		steps := 1
		if len(params) > 1 {
			n, err := strconv.Atoi(params[1])
			if err != nil || n < 1 {
				d.console.Printf(">>> Invalid step count: '%s'\n", params[1])
				return true
			}
			steps = n
		}
		c.SetVerbose(true)
		d.console.Printf("Pressing Enter will now execute %d steps\n", steps)
		c.BreakOnSteps(steps)
	case "b", "break":
		if len(params) < 2 {
			d.console.Printf(">>> Not enough parameters: break [addr]\n")
			return true
		}
		address, ok := d.parseAddress(params[1])
		if !ok {
			return true
		}
		c.SetPausepoint(address)
	case "clear":
		c.ClearBreakpoints()
	case "v", "verbose":
		c.SetVerbose(!c.Verbose())
		state := "OFF"
		if c.Verbose() {
			state = "ON"
		}
		d.console.Printf("Verbose instructions are now %s\n", state)
	case "r", "run":
		c.SetVerbose(false)
		c.BreakOnSteps(0)
		return false
	case "q", "quit", "exit":
		c.Stop()
		return false
	case "reset":
		if d.machine != nil {
			d.machine.Reset()
		} else {
			c.Reset()
		}
		c.BreakNow()
		return false
	case "ld", "read":
		if len(params) < 2 {
			d.console.Printf(">>> Not enough parameters: read [addr] (length=1)\n")
			return true
		}
		address, ok := d.parseAddress(params[1])
		if !ok {
			return true
		}
		length := 1
		if len(params) > 2 {
			n, err := strconv.Atoi(params[2])
			if err != nil || n < 0 {
				d.console.Printf(">>> Invalid length: '%s'\n", params[2])
				return true
			}
			length = n
		}
		d.dump(c.Bus(), address, length)
	case "write":
		if len(params) < 3 {
			d.console.Printf(">>> Not enough parameters: write [addr] [value]\n")
			return true
		}
		address, ok := d.parseAddress(params[1])
		if !ok {
			return true
		}
		value, err := strconv.ParseInt(params[2], 0, 64)
		if err != nil {
			d.console.Printf(">>> Invalid value: '%s'\n", params[2])
			return true
		}
		d.console.Printf("0x%04x -> 0x%02x\n", address, uint8(value))
		c.Bus().Write(address, uint8(value))
	case "vblank":
		if d.machine == nil {
			d.console.Printf(">>> No machine attached\n")
			return true
		}
		d.machine.RenderAndVBlank()
	case "debug":
		if d.machine == nil {
			d.console.Printf(">>> No machine attached\n")
			return true
		}
		d.machine.DebugInterrupt()
	case "help", "?":
		d.Help()
	default:
		d.console.Printf(">>> Unknown command: '%s'\n", cmd)
		d.Help()
	}
	return true
}

// dump prints length bytes starting at address, four per row.
func (d *Controller) dump(bus cpu.Bus, address uint16, length int) {
	var sb strings.Builder
	col := 0
	for i := 0; i < length; i++ {
		current := address + uint16(i)
		if col == 0 {
			fmt.Fprintf(&sb, "0x%04x: ", current)
		}
		fmt.Fprintf(&sb, "0x%02x ", bus.Read(current))
		col++
		if col == 4 {
			sb.WriteByte('\n')
			col = 0
		}
	}
	if col != 0 {
		sb.WriteByte('\n')
	}
	d.console.Printf("%s", sb.String())
}

// parseAddress reads a hex address, with or without the 0x prefix.
func (d *Controller) parseAddress(s string) (uint16, bool) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "0x")
	value, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		d.console.Printf(">>> Invalid address: '%s'\n", s)
		return 0, false
	}
	return uint16(value), true
}

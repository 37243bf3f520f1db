// Package script runs Lua files that install breakpoints on the CPU.
//
// A script has these globals:
//
//	breakpoint(addr, fn [, steps [, verbose]])  call fn(regs) whenever PC reaches addr
//	clear()                                     remove every breakpoint
//	break_now()                                 pause before the next instruction
//	read8(addr), write8(addr, value)            access memory
//	log(msg)                                    write msg to the log
//
// fn receives a table with the registers and the opcode about to run.
// Returning true from fn pauses into the debugger. Passing steps replaces the
// step countdown and trace setting on every hit, like the breakpoints created
// by the debugger do.
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/valerio/go-gbc/gbc/cpu"
	lua "github.com/yuin/gopher-lua"
)

// ErrNotFunction is returned when a breakpoint callback is not a function.
var ErrNotFunction = errors.New("breakpoint callback is not a function")

type Engine struct {
	L   *lua.LState
	cpu *cpu.CPU

	// err keeps the Go error behind a Lua error raised by a builtin.
	err error
}

// New creates a Lua state bound to c.
func New(c *cpu.CPU) *Engine {
	e := &Engine{L: lua.NewState(), cpu: c}

	for name, fn := range map[string]lua.LGFunction{
		"breakpoint": e.breakpoint,
		"clear":      e.clear,
		"break_now":  e.breakNow,
		"read8":      e.read8,
		"write8":     e.write8,
		"log":        e.log,
	} {
		e.L.SetGlobal(name, e.L.NewFunction(fn))
	}
	return e
}

// LoadFile runs the script at path.
func (e *Engine) LoadFile(fs afero.Fs, path string) error {
	source, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	return e.run(string(source), path)
}

// LoadString runs source as a script.
func (e *Engine) LoadString(source string) error {
	return e.run(source, "<string>")
}

func (e *Engine) Close() {
	e.L.Close()
}

func (e *Engine) run(source, name string) error {
	e.err = nil
	fn, err := e.L.Load(strings.NewReader(source), name)
	if err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}
	e.L.Push(fn)
	if err := e.L.PCall(0, lua.MultRet, nil); err != nil {
		if e.err != nil {
			return fmt.Errorf("running %s: %w", name, e.err)
		}
		return fmt.Errorf("running %s: %w", name, err)
	}
	return nil
}

func (e *Engine) breakpoint(L *lua.LState) int {
	address := uint16(L.CheckInt(1))
	fn, ok := L.Get(2).(*lua.LFunction)
	if !ok {
		e.err = fmt.Errorf("breakpoint at 0x%04X: %w", address, ErrNotFunction)
		L.RaiseError("%v", e.err)
		return 0
	}

	bp := cpu.Breakpoint{
		OnHit: func(c *cpu.CPU, opcode uint8) { e.call(fn, c, opcode) },
	}
	if L.GetTop() >= 3 {
		bp.OverrideSteps = true
		bp.Steps = L.CheckInt(3)
		if bp.Steps < 0 {
			L.ArgError(3, "steps must not be negative")
			return 0
		}
		bp.Verbose = L.OptBool(4, false)
	}
	e.cpu.SetBreakpoint(address, bp)
	return 0
}

// call runs a breakpoint callback. A failing callback forces a break so the
// problem can be looked at in the debugger.
func (e *Engine) call(fn *lua.LFunction, c *cpu.CPU, opcode uint8) {
	err := e.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, e.registers(c, opcode))
	if err != nil {
		slog.Error("breakpoint script failed", "pc", fmt.Sprintf("0x%04X", c.Registers().PC), "err", err)
		c.BreakNow()
		return
	}

	ret := e.L.Get(-1)
	e.L.Pop(1)
	if lua.LVAsBool(ret) {
		c.BreakNow()
	}
}

func (e *Engine) registers(c *cpu.CPU, opcode uint8) *lua.LTable {
	r := c.Registers()
	t := e.L.NewTable()
	for name, value := range map[string]uint16{
		"a": uint16(r.A()), "f": uint16(r.F()),
		"b": uint16(r.B()), "c": uint16(r.C()),
		"d": uint16(r.D()), "e": uint16(r.E()),
		"h": uint16(r.H()), "l": uint16(r.L()),
		"af": r.AF, "bc": r.BC, "de": r.DE, "hl": r.HL,
		"sp": r.SP, "pc": r.PC,
		"opcode": uint16(opcode),
	} {
		t.RawSetString(name, lua.LNumber(value))
	}
	t.RawSetString("ime", lua.LBool(c.IME()))
	return t
}

func (e *Engine) clear(L *lua.LState) int {
	e.cpu.ClearBreakpoints()
	return 0
}

func (e *Engine) breakNow(L *lua.LState) int {
	e.cpu.BreakNow()
	return 0
}

func (e *Engine) read8(L *lua.LState) int {
	L.Push(lua.LNumber(e.cpu.Bus().Read(uint16(L.CheckInt(1)))))
	return 1
}

func (e *Engine) write8(L *lua.LState) int {
	e.cpu.Bus().Write(uint16(L.CheckInt(1)), uint8(L.CheckInt(2)))
	return 0
}

func (e *Engine) log(L *lua.LState) int {
	slog.Info("script", "msg", L.CheckString(1))
	return 0
}

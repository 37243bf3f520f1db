package debug

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-gbc/gbc/addr"
	"github.com/valerio/go-gbc/gbc/cpu"
	"github.com/valerio/go-gbc/gbc/memory"
)

type fakeMachine struct {
	c                       *cpu.CPU
	resets, vblanks, debugs int
}

func (m *fakeMachine) Reset() {
	m.resets++
	if m.c != nil {
		m.c.Reset()
	}
}
func (m *fakeMachine) RenderAndVBlank() { m.vblanks++ }
func (m *fakeMachine) DebugInterrupt()  { m.debugs++ }

// newTestCPU returns a CPU spinning on JR -2 at the cartridge entry point.
func newTestCPU(t *testing.T) (*cpu.CPU, *cpu.Monitor) {
	rom := make([]byte, 0x8000)
	rom[0x100] = 0x18
	rom[0x101] = 0xFE
	cart, err := memory.NewCartridgeWithData(rom)
	require.NoError(t, err)

	mon := &cpu.Monitor{Trace: io.Discard}
	return cpu.New(memory.NewWithCartridge(cart), cpu.WithMonitor(mon)), mon
}

func newTestController(input string) (*Controller, *bytes.Buffer, *fakeMachine) {
	var out bytes.Buffer
	machine := &fakeMachine{}
	console := NewConsole(strings.NewReader(input), &out)
	return New(console, machine), &out, machine
}

func TestExecute(t *testing.T) {
	testCases := []struct {
		desc   string
		line   string
		keep   bool
		output string
		check  func(t *testing.T, c *cpu.CPU, m *fakeMachine)
	}{
		{
			desc: "empty line resumes",
			line: "",
			keep: false,
		},
		{
			desc: "continue clears the step countdown",
			line: "c",
			keep: false,
		},
		{
			desc:   "step arms the countdown and enables tracing",
			line:   "s 3",
			keep:   true,
			output: "Pressing Enter will now execute 3 steps\n",
			check: func(t *testing.T, c *cpu.CPU, _ *fakeMachine) {
				assert.True(t, c.Verbose())
			},
		},
		{
			desc:   "step defaults to one",
			line:   "step",
			keep:   true,
			output: "Pressing Enter will now execute 1 steps\n",
		},
		{
			desc:   "step with a bad count",
			line:   "s x",
			keep:   true,
			output: ">>> Invalid step count: 'x'\n",
		},
		{
			desc: "break registers a pausepoint",
			line: "b 0x150",
			keep: true,
			check: func(t *testing.T, c *cpu.CPU, _ *fakeMachine) {
				assert.Equal(t, []uint16{0x150}, c.Breakpoints())
			},
		},
		{
			desc:   "break without an address",
			line:   "break",
			keep:   true,
			output: ">>> Not enough parameters: break [addr]\n",
		},
		{
			desc:   "break with a bad address",
			line:   "break zz",
			keep:   true,
			output: ">>> Invalid address: 'zz'\n",
		},
		{
			desc:   "verbose toggles",
			line:   "verbose",
			keep:   true,
			output: "Verbose instructions are now ON\n",
		},
		{
			desc: "run disables tracing",
			line: "r",
			keep: false,
			check: func(t *testing.T, c *cpu.CPU, _ *fakeMachine) {
				assert.False(t, c.Verbose())
			},
		},
		{
			desc: "quit stops the machine",
			line: "quit",
			keep: false,
			check: func(t *testing.T, c *cpu.CPU, _ *fakeMachine) {
				assert.False(t, c.IsRunning())
			},
		},
		{
			desc: "reset resets the machine",
			line: "reset",
			keep: false,
			check: func(t *testing.T, _ *cpu.CPU, m *fakeMachine) {
				assert.Equal(t, 1, m.resets)
			},
		},
		{
			desc:   "read prints rows of four",
			line:   "read c000 6",
			keep:   true,
			output: "0xc000: 0x00 0x00 0x00 0x00 \n0xc004: 0x00 0x00 \n",
		},
		{
			desc:   "read without an address",
			line:   "ld",
			keep:   true,
			output: ">>> Not enough parameters: read [addr] (length=1)\n",
		},
		{
			desc:   "write stores a byte",
			line:   "write c010 0x42",
			keep:   true,
			output: "0xc010 -> 0x42\n",
			check: func(t *testing.T, c *cpu.CPU, _ *fakeMachine) {
				assert.Equal(t, uint8(0x42), c.Bus().Read(0xC010))
			},
		},
		{
			desc:   "write without a value",
			line:   "write c010",
			keep:   true,
			output: ">>> Not enough parameters: write [addr] [value]\n",
		},
		{
			desc: "vblank",
			line: "vblank",
			keep: true,
			check: func(t *testing.T, _ *cpu.CPU, m *fakeMachine) {
				assert.Equal(t, 1, m.vblanks)
			},
		},
		{
			desc: "debug",
			line: "debug",
			keep: true,
			check: func(t *testing.T, _ *cpu.CPU, m *fakeMachine) {
				assert.Equal(t, 1, m.debugs)
			},
		},
		{
			desc:   "help",
			line:   "?",
			keep:   true,
			output: helpText + "\n",
		},
		{
			desc:   "unknown command",
			line:   "jump 100",
			keep:   true,
			output: ">>> Unknown command: 'jump'\n" + helpText + "\n",
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU(t)
			d, out, machine := newTestController("")

			assert.Equal(t, tC.keep, d.Execute(c, tC.line))
			assert.Equal(t, tC.output, out.String())
			if tC.check != nil {
				tC.check(t, c, machine)
			}
		})
	}
}

func TestClearRemovesBreakpoints(t *testing.T) {
	c, _ := newTestCPU(t)
	d, _, _ := newTestController("")

	d.Execute(c, "b 100")
	d.Execute(c, "b 200")
	require.Len(t, c.Breakpoints(), 2)
	assert.True(t, d.Execute(c, "clear"))
	assert.Empty(t, c.Breakpoints())
}

func TestCommandsWithoutMachine(t *testing.T) {
	c, _ := newTestCPU(t)
	var out bytes.Buffer
	d := New(NewConsole(strings.NewReader(""), &out), nil)

	assert.True(t, d.Execute(c, "vblank"))
	assert.True(t, d.Execute(c, "debug"))
	assert.Equal(t, ">>> No machine attached\n>>> No machine attached\n", out.String())

	c.Registers().PC = 0x1234
	assert.False(t, d.Execute(c, "reset"))
	assert.Equal(t, uint16(0x0100), c.Registers().PC)
}

func TestPrintState(t *testing.T) {
	c, _ := newTestCPU(t)
	d, out, _ := newTestController("")
	c.Bus().Write(addr.IE, 0x05)

	d.PrintState(c, 0x18)

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 7)
	assert.Equal(t, "", lines[0])
	assert.Equal(t, ">>> Breakpoint at [pc 0x0100] opcode 0x18: JR 0x0100", lines[1])
	assert.Equal(t, "\tAF = 0x01b0  BC = 0x0013  DE = 0x00d8", lines[2])
	assert.Equal(t, "\tHL = 0x014d  SP = 0xfffe  PC = 0x0100", lines[3])
	assert.Equal(t, "\tF  = [Z-HC]", lines[4])
	assert.Equal(t, "\tIF = 0xe1  IE = 0x05  IME 0x0", lines[5])
	assert.Equal(t, "\t(HL) = 0x00  (SP) = 0x0500", lines[6], "high byte of (SP) is IE")

	t.Run("unreadable (HL)", func(t *testing.T) {
		d, out, _ := newTestController("")
		c.Registers().HL = 0xFF10 // NR10, not handled by the APU

		assert.NotPanics(t, func() { d.PrintState(c, 0x18) })

		lines := strings.Split(out.String(), "\n")
		require.GreaterOrEqual(t, len(lines), 7)
		assert.Equal(t, "\tUnable to read from (HL) or (SP)", lines[6])
	})
}

func TestPauseSession(t *testing.T) {
	c, mon := newTestCPU(t)
	d, out, _ := newTestController("break 100\nc\nc\nq\n")
	mon.Pauser = d

	c.BreakNow()
	for i := 0; i < 10 && c.IsRunning(); i++ {
		c.Step()
	}

	assert.False(t, c.IsRunning())
	assert.Equal(t, 3, strings.Count(out.String(), ">>> Breakpoint at [pc 0x0100]"))
	assert.Equal(t, 4, strings.Count(out.String(), prompt))
}

func TestPauseReset(t *testing.T) {
	c, mon := newTestCPU(t)
	d, out, machine := newTestController("reset\nq\n")
	machine.c = c
	mon.Pauser = d

	c.Registers().PC = 0x0101
	c.BreakNow()
	assert.Zero(t, c.Step())

	assert.Equal(t, 1, machine.resets)
	assert.False(t, c.IsRunning())
	assert.Equal(t, 1, strings.Count(out.String(), "[pc 0x0101]"))
	assert.Equal(t, 1, strings.Count(out.String(), "[pc 0x0100]"), "reset pauses again")
}

func TestPauseResumesOnEOF(t *testing.T) {
	c, mon := newTestCPU(t)
	d, _, _ := newTestController("")
	mon.Pauser = d

	c.BreakNow()
	assert.Equal(t, 12, c.Step())
	assert.True(t, c.IsRunning())
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(strings.NewReader("first\r\nsecond\nlast"), &out)

	for _, want := range []string{"first", "second", "last"} {
		line, err := console.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := console.ReadLine()
	assert.ErrorIs(t, err, io.EOF)

	console.Prompt("> ")
	console.Interactive = false
	console.Prompt("hidden")
	console.Printf("%d", 42)
	assert.Equal(t, "> 42", out.String())
}

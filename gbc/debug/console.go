package debug

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Console is the line oriented channel the debugger talks through.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	// Interactive enables prompts. Prompts are noise when the input is
	// piped in from a file.
	Interactive bool
}

// NewConsole creates an interactive console reading commands from in.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:          bufio.NewReader(in),
		out:         out,
		Interactive: true,
	}
}

// StdConsole returns a console on stdin/stdout. Prompts are only printed
// when stdin is a terminal.
func StdConsole() *Console {
	c := NewConsole(os.Stdin, os.Stdout)
	c.Interactive = term.IsTerminal(int(os.Stdin.Fd()))
	return c
}

// ReadLine returns the next line without its line ending. io.EOF is only
// returned when there is nothing left to read.
func (c *Console) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Prompt prints text if the console is interactive.
func (c *Console) Prompt(text string) {
	if c.Interactive {
		io.WriteString(c.out, text)
	}
}

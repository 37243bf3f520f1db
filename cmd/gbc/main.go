package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/valerio/go-gbc/gbc"
	"github.com/valerio/go-gbc/gbc/debug"
	"github.com/valerio/go-gbc/gbc/script"
	"github.com/valerio/go-gbc/gbc/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbc"
	app.Description = "A Game Boy CPU core with an interactive debugger"
	app.Usage = "gbc [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file (.gb, .gbc, .zip, .7z or .gz)",
		},
		cli.StringFlag{
			Name:  "boot",
			Usage: "Path to a 256 byte boot ROM to run before the cartridge",
		},
		cli.StringSliceFlag{
			Name:  "break",
			Usage: "Pause when PC reaches this hex address (repeatable)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Pause before the first instruction",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Trace every instruction to stdout",
		},
		cli.IntFlag{
			Name:  "steps",
			Usage: "Pause every N instructions (0 = never)",
		},
		cli.StringFlag{
			Name:  "script",
			Usage: "Lua file installing breakpoint hooks",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Stop after N frames (0 = run until quit)",
		},
		cli.BoolFlag{
			Name:  "realtime",
			Usage: "Limit emulation to the speed of the real hardware",
		},
		cli.BoolFlag{
			Name:  "serial",
			Usage: "Copy serial port output to stdout",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn or error",
			Value: "info",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	if err := setupLogging(c.String("log-level")); err != nil {
		return err
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().First()
	}

	if c.Int("steps") < 0 {
		return errors.New("--steps must not be negative")
	}

	fs := afero.NewOsFs()
	opts := []gbc.Option{
		gbc.WithConsole(debug.StdConsole()),
		gbc.WithTrace(os.Stdout, c.Bool("verbose")),
	}
	if c.Bool("serial") {
		opts = append(opts, gbc.WithSerialOutput(os.Stdout))
	}
	if bootPath := c.String("boot"); bootPath != "" {
		boot, err := afero.ReadFile(fs, bootPath)
		if err != nil {
			return fmt.Errorf("reading boot ROM: %w", err)
		}
		opts = append(opts, gbc.WithBootROM(boot))
	}

	emu, err := gbc.NewWithFile(fs, romPath, opts...)
	if err != nil {
		return err
	}

	core := emu.CPU()
	for _, s := range c.StringSlice("break") {
		address, err := parseAddress(s)
		if err != nil {
			return err
		}
		core.SetPausepoint(address)
	}
	core.BreakOnSteps(c.Int("steps"))
	if c.Bool("debug") {
		core.BreakNow()
	}

	if scriptPath := c.String("script"); scriptPath != "" {
		engine := script.New(core)
		defer engine.Close()
		if err := engine.LoadFile(fs, scriptPath); err != nil {
			return err
		}
	}

	limiter := timing.NewNoOpLimiter()
	if c.Bool("realtime") {
		limiter = timing.NewSleepLimiter()
	}

	frames := c.Int("frames")
	for i := 0; frames == 0 || i < frames; i++ {
		if err := emu.RunUntilFrame(); err != nil {
			if errors.Is(err, gbc.ErrStopped) {
				break
			}
			return err
		}
		limiter.WaitForNextFrame()
	}

	slog.Info("Emulation finished",
		"frames", emu.Frames(),
		"cycles", core.Cycles(),
		"pc", fmt.Sprintf("0x%04X", core.Registers().PC))
	return nil
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseAddress(s string) (uint16, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid breakpoint address %q: %w", s, err)
	}
	return uint16(value), nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v2"

	"ropgadget/cpu"
	"ropgadget/errtag"
	"ropgadget/gadget"
	"ropgadget/internal/clicount"
	"ropgadget/session"
)

func parseTypes(raw []string) ([]gadget.Group, error) {
	if len(raw) == 0 {
		return []gadget.Group{gadget.Ret}, nil
	}

	var groups []gadget.Group
	for _, t := range raw {
		switch strings.ToLower(t) {
		case "ret":
			groups = append(groups, gadget.Ret)
		case "call":
			groups = append(groups, gadget.Call)
		case "jmp", "jump":
			groups = append(groups, gadget.Jump)
		default:
			return nil, fmt.Errorf("unknown rop type %q (want ret, call or jmp)", t)
		}
	}
	return groups, nil
}

func run(c *cli.Context, verbosity int) error {
	if c.Args().Len() < 1 {
		return cli.Exit("missing FILE argument", 1)
	}
	file := c.Args().First()

	sess := session.New(file)
	sess.NbThread = c.Int("number-of-threads")
	sess.UniqueOnly = c.Bool("unique")
	sess.UseColor = !c.Bool("no-color")
	sess.Verbosity = verbosity
	sess.OutputFile = c.String("output-file")
	sess.ImageBase = uint64(c.Uint64("image-base"))
	sess.Limits.MaxInsns = c.Int("max-insn-per-gadget")
	sess.Limits.MaxSize = c.Int("max-size")
	sess.DFS = c.Bool("dfs")

	if archTag := c.String("architecture"); archTag != "" {
		arch, err := cpu.ParseArch(archTag)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		sess.Arch = arch
		sess.ArchSet = true
	}

	types, err := parseTypes(c.StringSlice("rop-types"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	sess.Types = types

	_, err = sess.Run()
	if err != nil {
		switch {
		case errors.Is(err, errtag.InvalidInput), errors.Is(err, errtag.UnsupportedArchitecture):
			return cli.Exit(err.Error(), 1)
		case errors.Is(err, errtag.IoFailure):
			return cli.Exit(err.Error(), 2)
		default:
			return cli.Exit(err.Error(), 1)
		}
	}
	return nil
}

func main() {
	var verbosity int

	app := cli.NewApp()
	app.Name = "ropgadget"
	app.Usage = "find ROP gadgets in an ELF, PE, Mach-O, or (with --dfs) Acorn DFS disk image"
	app.ArgsUsage = "FILE"
	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "number-of-threads",
			Aliases: []string{"t"},
			Value:   4,
			Usage:   "number of worker goroutines to scan with",
		},
		&cli.StringFlag{
			Name:    "output-file",
			Aliases: []string{"o"},
			Usage:   "write gadgets to this file instead of stdout",
		},
		&clicount.CountFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase log verbosity (repeatable, up to 4 times)",
			Dest:    &verbosity,
		},
		&cli.BoolFlag{
			Name:    "unique",
			Aliases: []string{"u"},
			Usage:   "drop gadgets whose disassembly text duplicates an earlier one",
		},
		&cli.StringFlag{
			Name:  "architecture",
			Usage: "override the architecture reported by the binary (x86, x64, arm, arm64)",
		},
		&cli.Uint64Flag{
			Name:  "image-base",
			Usage: "base address added to gadget addresses written to --output-file",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colorized console output",
		},
		&cli.IntFlag{
			Name:  "max-insn-per-gadget",
			Value: 6,
			Usage: "drop gadgets longer than this many instructions (0 means unbounded)",
		},
		&cli.IntFlag{
			Name:  "max-size",
			Value: 32,
			Usage: "drop gadgets larger than this many bytes (0 means unbounded)",
		},
		&cli.StringSliceFlag{
			Name:  "rop-types",
			Usage: "gadget terminator types to search for: ret, call, jmp (repeatable; default ret)",
		},
		&cli.BoolFlag{
			Name:  "dfs",
			Usage: "treat FILE as an Acorn DFS disk image instead of an ELF/PE/Mach-O container (requires --architecture)",
		},
	}
	app.Action = func(c *cli.Context) error {
		return run(c, verbosity)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code, ok := err.(cli.ExitCoder); ok {
			os.Exit(code.ExitCode())
		}
		os.Exit(1)
	}
}

// Package output implements the Output Pipeline (spec.md §4.5):
// deduplication, stable address ordering, and emission to console or file.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"ropgadget/gadget"
)

// Sink selects where gadgets are emitted.
type Sink int

const (
	// None discards output; useful for benchmarking.
	None Sink = iota
	// Console writes to stdout.
	Console
	// File writes to a path on disk; color is always forced off.
	File
)

// Options configures one run of the pipeline.
type Options struct {
	Sink       Sink
	FilePath   string
	UniqueOnly bool
	UseColor   bool
	Is64Bit    bool
	// ImageBase is added to each gadget's address only when writing to a
	// file, matching the original tool's main.rs (entrypoint_address is
	// added at file-emission time only, never for console output and
	// never during matching/walking).
	ImageBase uint64
}

// Run applies dedup (if requested) and address ordering to gadgets, then
// emits the result. It returns the final, ordered list and any I/O error.
func Run(gadgets []gadget.Gadget, opts Options) ([]gadget.Gadget, error) {
	sort.SliceStable(gadgets, func(i, j int) bool { return gadgets[i].Address < gadgets[j].Address })

	if opts.UniqueOnly {
		gadgets = dedup(gadgets)
	}

	switch opts.Sink {
	case None:
		return gadgets, nil
	case File:
		return gadgets, writeFile(gadgets, opts)
	default:
		writeConsole(gadgets, opts)
		return gadgets, nil
	}
}

// dedup removes adjacent gadgets whose canonical text is equal under ASCII
// case-folding. gadgets must already be address-sorted; §4.5 step 1 sorts
// by text first, dedups, and the final address sort (already applied
// above) re-establishes order. Survivors are tracked by slice index rather
// than address: distinct gadgets (e.g. a ret-gadget and a call-gadget from
// separate terminator-group scans) can legitimately share a start address,
// and keying on address alone would wrongly collapse them.
func dedup(gadgets []gadget.Gadget) []gadget.Gadget {
	type ranked struct {
		idx  int
		text string
	}
	byText := make([]ranked, len(gadgets))
	for i, g := range gadgets {
		byText[i] = ranked{idx: i, text: strings.ToLower(g.Text(false))}
	}
	sort.SliceStable(byText, func(i, j int) bool { return byText[i].text < byText[j].text })

	keep := make(map[int]bool, len(gadgets))
	for i, r := range byText {
		if i > 0 && r.text == byText[i-1].text {
			continue
		}
		keep[r.idx] = true
	}

	out := make([]gadget.Gadget, 0, len(keep))
	for i, g := range gadgets {
		if keep[i] {
			out = append(out, g)
		}
	}
	return out
}

func addrFormat(is64 bool) string {
	if is64 {
		return "0x%016x"
	}
	return "0x%08x"
}

func writeConsole(gadgets []gadget.Gadget, opts Options) {
	format := addrFormat(opts.Is64Bit)
	for _, g := range gadgets {
		addr := fmt.Sprintf(format, g.Address)
		if opts.UseColor {
			addr = color.RedString(addr)
		}
		fmt.Printf("%s | %s\n", addr, g.Text(opts.UseColor))
	}
}

func writeFile(gadgets []gadget.Gadget, opts Options) error {
	f, err := os.Create(opts.FilePath)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", opts.FilePath, err)
	}
	defer f.Close()

	return writeFileTo(f, gadgets, opts)
}

func writeFileTo(w io.Writer, gadgets []gadget.Gadget, opts Options) error {
	format := addrFormat(opts.Is64Bit)
	for _, g := range gadgets {
		addr := fmt.Sprintf(format, g.Address+opts.ImageBase)
		if _, err := fmt.Fprintf(w, "%s | %s\n", addr, g.Text(false)); err != nil {
			return fmt.Errorf("output: write: %w", err)
		}
	}
	return nil
}

// Package disasm defines the Disassembler capability the core engine
// consumes (spec.md §4.3/§6) and provides concrete adapters over
// golang.org/x/arch's pure-Go decoders — the same family of disassembler
// the rest of the retrieval pack reaches for when it needs one
// (maxgio92/prologo's go.mod pins golang.org/x/arch v0.24.0). The core
// never imports x86asm/armasm/arm64asm directly; it only sees the
// Disassembler interface.
package disasm

import (
	"ropgadget/cpu"
	"ropgadget/gadget"
)

// Disassembler decodes a byte slice located at virtual address va into a
// sequence of Instructions. It returns (nil, false) if nothing could be
// decoded at all (spec.md's "decodeFailure" case 3), mirroring the
// original's `Option<Vec<Instruction>>`.
type Disassembler interface {
	Disassemble(code []byte, va uint64) ([]gadget.Instruction, bool)
	Name() string
}

// New returns the concrete Disassembler for the given architecture.
func New(arch cpu.Arch) (Disassembler, error) {
	switch arch {
	case cpu.X86:
		return x86Disassembler{mode: 32}, nil
	case cpu.X64:
		return x86Disassembler{mode: 64}, nil
	case cpu.ARM:
		return armDisassembler{}, nil
	case cpu.ARM64:
		return arm64Disassembler{}, nil
	default:
		return nil, errUnsupported{arch}
	}
}

type errUnsupported struct{ arch cpu.Arch }

func (e errUnsupported) Error() string {
	return "disasm: unsupported architecture " + e.arch.String()
}

// Package walker implements the bounded backward-walk disassembly that
// reconstructs a gadget from a candidate terminator position (spec.md
// §4.3). It is the most delicate piece of the engine: on x86 the same byte
// can be the tail of many differently-sized prefixes, so the walker
// repeatedly disassembles a growing window ending at the terminator,
// keeping every prefix that decodes cleanly into a gadget.
package walker

import (
	"ropgadget/cpu"
	"ropgadget/disasm"
	"ropgadget/gadget"
	"ropgadget/section"
)

// Limits bounds how large a single gadget may grow. Neither bound is
// enforced by the original source (spec.md §9's open question); we add
// both here and stop extending once either is exceeded.
type Limits struct {
	MaxInsns int // 0 means unbounded
	MaxSize  int // 0 means unbounded
}

// Walk reconstructs every valid gadget ending at the candidate terminator
// (pos, length) within sec, for the given requested terminator group.
func Walk(sec section.Section, pos, length int, prof cpu.Profile, group gadget.Group, dis disasm.Disassembler, lim Limits) []gadget.Gadget {
	w := prof.MaxRewind
	start := pos - w
	if start < 0 {
		start = 0
	}
	end := pos + length
	if end > len(sec.Data) {
		end = len(sec.Data)
	}
	window := sec.Data[start:end]
	base := sec.BaseVA + uint64(start)

	stride := prof.InsnStride
	if stride <= 0 {
		stride = 1
	}

	sz := length
	invalidRun := 0
	seen := make(map[uint64]bool)
	var gadgets []gadget.Gadget

	for {
		if sz > len(window) {
			break
		}
		if lim.MaxSize > 0 && sz > lim.MaxSize {
			break
		}

		candidateStart := len(window) - sz
		candidate := window[candidateStart:]
		startVA := base + uint64(candidateStart)

		insns, ok := dis.Disassemble(candidate, startVA)
		if !ok {
			invalidRun++
			if invalidRun == w {
				break
			}
			sz += stride
			continue
		}
		invalidRun = 0

		if lim.MaxInsns > 0 && len(insns) > lim.MaxInsns {
			break
		}

		last := insns[len(insns)-1]
		if last.Group == group {
			accepted := trimDisqualifyingPrefix(insns)
			g := gadget.New(accepted)
			if !seen[g.Address] {
				seen[g.Address] = true
				gadgets = append(gadgets, g)
			}
		}

		sz += stride
	}

	return gadgets
}

// trimDisqualifyingPrefix walks backward from the terminator (the last
// instruction, always kept) and accepts instructions until the first
// disqualifying one; that instruction and everything before it are
// dropped. Any forward-only reformulation of this rule must produce the
// same result (spec.md §9).
func trimDisqualifyingPrefix(insns []gadget.Instruction) []gadget.Instruction {
	start := 0
	for i := len(insns) - 2; i >= 0; i-- {
		if insns[i].Group.Disqualifying() {
			start = i + 1
			break
		}
	}
	return insns[start:]
}

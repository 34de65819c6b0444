// Package worker implements the Section Worker component (spec.md §2
// item 6, §4.4): combining the Matcher and the Backward Walker over one
// (section, chunk) assignment.
package worker

import (
	"ropgadget/cpu"
	"ropgadget/disasm"
	"ropgadget/gadget"
	"ropgadget/pattern"
	"ropgadget/section"
	"ropgadget/walker"
)

// Scan finds every gadget reachable from a terminator candidate in
// sec.Data[chunkStart:chunkEnd]. The Matcher is restricted to that chunk,
// but the Walker always operates on the full section so it may rewind
// across the chunk boundary into bytes another worker owns — section data
// is shared, immutable, and safe to read concurrently from any goroutine.
func Scan(sec section.Section, chunkStart, chunkEnd int, prof cpu.Profile, termGroup cpu.TerminatorGroup, reqGroup gadget.Group, strategy pattern.Strategy, dis disasm.Disassembler, lim walker.Limits) []gadget.Gadget {
	if chunkStart >= chunkEnd || chunkEnd > len(sec.Data) {
		return nil
	}

	chunk := sec.Data[chunkStart:chunkEnd]
	candidates := pattern.Find(chunk, prof.Patterns(termGroup), strategy)

	var out []gadget.Gadget
	for _, c := range candidates {
		pos := chunkStart + c.Offset
		out = append(out, walker.Walk(sec, pos, c.Length, prof, reqGroup, dis, lim)...)
	}
	return out
}

// Package pattern implements the mask-based terminator scan (spec.md
// §4.2): given a byte window and a chosen group of (opcode, mask) pairs,
// it returns every offset where a pattern matches. It holds no state and
// never errors; an empty result is a legitimate answer.
package pattern

import "ropgadget/cpu"

// Strategy selects how many patterns Find tries before returning.
type Strategy int

const (
	// Fast stops after the first pattern that yields at least one match.
	// It is the default: a latency/recall trade-off, not an oversight.
	Fast Strategy = iota
	// Complete applies every pattern and concatenates all matches.
	Complete
)

// Candidate is one potential terminator position: byte offset and pattern
// length within the scanned window.
type Candidate struct {
	Offset int
	Length int
}

// Find scans data for every position matching any pattern in patterns.
// Matches are returned offset-ascending within one pattern, and in pattern
// declaration order across patterns; overlaps and duplicates are kept as-is
// (deduplication is an output-stage concern, not a matching one).
func Find(data []byte, patterns []cpu.Pattern, strategy Strategy) []Candidate {
	var out []Candidate

	for _, p := range patterns {
		n := p.Len()
		if n == 0 || n > len(data) {
			continue
		}

		found := false
		for off := 0; off+n <= len(data); off++ {
			if p.Matches(data[off : off+n]) {
				out = append(out, Candidate{Offset: off, Length: n})
				found = true
			}
		}

		if found && strategy == Fast {
			break
		}
	}

	return out
}

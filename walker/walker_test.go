package walker

import (
	"testing"

	"ropgadget/cpu"
	"ropgadget/gadget"
	"ropgadget/section"
)

// fakeInsn describes one instruction a fakeDisassembler knows how to
// decode, keyed by its starting offset within the section it was built
// from.
type fakeInsn struct {
	size  int
	mnem  string
	group gadget.Group
}

// fakeDisassembler reproduces the exact decode semantics of one scenario
// from spec.md §8 rather than delegating to a real x86/ARM decoder: the
// walker's correctness is about rewind/trim bookkeeping, independent of
// any particular instruction set, and a real decoder can legitimately
// surface extra gadgets a scenario's literal wording doesn't count (see
// DESIGN.md's walker entry).
type fakeDisassembler struct {
	base uint64          // VA the insns map's offsets are relative to
	at   map[int]fakeInsn // keyed by offset from base
}

func (f *fakeDisassembler) Name() string { return "fake" }

// Disassemble decodes sequentially from the start of code, requiring each
// step to land exactly on a fakeInsn boundary; any gap is a decode
// failure, same contract as a real Disassembler.
func (f *fakeDisassembler) Disassemble(code []byte, va uint64) ([]gadget.Instruction, bool) {
	var insns []gadget.Instruction
	offset := int(va - f.base)
	cursor := 0

	for cursor < len(code) {
		fi, ok := f.at[offset+cursor]
		if !ok {
			break
		}
		if cursor+fi.size > len(code) {
			break
		}
		insns = append(insns, gadget.Instruction{
			Address:  va + uint64(cursor),
			Raw:      code[cursor : cursor+fi.size],
			Mnemonic: fi.mnem,
			Group:    fi.group,
		})
		cursor += fi.size
	}

	if len(insns) == 0 {
		return nil, false
	}
	return insns, true
}

var x64Prof = func() cpu.Profile {
	p, err := cpu.ForArch(cpu.X64)
	if err != nil {
		panic(err)
	}
	return p
}()

// Scenario 1: "mov rax, rcx ; ret" at 0x1000. The walker also surfaces the
// bare "ret" at 0x1003 on its own, the same way scenario 3 expects a
// standalone one-byte ret gadget to be found wherever one decodes cleanly
// (see DESIGN.md's walker entry) — so this asserts the expected gadget is
// present, not that it's the only one.
func TestWalkScenario1FindsMovRetGadget(t *testing.T) {
	data := []byte{0x48, 0x89, 0xc8, 0xc3}
	sec := section.New(0x1000, data, section.Executable, ".text")
	dis := &fakeDisassembler{base: 0x1000, at: map[int]fakeInsn{
		0: {size: 3, mnem: "mov rax, rcx", group: gadget.Undefined},
		3: {size: 1, mnem: "ret", group: gadget.Ret},
	}}

	gadgets := Walk(sec, 3, 1, x64Prof, gadget.Ret, dis, Limits{})

	var found *gadget.Gadget
	for i := range gadgets {
		if gadgets[i].Address == 0x1000 {
			found = &gadgets[i]
		}
	}
	if found == nil {
		t.Fatalf("no gadget at 0x1000 among %v", gadgets)
	}
	if want := "mov rax, rcx ; ret ; "; found.Text(false) != want {
		t.Errorf("Text = %q, want %q", found.Text(false), want)
	}
}

// Scenario 2: "call rel0 ; ret" at 0x1000 — the call is disqualifying, so
// the only accepted gadget is the bare ret at 0x1005.
func TestWalkScenario2TrimsDisqualifyingCall(t *testing.T) {
	data := []byte{0xe8, 0x00, 0x00, 0x00, 0x00, 0xc3}
	sec := section.New(0x1000, data, section.Executable, ".text")
	dis := &fakeDisassembler{base: 0x1000, at: map[int]fakeInsn{
		0: {size: 5, mnem: "call rel0", group: gadget.Call},
		5: {size: 1, mnem: "ret", group: gadget.Ret},
	}}

	gadgets := Walk(sec, 5, 1, x64Prof, gadget.Ret, dis, Limits{})
	if len(gadgets) != 1 {
		t.Fatalf("got %d gadgets, want 1: %v", len(gadgets), gadgets)
	}
	if gadgets[0].Address != 0x1005 {
		t.Errorf("Address = 0x%x, want 0x1005", gadgets[0].Address)
	}
	if len(gadgets[0].Insns) != 1 {
		t.Errorf("expected the call to be trimmed, got %d instructions", len(gadgets[0].Insns))
	}
}

// Scenario 3: "c3 c3" at 0x2000 — two distinct one-byte ret gadgets.
func TestWalkScenario3OverlappingTerminators(t *testing.T) {
	data := []byte{0xc3, 0xc3}
	sec := section.New(0x2000, data, section.Executable, ".text")
	dis := &fakeDisassembler{base: 0x2000, at: map[int]fakeInsn{
		0: {size: 1, mnem: "ret", group: gadget.Ret},
		1: {size: 1, mnem: "ret", group: gadget.Ret},
	}}

	var all []gadget.Gadget
	for _, pos := range []int{0, 1} {
		all = append(all, Walk(sec, pos, 1, x64Prof, gadget.Ret, dis, Limits{})...)
	}

	if len(all) != 2 {
		t.Fatalf("got %d gadgets, want 2: %v", len(all), all)
	}
	if all[0].Address != 0x2000 || all[1].Address != 0x2001 {
		t.Errorf("addresses = 0x%x, 0x%x; want 0x2000, 0x2001", all[0].Address, all[1].Address)
	}
}

// Scenario 4: ARM64 RET Xn at 0x400000.
func TestWalkScenario4Arm64Ret(t *testing.T) {
	arm64Prof, err := cpu.ForArch(cpu.ARM64)
	if err != nil {
		t.Fatal(err)
	}

	data := []byte{0xc0, 0x03, 0x5f, 0xd6}
	sec := section.New(0x400000, data, section.Executable, ".text")
	dis := &fakeDisassembler{base: 0x400000, at: map[int]fakeInsn{
		0: {size: 4, mnem: "ret", group: gadget.Ret},
	}}

	gadgets := Walk(sec, 0, 4, arm64Prof, gadget.Ret, dis, Limits{})
	if len(gadgets) != 1 {
		t.Fatalf("got %d gadgets, want 1: %v", len(gadgets), gadgets)
	}
	if gadgets[0].Address != 0x400000 {
		t.Errorf("Address = 0x%x, want 0x400000", gadgets[0].Address)
	}
	if len(gadgets[0].Insns) != 1 || gadgets[0].Insns[0].Group != gadget.Ret {
		t.Errorf("expected one Ret instruction, got %v", gadgets[0].Insns)
	}
}

// Scenario 6: a long run of NOPs followed by a ret; the walker must not
// rewind past MaxRewind bytes before the terminator.
func TestWalkScenario6BoundedRewind(t *testing.T) {
	w := x64Prof.MaxRewind
	nopCount := w + 4
	data := make([]byte, nopCount+1)
	for i := range data[:nopCount] {
		data[i] = 0x90
	}
	data[nopCount] = 0xc3

	sec := section.New(0x3000, data, section.Executable, ".text")

	at := map[int]fakeInsn{nopCount: {size: 1, mnem: "ret", group: gadget.Ret}}
	for i := 0; i < nopCount; i++ {
		at[i] = fakeInsn{size: 1, mnem: "nop", group: gadget.Undefined}
	}
	dis := &fakeDisassembler{base: 0x3000, at: at}

	gadgets := Walk(sec, nopCount, 1, x64Prof, gadget.Ret, dis, Limits{})
	if len(gadgets) == 0 {
		t.Fatal("expected at least one gadget")
	}

	minAddr := sec.BaseVA + uint64(nopCount-w)
	for _, g := range gadgets {
		if g.Address < minAddr {
			t.Errorf("gadget at 0x%x rewound past the max_rewind boundary 0x%x", g.Address, minAddr)
		}
	}
}

// firstByteDisassembler always "succeeds", decoding exactly one byte from
// the start of code regardless of how long code is — a partial decode
// (spec.md §6's "may decode fewer than all bytes"), never a failure. It
// exists to prove invalid_run tracks decode failure, not window coverage.
type firstByteDisassembler struct{}

func (firstByteDisassembler) Name() string { return "first-byte" }

func (firstByteDisassembler) Disassemble(code []byte, va uint64) ([]gadget.Instruction, bool) {
	if len(code) == 0 {
		return nil, false
	}
	group := gadget.Undefined
	mnem := "nop"
	if code[0] == 0xc3 {
		group = gadget.Ret
		mnem = "ret"
	}
	return []gadget.Instruction{{Address: va, Raw: code[:1], Mnemonic: mnem, Group: group}}, true
}

// A run of consecutive partial-but-successful decodes must not accumulate
// toward invalid_run: gating on full-window coverage (rather than on
// decode failure alone) would abandon rewinding before reaching the
// max_rewind boundary, under-reporting the gadget that starts there.
func TestWalkPartialDecodeDoesNotCountAsInvalid(t *testing.T) {
	w := x64Prof.MaxRewind // 16
	data := make([]byte, w+1)
	for i := range data {
		data[i] = 0x90
	}
	data[0] = 0xc3   // the rewind-boundary terminator, w bytes before pos
	data[w] = 0xc3   // the originally matched terminator, at pos

	sec := section.New(0x3000, data, section.Executable, ".text")
	dis := firstByteDisassembler{}

	gadgets := Walk(sec, w, 1, x64Prof, gadget.Ret, dis, Limits{})

	want := map[uint64]bool{0x3000: false, 0x3000 + uint64(w): false}
	for _, g := range gadgets {
		if _, ok := want[g.Address]; !ok {
			t.Errorf("unexpected gadget at 0x%x", g.Address)
			continue
		}
		want[g.Address] = true
	}
	for addr, found := range want {
		if !found {
			t.Errorf("missing gadget at 0x%x (a coverage-gated invalid_run would stop rewinding before here)", addr)
		}
	}
}

func TestTrimDisqualifyingPrefixKeepsTerminatorAlone(t *testing.T) {
	insns := []gadget.Instruction{
		{Mnemonic: "call", Group: gadget.Call},
		{Mnemonic: "nop", Group: gadget.Undefined},
		{Mnemonic: "ret", Group: gadget.Ret},
	}
	got := trimDisqualifyingPrefix(insns)
	if len(got) != 2 || got[0].Mnemonic != "nop" || got[1].Mnemonic != "ret" {
		t.Errorf("trimDisqualifyingPrefix() = %v, want [nop ret]", got)
	}
}

func TestTrimDisqualifyingPrefixNoDisqualifier(t *testing.T) {
	insns := []gadget.Instruction{
		{Mnemonic: "nop", Group: gadget.Undefined},
		{Mnemonic: "nop", Group: gadget.Undefined},
		{Mnemonic: "ret", Group: gadget.Ret},
	}
	got := trimDisqualifyingPrefix(insns)
	if len(got) != 3 {
		t.Errorf("trimDisqualifyingPrefix() dropped instructions with no disqualifier: %v", got)
	}
}

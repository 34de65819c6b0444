// Package gadget holds the data model shared by every stage of the
// discovery pipeline: decoded instructions and the ROP gadgets built from
// them.
package gadget

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Group classifies an Instruction's control-transfer semantics. It mirrors
// the capstone instruction groups the original tool matched against, minus
// the ones that don't matter to gadget discovery.
type Group int

// Instruction groups.
const (
	Undefined Group = iota
	Jump
	Call
	Ret
	Int
	Iret
	Privileged
)

func (g Group) String() string {
	switch g {
	case Jump:
		return "jmp"
	case Call:
		return "call"
	case Ret:
		return "ret"
	case Int:
		return "int"
	case Iret:
		return "iret"
	case Privileged:
		return "privileged"
	default:
		return "undefined"
	}
}

// Disqualifying reports whether an instruction of this group may not appear
// anywhere in a gadget except as its terminator.
func (g Group) Disqualifying() bool {
	switch g {
	case Jump, Call, Ret, Int, Iret, Privileged:
		return true
	default:
		return false
	}
}

// Instruction is a single decoded machine instruction.
type Instruction struct {
	Address  uint64
	Raw      []byte
	Mnemonic string
	Operands string
	Group    Group
}

// Size is the instruction's length in bytes.
func (i Instruction) Size() int { return len(i.Raw) }

// Text renders the instruction as "mnemonic operands", optionally
// colorized the way the original's `colored` crate did (mnemonic cyan,
// operands bold).
func (i Instruction) Text(useColor bool) string {
	if !useColor {
		if i.Operands == "" {
			return i.Mnemonic
		}
		return i.Mnemonic + " " + i.Operands
	}

	mnemo := color.CyanString(i.Mnemonic)
	if i.Operands == "" {
		return mnemo
	}
	return mnemo + " " + color.New(color.Bold).Sprint(i.Operands)
}

func (i Instruction) String() string {
	return fmt.Sprintf("Instruction(addr=0x%x, size=%d, text=%q, group=%s)", i.Address, i.Size(), i.Text(false), i.Group)
}

// Gadget is a short, contiguous instruction sequence ending in a
// control-transfer instruction.
type Gadget struct {
	Address uint64
	Insns   []Instruction
}

// New builds a Gadget from its (address-ascending, contiguous) instructions.
// It panics if insns is empty: the caller is always expected to have found
// at least the terminator before constructing a Gadget.
func New(insns []Instruction) Gadget {
	if len(insns) == 0 {
		panic("gadget.New: empty instruction list")
	}
	return Gadget{Address: insns[0].Address, Insns: insns}
}

// Size is the sum of the byte length of every instruction in the gadget.
func (g Gadget) Size() int {
	n := 0
	for _, i := range g.Insns {
		n += i.Size()
	}
	return n
}

// Raw is the concatenation of every instruction's raw bytes.
func (g Gadget) Raw() []byte {
	buf := make([]byte, 0, g.Size())
	for _, i := range g.Insns {
		buf = append(buf, i.Raw...)
	}
	return buf
}

// Text is the canonical "mnem ops ; mnem ops ; " rendering used both for
// console/file output and as the deduplication key.
func (g Gadget) Text(useColor bool) string {
	var sb strings.Builder
	for _, i := range g.Insns {
		sb.WriteString(i.Text(useColor))
		sb.WriteString(" ; ")
	}
	return sb.String()
}

func (g Gadget) String() string {
	return fmt.Sprintf("Gadget(addr=0x%x, text=%q)", g.Address, g.Text(false))
}

package disasm

import (
	"golang.org/x/arch/arm/armasm"

	"ropgadget/gadget"
)

// armDisassembler decodes 32-bit ARM code with golang.org/x/arch/arm/armasm.
type armDisassembler struct{}

func (armDisassembler) Name() string { return "armasm(arm32)" }

func (armDisassembler) Disassemble(code []byte, va uint64) ([]gadget.Instruction, bool) {
	var insns []gadget.Instruction
	offset := 0

	for offset+4 <= len(code) {
		inst, err := armasm.Decode(code[offset:], armasm.ModeARM)
		if err != nil || inst.Len == 0 {
			break
		}

		addr := va + uint64(offset)
		mnemo, ops := splitSyntax(inst.String())

		insns = append(insns, gadget.Instruction{
			Address:  addr,
			Raw:      append([]byte(nil), code[offset:offset+inst.Len]...),
			Mnemonic: mnemo,
			Operands: ops,
			Group:    armGroup(inst),
		})

		offset += inst.Len
	}

	if len(insns) == 0 {
		return nil, false
	}
	return insns, true
}

// armGroup classifies a decoded ARM instruction. ARM32 has no dedicated
// "return" mnemonic: BX LR is the return-by-convention idiom, so BX must be
// special-cased on its register operand the same way the CPU profile
// distinguishes the BX-LR byte pattern (a Returns entry) from BX-Rn-any
// (a Calls entry, spec.md "4.3 Branch and Exchange").
func armGroup(inst armasm.Inst) gadget.Group {
	switch inst.Op {
	case armasm.BX:
		if reg, ok := inst.Args[0].(armasm.Reg); ok && reg == armasm.LR {
			return gadget.Ret
		}
		return gadget.Call
	case armasm.BLX, armasm.BL:
		return gadget.Call
	case armasm.B:
		return gadget.Jump
	case armasm.SVC:
		return gadget.Int
	case armasm.MRS, armasm.MSR:
		return gadget.Privileged
	default:
		return gadget.Undefined
	}
}

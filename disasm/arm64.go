package disasm

import (
	"golang.org/x/arch/arm64/arm64asm"

	"ropgadget/gadget"
)

// arm64Disassembler decodes AArch64 code with golang.org/x/arch/arm64/arm64asm.
type arm64Disassembler struct{}

func (arm64Disassembler) Name() string { return "arm64asm(arm64)" }

func (arm64Disassembler) Disassemble(code []byte, va uint64) ([]gadget.Instruction, bool) {
	var insns []gadget.Instruction
	offset := 0

	const insnLen = 4 // every AArch64 instruction is a fixed 4 bytes
	for offset+insnLen <= len(code) {
		inst, err := arm64asm.Decode(code[offset:])
		if err != nil {
			break
		}

		addr := va + uint64(offset)
		mnemo, ops := splitSyntax(inst.String())

		insns = append(insns, gadget.Instruction{
			Address:  addr,
			Raw:      append([]byte(nil), code[offset:offset+insnLen]...),
			Mnemonic: mnemo,
			Operands: ops,
			Group:    arm64Group(inst.Op),
		})

		offset += insnLen
	}

	if len(insns) == 0 {
		return nil, false
	}
	return insns, true
}

// ARM64 dedicates distinct mnemonics to RET, BR and BLR (they differ in the
// opcode field, not just the register operand), so unlike ARM32 no operand
// inspection is needed here.
func arm64Group(op arm64asm.Op) gadget.Group {
	switch op {
	case arm64asm.RET:
		return gadget.Ret
	case arm64asm.BLR, arm64asm.BL:
		return gadget.Call
	case arm64asm.BR, arm64asm.B:
		return gadget.Jump
	case arm64asm.SVC, arm64asm.HVC, arm64asm.SMC:
		return gadget.Int
	case arm64asm.ERET:
		return gadget.Iret
	case arm64asm.MRS, arm64asm.MSR, arm64asm.HLT, arm64asm.BRK, arm64asm.DRPS:
		return gadget.Privileged
	default:
		return gadget.Undefined
	}
}

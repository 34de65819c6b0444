package disasm

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"ropgadget/gadget"
)

// x86Disassembler decodes x86/x86-64 code with golang.org/x/arch/x86/x86asm,
// replaying the original tool's capstone-backed loop: decode instructions
// one after another until the buffer is exhausted or a decode fails, then
// tag each with the gadget.Group the Backward Walker reasons about.
type x86Disassembler struct {
	mode int // 32 or 64
}

func (d x86Disassembler) Name() string {
	if d.mode == 64 {
		return "x86asm(x86-64)"
	}
	return "x86asm(x86-32)"
}

func (d x86Disassembler) Disassemble(code []byte, va uint64) ([]gadget.Instruction, bool) {
	var insns []gadget.Instruction
	offset := 0

	for offset < len(code) {
		inst, err := x86asm.Decode(code[offset:], d.mode)
		if err != nil || inst.Len == 0 {
			break
		}

		addr := va + uint64(offset)
		mnemo, ops := splitSyntax(x86asm.IntelSyntax(inst, addr, nil))

		insns = append(insns, gadget.Instruction{
			Address:  addr,
			Raw:      append([]byte(nil), code[offset:offset+inst.Len]...),
			Mnemonic: mnemo,
			Operands: ops,
			Group:    x86Group(inst.Op),
		})

		offset += inst.Len
	}

	if len(insns) == 0 {
		return nil, false
	}
	return insns, true
}

func splitSyntax(s string) (mnemonic, operands string) {
	s = strings.TrimSpace(s)
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

func x86Group(op x86asm.Op) gadget.Group {
	switch op {
	case x86asm.RET, x86asm.LRET:
		return gadget.Ret
	case x86asm.CALL, x86asm.LCALL:
		return gadget.Call
	case x86asm.JMP, x86asm.LJMP:
		return gadget.Jump
	case x86asm.INT, x86asm.INTO:
		return gadget.Int
	case x86asm.IRET, x86asm.IRETD, x86asm.IRETQ:
		return gadget.Iret
	case x86asm.HLT, x86asm.CLI, x86asm.STI, x86asm.CLTS, x86asm.INVD, x86asm.WBINVD,
		x86asm.IN, x86asm.OUT, x86asm.LGDT, x86asm.LIDT, x86asm.LLDT, x86asm.LTR,
		x86asm.LMSW, x86asm.INVLPG, x86asm.RDMSR, x86asm.WRMSR, x86asm.RSM,
		x86asm.SYSRET, x86asm.SYSEXIT:
		return gadget.Privileged
	default:
		return gadget.Undefined
	}
}

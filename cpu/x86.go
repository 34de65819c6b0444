package cpu

// x86 and x64 terminator patterns, grounded on cpu/x86.rs and cpu/x64.rs in
// the original source: ret/retf/ret-imm/retf-imm for returns, and the
// various call/jmp encodings behind a ModRM byte (0xFF /2 call, /4 jmp) or a
// direct rel32 (0xE8 call, 0xE9 jmp) for calls/jumps. x86 patterns are a
// single byte (the opcode alone is enough to find a candidate position;
// the backward walker's disassembly pass is what validates the full
// instruction), matching the original's windows().filter(|y| y[0] ==
// ret.first()) shortcut.

func exact(b ...byte) Pattern {
	op := make([]byte, len(b))
	mask := make([]byte, len(b))
	for i, v := range b {
		op[i] = v
		mask[i] = 0xff
	}
	return Pattern{Opcode: op, Mask: mask}
}

var x86Profile = Profile{
	Arch:        X86,
	PointerSize: 4,
	InsnStride:  1,
	MaxRewind:   16,
	Returns: []Pattern{
		exact(0xc3), // ret
		exact(0xc2), // ret imm16
		exact(0xcb), // retf
		exact(0xca), // retf imm16
	},
	Calls: []Pattern{
		exact(0xff), // call/jmp r/m (group opcode in ModRM disambiguates)
		exact(0xe8), // call rel32
	},
	Jumps: []Pattern{
		exact(0xff), // jmp r/m
		exact(0xe9), // jmp rel32
	},
}

var x64Profile = Profile{
	Arch:        X64,
	PointerSize: 8,
	InsnStride:  1,
	MaxRewind:   16,
	Returns: []Pattern{
		exact(0xc3), // ret
		exact(0xcb), // retf
		exact(0xc2), // ret imm16
		exact(0xca), // retf imm16
	},
	Calls: []Pattern{
		exact(0xff), // call r/m
		exact(0xe8), // call rel32
	},
	Jumps: []Pattern{
		exact(0xff), // jmp r/m
		exact(0xe9), // jmp rel32
	},
}

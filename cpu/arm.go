package cpu

import "encoding/binary"

// ARM/ARM64 terminator patterns, grounded on cpu/arm.rs in the original
// source. Instructions here are fixed 4 bytes; opcode/mask words are
// written in the human-readable big-endian form the ARM ARM quotes
// encodings in, then byte-swapped into the little-endian in-memory layout
// the Matcher compares against (spec.md §4.1 "Pattern endianness").
func armPattern(word, mask uint32) Pattern {
	opcode := word & mask

	ob := make([]byte, 4)
	binary.LittleEndian.PutUint32(ob, opcode)

	mb := make([]byte, 4)
	binary.LittleEndian.PutUint32(mb, mask)

	return Pattern{Opcode: ob, Mask: mb}
}

var armProfile = Profile{
	Arch:        ARM,
	PointerSize: 4,
	InsnStride:  4,
	MaxRewind:   16,
	Returns: []Pattern{
		armPattern(0xE12FFF1E, 0xFFFFFFFF), // BX LR
	},
	Calls: []Pattern{
		armPattern(0xE12FFF10, 0xFFFFFFF0), // BX Rn (4.3 Branch and Exchange)
	},
	Jumps: nil,
}

var arm64Profile = Profile{
	Arch:        ARM64,
	PointerSize: 8,
	InsnStride:  4,
	MaxRewind:   16,
	Returns: []Pattern{
		armPattern(0xD65F0000, 0xFFFFF000), // RET Xn (any register)
	},
	Calls: []Pattern{
		armPattern(0xD63F0000, 0xFFFFFC1F), // BLR Xn (C6.2.35)
	},
	Jumps: []Pattern{
		armPattern(0xD61F0000, 0xFFFFFC1F), // BR Xn (C6.2.37)
	},
}

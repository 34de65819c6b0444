// Package section models one contiguous, immutable executable region of a
// loaded binary image.
package section

import "fmt"

// Permission is a bitmask of the region's memory protection flags.
type Permission uint8

// Permission bits.
const (
	None       Permission = 0
	Readable   Permission = 1 << 0
	Writable   Permission = 1 << 1
	Executable Permission = 1 << 2
)

func (p Permission) String() string {
	s := []byte{'-', '-', '-'}
	if p&Readable != 0 {
		s[0] = 'r'
	}
	if p&Writable != 0 {
		s[1] = 'w'
	}
	if p&Executable != 0 {
		s[2] = 'x'
	}
	return string(s)
}

// Section is an immutable view of one loaded, contiguous region of a
// binary image: its virtual address, its raw bytes, its permissions, and
// an optional human-readable name. Once constructed it is never mutated;
// workers only ever read from Data.
type Section struct {
	BaseVA     uint64
	Data       []byte
	Permission Permission
	Name       string
}

// New builds a Section. data is not copied; callers should not mutate it
// afterwards.
func New(baseVA uint64, data []byte, perm Permission, name string) Section {
	return Section{BaseVA: baseVA, Data: data, Permission: perm, Name: name}
}

// EndVA is the address one past the section's last byte.
func (s Section) EndVA() uint64 { return s.BaseVA + uint64(len(s.Data)) }

// Executable reports whether the section is marked executable; only these
// sections enter the gadget-discovery pipeline.
func (s Section) Executable() bool { return s.Permission&Executable != 0 }

// Contains reports whether va lies within [BaseVA, EndVA).
func (s Section) Contains(va uint64) bool { return va >= s.BaseVA && va < s.EndVA() }

func (s Section) String() string {
	name := s.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("Section(name=%q, base=0x%x, size=0x%x, perm=%s)", name, s.BaseVA, len(s.Data), s.Permission)
}

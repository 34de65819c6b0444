// Package format loads a container image and extracts the executable
// sections and architecture a Session needs (spec.md §1's "container
// format parsing" external collaborator, and §6's FILE argument). Parsing
// itself is explicitly out of the core engine's scope; this package is the
// thin adapter layer between the filesystem and section.Section.
package format

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"fmt"
	"os"

	"ropgadget/cpu"
	"ropgadget/errtag"
	"ropgadget/section"
)

// Image is a loaded binary: its architecture, entry point, and every
// executable section worth scanning.
type Image struct {
	Arch       cpu.Arch
	EntryPoint uint64
	Sections   []section.Section
}

// Load opens path and dispatches to the right container parser by sniffing
// its magic bytes. There is no third-party ELF/PE/Mach-O parsing library in
// the ecosystem this repo draws from (only generators/encoders turned up
// during research, never decoders), so this layer is stdlib debug/elf,
// debug/pe and debug/macho by necessity, not by default.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errtag.Wrap(errtag.IoFailure, fmt.Sprintf("format: open %s: %v", path, err))
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := f.ReadAt(magic, 0); err != nil {
		return nil, errtag.Wrap(errtag.InvalidInput, fmt.Sprintf("format: %s too short to identify", path))
	}

	switch {
	case magic[0] == 0x7f && magic[1] == 'E' && magic[2] == 'L' && magic[3] == 'F':
		return loadELF(path)
	case magic[0] == 'M' && magic[1] == 'Z':
		return loadPE(path)
	case isMachO(magic):
		return loadMachO(path)
	default:
		return nil, errtag.Wrap(errtag.InvalidInput, fmt.Sprintf("format: %s is not a recognized ELF, PE or Mach-O image", path))
	}
}

func isMachO(magic []byte) bool {
	be := uint32(magic[0])<<24 | uint32(magic[1])<<16 | uint32(magic[2])<<8 | uint32(magic[3])
	switch be {
	case macho.Magic32, macho.Magic64, macho.MagicFat,
		0xcefaedfe /* little-endian 32 */, 0xcffaedfe /* little-endian 64 */ :
		return true
	default:
		return false
	}
}

func loadELF(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errtag.Wrap(errtag.InvalidInput, fmt.Sprintf("format: parse ELF %s: %v", path, err))
	}
	defer f.Close()

	arch, err := elfArch(f.Machine)
	if err != nil {
		return nil, err
	}

	img := &Image{Arch: arch, EntryPoint: f.Entry}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Flags&elf.PF_X == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			continue
		}
		img.Sections = append(img.Sections, section.New(prog.Vaddr, data, permFromELF(prog.Flags), ""))
	}
	return img, nil
}

func permFromELF(flags elf.ProgFlag) section.Permission {
	var p section.Permission
	if flags&elf.PF_R != 0 {
		p |= section.Readable
	}
	if flags&elf.PF_W != 0 {
		p |= section.Writable
	}
	if flags&elf.PF_X != 0 {
		p |= section.Executable
	}
	return p
}

func elfArch(m elf.Machine) (cpu.Arch, error) {
	switch m {
	case elf.EM_386:
		return cpu.X86, nil
	case elf.EM_X86_64:
		return cpu.X64, nil
	case elf.EM_ARM:
		return cpu.ARM, nil
	case elf.EM_AARCH64:
		return cpu.ARM64, nil
	default:
		return 0, errtag.Wrap(errtag.UnsupportedArchitecture, fmt.Sprintf("format: unsupported ELF machine %v", m))
	}
}

func loadPE(path string) (*Image, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, errtag.Wrap(errtag.InvalidInput, fmt.Sprintf("format: parse PE %s: %v", path, err))
	}
	defer f.Close()

	arch, err := peArch(f.Machine)
	if err != nil {
		return nil, err
	}

	var imageBase, entry uint64
	switch opt := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(opt.ImageBase)
		entry = uint64(opt.AddressOfEntryPoint)
	case *pe.OptionalHeader64:
		imageBase = opt.ImageBase
		entry = uint64(opt.AddressOfEntryPoint)
	}

	img := &Image{Arch: arch, EntryPoint: imageBase + entry}
	for _, sec := range f.Sections {
		if sec.Characteristics&pe.IMAGE_SCN_MEM_EXECUTE == 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			continue
		}
		img.Sections = append(img.Sections, section.New(imageBase+uint64(sec.VirtualAddress), data, permFromPE(sec.Characteristics), sec.Name))
	}
	return img, nil
}

func permFromPE(c uint32) section.Permission {
	var p section.Permission
	if c&pe.IMAGE_SCN_MEM_READ != 0 {
		p |= section.Readable
	}
	if c&pe.IMAGE_SCN_MEM_WRITE != 0 {
		p |= section.Writable
	}
	if c&pe.IMAGE_SCN_MEM_EXECUTE != 0 {
		p |= section.Executable
	}
	return p
}

func peArch(m uint16) (cpu.Arch, error) {
	switch m {
	case pe.IMAGE_FILE_MACHINE_I386:
		return cpu.X86, nil
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return cpu.X64, nil
	case pe.IMAGE_FILE_MACHINE_ARM, pe.IMAGE_FILE_MACHINE_ARMNT:
		return cpu.ARM, nil
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return cpu.ARM64, nil
	default:
		return 0, errtag.Wrap(errtag.UnsupportedArchitecture, fmt.Sprintf("format: unsupported PE machine 0x%x", m))
	}
}

func loadMachO(path string) (*Image, error) {
	f, err := macho.Open(path)
	if err != nil {
		return nil, errtag.Wrap(errtag.InvalidInput, fmt.Sprintf("format: parse Mach-O %s: %v", path, err))
	}
	defer f.Close()

	arch, err := machoArch(f.Cpu)
	if err != nil {
		return nil, err
	}

	img := &Image{Arch: arch}
	for _, l := range f.Loads {
		seg, ok := l.(*macho.Segment)
		if !ok || seg.Maxprot&0x4 == 0 { // VM_PROT_EXECUTE
			continue
		}
		data, err := seg.Data()
		if err != nil {
			continue
		}
		img.Sections = append(img.Sections, section.New(seg.Addr, data, permFromMachO(seg.Maxprot), seg.Name))
	}
	return img, nil
}

func permFromMachO(prot uint32) section.Permission {
	var p section.Permission
	if prot&0x1 != 0 {
		p |= section.Readable
	}
	if prot&0x2 != 0 {
		p |= section.Writable
	}
	if prot&0x4 != 0 {
		p |= section.Executable
	}
	return p
}

func machoArch(c macho.Cpu) (cpu.Arch, error) {
	switch c {
	case macho.Cpu386:
		return cpu.X86, nil
	case macho.CpuAmd64:
		return cpu.X64, nil
	case macho.CpuArm:
		return cpu.ARM, nil
	case macho.CpuArm64:
		return cpu.ARM64, nil
	default:
		return 0, errtag.Wrap(errtag.UnsupportedArchitecture, fmt.Sprintf("format: unsupported Mach-O cpu %v", c))
	}
}

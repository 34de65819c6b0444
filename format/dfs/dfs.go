// Package dfs loads Acorn DFS disk images, as a secondary loader alongside
// format.Load.
// Unlike ELF/PE/Mach-O, a DFS image carries no architecture tag of its own:
// the catalog only tells us where each file's bytes and load address are,
// so callers must supply the architecture out of band (spec.md's
// --architecture flag covers exactly this case).
package dfs

import (
	"fmt"
	"os"
	"strings"

	"ropgadget/cpu"
	"ropgadget/errtag"
	"ropgadget/section"
)

// Catalog is one file entry in a DFS disk's catalog.
type Catalog struct {
	Filename    string
	Dir         string
	Length      int
	LoadAddr    int
	ExecAddr    int
	StartSector int
	Attr        byte
}

// Image is a parsed DFS disk: its catalog metadata plus the raw sector
// data needed to recover any file's bytes.
type Image struct {
	Title   string
	Sectors int
	BootOpt int
	Cycle   int
	Files   []Catalog

	raw []byte
}

// Parse reads the disk and file catalogs out of a raw DFS image.
//
// Resources:
//
//	http://mdfs.net/Docs/Comp/Disk/Format/DFS
//	http://chrisacorns.computinghistory.org.uk/docs/Acorn/Manuals/Acorn_DiscSystemUGI2.pdf
func Parse(raw []byte) (*Image, error) {
	if len(raw) < 0x200 {
		return nil, errtag.Wrap(errtag.InvalidInput, "dfs: image too short for a DFS catalog")
	}

	img := &Image{raw: raw}

	nfiles := int(raw[0x105]) / 8
	img.Title = strings.TrimRight(string(raw[0:8])+string(raw[0x100:0x104]), "\x00")
	img.Sectors = int(raw[0x107]) + int(raw[0x106]&3)*256
	img.BootOpt = int(raw[0x106]&48) >> 4
	img.Cycle = int(raw[0x104])
	img.Files = make([]Catalog, nfiles)

	for i := 0; i < nfiles; i++ {
		file := &img.Files[i]

		offset := 0x008 + i*8
		file.Filename, file.Attr = readFilename(raw[offset : offset+7])
		file.Dir = string(raw[offset+7])

		offset = 0x108 + i*8
		file.Length = int(raw[offset+4]) + int(raw[offset+5])*256 + int(raw[offset+6]&0b110000)*4096
		file.LoadAddr = int(raw[offset+0]) + int(raw[offset+1])*256 + int(raw[offset+6]&0b1100)*16384
		file.ExecAddr = int(raw[offset+2]) + int(raw[offset+3])*256 + int(raw[offset+6]&0b11000000)*1024
		file.StartSector = int(raw[offset+7]) + int(raw[offset+6]&0b11)*256
	}

	return img, nil
}

func readFilename(block []byte) (string, byte) {
	name := make([]byte, len(block))
	var attr byte
	for i, v := range block {
		attr |= (v & 0x80) >> (7 - i)
		name[i] = v & 0x7f
	}
	return strings.TrimRight(string(name), " "), attr
}

// Data returns a file's raw content bytes as stored on the disk's sectors.
func (img *Image) Data(c Catalog) []byte {
	start := c.StartSector * 256
	end := start + c.Length
	if start < 0 || end > len(img.raw) {
		return nil
	}
	return img.raw[start:end]
}

// Load reads a DFS disk image and turns every cataloged file into an
// executable Section, so it can stand in as a format.Loader in front of
// raw machine code dumped out of an emulator or archived off an original
// floppy. Since DFS carries no architecture tag, the caller must already
// know it and pass it in.
func Load(path string, arch cpu.Arch) ([]section.Section, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errtag.Wrap(errtag.IoFailure, fmt.Sprintf("dfs: read %s: %v", path, err))
	}

	img, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	sections := make([]section.Section, 0, len(img.Files))
	for _, f := range img.Files {
		data := img.Data(f)
		if data == nil {
			continue
		}
		sections = append(sections, section.New(uint64(f.LoadAddr), data, section.Readable|section.Executable, f.Filename))
	}
	return sections, nil
}

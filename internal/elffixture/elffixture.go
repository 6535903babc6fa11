// Package elffixture writes minimal little-endian ELF64 files carrying a
// symbol table, for tests that read symbols from disk.
package elffixture

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
)

// Symbol is one entry of the generated .symtab. Defined symbols are
// placed in .text; the others are undefined.
type Symbol struct {
	Name    string
	Value   uint64
	Type    elf.SymType
	Defined bool
}

const (
	textIndex = 1
	symIndex  = 2
	strIndex  = 3
	shstrndx  = 4
	textSize  = 16
)

// Write creates an x86-64 executable at path whose symbol table holds syms
// in order.
func Write(path string, syms []Symbol) error {
	data, err := Build(syms)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Build returns the file contents Write would produce.
func Build(syms []Symbol) ([]byte, error) {
	strtab := []byte{0}
	entries := []elf.Sym64{{}}
	for _, s := range syms {
		sym := elf.Sym64{
			Name:  uint32(len(strtab)),
			Info:  elf.ST_INFO(elf.STB_GLOBAL, s.Type),
			Value: s.Value,
		}
		switch {
		case s.Type == elf.STT_FILE:
			sym.Info = elf.ST_INFO(elf.STB_LOCAL, elf.STT_FILE)
			sym.Shndx = uint16(elf.SHN_ABS)
		case s.Defined:
			sym.Shndx = textIndex
		}
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
		entries = append(entries, sym)
	}

	shstrtab := []byte{0}
	names := make(map[string]uint32)
	for _, n := range []string{".text", ".symtab", ".strtab", ".shstrtab"} {
		names[n] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, n...)
		shstrtab = append(shstrtab, 0)
	}

	var body bytes.Buffer
	body.Write(make([]byte, 64))

	textOff := uint64(body.Len())
	body.Write(make([]byte, textSize))

	symOff := uint64(body.Len())
	for _, e := range entries {
		if err := binary.Write(&body, binary.LittleEndian, &e); err != nil {
			return nil, err
		}
	}
	symSize := uint64(body.Len()) - symOff

	strOff := uint64(body.Len())
	body.Write(strtab)

	shstrOff := uint64(body.Len())
	body.Write(shstrtab)

	for body.Len()%8 != 0 {
		body.WriteByte(0)
	}
	shoff := uint64(body.Len())

	sections := []elf.Section64{
		{},
		{
			Name: names[".text"], Type: uint32(elf.SHT_PROGBITS),
			Flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
			Addr:  0x401000, Off: textOff, Size: textSize, Addralign: 16,
		},
		{
			Name: names[".symtab"], Type: uint32(elf.SHT_SYMTAB),
			Off: symOff, Size: symSize, Link: strIndex, Info: 1,
			Addralign: 8, Entsize: elf.Sym64Size,
		},
		{
			Name: names[".strtab"], Type: uint32(elf.SHT_STRTAB),
			Off: strOff, Size: uint64(len(strtab)), Addralign: 1,
		},
		{
			Name: names[".shstrtab"], Type: uint32(elf.SHT_STRTAB),
			Off: shstrOff, Size: uint64(len(shstrtab)), Addralign: 1,
		},
	}
	for _, s := range sections {
		if err := binary.Write(&body, binary.LittleEndian, &s); err != nil {
			return nil, err
		}
	}

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0x401000,
		Shoff:     shoff,
		Ehsize:    64,
		Shentsize: 64,
		Shnum:     uint16(len(sections)),
		Shstrndx:  shstrndx,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var head bytes.Buffer
	if err := binary.Write(&head, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	out := body.Bytes()
	copy(out, head.Bytes())
	return out, nil
}

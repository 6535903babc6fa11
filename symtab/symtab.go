// Package symtab reads symbol tables from ELF and Mach-O object files and
// demangles their C++ names on demand.
package symtab

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"github.com/blacktop/go-macho"

	"github.com/skdltmxn/cxxfilt-go/demangle"
)

// Format identifies an object file format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatELF
	FormatMachO
)

func (f Format) String() string {
	switch f {
	case FormatELF:
		return "elf"
	case FormatMachO:
		return "macho"
	default:
		return "unknown"
	}
}

var machoMagics = [][]byte{
	{0xfe, 0xed, 0xfa, 0xce},
	{0xfe, 0xed, 0xfa, 0xcf},
	{0xce, 0xfa, 0xed, 0xfe},
	{0xcf, 0xfa, 0xed, 0xfe},
}

// Sniff identifies the format of an object file from its leading bytes.
func Sniff(magic []byte) Format {
	if bytes.HasPrefix(magic, []byte(elf.ELFMAG)) {
		return FormatELF
	}
	for _, m := range machoMagics {
		if bytes.HasPrefix(magic, m) {
			return FormatMachO
		}
	}
	return FormatUnknown
}

// Symbol is one entry of a symbol table.
type Symbol struct {
	name    string
	address uint64
	defined bool
	format  Format

	demangledName string
	demangledOnce sync.Once
}

// NewSymbol creates a symbol that did not come from a file.
func NewSymbol(name string, address uint64, defined bool, format Format) *Symbol {
	return &Symbol{name: name, address: address, defined: defined, format: format}
}

func (s *Symbol) Name() string    { return s.name }
func (s *Symbol) Address() uint64 { return s.address }
func (s *Symbol) IsDefined() bool { return s.defined }
func (s *Symbol) Format() Format  { return s.format }

// linkerName strips the underscore Mach-O prepends to C symbol names.
func (s *Symbol) linkerName() string {
	if s.format == FormatMachO && strings.HasPrefix(s.name, "__Z") {
		return s.name[1:]
	}
	return s.name
}

// IsMangled reports whether the symbol carries an Itanium C++ name.
func (s *Symbol) IsMangled() bool {
	return demangle.IsMangled(s.linkerName())
}

// Demangle decodes the symbol name with the given rendering options.
func (s *Symbol) Demangle(opts ...demangle.Option) (string, error) {
	return demangle.Demangle(s.linkerName(), opts...)
}

// DemangledName returns the demangled name, or the raw name if it cannot
// be demangled. The result is computed once.
func (s *Symbol) DemangledName() string {
	s.demangledOnce.Do(func() {
		if result, err := s.Demangle(); err == nil {
			s.demangledName = result
		} else {
			s.demangledName = s.name
		}
	})
	return s.demangledName
}

// File is an opened object file.
// It is safe for concurrent read access after opening.
type File struct {
	path   string
	format Format
	closer io.Closer

	elf   *elf.File
	macho *macho.File

	symbols     []*Symbol
	symbolsOnce sync.Once
	symbolsErr  error

	byName     map[string]*Symbol
	byNameOnce sync.Once

	closed bool
	mu     sync.RWMutex
}

// Open opens an ELF or Mach-O file.
func Open(path string) (*File, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("symtab: failed to open file: %w", err)
	}
	magic := make([]byte, 4)
	if _, err := io.ReadFull(fp, magic); err != nil {
		fp.Close()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
		}
		return nil, fmt.Errorf("symtab: failed to read header: %w", err)
	}

	f := &File{path: path, format: Sniff(magic), closer: fp}
	switch f.format {
	case FormatELF:
		f.elf, err = elf.NewFile(fp)
	case FormatMachO:
		f.macho, err = macho.NewFile(fp)
	default:
		fp.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		fp.Close()
		return nil, &LoadError{Path: path, Format: f.format, Err: err}
	}
	return f, nil
}

// Format returns the object file format.
func (f *File) Format() Format {
	return f.format
}

// Close releases resources associated with the file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.closer.Close()
}

func (f *File) load() error {
	f.mu.RLock()
	closed := f.closed
	f.mu.RUnlock()
	if closed {
		return ErrFileClosed
	}

	f.symbolsOnce.Do(func() {
		switch f.format {
		case FormatELF:
			f.symbols, f.symbolsErr = elfSymbols(f.elf)
		case FormatMachO:
			f.symbols, f.symbolsErr = machoSymbols(f.macho)
		}
		if f.symbolsErr != nil && !errors.Is(f.symbolsErr, ErrNoSymbols) {
			f.symbolsErr = &LoadError{Path: f.path, Format: f.format, Err: f.symbolsErr}
		}
	})
	return f.symbolsErr
}

func elfSymbols(ef *elf.File) ([]*Symbol, error) {
	syms, err := ef.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		syms, err = ef.DynamicSymbols()
	}
	if errors.Is(err, elf.ErrNoSymbols) {
		return nil, ErrNoSymbols
	}
	if err != nil {
		return nil, err
	}

	result := make([]*Symbol, 0, len(syms))
	for _, s := range syms {
		if s.Name == "" {
			continue
		}
		switch elf.ST_TYPE(s.Info) {
		case elf.STT_SECTION, elf.STT_FILE:
			continue
		}
		result = append(result, &Symbol{
			name:    s.Name,
			address: s.Value,
			defined: s.Section != elf.SHN_UNDEF,
			format:  FormatELF,
		})
	}
	return result, nil
}

const (
	machoStabMask = 0xe0
	machoTypeMask = 0x0e
	machoUndef    = 0x00
)

func machoSymbols(mf *macho.File) ([]*Symbol, error) {
	if mf.Symtab == nil {
		return nil, ErrNoSymbols
	}

	result := make([]*Symbol, 0, len(mf.Symtab.Syms))
	for _, s := range mf.Symtab.Syms {
		typ := uint8(s.Type)
		if typ&machoStabMask != 0 || s.Name == "" {
			continue
		}
		result = append(result, &Symbol{
			name:    s.Name,
			address: s.Value,
			defined: typ&machoTypeMask != machoUndef,
			format:  FormatMachO,
		})
	}
	return result, nil
}

// Symbols returns an iterator over all symbols in file order.
func (f *File) Symbols() (iter.Seq[*Symbol], error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	return func(yield func(*Symbol) bool) {
		for _, s := range f.symbols {
			if !yield(s) {
				return
			}
		}
	}, nil
}

// Defined returns an iterator over symbols defined in the file.
func (f *File) Defined() (iter.Seq[*Symbol], error) {
	all, err := f.Symbols()
	if err != nil {
		return nil, err
	}
	return func(yield func(*Symbol) bool) {
		for s := range all {
			if s.defined && !yield(s) {
				return
			}
		}
	}, nil
}

// Len returns the number of symbols.
func (f *File) Len() (int, error) {
	if err := f.load(); err != nil {
		return 0, err
	}
	return len(f.symbols), nil
}

// ByName finds a symbol by its raw name. The first symbol wins when a name
// occurs more than once.
func (f *File) ByName(name string) (*Symbol, bool) {
	if f.load() != nil {
		return nil, false
	}
	f.byNameOnce.Do(func() {
		f.byName = make(map[string]*Symbol, len(f.symbols))
		for _, s := range f.symbols {
			if _, ok := f.byName[s.name]; !ok {
				f.byName[s.name] = s
			}
		}
	})
	s, ok := f.byName[name]
	return s, ok
}

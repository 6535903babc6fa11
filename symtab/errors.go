package symtab

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat indicates the file is neither ELF nor Mach-O.
	ErrUnknownFormat = errors.New("symtab: unknown object file format")

	// ErrNoSymbols indicates the file carries no symbol table.
	ErrNoSymbols = errors.New("symtab: no symbol table")

	// ErrFileClosed indicates the file has been closed.
	ErrFileClosed = errors.New("symtab: file is closed")
)

// LoadError describes a failure to read the symbol table of a file.
type LoadError struct {
	Path   string
	Format Format
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("symtab: loading %s symbols from %s: %v", e.Format, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

package main

import (
	"fmt"
	"iter"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/cxxfilt-go/demangle"
	"github.com/skdltmxn/cxxfilt-go/symtab"
)

func newNmCmd(a *app) *cobra.Command {
	var (
		definedOnly bool
		raw         bool
		mangledOnly bool
	)

	cmd := &cobra.Command{
		Use:   "nm <binary>",
		Short: "List the symbols of an ELF or Mach-O file with demangled names",
		Long: `List symbols from an ELF or Mach-O object file.

Each line shows the symbol address, T for defined or U for undefined
symbols, and the demangled name. Names that are not C++ names are
printed as they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := symtab.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var syms iter.Seq[*symtab.Symbol]
			if definedOnly {
				syms, err = f.Defined()
			} else {
				syms, err = f.Symbols()
			}
			if err != nil {
				return fmt.Errorf("failed to read symbols: %w", err)
			}

			opts := a.cfg.DemangleOptions()
			for sym := range syms {
				if mangledOnly && !sym.IsMangled() {
					continue
				}
				printSymbol(a, sym, a.symbolName(sym, raw, opts))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&definedOnly, "defined", false, "only show symbols defined in the file")
	cmd.Flags().BoolVar(&raw, "raw", false, "print mangled names without demangling")
	cmd.Flags().BoolVar(&mangledOnly, "mangled-only", false, "only show C++ mangled symbols")
	return cmd
}

func (a *app) symbolName(sym *symtab.Symbol, raw bool, opts []demangle.Option) string {
	if raw || !sym.IsMangled() {
		return sym.Name()
	}
	if len(opts) == 0 {
		return sym.DemangledName()
	}
	name, err := sym.Demangle(opts...)
	if err != nil {
		a.logger.Debug("decode failed", "symbol", sym.Name(), "err", err)
		return sym.Name()
	}
	return name
}

func printSymbol(a *app, sym *symtab.Symbol, name string) {
	if !sym.IsDefined() {
		fmt.Fprintf(a.output, "%16s U %s\n", "", name)
		return
	}
	fmt.Fprintf(a.output, "%016x T %s\n", sym.Address(), name)
}

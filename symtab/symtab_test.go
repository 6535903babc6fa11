package symtab

import (
	"debug/elf"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skdltmxn/cxxfilt-go/internal/elffixture"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		magic []byte
		want  Format
	}{
		{[]byte("\x7fELF\x02\x01"), FormatELF},
		{[]byte{0xcf, 0xfa, 0xed, 0xfe}, FormatMachO},
		{[]byte{0xfe, 0xed, 0xfa, 0xce}, FormatMachO},
		{[]byte("MZ\x90\x00"), FormatUnknown},
		{nil, FormatUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sniff(tt.magic), "%x", tt.magic)
	}
	assert.Equal(t, "macho", FormatMachO.String())
	assert.Equal(t, "unknown", Format(42).String())
}

func TestOpenUnknownFormat(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("just some text\n"), 0o644))
	_, err := Open(text)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte{0x7f}, 0o644))
	_, err = Open(short)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Open(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.out")
	require.NoError(t, elffixture.Write(path, []elffixture.Symbol{
		{Name: "a.cpp", Type: elf.STT_FILE},
		{Name: "_ZN3foo3barEv", Value: 0x401000, Type: elf.STT_FUNC, Defined: true},
		{Name: "_Z1fv", Type: elf.STT_NOTYPE},
		{Name: "main", Value: 0x401008, Type: elf.STT_FUNC, Defined: true},
	}))
	return path
}

func TestOpenELF(t *testing.T) {
	f, err := Open(writeFixture(t))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, FormatELF, f.Format())

	n, err := f.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := f.Symbols()
	require.NoError(t, err)
	var names, demangled []string
	for s := range all {
		names = append(names, s.Name())
		demangled = append(demangled, s.DemangledName())
	}
	assert.Equal(t, []string{"_ZN3foo3barEv", "_Z1fv", "main"}, names)
	assert.Equal(t, []string{"foo::bar()", "f()", "main"}, demangled)

	defined, err := f.Defined()
	require.NoError(t, err)
	names = nil
	for s := range defined {
		assert.True(t, s.IsDefined())
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"_ZN3foo3barEv", "main"}, names)

	s, ok := f.ByName("_ZN3foo3barEv")
	require.True(t, ok)
	assert.Equal(t, uint64(0x401000), s.Address())
	assert.True(t, s.IsMangled())

	s, ok = f.ByName("_Z1fv")
	require.True(t, ok)
	assert.False(t, s.IsDefined())

	_, ok = f.ByName("a.cpp")
	assert.False(t, ok)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	_, err = f.Symbols()
	assert.ErrorIs(t, err, ErrFileClosed)
}

func TestOpenELFWithoutSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.out")
	require.NoError(t, elffixture.Write(path, nil))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSymbolDemangledName(t *testing.T) {
	tests := []struct {
		sym     *Symbol
		mangled bool
		want    string
	}{
		{NewSymbol("_ZN3foo3barEv", 0x1000, true, FormatELF), true, "foo::bar()"},
		{NewSymbol("__ZN3foo3barEv", 0x1000, true, FormatMachO), true, "foo::bar()"},
		{NewSymbol("__ZN3foo3barEv", 0x1000, true, FormatELF), false, "__ZN3foo3barEv"},
		{NewSymbol("_main", 0, false, FormatMachO), false, "_main"},
		{NewSymbol("_Z1fS9_", 0, false, FormatELF), true, "_Z1fS9_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.mangled, tt.sym.IsMangled(), tt.sym.Name())
		assert.Equal(t, tt.want, tt.sym.DemangledName(), tt.sym.Name())
	}
}

func TestSymbolDemangledNameConcurrent(t *testing.T) {
	sym := NewSymbol("_ZNKSt6vectorIiSaIiEE4sizeEv", 0, true, FormatELF)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = sym.DemangledName()
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "std::vector<int, std::allocator<int>>::size() const", r)
	}
}

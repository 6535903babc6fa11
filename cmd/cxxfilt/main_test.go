package main

import (
	"bytes"
	"debug/elf"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/skdltmxn/cxxfilt-go/demangle"
	"github.com/skdltmxn/cxxfilt-go/internal/config"
	"github.com/skdltmxn/cxxfilt-go/internal/elffixture"
	"github.com/skdltmxn/cxxfilt-go/symtab"
)

// execute runs the command line with stdin and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestFilterArgs(t *testing.T) {
	out, _, err := execute(t, "", "_Z3foov", "main", "_ZN3foo3barEv")
	require.NoError(t, err)
	assert.Equal(t, "foo()\nmain\nfoo::bar()\n", out)
}

func TestFilterStdin(t *testing.T) {
	out, _, err := execute(t, "call _Z3foov\nret\nbl __ZN3foo3barEv\n")
	require.NoError(t, err)
	assert.Equal(t, "call foo()\nret\nbl foo::bar()\n", out)
}

func TestFilterStdinConcurrentKeepsOrder(t *testing.T) {
	var in, want strings.Builder
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&in, "%d: _Z1fi\n", i)
		fmt.Fprintf(&want, "%d: f(int)\n", i)
	}
	out, _, err := execute(t, in.String(), "-j", "4")
	require.NoError(t, err)
	assert.Equal(t, want.String(), out)
}

func TestFilterFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no params", []string{"-p", "_ZN3foo3barEi"}, "foo::bar\n"},
		{"strip underscore", []string{"-_", "__Z3foov"}, "foo()\n"},
		{"keep underscore", []string{"__Z3foov"}, "__Z3foov\n"},
		{"underscore flag name", []string{"--show_elided", "_ZThn8_N1B1fEv"}, "non-virtual thunk to [h:-8] B::f()\n"},
		{"expand std", []string{"--expand-std", "_Z1fSs"}, "f(std::basic_string<char, std::char_traits<char>, std::allocator<char>>)\n"},
		{"undecodable", []string{"_Z1fS9_"}, "_Z1fS9_\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestFilterColor(t *testing.T) {
	out, _, err := execute(t, "", "--color", "always", "_Z1fS9_", "_Z1fv")
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "_Z1fS9_")
	assert.True(t, strings.HasSuffix(out, "\nf()\n"))

	out, _, err = execute(t, "", "--color", "never", "_Z1fS9_")
	require.NoError(t, err)
	assert.Equal(t, "_Z1fS9_\n", out)
}

func TestFilterInvalidFlags(t *testing.T) {
	_, _, err := execute(t, "", "--color", "sometimes", "_Z1fv")
	assert.ErrorIs(t, err, config.ErrInvalidValue)

	_, _, err = execute(t, "", "-j", "0", "_Z1fv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--jobs")
}

func TestFilterVerbose(t *testing.T) {
	out, errOut, err := execute(t, "", "--verbose", "_Z1fS9_")
	require.NoError(t, err)
	assert.Equal(t, "_Z1fS9_\n", out)
	assert.Contains(t, errOut, "decode failed")
	assert.Contains(t, errOut, "name=_Z1fS9_")

	_, errOut, err = execute(t, "", "_Z1fS9_")
	require.NoError(t, err)
	assert.Empty(t, errOut)
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	out, _, err := execute(t, "", "-o", path, "_Z3foov")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "foo()\n", string(data))
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cxxfilt.env")
	require.NoError(t, os.WriteFile(path, []byte("CXXFILT_NO_PARAMS=true\n"), 0o644))

	out, _, err := execute(t, "", "--env-file", path, "_ZN3foo3barEi")
	require.NoError(t, err)
	assert.Equal(t, "foo::bar\n", out)

	// an explicit flag overrides the file
	out, _, err = execute(t, "", "--env-file", path, "--no-params=false", "_ZN3foo3barEi")
	require.NoError(t, err)
	assert.Equal(t, "foo::bar(int)\n", out)
}

func TestDumpText(t *testing.T) {
	out, _, err := execute(t, "", "dump", "_Z1fv")
	require.NoError(t, err)

	ast, err := demangle.Decode("_Z1fv")
	require.NoError(t, err)
	assert.Equal(t, ast.Dump(), out)
}

func wantDumpF() NodeDump {
	return NodeDump{Kind: "MangledName", Text: "f(int)", Children: []NodeDump{{
		Kind: "Encoding", Detail: "function", Text: "f(int)", Children: []NodeDump{
			{Kind: "Name", Text: "f", Children: []NodeDump{
				{Kind: "UnscopedName", Text: "f", Children: []NodeDump{
					{Kind: "UnqualifiedName", Text: "f", Children: []NodeDump{
						{Kind: "SourceName", Detail: `"f"`, Text: "f"},
					}},
				}},
			}},
			{Kind: "BareFunctionType", Text: "(int)", Children: []NodeDump{
				{Kind: "Type", Text: "int", Children: []NodeDump{
					{Kind: "BuiltinType", Detail: `"int"`, Text: "int"},
				}},
			}},
		},
	}}}
}

func TestDumpJSON(t *testing.T) {
	out, _, err := execute(t, "", "dump", "--format", "json", "_Z1fi")
	require.NoError(t, err)

	var got NodeDump
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	if diff := cmp.Diff(wantDumpF(), got); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpYAML(t *testing.T) {
	out, _, err := execute(t, "", "dump", "-f", "yaml", "_Z1fi")
	require.NoError(t, err)

	var got NodeDump
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	if diff := cmp.Diff(wantDumpF(), got); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpErrors(t *testing.T) {
	_, _, err := execute(t, "", "dump", "--format", "xml", "_Z1fi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")

	_, _, err = execute(t, "", "dump", "_Z1fIi")
	assert.ErrorIs(t, err, demangle.ErrMalformed)

	_, _, err = execute(t, "", "dump")
	assert.Error(t, err)
}

func TestNm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.out")
	require.NoError(t, elffixture.Write(path, []elffixture.Symbol{
		{Name: "_ZN3foo3barEi", Value: 0x401000, Type: elf.STT_FUNC, Defined: true},
		{Name: "_Z1fv", Type: elf.STT_NOTYPE},
		{Name: "main", Value: 0x401008, Type: elf.STT_FUNC, Defined: true},
	}))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"all", []string{"nm", path}, "" +
			"0000000000401000 T foo::bar(int)\n" +
			"                 U f()\n" +
			"0000000000401008 T main\n"},
		{"defined", []string{"nm", "--defined", path}, "" +
			"0000000000401000 T foo::bar(int)\n" +
			"0000000000401008 T main\n"},
		{"raw mangled only", []string{"nm", "--raw", "--mangled-only", path}, "" +
			"0000000000401000 T _ZN3foo3barEi\n" +
			"                 U _Z1fv\n"},
		{"no params", []string{"-p", "nm", "--mangled-only", path}, "" +
			"0000000000401000 T foo::bar\n" +
			"                 U f\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNmUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o644))

	_, _, err := execute(t, "", "nm", path)
	assert.ErrorIs(t, err, symtab.ErrUnknownFormat)
}

func TestRunExitCode(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 0, run([]string{"_Z3foov"}, &out, &errOut))
	assert.Equal(t, "foo()\n", out.String())

	out.Reset()
	assert.Equal(t, 1, run([]string{"dump", "not-mangled"}, &out, &errOut))
	assert.Contains(t, errOut.String(), "cxxfilt: error:")
	assert.Contains(t, errOut.String(), "not an Itanium C++ mangled name")
}

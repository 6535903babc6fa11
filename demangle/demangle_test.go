package demangle

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type goldenCase struct {
	Name    string   `yaml:"name"`
	Input   string   `yaml:"input"`
	Options []string `yaml:"options,omitempty"`
	Output  string   `yaml:"output"`
}

type goldenError struct {
	Name  string `yaml:"name"`
	Input string `yaml:"input"`
	Kind  string `yaml:"kind"`
}

type goldenFile struct {
	Tests  []goldenCase  `yaml:"tests"`
	Errors []goldenError `yaml:"errors"`
}

var optionsByName = map[string]Option{
	"show_elided": WithShowElided(),
	"expand_std":  WithExpandStd(),
	"no_params":   WithNoParams(),
}

var errorsByKind = map[string]error{
	"empty":       ErrEmptyInput,
	"not_mangled": ErrNotMangled,
	"malformed":   ErrMalformed,
	"unsupported": ErrUnsupported,
	"backref":     ErrBackref,
}

func loadGolden(t *testing.T) goldenFile {
	t.Helper()
	data, err := os.ReadFile("testdata/demangle.yaml")
	require.NoError(t, err)

	var golden goldenFile
	require.NoError(t, yaml.Unmarshal(data, &golden))
	require.NotEmpty(t, golden.Tests)
	return golden
}

func TestDemangleGolden(t *testing.T) {
	golden := loadGolden(t)
	for _, tc := range golden.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			var opts []Option
			for _, name := range tc.Options {
				o, ok := optionsByName[name]
				require.Truef(t, ok, "unknown option %q", name)
				opts = append(opts, o)
			}
			got, err := Demangle(tc.Input, opts...)
			require.NoError(t, err)
			assert.Equal(t, tc.Output, got)
		})
	}
}

func TestDemangleGoldenErrors(t *testing.T) {
	golden := loadGolden(t)
	for _, tc := range golden.Errors {
		t.Run(tc.Name, func(t *testing.T) {
			want, ok := errorsByKind[tc.Kind]
			require.Truef(t, ok, "unknown error kind %q", tc.Kind)

			_, err := Demangle(tc.Input)
			require.Error(t, err)
			assert.Truef(t, errors.Is(err, want), "got %v, want %v", err, want)
		})
	}
}

func TestRenderIdempotent(t *testing.T) {
	golden := loadGolden(t)
	for _, tc := range golden.Tests {
		ast, err := Decode(tc.Input)
		require.NoError(t, err, tc.Input)

		first, err := ast.Render(Options{})
		require.NoError(t, err)
		second, err := Render(ast, Options{})
		require.NoError(t, err)
		assert.Equal(t, first, second, tc.Input)
	}
}

func TestDecodeErrorDetails(t *testing.T) {
	_, err := Decode("_Z1fIi")
	require.Error(t, err)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, ErrMalformed, de.Kind)
	assert.Equal(t, 4, de.Offset)
	assert.Equal(t, "Ii", de.Input)
	assert.Contains(t, err.Error(), "template argument list")
}

func TestBackrefErrorNamesSubstitution(t *testing.T) {
	_, err := Decode("_Z1fS9_")
	require.ErrorIs(t, err, ErrBackref)
	assert.Contains(t, err.Error(), "S9_")
}

func TestUnsupportedNamesCode(t *testing.T) {
	_, err := Decode("_Z1fDTfp_E")
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "DT")

	_, err = Decode("_Z1fDtfp_E")
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "Dt")
}

func TestNestingLimit(t *testing.T) {
	name := "_Z1f" + strings.Repeat("I1A", maxDepth) + strings.Repeat("E", maxDepth) + "v"
	_, err := Decode(name)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "nesting too deep")
}

func TestEmptyPackNode(t *testing.T) {
	ast, err := Decode("_Z1fIJEEvDpT_")
	require.NoError(t, err)

	enc := ast.Root().Child(0)
	require.Equal(t, NodeKindEncoding, enc.Kind())
	require.Equal(t, 3, enc.NodeCount())

	params := enc.Child(2)
	require.Equal(t, NodeKindBareFunctionType, params.Kind())
	pack := params.Child(0)
	require.Equal(t, NodeKindType, pack.Kind())
	assert.True(t, pack.IsEmpty())
	assert.Equal(t, 0, pack.NodeCount())

	got, err := RenderNode(pack, Options{})
	require.NoError(t, err)
	assert.Equal(t, "<empty parameter pack>", got)
}

func TestTemplateFrameScoping(t *testing.T) {
	// T_ after the local name binds to g's arguments, not f's.
	got, err := Demangle("_ZZ1fIiEvvEN1B1gIdEEvT_")
	require.NoError(t, err)
	assert.Equal(t, "void f<int>()::B::g<double>(double)", got)

	// f's frame is gone once its encoding ends.
	_, err = Decode("_ZZ1fIiEvvE1xT_")
	require.ErrorIs(t, err, ErrBackref)
}

// walk visits owned nodes depth-first.
func walk(n Node, visit func(Node)) {
	visit(n)
	for i := 0; i < n.NodeCount(); i++ {
		walk(n.Child(i), visit)
	}
}

func TestBackReferencesResolved(t *testing.T) {
	golden := loadGolden(t)
	for _, tc := range golden.Tests {
		ast, err := Decode(tc.Input)
		require.NoError(t, err, tc.Input)
		walk(ast.Root(), func(n Node) {
			switch v := n.(type) {
			case *UserSubstitution:
				assert.NotNil(t, v.Target(), tc.Input)
			case *TemplateParam:
				assert.NotNil(t, v.Target(), tc.Input)
			case *Holder:
				assert.NotNil(t, v.Target(), tc.Input)
			}
		})
	}
}

func TestSubstitutionTableOrder(t *testing.T) {
	d := newDemangler("_Z1fRKSsS0_")
	_, err := d.parse()
	require.NoError(t, err)

	var got []string
	for _, n := range d.subs {
		s, err := RenderNode(n, Options{})
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Equal(t, []string{"std::string const", "std::string const&"}, got)
}

func TestQualifierLayers(t *testing.T) {
	assert.Equal(t, []int{1, 0}, qualifierLayers("RK"))
	assert.Equal(t, []int{2, 1, 0}, qualifierLayers("PKP"))
	assert.Equal(t, []int{1, 0}, qualifierLayers("PVK"))
	assert.Empty(t, qualifierLayers(""))
}

func TestCloneIsIndependent(t *testing.T) {
	ast, err := Decode("_Z1fPKc")
	require.NoError(t, err)

	params := ast.Root().Child(0).Child(1)
	orig := params.Child(0).(*Type)
	c := orig.withQualifiers("")
	assert.Equal(t, "PK", orig.Qualifiers())

	got, err := RenderNode(c, Options{})
	require.NoError(t, err)
	assert.Equal(t, "char", got)

	got, err = RenderNode(orig, Options{})
	require.NoError(t, err)
	assert.Equal(t, "char const*", got)
}

func TestRenderInvariant(t *testing.T) {
	_, err := RenderNode(&Name{}, Options{})
	require.ErrorIs(t, err, ErrInvariant)

	_, err = RenderNode(&UserSubstitution{index: 3}, Options{})
	require.ErrorIs(t, err, ErrInvariant)

	_, err = RenderNode(nil, Options{})
	require.ErrorIs(t, err, ErrInvariant)

	var ast *AST
	_, err = ast.Render(Options{})
	require.ErrorIs(t, err, ErrInvariant)
}

func TestDemangleSimple(t *testing.T) {
	assert.Equal(t, "foo::bar()", DemangleSimple("_ZN3foo3barEv"))
	assert.Equal(t, "main", DemangleSimple("main"))
	assert.Equal(t, "_Z1fS9_", DemangleSimple("_Z1fS9_"))
	assert.Equal(t, "", DemangleSimple(""))
}

func TestDemangleText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"call _Z3foov now", "call foo() now"},
		{"bl __ZN3foo3barEv", "bl foo::bar()"},
		{"_Z1fi, _Z1fv", "f(int), f()"},
		{"keep _Z1fS9_ as is", "keep _Z1fS9_ as is"},
		{"ident_Z1fv", "ident_Z1fv"},
		{"no symbols here", "no symbols here"},
		{"_Z3foov.cold+0x10", "foo() [clone .cold]+0x10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DemangleText(tt.in), tt.in)
	}
}

func TestIsMangled(t *testing.T) {
	assert.True(t, IsMangled("_Z1fv"))
	assert.False(t, IsMangled("_Z"))
	assert.False(t, IsMangled("__Z1fv"))
	assert.False(t, IsMangled("?f@@YAXXZ"))
}

func TestNodeKindString(t *testing.T) {
	assert.Equal(t, "TemplateArgs", NodeKindTemplateArgs.String())
	assert.Equal(t, "Holder", NodeKindHolder.String())
	assert.Equal(t, "NodeKind(999)", NodeKind(999).String())
}

func TestDump(t *testing.T) {
	ast, err := Decode("_Z1fv")
	require.NoError(t, err)

	want := strings.Join([]string{
		"MangledName depth=0 children=1",
		"  Encoding depth=1 children=2 function",
		"    Name depth=2 children=1",
		"      UnscopedName depth=3 children=1",
		"        UnqualifiedName depth=4 children=1",
		`          SourceName depth=5 children=0 "f"`,
		"    BareFunctionType depth=2 children=1",
		"      Type depth=3 children=1",
		`        BuiltinType depth=4 children=0 "void"`,
		"",
	}, "\n")
	assert.Equal(t, want, ast.Dump())
	assert.Equal(t, want, DumpAST(ast))
}

func TestDumpShowsLinks(t *testing.T) {
	ast, err := Decode("_Z1fIiEvT_")
	require.NoError(t, err)

	dump := ast.Dump()
	assert.Contains(t, dump, "TemplateParam depth=")
	assert.Contains(t, dump, "T_ -> TemplateArg")
}

package demangle

import (
	"regexp"
	"strings"
)

// AST is a decoded mangled name. Back-references inside the tree point
// at nodes of the same AST and stay valid for its lifetime.
type AST struct {
	root  *MangledName
	input string
}

// Root returns the MangledName node.
func (a *AST) Root() Node {
	return a.root
}

// Input returns the mangled name the tree was decoded from.
func (a *AST) Input() string {
	return a.input
}

// Render prints the tree as declaration text.
func (a *AST) Render(opts Options) (string, error) {
	if a == nil || a.root == nil {
		return "", &DecodeError{Kind: ErrInvariant, Offset: -1, Msg: "nil syntax tree"}
	}
	return RenderNode(a.root, opts)
}

// Render prints ast as declaration text.
func Render(ast *AST, opts Options) (string, error) {
	return ast.Render(opts)
}

// Decode parses an Itanium C++ mangled name into a syntax tree.
func Decode(mangled string) (*AST, error) {
	if len(mangled) == 0 {
		return nil, ErrEmptyInput
	}
	if !IsMangled(mangled) {
		return nil, &DecodeError{Kind: ErrNotMangled, Offset: 0, Msg: "missing _Z prefix", Input: snippet(mangled)}
	}

	d := newDemangler(mangled)
	root, err := d.parse()
	if err != nil {
		return nil, err
	}
	return &AST{root: root, input: mangled}, nil
}

func snippet(s string) string {
	if len(s) > snippetLen {
		return s[:snippetLen] + "..."
	}
	return s
}

// IsMangled reports whether name looks like an Itanium C++ mangled name.
func IsMangled(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "_Z")
}

// Demangle converts a mangled name to readable form.
func Demangle(name string, opt ...Option) (string, error) {
	var opts Options
	for _, o := range opt {
		o(&opts)
	}
	ast, err := Decode(name)
	if err != nil {
		return "", err
	}
	return ast.Render(opts)
}

// DemangleSimple demangles name, returning it unchanged if it cannot be
// decoded.
func DemangleSimple(name string) string {
	result, err := Demangle(name)
	if err != nil {
		return name
	}
	return result
}

var mangledToken = regexp.MustCompile(`\b_{1,2}Z[0-9A-Za-z_$]+(?:\.[0-9A-Za-z_$]+)*`)

// DemangleText replaces every mangled name found in text. The Mach-O
// spelling with an extra leading underscore is accepted. Tokens that do
// not decode are left as they are.
func DemangleText(text string, opt ...Option) string {
	return mangledToken.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimPrefix(token, "_")
		if !strings.HasPrefix(name, "_Z") {
			name = token
		}
		result, err := Demangle(name, opt...)
		if err != nil {
			return token
		}
		return result
	})
}

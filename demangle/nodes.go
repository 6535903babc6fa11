// Package demangle provides Itanium C++ ABI name demangling functionality.
//
// Decode turns a mangled symbol such as "_Z1fPKc" into an abstract syntax
// tree, and Render prints that tree back as declaration text ("f(char const*)").
package demangle

import (
	"fmt"
	"strings"
)

// NodeKind identifies the type of AST node.
type NodeKind int

const (
	NodeKindUnknown NodeKind = iota
	// Names
	NodeKindMangledName
	NodeKindEncoding
	NodeKindName
	NodeKindNestedName
	NodeKindUnscopedName
	NodeKindUnscopedTemplateName
	NodeKindPrefix
	NodeKindUnqualifiedName
	NodeKindSourceName
	NodeKindOperatorName
	NodeKindConstructor
	NodeKindLocalName
	// Back-references
	NodeKindSubstitution
	NodeKindUserSubstitution
	NodeKindBuiltinSubstitution
	// Templates
	NodeKindTemplateArgs
	NodeKindTemplateArg
	NodeKindTemplateParam
	// Types
	NodeKindType
	NodeKindBuiltinType
	NodeKindBareFunctionType
	NodeKindArrayType
	NodeKindDecltype
	// Expressions
	NodeKindExpression
	NodeKindExprPrimary
	NodeKindUnresolvedName
	NodeKindNumber
	// Holder re-attaches a node owned elsewhere.
	NodeKindHolder
)

var nodeKindNames = map[NodeKind]string{
	NodeKindUnknown:              "Unknown",
	NodeKindMangledName:          "MangledName",
	NodeKindEncoding:             "Encoding",
	NodeKindName:                 "Name",
	NodeKindNestedName:           "NestedName",
	NodeKindUnscopedName:         "UnscopedName",
	NodeKindUnscopedTemplateName: "UnscopedTemplateName",
	NodeKindPrefix:               "Prefix",
	NodeKindUnqualifiedName:      "UnqualifiedName",
	NodeKindSourceName:           "SourceName",
	NodeKindOperatorName:         "OperatorName",
	NodeKindConstructor:          "Constructor",
	NodeKindLocalName:            "LocalName",
	NodeKindSubstitution:         "Substitution",
	NodeKindUserSubstitution:     "UserSubstitution",
	NodeKindBuiltinSubstitution:  "BuiltinSubstitution",
	NodeKindTemplateArgs:         "TemplateArgs",
	NodeKindTemplateArg:          "TemplateArg",
	NodeKindTemplateParam:        "TemplateParam",
	NodeKindType:                 "Type",
	NodeKindBuiltinType:          "BuiltinType",
	NodeKindBareFunctionType:     "BareFunctionType",
	NodeKindArrayType:            "ArrayType",
	NodeKindDecltype:             "Decltype",
	NodeKindExpression:           "Expression",
	NodeKindExprPrimary:          "ExprPrimary",
	NodeKindUnresolvedName:       "UnresolvedName",
	NodeKindNumber:               "Number",
	NodeKindHolder:               "Holder",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is the interface implemented by all AST nodes. The set of
// implementations is closed: nodes are only built by Decode.
type Node interface {
	Kind() NodeKind
	// NodeCount returns the number of owned children.
	NodeCount() int
	// Child returns the i-th owned child, or nil when out of range.
	Child(i int) Node
	// IsEmpty reports a zero-length parameter pack.
	IsEmpty() bool

	print(p *printer)
	clone() Node
}

type nodeBase struct {
	children []Node
	empty    bool
}

func (b *nodeBase) NodeCount() int { return len(b.children) }

func (b *nodeBase) Child(i int) Node {
	if i < 0 || i >= len(b.children) {
		return nil
	}
	return b.children[i]
}

func (b *nodeBase) IsEmpty() bool { return b.empty }

func (b *nodeBase) addNode(n Node) {
	b.children = append(b.children, n)
}

func (b *nodeBase) cloneBase() nodeBase {
	out := nodeBase{empty: b.empty}
	if len(b.children) > 0 {
		out.children = make([]Node, len(b.children))
		for i, c := range b.children {
			out.children[i] = c.clone()
		}
	}
	return out
}

// MangledName is the root of every decoded tree.
type MangledName struct {
	nodeBase
	suffixes []string
}

func (n *MangledName) Kind() NodeKind { return NodeKindMangledName }

func (n *MangledName) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	p.node(n.children[0])
	for _, s := range n.suffixes {
		p.write(" [clone ")
		p.write(s)
		p.write("]")
	}
}

func (n *MangledName) clone() Node {
	return &MangledName{nodeBase: n.cloneBase(), suffixes: n.suffixes}
}

// CloneSuffixes returns the vendor clone suffixes (".cold", ".isra.0", ...).
func (n *MangledName) CloneSuffixes() []string { return n.suffixes }

// Encoding is a function, data or special-name encoding.
//
// Children: [Name] for data, [Name, BareFunctionType] for functions,
// [ReturnType, Name, BareFunctionType] for functions whose name carries
// template arguments, and [Type|Name|Encoding] for special names.
type Encoding struct {
	nodeBase
	special   string
	offsets   string
	hasReturn bool
	function  bool
}

func (n *Encoding) Kind() NodeKind { return NodeKindEncoding }

// IsFunction reports whether the encoding carries a parameter list.
func (n *Encoding) IsFunction() bool { return n.function }

// Special returns the special-name prefix ("vtable for ", ...) or "".
func (n *Encoding) Special() string { return n.special }

func (n *Encoding) name() Node {
	if n.hasReturn {
		return n.Child(1)
	}
	return n.Child(0)
}

func (n *Encoding) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	if n.special != "" {
		p.write(n.special)
		if p.opts.ShowElided && n.offsets != "" {
			p.write("[")
			p.write(n.offsets)
			p.write("] ")
		}
		p.node(n.children[0])
		return
	}
	if !n.function {
		p.node(n.children[0])
		return
	}
	if p.opts.NoParams {
		p.node(n.name())
		return
	}
	n.printFunction(p, true)
}

// printScope prints the encoding as the enclosing scope of a local
// entity. The return type of a function scope is left out.
func (n *Encoding) printScope(p *printer) {
	if n.special != "" || !n.function || p.opts.NoParams {
		n.print(p)
		return
	}
	n.printFunction(p, false)
}

func (n *Encoding) printFunction(p *printer, withReturn bool) {
	i := 0
	if n.hasReturn {
		if !p.requireChildren(n, 3) {
			return
		}
		if withReturn {
			p.node(n.children[0])
			p.write(" ")
		}
		i = 1
	} else if !p.requireChildren(n, 2) {
		return
	}
	p.node(n.children[i])
	p.node(n.children[i+1])
	cv, ref := functionQualifiers(n.children[i])
	printMethodQualifiers(p, cv, ref)
}

func (n *Encoding) clone() Node {
	c := *n
	c.nodeBase = n.cloneBase()
	return &c
}

// Name wraps one of the name forms.
type Name struct {
	nodeBase
}

func (n *Name) Kind() NodeKind { return NodeKindName }

func (n *Name) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	for _, c := range n.children {
		p.node(c)
	}
}

func (n *Name) clone() Node { return &Name{nodeBase: n.cloneBase()} }

// NestedName is a qualified name; its single child is a Prefix. The
// cv and ref qualifiers belong to the member function it names.
type NestedName struct {
	nodeBase
	cv  string
	ref byte
}

func (n *NestedName) Kind() NodeKind { return NodeKindNestedName }

func (n *NestedName) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	p.node(n.children[0])
}

func (n *NestedName) clone() Node {
	return &NestedName{nodeBase: n.cloneBase(), cv: n.cv, ref: n.ref}
}

// UnscopedName is an unqualified name, optionally in namespace std.
type UnscopedName struct {
	nodeBase
	std bool
}

func (n *UnscopedName) Kind() NodeKind { return NodeKindUnscopedName }

func (n *UnscopedName) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	if n.std {
		p.write("std::")
	}
	p.node(n.children[0])
}

func (n *UnscopedName) clone() Node {
	return &UnscopedName{nodeBase: n.cloneBase(), std: n.std}
}

// UnscopedTemplateName is the template part of an unscoped template-id:
// an UnscopedName, a Substitution or a TemplateParam.
type UnscopedTemplateName struct {
	nodeBase
}

func (n *UnscopedTemplateName) Kind() NodeKind { return NodeKindUnscopedTemplateName }

func (n *UnscopedTemplateName) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	p.node(n.children[0])
}

func (n *UnscopedTemplateName) clone() Node {
	return &UnscopedTemplateName{nodeBase: n.cloneBase()}
}

// Prefix holds the components of a nested name in source order.
// TemplateArgs children attach to the component before them.
type Prefix struct {
	nodeBase
}

func (n *Prefix) Kind() NodeKind { return NodeKindPrefix }

func (n *Prefix) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	for i, c := range n.children {
		if i > 0 && resolve(c).Kind() != NodeKindTemplateArgs {
			p.write("::")
		}
		p.node(c)
	}
}

func (n *Prefix) clone() Node { return &Prefix{nodeBase: n.cloneBase()} }

// snapshot returns a Prefix referencing the current components without
// owning them; later additions to n do not show through.
func (n *Prefix) snapshot() *Prefix {
	s := &Prefix{}
	for _, c := range n.children {
		s.addNode(&Holder{target: c})
	}
	return s
}

// WillHaveReturnType reports whether a function named by this prefix
// mangles its return type. That is the case for template functions,
// except conversion operators, constructors and destructors.
func (n *Prefix) WillHaveReturnType() bool {
	count := len(n.children)
	if count == 0 || resolve(n.children[count-1]).Kind() != NodeKindTemplateArgs {
		return false
	}
	if count == 1 {
		return true
	}
	return templatedNameHasReturn(n.children[count-2])
}

func templatedNameHasReturn(name Node) bool {
	u, ok := resolve(name).(*UnqualifiedName)
	if !ok || len(u.children) == 0 {
		return true
	}
	switch c := u.children[0].(type) {
	case *OperatorName:
		return !c.IsCastOperator()
	case *Constructor:
		return false
	}
	return true
}

// UnqualifiedName is a source name, operator name, constructor or
// destructor, or a closure/unnamed type, plus any ABI tags.
type UnqualifiedName struct {
	nodeBase
	abiTags []string
	unnamed string
	index   int
}

func (n *UnqualifiedName) Kind() NodeKind { return NodeKindUnqualifiedName }

// ABITags returns the [abi:...] tags attached to the name.
func (n *UnqualifiedName) ABITags() []string { return n.abiTags }

func (n *UnqualifiedName) print(p *printer) {
	switch n.unnamed {
	case "lambda":
		p.write("{lambda")
		if !p.requireChildren(n, 1) {
			return
		}
		p.node(n.children[0])
		fmt.Fprintf(p, "#%d}", n.index)
	case "type":
		fmt.Fprintf(p, "{unnamed type#%d}", n.index)
	default:
		if !p.requireChildren(n, 1) {
			return
		}
		p.node(n.children[0])
	}
	for _, tag := range n.abiTags {
		p.write("[abi:")
		p.write(tag)
		p.write("]")
	}
}

func (n *UnqualifiedName) clone() Node {
	c := *n
	c.nodeBase = n.cloneBase()
	return &c
}

const anonymousNamespacePrefix = "_GLOBAL__N"

// SourceName is an identifier taken verbatim from the input.
type SourceName struct {
	nodeBase
	name string
}

func (n *SourceName) Kind() NodeKind { return NodeKindSourceName }

// Identifier returns the identifier as mangled.
func (n *SourceName) Identifier() string { return n.name }

func (n *SourceName) print(p *printer) {
	if strings.HasPrefix(n.name, anonymousNamespacePrefix) {
		p.write("(anonymous namespace)")
		return
	}
	p.write(n.name)
}

func (n *SourceName) clone() Node { return &SourceName{name: n.name} }

// OperatorName is an operator function name. A cast operator owns its
// target Type; a literal or vendor operator owns a SourceName.
type OperatorName struct {
	nodeBase
	code   string
	symbol string
}

func (n *OperatorName) Kind() NodeKind { return NodeKindOperatorName }

// Code returns the two-letter operator code.
func (n *OperatorName) Code() string { return n.code }

// IsCastOperator reports a conversion operator ("operator int").
func (n *OperatorName) IsCastOperator() bool { return n.code == "cv" }

func (n *OperatorName) print(p *printer) {
	switch {
	case n.code == "cv":
		if !p.requireChildren(n, 1) {
			return
		}
		p.write("operator ")
		p.node(n.children[0])
	case n.code == "li":
		if !p.requireChildren(n, 1) {
			return
		}
		p.write(`operator"" `)
		p.node(n.children[0])
	case n.code[0] == 'v':
		if !p.requireChildren(n, 1) {
			return
		}
		p.write("operator ")
		p.node(n.children[0])
	default:
		p.write("operator")
		p.write(n.symbol)
	}
}

func (n *OperatorName) clone() Node {
	return &OperatorName{nodeBase: n.cloneBase(), code: n.code, symbol: n.symbol}
}

// Constructor is a constructor or destructor name; it prints the name of
// the class it belongs to.
type Constructor struct {
	nodeBase
	className string
	dtor      bool
	variant   byte
}

func (n *Constructor) Kind() NodeKind { return NodeKindConstructor }

// IsDestructor reports a destructor name.
func (n *Constructor) IsDestructor() bool { return n.dtor }

func (n *Constructor) print(p *printer) {
	if n.dtor {
		p.write("~")
	}
	p.write(n.className)
}

func (n *Constructor) clone() Node {
	c := *n
	return &c
}

// LocalName is an entity declared inside a function body.
// Children: [Encoding, Name], or [Encoding] for a string literal.
type LocalName struct {
	nodeBase
	stringLiteral bool
	discriminator int
}

func (n *LocalName) Kind() NodeKind { return NodeKindLocalName }

func (n *LocalName) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	if enc, ok := n.children[0].(*Encoding); ok {
		enc.printScope(p)
	} else {
		p.node(n.children[0])
	}
	p.write("::")
	if n.stringLiteral {
		p.write("string literal")
	} else {
		if !p.requireChildren(n, 2) {
			return
		}
		p.node(n.children[1])
	}
	if p.opts.ShowElided && n.discriminator > 0 {
		fmt.Fprintf(p, "{#%d}", n.discriminator)
	}
}

func (n *LocalName) clone() Node {
	c := *n
	c.nodeBase = n.cloneBase()
	return &c
}

// Substitution is a back-reference; its single child is either a
// BuiltinSubstitution or a UserSubstitution.
type Substitution struct {
	nodeBase
}

func (n *Substitution) Kind() NodeKind { return NodeKindSubstitution }

func (n *Substitution) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	p.node(n.children[0])
}

func (n *Substitution) clone() Node { return &Substitution{nodeBase: n.cloneBase()} }

// UserSubstitution references, without owning, an earlier node of the
// same tree.
type UserSubstitution struct {
	nodeBase
	index  int
	target Node
}

func (n *UserSubstitution) Kind() NodeKind { return NodeKindUserSubstitution }

// Index returns the position in the substitution table (S_ is 0).
func (n *UserSubstitution) Index() int { return n.index }

// Target returns the referenced node.
func (n *UserSubstitution) Target() Node { return n.target }

func (n *UserSubstitution) print(p *printer) {
	if n.target == nil {
		p.fail("unresolved substitution S%d", n.index)
		return
	}
	p.node(n.target)
}

func (n *UserSubstitution) clone() Node {
	return &UserSubstitution{index: n.index, target: n.target}
}

type builtinSubstitution struct {
	short string
	full  string
	ctor  string
}

var builtinSubstitutions = map[byte]builtinSubstitution{
	't': {"std", "std", ""},
	'a': {"std::allocator", "std::allocator", "allocator"},
	'b': {"std::basic_string", "std::basic_string", "basic_string"},
	's': {"std::string", "std::basic_string<char, std::char_traits<char>, std::allocator<char>>", "basic_string"},
	'i': {"std::istream", "std::basic_istream<char, std::char_traits<char>>", "basic_istream"},
	'o': {"std::ostream", "std::basic_ostream<char, std::char_traits<char>>", "basic_ostream"},
	'd': {"std::iostream", "std::basic_iostream<char, std::char_traits<char>>", "basic_iostream"},
}

// BuiltinSubstitution is one of the fixed library abbreviations (St, Sa, Ss, ...).
type BuiltinSubstitution struct {
	nodeBase
	code     byte
	expanded bool
}

func (n *BuiltinSubstitution) Kind() NodeKind { return NodeKindBuiltinSubstitution }

// Code returns the abbreviation letter following 'S'.
func (n *BuiltinSubstitution) Code() byte { return n.code }

func (n *BuiltinSubstitution) print(p *printer) {
	b, ok := builtinSubstitutions[n.code]
	if !ok {
		p.fail("unknown builtin substitution S%c", n.code)
		return
	}
	if n.expanded || p.opts.ExpandStd {
		p.write(b.full)
		return
	}
	p.write(b.short)
}

func (n *BuiltinSubstitution) clone() Node {
	return &BuiltinSubstitution{code: n.code, expanded: n.expanded}
}

// TemplateArgs is a non-empty template argument list.
type TemplateArgs struct {
	nodeBase
}

func (n *TemplateArgs) Kind() NodeKind { return NodeKindTemplateArgs }

func (n *TemplateArgs) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	p.write("<")
	p.list(n.children)
	p.write(">")
}

func (n *TemplateArgs) clone() Node { return &TemplateArgs{nodeBase: n.cloneBase()} }

// TemplateArg is a single argument: a Type, Expression or ExprPrimary,
// or an argument pack whose children are TemplateArgs.
type TemplateArg struct {
	nodeBase
	pack bool
}

func (n *TemplateArg) Kind() NodeKind { return NodeKindTemplateArg }

// IsPack reports an argument pack.
func (n *TemplateArg) IsPack() bool { return n.pack }

func (n *TemplateArg) print(p *printer) {
	if n.pack {
		p.list(n.children)
		return
	}
	if !p.requireChildren(n, 1) {
		return
	}
	p.node(n.children[0])
}

func (n *TemplateArg) clone() Node {
	return &TemplateArg{nodeBase: n.cloneBase(), pack: n.pack}
}

// paramRef is shared by a TemplateParam and all its clones so that a
// deferred resolution reaches every copy.
type paramRef struct {
	index  int
	offset int
	target Node
}

// TemplateParam refers to an argument of the enclosing template.
type TemplateParam struct {
	nodeBase
	ref *paramRef
}

func (n *TemplateParam) Kind() NodeKind { return NodeKindTemplateParam }

// Index returns the parameter number (T_ is 0).
func (n *TemplateParam) Index() int { return n.ref.index }

// Target returns the TemplateArg the parameter resolved to.
func (n *TemplateParam) Target() Node { return n.ref.target }

func (n *TemplateParam) print(p *printer) {
	if n.ref.target == nil {
		p.fail("unresolved template parameter T%d", n.ref.index)
		return
	}
	p.node(n.ref.target)
}

func (n *TemplateParam) clone() Node { return &TemplateParam{ref: n.ref} }

var cvQualifierNames = map[byte]string{
	'K': " const",
	'O': "&&",
	'P': "*",
	'R': "&",
	'V': " volatile",
	'r': " restrict",
}

// Type is a possibly qualified type. With no children it is an empty
// parameter pack; with one child it is the child plus qualifiers; with two
// children it is a function type [return type, BareFunctionType].
type Type struct {
	nodeBase
	cv              string
	transactionSafe bool
}

func (n *Type) Kind() NodeKind { return NodeKindType }

// Qualifiers returns the qualifier codes in mangling order.
func (n *Type) Qualifiers() string { return n.cv }

const emptyPackMarker = "<empty parameter pack>"

func (n *Type) print(p *printer) {
	switch len(n.children) {
	case 0:
		p.write(emptyPackMarker)
	case 1:
		if arr, ok := n.children[0].(*ArrayType); ok && n.cv != "" {
			arr.printElement(p)
			p.write(" (")
			n.printCVQualifiers(p)
			p.write(") ")
			arr.printDimensions(p)
			return
		}
		p.node(n.children[0])
		n.printCVQualifiers(p)
	default:
		n.printFunction(p, "")
	}
}

// printFunction prints a function type around the declarator inner. A
// return type that is itself a function type wraps the whole declarator.
func (n *Type) printFunction(p *printer, inner string) {
	decl := p.capture(func(sub *printer) {
		if n.cv != "" || inner != "" {
			sub.write("(")
			n.printCVQualifiers(sub)
			sub.write(inner)
			sub.write(")")
		}
		sub.node(n.children[1])
		if n.transactionSafe {
			sub.write(" transaction_safe")
		}
	})
	if ret, ok := n.children[0].(*Type); ok && len(ret.children) == 2 {
		ret.printFunction(p, decl)
		return
	}
	p.node(n.children[0])
	p.write(" ")
	p.write(decl)
}

// printCVQualifiers prints the qualifiers last-parsed first.
func (n *Type) printCVQualifiers(p *printer) {
	for i := len(n.cv) - 1; i >= 0; i-- {
		name, ok := cvQualifierNames[n.cv[i]]
		if !ok {
			p.fail("invalid cv-qualifier %q", n.cv[i])
			return
		}
		p.write(name)
	}
}

func (n *Type) clone() Node {
	return &Type{nodeBase: n.cloneBase(), cv: n.cv, transactionSafe: n.transactionSafe}
}

// IsIntegral reports whether a literal of this type prints as an integer:
// pointers, references and integral builtin types.
func (n *Type) IsIntegral() bool {
	if strings.ContainsAny(n.cv, "PKRO") {
		return true
	}
	if len(n.children) != 1 {
		return false
	}
	if b, ok := n.children[0].(*BuiltinType); ok {
		return b.IsIntegral()
	}
	return false
}

// BuiltinType is a fundamental type.
type BuiltinType struct {
	nodeBase
	code string
	name string
}

func (n *BuiltinType) Kind() NodeKind { return NodeKindBuiltinType }

// Code returns the mangled code ("i", "Dn", ...).
func (n *BuiltinType) Code() string { return n.code }

// Name returns the C++ spelling.
func (n *BuiltinType) Name() string { return n.name }

// IsIntegral reports integral and character types.
func (n *BuiltinType) IsIntegral() bool {
	switch n.code {
	case "a", "b", "c", "h", "i", "j", "l", "m", "n", "o", "s", "t", "w", "x", "y", "Di", "Ds":
		return true
	}
	return false
}

func (n *BuiltinType) print(p *printer) { p.write(n.name) }

func (n *BuiltinType) clone() Node { return &BuiltinType{code: n.code, name: n.name} }

// BareFunctionType is a parameter list.
type BareFunctionType struct {
	nodeBase
}

func (n *BareFunctionType) Kind() NodeKind { return NodeKindBareFunctionType }

func (n *BareFunctionType) print(p *printer) {
	p.write("(")
	if !n.voidOnly() {
		p.list(n.children)
	}
	p.write(")")
}

func (n *BareFunctionType) voidOnly() bool {
	if len(n.children) != 1 {
		return false
	}
	t, ok := n.children[0].(*Type)
	if !ok || t.cv != "" || len(t.children) != 1 {
		return false
	}
	b, ok := t.children[0].(*BuiltinType)
	return ok && b.code == "v"
}

// retrieveReturnType detaches and returns the first entry.
func (n *BareFunctionType) retrieveReturnType() Node {
	if len(n.children) == 0 {
		return nil
	}
	ret := n.children[0]
	n.children = n.children[1:]
	return ret
}

func (n *BareFunctionType) clone() Node { return &BareFunctionType{nodeBase: n.cloneBase()} }

// ArrayType is an array of its single Type child. dim is empty for
// arrays of unknown bound.
type ArrayType struct {
	nodeBase
	dim string
}

func (n *ArrayType) Kind() NodeKind { return NodeKindArrayType }

func (n *ArrayType) print(p *printer) {
	n.printElement(p)
	p.write(" ")
	n.printDimensions(p)
}

// innermost follows directly nested unqualified array types.
func (n *ArrayType) innermost() (*ArrayType, []string) {
	dims := []string{n.dim}
	cur := n
	for {
		t, ok := cur.Child(0).(*Type)
		if !ok || t.cv != "" || len(t.children) != 1 {
			return cur, dims
		}
		next, ok := t.children[0].(*ArrayType)
		if !ok {
			return cur, dims
		}
		dims = append(dims, next.dim)
		cur = next
	}
}

func (n *ArrayType) printElement(p *printer) {
	inner, _ := n.innermost()
	if !p.requireChildren(inner, 1) {
		return
	}
	p.node(inner.children[0])
}

func (n *ArrayType) printDimensions(p *printer) {
	_, dims := n.innermost()
	for _, d := range dims {
		p.write("[")
		p.write(d)
		p.write("]")
	}
}

func (n *ArrayType) clone() Node { return &ArrayType{nodeBase: n.cloneBase(), dim: n.dim} }

// Decltype is decltype(expression) used as a scope.
type Decltype struct {
	nodeBase
}

func (n *Decltype) Kind() NodeKind { return NodeKindDecltype }

func (n *Decltype) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	p.write("decltype(")
	p.node(n.children[0])
	p.write(")")
}

func (n *Decltype) clone() Node { return &Decltype{nodeBase: n.cloneBase()} }

type exprForm int

const (
	exprOperand exprForm = iota
	exprUnary
	exprBinary
	exprFunctionParam
	exprSizeofType
	exprSizeofExpr
	exprSizeofPack
)

// Expression is the supported subset of template-argument expressions.
type Expression struct {
	nodeBase
	form exprForm
	text string
}

func (n *Expression) Kind() NodeKind { return NodeKindExpression }

func (n *Expression) print(p *printer) {
	switch n.form {
	case exprFunctionParam:
		p.write(n.text)
	case exprUnary:
		if !p.requireChildren(n, 1) {
			return
		}
		p.write(n.text)
		p.write("(")
		p.node(n.children[0])
		p.write(")")
	case exprBinary:
		if !p.requireChildren(n, 2) {
			return
		}
		p.write("(")
		p.node(n.children[0])
		p.write(")")
		p.write(n.text)
		p.write("(")
		p.node(n.children[1])
		p.write(")")
	case exprSizeofType, exprSizeofExpr:
		if !p.requireChildren(n, 1) {
			return
		}
		p.write("sizeof (")
		p.node(n.children[0])
		p.write(")")
	case exprSizeofPack:
		if !p.requireChildren(n, 1) {
			return
		}
		p.write("sizeof...(")
		p.node(n.children[0])
		p.write(")")
	default:
		if !p.requireChildren(n, 1) {
			return
		}
		p.node(n.children[0])
	}
}

func (n *Expression) clone() Node {
	return &Expression{nodeBase: n.cloneBase(), form: n.form, text: n.text}
}

// ExprPrimary is a literal: [Type, Number], [Type] or an external
// name [Encoding].
type ExprPrimary struct {
	nodeBase
}

func (n *ExprPrimary) Kind() NodeKind { return NodeKindExprPrimary }

var literalSuffixes = map[string]string{
	"i": "",
	"j": "u",
	"l": "l",
	"m": "ul",
	"x": "ll",
	"y": "ull",
}

func (n *ExprPrimary) print(p *printer) {
	if !p.requireChildren(n, 1) {
		return
	}
	t, ok := n.children[0].(*Type)
	if !ok {
		p.node(n.children[0])
		return
	}
	var b *BuiltinType
	if t.cv == "" && len(t.children) == 1 {
		b, _ = t.children[0].(*BuiltinType)
	}
	if b != nil && b.code == "Dn" {
		p.write("nullptr")
		return
	}
	if len(n.children) < 2 {
		p.write("(")
		p.node(t)
		p.write(")")
		return
	}
	num := n.children[1]
	if b != nil && b.code == "b" {
		if num, ok := num.(*Number); ok && !num.negative && (num.value == "0" || num.value == "1") {
			if num.value == "0" {
				p.write("false")
			} else {
				p.write("true")
			}
			return
		}
	}
	if b != nil {
		if suffix, ok := literalSuffixes[b.code]; ok {
			p.node(num)
			p.write(suffix)
			return
		}
	}
	p.write("(")
	p.node(t)
	p.write(")")
	p.node(num)
}

func (n *ExprPrimary) clone() Node { return &ExprPrimary{nodeBase: n.cloneBase()} }

// UnresolvedName is a dependent qualified name: [qualifier, SourceName]
// optionally followed by TemplateArgs.
type UnresolvedName struct {
	nodeBase
}

func (n *UnresolvedName) Kind() NodeKind { return NodeKindUnresolvedName }

func (n *UnresolvedName) print(p *printer) {
	if !p.requireChildren(n, 2) {
		return
	}
	p.node(n.children[0])
	p.write("::")
	for _, c := range n.children[1:] {
		p.node(c)
	}
}

func (n *UnresolvedName) clone() Node { return &UnresolvedName{nodeBase: n.cloneBase()} }

// Number is a decimal literal value.
type Number struct {
	nodeBase
	value    string
	negative bool
}

func (n *Number) Kind() NodeKind { return NodeKindNumber }

// Value returns the literal as printed.
func (n *Number) Value() string {
	if n.negative {
		return "-" + n.value
	}
	return n.value
}

func (n *Number) print(p *printer) { p.write(n.Value()) }

func (n *Number) clone() Node { return &Number{value: n.value, negative: n.negative} }

// Holder re-attaches a node owned elsewhere in the same tree. It owns no
// children and prints exactly as its target.
type Holder struct {
	nodeBase
	target Node
}

func (n *Holder) Kind() NodeKind { return NodeKindHolder }

// Target returns the held node.
func (n *Holder) Target() Node { return n.target }

func (n *Holder) print(p *printer) {
	if n.target == nil {
		p.fail("empty holder")
		return
	}
	p.node(n.target)
}

func (n *Holder) clone() Node { return &Holder{target: n.target} }

// resolve follows non-owning links to the node that actually prints.
func resolve(n Node) Node {
	for {
		switch v := n.(type) {
		case *Holder:
			if v.target == nil {
				return n
			}
			n = v.target
		case *UserSubstitution:
			if v.target == nil {
				return n
			}
			n = v.target
		case *Substitution:
			if len(v.children) == 0 {
				return n
			}
			n = v.children[0]
		default:
			return n
		}
	}
}

// baseName returns the unqualified identifier a constructor or
// destructor of n would print.
func baseName(n Node) string {
	switch v := resolve(n).(type) {
	case *SourceName:
		return v.name
	case *UnqualifiedName:
		if v.unnamed != "" || len(v.children) == 0 {
			return ""
		}
		return baseName(v.children[0])
	case *BuiltinSubstitution:
		return builtinSubstitutions[v.code].ctor
	case *TemplateParam:
		if v.ref.target == nil {
			return ""
		}
		return baseName(v.ref.target)
	case *Prefix:
		for i := len(v.children) - 1; i >= 0; i-- {
			if resolve(v.children[i]).Kind() != NodeKindTemplateArgs {
				return baseName(v.children[i])
			}
		}
		return ""
	case *LocalName:
		if v.stringLiteral {
			return ""
		}
		return baseName(v.Child(1))
	case *Name, *NestedName, *UnscopedName, *UnscopedTemplateName, *Type, *TemplateArg:
		if c := v.Child(0); c != nil {
			return baseName(c)
		}
	}
	return ""
}

// willHaveReturnType reports whether a function with the given name
// mangles its return type first.
func willHaveReturnType(name Node) bool {
	switch v := resolve(name).(type) {
	case *Name:
		if len(v.children) == 2 {
			if utn, ok := v.children[0].(*UnscopedTemplateName); ok {
				if u, ok := resolve(utn.Child(0)).(*UnscopedName); ok {
					return templatedNameHasReturn(u.Child(0))
				}
			}
			return true
		}
		if len(v.children) == 1 {
			return willHaveReturnType(v.children[0])
		}
	case *NestedName:
		if pre, ok := v.Child(0).(*Prefix); ok {
			return pre.WillHaveReturnType()
		}
	case *LocalName:
		if !v.stringLiteral {
			return willHaveReturnType(v.Child(1))
		}
	}
	return false
}

// functionQualifiers digs the member-function qualifiers out of a name.
func functionQualifiers(name Node) (string, byte) {
	switch v := resolve(name).(type) {
	case *Name:
		if len(v.children) == 1 {
			return functionQualifiers(v.children[0])
		}
	case *NestedName:
		return v.cv, v.ref
	case *LocalName:
		if !v.stringLiteral {
			return functionQualifiers(v.Child(1))
		}
	}
	return "", 0
}

func printMethodQualifiers(p *printer, cv string, ref byte) {
	if strings.IndexByte(cv, 'K') >= 0 {
		p.write(" const")
	}
	if strings.IndexByte(cv, 'V') >= 0 {
		p.write(" volatile")
	}
	if strings.IndexByte(cv, 'r') >= 0 {
		p.write(" restrict")
	}
	switch ref {
	case 'R':
		p.write(" &")
	case 'O':
		p.write(" &&")
	}
}

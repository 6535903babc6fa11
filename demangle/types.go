package demangle

var builtinTypes = map[byte]string{
	'a': "signed char",
	'b': "bool",
	'c': "char",
	'd': "double",
	'e': "long double",
	'f': "float",
	'g': "__float128",
	'h': "unsigned char",
	'i': "int",
	'j': "unsigned int",
	'l': "long",
	'm': "unsigned long",
	'n': "__int128",
	'o': "unsigned __int128",
	's': "short",
	't': "unsigned short",
	'v': "void",
	'w': "wchar_t",
	'x': "long long",
	'y': "unsigned long long",
	'z': "...",
}

// Fixed D-prefixed builtin types.
var dTypes = map[byte]string{
	'a': "auto",
	'c': "decltype(auto)",
	'd': "decimal64",
	'e': "decimal128",
	'f': "decimal32",
	'h': "half",
	'i': "char32_t",
	'n': "decltype(nullptr)",
	's': "char16_t",
}

func isTypeQualifier(c byte) bool {
	switch c {
	case 'r', 'V', 'K', 'P', 'R', 'O':
		return true
	}
	return false
}

func isFloatingCode(code string) bool {
	switch code {
	case "d", "e", "f", "g", "Dd", "De", "Df", "Dh":
		return true
	}
	return false
}

// parseType parses a possibly qualified type and registers its
// substitution candidates.
//
//	<type> ::= <CV-qualifiers> <type>
//	       ::= P <type> | R <type> | O <type>
//	       ::= <builtin-type> | <function-type> | <class-enum-type>
//	       ::= <array-type> | <template-param> | <substitution>
//	       ::= Dp <type>
func (d *demangler) parseType() (*Type, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	start := d.r.Offset()
	for isTypeQualifier(d.peek()) {
		d.advance(1)
	}
	t := &Type{cv: d.r.Data()[start:d.r.Offset()]}
	if d.empty() {
		return nil, d.errorf(ErrMalformed, "unexpected end of input, expected type")
	}

	candidate := true
	switch c := d.peek(); {
	case builtinTypes[c] != "":
		d.advance(1)
		t.addNode(&BuiltinType{code: string(c), name: builtinTypes[c]})
		candidate = false

	case c == 'D':
		var err error
		candidate, err = d.parseDType(t)
		if err != nil {
			return nil, err
		}

	case c == 'u':
		// vendor extended type
		d.advance(1)
		sn, err := d.parseSourceName()
		if err != nil {
			return nil, err
		}
		t.addNode(sn)

	case c == 'F':
		if err := d.parseFunctionType(t); err != nil {
			return nil, err
		}

	case c == 'A':
		arr, err := d.parseArrayType()
		if err != nil {
			return nil, err
		}
		t.addNode(arr)

	case c == 'T':
		n, err := d.parseTemplateParamType()
		if err != nil {
			return nil, err
		}
		t.addNode(n)

	case c == 'S' && d.peekAt(1) != 't':
		sub, err := d.parseSubstitution()
		if err != nil {
			return nil, err
		}
		if d.peek() != 'I' {
			t.addNode(sub)
			candidate = false
			break
		}
		utn := &UnscopedTemplateName{}
		utn.addNode(sub)
		args, err := d.parseTemplateArgs(false)
		if err != nil {
			return nil, err
		}
		name := &Name{}
		name.addNode(utn)
		name.addNode(args)
		t.addNode(name)

	case c == 'N' || c == 'Z' || c == 'S' || isDigit(c):
		name, err := d.parseName(false)
		if err != nil {
			return nil, err
		}
		t.addNode(name)

	case c == 'M':
		return nil, d.errorf(ErrUnsupported, "pointer-to-member type")

	case c == 'U':
		return nil, d.errorf(ErrUnsupported, "vendor type qualifier")

	default:
		return nil, d.errorf(ErrMalformed, "unexpected character %q in type", c)
	}

	d.registerType(t, candidate)
	return t, nil
}

// registerType adds the substitution candidates of t: the unqualified
// type when candidate is set, then one entry per qualifier layer from the
// innermost out. Adjacent r/V/K qualifiers form a single layer.
func (d *demangler) registerType(t *Type, candidate bool) {
	if t.cv == "" {
		if candidate {
			d.addSubstitution(t)
		}
		return
	}
	if candidate {
		d.addSubstitution(t.withQualifiers(""))
	}
	for _, start := range qualifierLayers(t.cv) {
		if start == 0 {
			d.addSubstitution(t)
		} else {
			d.addSubstitution(t.withQualifiers(t.cv[start:]))
		}
	}
}

// qualifierLayers returns the start offset of each qualifier layer in
// cv, innermost first.
func qualifierLayers(cv string) []int {
	var layers []int
	i := len(cv)
	for i > 0 {
		j := i - 1
		if isCVQualifier(cv[j]) {
			for j > 0 && isCVQualifier(cv[j-1]) {
				j--
			}
		}
		layers = append(layers, j)
		i = j
	}
	return layers
}

func (n *Type) withQualifiers(cv string) *Type {
	c := n.clone().(*Type)
	c.cv = cv
	return c
}

// parseDType parses the D-prefixed type codes into t and reports whether
// the result is a substitution candidate.
func (d *demangler) parseDType(t *Type) (bool, error) {
	start := d.r.Offset()
	code := d.peekAt(1)
	if name, ok := dTypes[code]; ok {
		d.advance(2)
		t.addNode(&BuiltinType{code: "D" + string(code), name: name})
		return false, nil
	}

	switch code {
	case 'p':
		d.advance(2)
		if err := d.parsePackExpansion(t, start); err != nil {
			return false, err
		}
		return true, nil

	case 'x':
		d.advance(2)
		if d.peek() != 'F' {
			return false, d.errorAt(start, ErrMalformed, "Dx must be followed by a function type")
		}
		if err := d.parseFunctionType(t); err != nil {
			return false, err
		}
		t.transactionSafe = true
		return true, nil

	case 't', 'T':
		return false, d.errorAt(start, ErrUnsupported, "decltype type D%c", code)

	case 'F', 'v':
		return false, d.errorAt(start, ErrUnsupported, "type code D%c", code)

	case 0:
		return false, d.errorAt(start, ErrMalformed, "unexpected end of input after D")
	}
	return false, d.errorAt(start, ErrMalformed, "unknown type code D%c", code)
}

// parsePackExpansion parses the pattern of Dp and expands it against the
// already resolved pack. An empty pack leaves t empty.
func (d *demangler) parsePackExpansion(t *Type, start int) error {
	if !d.r.HasPrefix("T") && !isTypeQualifier(d.peek()) {
		return d.errorAt(start, ErrUnsupported, "pack expansion of a non-parameter type")
	}
	pattern, err := d.parseType()
	if err != nil {
		return err
	}
	if len(pattern.children) != 1 {
		return d.errorAt(start, ErrUnsupported, "pack expansion of a non-parameter type")
	}
	tp, ok := pattern.children[0].(*TemplateParam)
	if !ok {
		return d.errorAt(start, ErrUnsupported, "pack expansion of a non-parameter type")
	}
	if tp.ref.target == nil {
		return d.errorAt(start, ErrUnsupported, "pack expansion inside the enclosing template's own arguments")
	}

	pack, ok := tp.ref.target.(*TemplateArg)
	if !ok || !pack.pack {
		// Not a pack: the expansion is the single argument.
		t.addNode(pattern.withQualifiers(pattern.cv))
		return nil
	}
	if len(pack.children) == 0 {
		t.empty = true
		return nil
	}
	if pattern.cv == "" {
		t.addNode(&Holder{target: pack})
		return nil
	}
	expansion := &TemplateArg{pack: true}
	for _, elem := range pack.children {
		q := &Type{cv: pattern.cv}
		q.addNode(&Holder{target: elem})
		expansion.addNode(q)
	}
	t.addNode(expansion)
	return nil
}

// parseFunctionType parses F [Y] <bare-function-type> E into t.
func (d *demangler) parseFunctionType(t *Type) error {
	start := d.r.Offset()
	if err := d.expect('F', "'F'"); err != nil {
		return err
	}
	d.consume("Y")

	bft, err := d.parseBareFunctionType()
	if err != nil {
		return err
	}
	if d.empty() {
		return d.errorAt(start, ErrMalformed, "unterminated function type")
	}
	if err := d.expect('E', "'E' after function type"); err != nil {
		return err
	}
	ret := bft.retrieveReturnType()
	if len(bft.children) == 0 {
		return d.errorAt(start, ErrMalformed, "function type without parameter types")
	}
	t.addNode(ret)
	t.addNode(bft)
	return nil
}

// parseBareFunctionType parses types up to the end of the enclosing
// construct. At least one type is required.
func (d *demangler) parseBareFunctionType() (*BareFunctionType, error) {
	bft := &BareFunctionType{}
	for !d.atEncodingEnd() {
		t, err := d.parseType()
		if err != nil {
			return nil, err
		}
		bft.addNode(t)
	}
	if len(bft.children) == 0 {
		return nil, d.errorf(ErrMalformed, "expected parameter types")
	}
	return bft, nil
}

// parseArrayType parses A <number> _ <type> and A _ <type>.
func (d *demangler) parseArrayType() (*ArrayType, error) {
	if err := d.expect('A', "'A'"); err != nil {
		return nil, err
	}
	arr := &ArrayType{}
	if isDigit(d.peek()) {
		arr.dim = d.r.ReadDigits()
	} else if d.peek() != '_' {
		return nil, d.errorf(ErrUnsupported, "array dimension expression")
	}
	if err := d.expect('_', "'_' after array dimension"); err != nil {
		return nil, err
	}
	elem, err := d.parseType()
	if err != nil {
		return nil, err
	}
	arr.addNode(elem)
	return arr, nil
}

// parseTemplateParamType parses a template parameter used as a type,
// including a template template parameter with its own arguments.
func (d *demangler) parseTemplateParamType() (Node, error) {
	tp, err := d.parseTemplateParam()
	if err != nil {
		return nil, err
	}
	if d.peek() != 'I' || d.convType {
		return tp, nil
	}

	inner := &Type{}
	inner.addNode(tp)
	d.addSubstitution(inner)
	args, err := d.parseTemplateArgs(false)
	if err != nil {
		return nil, err
	}
	utn := &UnscopedTemplateName{}
	utn.addNode(inner)
	name := &Name{}
	name.addNode(utn)
	name.addNode(args)
	return name, nil
}

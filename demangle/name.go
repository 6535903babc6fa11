package demangle

// parse parses a complete mangled name.
//
//	<mangled-name> ::= _Z <encoding> [<clone-suffix>]*
func (d *demangler) parse() (*MangledName, error) {
	if !d.consume("_Z") {
		return nil, d.errorf(ErrNotMangled, "missing _Z prefix")
	}

	enc, err := d.parseEncoding()
	if err != nil {
		return nil, err
	}

	m := &MangledName{}
	m.addNode(enc)
	for d.peek() == '.' {
		suffix, ok := d.parseCloneSuffix()
		if !ok {
			break
		}
		m.suffixes = append(m.suffixes, suffix)
	}

	if !d.empty() {
		return nil, d.errorf(ErrMalformed, "unexpected trailing characters")
	}
	return m, nil
}

// parseCloneSuffix reads ".name" or ".digits", plus any ".digits" tail.
func (d *demangler) parseCloneSuffix() (string, bool) {
	start := d.r.Offset()
	switch c := d.peekAt(1); {
	case isLower(c) || c == '_':
		d.advance(1)
		for isLower(d.peek()) || d.peek() == '_' {
			d.advance(1)
		}
	case isDigit(c):
		d.advance(1)
		d.r.ReadDigits()
	default:
		return "", false
	}
	for d.peek() == '.' && isDigit(d.peekAt(1)) {
		d.advance(1)
		d.r.ReadDigits()
	}
	return d.r.Data()[start:d.r.Offset()], true
}

// parseEncoding parses a function, data or special-name encoding. Each
// encoding gets its own template frame.
//
//	<encoding> ::= <name> <bare-function-type>
//	           ::= <name>
//	           ::= <special-name>
func (d *demangler) parseEncoding() (*Encoding, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	pop := d.pushFrame()
	defer pop()

	if d.empty() {
		return nil, d.errorf(ErrMalformed, "unexpected end of input, expected encoding")
	}
	if c := d.peek(); c == 'T' || c == 'G' {
		return d.parseSpecialName()
	}

	name, err := d.parseName(true)
	if err != nil {
		return nil, err
	}
	if err := d.finishName(); err != nil {
		return nil, err
	}

	enc := &Encoding{}
	if d.atEncodingEnd() {
		enc.addNode(name)
		return enc, nil
	}

	start := d.r.Offset()
	enc.function = true
	bft, err := d.parseBareFunctionType()
	if err != nil {
		return nil, err
	}
	if willHaveReturnType(name) {
		ret := bft.retrieveReturnType()
		if len(bft.children) == 0 {
			return nil, d.errorAt(start, ErrMalformed, "missing parameter types after return type")
		}
		enc.hasReturn = true
		enc.addNode(ret)
	}
	enc.addNode(name)
	enc.addNode(bft)
	return enc, nil
}

func (d *demangler) atEncodingEnd() bool {
	return d.empty() || d.peek() == 'E' || d.peek() == '.'
}

var specialTypePrefixes = map[string]string{
	"TV": "vtable for ",
	"TT": "VTT for ",
	"TI": "typeinfo for ",
	"TS": "typeinfo name for ",
}

// parseSpecialName parses virtual tables, RTTI, guard variables and thunks.
func (d *demangler) parseSpecialName() (*Encoding, error) {
	start := d.r.Offset()
	if d.r.Remaining() < 2 {
		return nil, d.errorf(ErrMalformed, "unexpected end of input in special name")
	}
	code, _ := d.r.ReadString(2)
	enc := &Encoding{}

	if prefix, ok := specialTypePrefixes[code]; ok {
		if err := d.finishName(); err != nil {
			return nil, err
		}
		t, err := d.parseType()
		if err != nil {
			return nil, err
		}
		enc.special = prefix
		enc.addNode(t)
		return enc, nil
	}

	switch code {
	case "GV":
		name, err := d.parseName(true)
		if err != nil {
			return nil, err
		}
		if err := d.finishName(); err != nil {
			return nil, err
		}
		enc.special = "guard variable for "
		enc.addNode(name)
		return enc, nil

	case "Th", "Tv", "Tc":
		if err := d.finishName(); err != nil {
			return nil, err
		}
		var err error
		switch code {
		case "Th":
			enc.special = "non-virtual thunk to "
			enc.offsets, err = d.parseCallOffset('h')
		case "Tv":
			enc.special = "virtual thunk to "
			enc.offsets, err = d.parseCallOffset('v')
		default:
			enc.special = "covariant return thunk to "
			enc.offsets, err = d.parseCovariantOffsets()
		}
		if err != nil {
			return nil, err
		}
		target, err := d.parseEncoding()
		if err != nil {
			return nil, err
		}
		enc.addNode(target)
		return enc, nil
	}

	return nil, d.errorAt(start, ErrUnsupported, "special name %q", code)
}

// parseCallOffset parses the body of an h or v call offset.
//
//	<call-offset> ::= h <nv-offset> _
//	              ::= v <v-offset> _
//	<v-offset>    ::= <offset number> _ <virtual offset number>
func (d *demangler) parseCallOffset(kind byte) (string, error) {
	nv, err := d.parseNumber()
	if err != nil {
		return "", err
	}
	if err := d.expect('_', "'_' after call offset"); err != nil {
		return "", err
	}
	if kind == 'h' {
		return "h:" + nv.Value(), nil
	}
	v, err := d.parseNumber()
	if err != nil {
		return "", err
	}
	if err := d.expect('_', "'_' after virtual call offset"); err != nil {
		return "", err
	}
	return "v:" + nv.Value() + "," + v.Value(), nil
}

func (d *demangler) parseCovariantOffsets() (string, error) {
	var out string
	for i := 0; i < 2; i++ {
		kind := d.peek()
		if kind != 'h' && kind != 'v' {
			return "", d.errorf(ErrMalformed, "expected call offset, found %q", kind)
		}
		d.advance(1)
		off, err := d.parseCallOffset(kind)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out += " "
		}
		out += off
	}
	return out, nil
}

// parseName parses any name form. When tag is set, template argument
// lists directly on the name become the active argument list of the
// enclosing encoding.
//
//	<name> ::= <nested-name>
//	       ::= <unscoped-name>
//	       ::= <unscoped-template-name> <template-args>
//	       ::= <local-name>
func (d *demangler) parseName(tag bool) (*Name, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	name := &Name{}
	switch c := d.peek(); {
	case c == 'N':
		nn, err := d.parseNestedName(tag)
		if err != nil {
			return nil, err
		}
		name.addNode(nn)

	case c == 'Z':
		ln, err := d.parseLocalName(tag)
		if err != nil {
			return nil, err
		}
		name.addNode(ln)

	case c == 'S' && d.peekAt(1) != 't':
		start := d.r.Offset()
		sub, err := d.parseSubstitution()
		if err != nil {
			return nil, err
		}
		if d.peek() != 'I' {
			return nil, d.errorAt(start, ErrMalformed, "substitution used as a name without template arguments")
		}
		utn := &UnscopedTemplateName{}
		utn.addNode(sub)
		args, err := d.parseTemplateArgs(tag)
		if err != nil {
			return nil, err
		}
		name.addNode(utn)
		name.addNode(args)

	default:
		u, err := d.parseUnscopedName()
		if err != nil {
			return nil, err
		}
		if d.peek() != 'I' {
			name.addNode(u)
			break
		}
		utn := &UnscopedTemplateName{}
		utn.addNode(u)
		d.addSubstitution(utn)
		args, err := d.parseTemplateArgs(tag)
		if err != nil {
			return nil, err
		}
		name.addNode(utn)
		name.addNode(args)
	}
	return name, nil
}

// parseUnscopedName parses an unqualified name, optionally prefixed by St.
func (d *demangler) parseUnscopedName() (*UnscopedName, error) {
	u := &UnscopedName{}
	if d.consume("St") {
		u.std = true
	}
	un, err := d.parseUnqualifiedName("")
	if err != nil {
		return nil, err
	}
	u.addNode(un)
	return u, nil
}

// parseNestedName parses a qualified name. Every proper prefix that is
// not itself a bare substitution is a substitution candidate.
//
//	<nested-name> ::= N [<CV-qualifiers>] [<ref-qualifier>] <prefix> <unqualified-name> E
//	              ::= N [<CV-qualifiers>] [<ref-qualifier>] <template-prefix> <template-args> E
func (d *demangler) parseNestedName(tag bool) (*NestedName, error) {
	start := d.r.Offset()
	if err := d.expect('N', "'N'"); err != nil {
		return nil, err
	}

	nn := &NestedName{}
	cvStart := d.r.Offset()
	for isCVQualifier(d.peek()) {
		d.advance(1)
	}
	nn.cv = d.r.Data()[cvStart:d.r.Offset()]
	if c := d.peek(); c == 'R' || c == 'O' {
		nn.ref = c
		d.advance(1)
	}

	prefix := &Prefix{}
	lastName := ""
	for {
		if d.empty() {
			return nil, d.errorAt(start, ErrMalformed, "unterminated nested name")
		}
		if d.peek() == 'E' {
			d.advance(1)
			break
		}

		isSubstitution := false
		switch c := d.peek(); {
		case c == 'S':
			sub, err := d.parseSubstitution()
			if err != nil {
				return nil, err
			}
			if b, ok := sub.children[0].(*BuiltinSubstitution); ok && d.peek() != 'E' {
				b.expanded = true
			}
			prefix.addNode(sub)
			lastName = baseName(sub)
			isSubstitution = true

		case c == 'T':
			tp, err := d.parseTemplateParam()
			if err != nil {
				return nil, err
			}
			prefix.addNode(tp)
			lastName = baseName(tp)

		case c == 'I':
			if len(prefix.children) == 0 {
				return nil, d.errorf(ErrMalformed, "template arguments without a template name")
			}
			args, err := d.parseTemplateArgs(tag)
			if err != nil {
				return nil, err
			}
			prefix.addNode(args)

		case c == 'D' && (d.peekAt(1) == 't' || d.peekAt(1) == 'T'):
			return nil, d.errorf(ErrUnsupported, "decltype in nested name (D%c)", d.peekAt(1))

		default:
			un, err := d.parseUnqualifiedName(lastName)
			if err != nil {
				return nil, err
			}
			prefix.addNode(un)
			lastName = baseName(un)
		}

		if !isSubstitution && d.peek() != 'E' {
			d.addSubstitution(prefix.snapshot())
		}
	}

	if len(prefix.children) == 0 {
		return nil, d.errorAt(start, ErrMalformed, "empty nested name")
	}
	nn.addNode(prefix)
	return nn, nil
}

// parseUnqualifiedName parses one name component. className is the
// identifier constructors and destructors print.
//
//	<unqualified-name> ::= <operator-name> [<abi-tags>]
//	                   ::= <ctor-dtor-name>
//	                   ::= <source-name> [<abi-tags>]
//	                   ::= <unnamed-type-name>
//	                   ::= L <source-name>
func (d *demangler) parseUnqualifiedName(className string) (*UnqualifiedName, error) {
	u := &UnqualifiedName{}
	switch c := d.peek(); {
	case isDigit(c):
		sn, err := d.parseSourceName()
		if err != nil {
			return nil, err
		}
		u.addNode(sn)

	case c == 'L':
		// internal linkage
		d.advance(1)
		sn, err := d.parseSourceName()
		if err != nil {
			return nil, err
		}
		u.addNode(sn)

	case c == 'C' || (c == 'D' && isDtorVariant(d.peekAt(1))):
		ctor, err := d.parseCtorDtorName(className)
		if err != nil {
			return nil, err
		}
		u.addNode(ctor)

	case c == 'D':
		return nil, d.errorf(ErrUnsupported, "name code D%c", d.peekAt(1))

	case c == 'U':
		if err := d.parseUnnamedTypeName(u); err != nil {
			return nil, err
		}

	case isLower(c):
		op, err := d.parseOperatorName()
		if err != nil {
			return nil, err
		}
		u.addNode(op)

	case c == 0:
		return nil, d.errorf(ErrMalformed, "unexpected end of input, expected name")

	default:
		return nil, d.errorf(ErrMalformed, "unexpected character %q in name", c)
	}

	for d.peek() == 'B' {
		d.advance(1)
		tag, err := d.parseIdentifier()
		if err != nil {
			return nil, err
		}
		u.abiTags = append(u.abiTags, tag)
	}
	return u, nil
}

func (d *demangler) parseSourceName() (*SourceName, error) {
	id, err := d.parseIdentifier()
	if err != nil {
		return nil, err
	}
	return &SourceName{name: id}, nil
}

// parseIdentifier reads <length> <identifier>.
func (d *demangler) parseIdentifier() (string, error) {
	start := d.r.Offset()
	n, err := d.r.ReadDecimal()
	if err != nil {
		return "", d.errorAt(start, ErrMalformed, "expected source name length")
	}
	if n == 0 {
		return "", d.errorAt(start, ErrMalformed, "zero-length source name")
	}
	id, err := d.r.ReadString(n)
	if err != nil {
		return "", d.errorAt(start, ErrMalformed, "source name length %d exceeds remaining input", n)
	}
	return id, nil
}

func isDtorVariant(c byte) bool {
	switch c {
	case '0', '1', '2', '4', '5':
		return true
	}
	return false
}

func isCtorVariant(c byte) bool {
	return c >= '1' && c <= '5'
}

// parseCtorDtorName parses C1-C5 or D0-D5.
func (d *demangler) parseCtorDtorName(className string) (*Constructor, error) {
	start := d.r.Offset()
	kind, variant := d.peek(), d.peekAt(1)
	if kind == 'C' && variant == 'I' {
		return nil, d.errorf(ErrUnsupported, "inheriting constructor")
	}
	if (kind == 'C' && !isCtorVariant(variant)) || (kind == 'D' && !isDtorVariant(variant)) {
		return nil, d.errorf(ErrMalformed, "invalid constructor or destructor code %c%c", kind, variant)
	}
	if className == "" {
		return nil, d.errorAt(start, ErrMalformed, "constructor or destructor outside of a class")
	}
	d.advance(2)
	return &Constructor{className: className, dtor: kind == 'D', variant: variant}, nil
}

// parseUnnamedTypeName parses unnamed types and closures into u.
//
//	<unnamed-type-name> ::= Ut [<number>] _
//	                    ::= Ul <lambda-sig> E [<number>] _
func (d *demangler) parseUnnamedTypeName(u *UnqualifiedName) error {
	start := d.r.Offset()
	switch {
	case d.consume("Ut"):
		u.unnamed = "type"
	case d.consume("Ul"):
		u.unnamed = "lambda"
		sig := &BareFunctionType{}
		for d.peek() != 'E' {
			if d.empty() {
				return d.errorAt(start, ErrMalformed, "unterminated lambda signature")
			}
			t, err := d.parseType()
			if err != nil {
				return err
			}
			sig.addNode(t)
		}
		d.advance(1)
		if len(sig.children) == 0 {
			return d.errorAt(start, ErrMalformed, "empty lambda signature")
		}
		u.addNode(sig)
	default:
		return d.errorf(ErrUnsupported, "name code U%c", d.peekAt(1))
	}

	u.index = 1
	if d.peek() != '_' {
		n, err := d.r.ReadDecimal()
		if err != nil {
			return d.errorf(ErrMalformed, "invalid unnamed type index")
		}
		u.index = n + 2
	}
	return d.expect('_', "'_' after unnamed type")
}

// parseLocalName parses an entity local to a function.
//
//	<local-name> ::= Z <function encoding> E <entity name> [<discriminator>]
//	             ::= Z <function encoding> E s [<discriminator>]
func (d *demangler) parseLocalName(tag bool) (*LocalName, error) {
	if err := d.expect('Z', "'Z'"); err != nil {
		return nil, err
	}
	enc, err := d.parseEncoding()
	if err != nil {
		return nil, err
	}
	if err := d.expect('E', "'E' after local name scope"); err != nil {
		return nil, err
	}

	ln := &LocalName{}
	ln.addNode(enc)
	if d.peek() == 's' {
		d.advance(1)
		ln.stringLiteral = true
	} else {
		entity, err := d.parseName(tag)
		if err != nil {
			return nil, err
		}
		ln.addNode(entity)
	}

	disc, err := d.parseDiscriminator()
	if err != nil {
		return nil, err
	}
	ln.discriminator = disc
	return ln, nil
}

// parseDiscriminator returns the 1-based occurrence number of a local
// entity, or 0 when none is mangled.
//
//	<discriminator> ::= _ <digit>
//	                ::= __ <number> _
func (d *demangler) parseDiscriminator() (int, error) {
	if d.peek() != '_' {
		return 0, nil
	}
	if c := d.peekAt(1); isDigit(c) {
		d.advance(2)
		return int(c-'0') + 2, nil
	}
	if d.peekAt(1) == '_' {
		d.advance(2)
		n, err := d.r.ReadDecimal()
		if err != nil {
			return 0, d.errorf(ErrMalformed, "invalid discriminator")
		}
		if err := d.expect('_', "'_' after discriminator"); err != nil {
			return 0, err
		}
		return n + 2, nil
	}
	return 0, d.errorf(ErrMalformed, "invalid discriminator")
}

// parseSubstitution parses a library abbreviation or a back-reference.
//
//	<substitution> ::= S_
//	               ::= S <seq-id> _
//	               ::= St | Sa | Sb | Ss | Si | So | Sd
func (d *demangler) parseSubstitution() (*Substitution, error) {
	start := d.r.Offset()
	if err := d.expect('S', "'S'"); err != nil {
		return nil, err
	}

	sub := &Substitution{}
	c := d.peek()
	if _, ok := builtinSubstitutions[c]; ok {
		d.advance(1)
		sub.addNode(&BuiltinSubstitution{code: c})
		return sub, nil
	}

	index := 0
	if c != '_' {
		n, err := d.r.ReadBase36()
		if err != nil {
			return nil, d.errorAt(start, ErrMalformed, "invalid substitution")
		}
		index = n + 1
	}
	if err := d.expect('_', "'_' after substitution"); err != nil {
		return nil, err
	}

	target, err := d.substitution(index, start)
	if err != nil {
		return nil, err
	}
	sub.addNode(&UserSubstitution{index: index, target: target})
	return sub, nil
}

type operatorInfo struct {
	symbol string
	arity  int
	// expr is set for operators accepted inside expressions.
	expr bool
}

var operators = map[string]operatorInfo{
	"nw": {" new", 3, false},
	"na": {" new[]", 3, false},
	"dl": {" delete", 1, false},
	"da": {" delete[]", 1, false},
	"aw": {" co_await", 1, false},
	"ps": {"+", 1, true},
	"ng": {"-", 1, true},
	"ad": {"&", 1, true},
	"de": {"*", 1, true},
	"co": {"~", 1, true},
	"pl": {"+", 2, true},
	"mi": {"-", 2, true},
	"ml": {"*", 2, true},
	"dv": {"/", 2, true},
	"rm": {"%", 2, true},
	"an": {"&", 2, true},
	"or": {"|", 2, true},
	"eo": {"^", 2, true},
	"aS": {"=", 2, true},
	"pL": {"+=", 2, true},
	"mI": {"-=", 2, true},
	"mL": {"*=", 2, true},
	"dV": {"/=", 2, true},
	"rM": {"%=", 2, true},
	"aN": {"&=", 2, true},
	"oR": {"|=", 2, true},
	"eO": {"^=", 2, true},
	"ls": {"<<", 2, true},
	"rs": {">>", 2, true},
	"lS": {"<<=", 2, true},
	"rS": {">>=", 2, true},
	"eq": {"==", 2, true},
	"ne": {"!=", 2, true},
	"lt": {"<", 2, true},
	"gt": {">", 2, true},
	"le": {"<=", 2, true},
	"ge": {">=", 2, true},
	"ss": {"<=>", 2, true},
	"nt": {"!", 1, true},
	"aa": {"&&", 2, true},
	"oo": {"||", 2, true},
	"pp": {"++", 1, true},
	"mm": {"--", 1, true},
	"cm": {",", 2, true},
	"pm": {"->*", 2, false},
	"pt": {"->", 2, false},
	"cl": {"()", 2, false},
	"ix": {"[]", 2, false},
	"qu": {"?", 3, false},
}

// parseOperatorName parses a two-letter operator code, a conversion
// operator, a literal operator or a vendor operator.
func (d *demangler) parseOperatorName() (*OperatorName, error) {
	start := d.r.Offset()
	code, err := d.r.ReadString(2)
	if err != nil {
		return nil, d.errorf(ErrMalformed, "unexpected end of input in operator name")
	}

	switch {
	case code == "cv":
		saved := d.convType
		d.convType = true
		t, err := d.parseType()
		d.convType = saved
		if err != nil {
			return nil, err
		}
		op := &OperatorName{code: code}
		op.addNode(t)
		return op, nil

	case code == "li" || (code[0] == 'v' && isDigit(code[1])):
		sn, err := d.parseSourceName()
		if err != nil {
			return nil, err
		}
		op := &OperatorName{code: code}
		op.addNode(sn)
		return op, nil
	}

	info, ok := operators[code]
	if !ok {
		return nil, d.errorAt(start, ErrMalformed, "unknown operator code %q", code)
	}
	return &OperatorName{code: code, symbol: info.symbol}, nil
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isCVQualifier(c byte) bool {
	return c == 'r' || c == 'V' || c == 'K'
}

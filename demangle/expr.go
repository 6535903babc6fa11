package demangle

import "fmt"

// parseExpression parses the supported expression subset.
func (d *demangler) parseExpression() (*Expression, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	e := &Expression{}
	switch {
	case d.peek() == 'T':
		tp, err := d.parseTemplateParam()
		if err != nil {
			return nil, err
		}
		e.addNode(tp)

	case d.peek() == 'L':
		ep, err := d.parseExprPrimary()
		if err != nil {
			return nil, err
		}
		e.addNode(ep)

	case d.consume("fp"):
		// fp <CV-qualifiers> [<number>] _
		for isCVQualifier(d.peek()) {
			d.advance(1)
		}
		e.form = exprFunctionParam
		if d.peek() == '_' {
			d.advance(1)
			e.text = "fp"
			break
		}
		n, err := d.r.ReadDecimal()
		if err != nil {
			return nil, d.errorf(ErrMalformed, "invalid function parameter reference")
		}
		if err := d.expect('_', "'_' after function parameter"); err != nil {
			return nil, err
		}
		e.text = fmt.Sprintf("fp%d", n+1)

	case d.consume("st"):
		t, err := d.parseType()
		if err != nil {
			return nil, err
		}
		e.form = exprSizeofType
		e.addNode(t)

	case d.consume("sz"):
		x, err := d.parseExpression()
		if err != nil {
			return nil, err
		}
		e.form = exprSizeofExpr
		e.addNode(x)

	case d.r.HasPrefix("sZ"):
		if d.peekAt(2) != 'T' {
			return nil, d.errorf(ErrUnsupported, "sizeof... of a function parameter pack")
		}
		d.advance(2)
		tp, err := d.parseTemplateParam()
		if err != nil {
			return nil, err
		}
		e.form = exprSizeofPack
		e.addNode(tp)

	case d.consume("sr"):
		un, err := d.parseUnresolvedName()
		if err != nil {
			return nil, err
		}
		e.addNode(un)

	default:
		if d.r.Remaining() < 2 {
			return nil, d.errorf(ErrMalformed, "unexpected end of input in expression")
		}
		code := d.r.RemainingData()[:2]
		info, ok := operators[code]
		if !ok || !info.expr {
			return nil, d.errorf(ErrUnsupported, "expression code %q", code)
		}
		d.advance(2)
		e.text = info.symbol
		e.form = exprUnary
		if info.arity == 2 {
			e.form = exprBinary
		}
		for i := 0; i < info.arity; i++ {
			operand, err := d.parseExpression()
			if err != nil {
				return nil, err
			}
			e.addNode(operand)
		}
	}
	return e, nil
}

// parseExprPrimary parses a literal or an external name.
//
//	<expr-primary> ::= L <type> <value number> E
//	               ::= L <type> E
//	               ::= L _Z <encoding> E
func (d *demangler) parseExprPrimary() (*ExprPrimary, error) {
	start := d.r.Offset()
	if err := d.expect('L', "'L'"); err != nil {
		return nil, err
	}

	ep := &ExprPrimary{}
	if d.consume("_Z") {
		enc, err := d.parseEncoding()
		if err != nil {
			return nil, err
		}
		if err := d.expect('E', "'E' after external name"); err != nil {
			return nil, err
		}
		ep.addNode(enc)
		return ep, nil
	}

	t, err := d.parseType()
	if err != nil {
		return nil, err
	}
	if t.cv == "" && len(t.children) == 1 {
		if b, ok := t.children[0].(*BuiltinType); ok && isFloatingCode(b.code) {
			return nil, d.errorAt(start, ErrUnsupported, "floating-point literal of type %s", b.name)
		}
	}
	ep.addNode(t)

	if d.peek() == 'n' || isDigit(d.peek()) {
		num, err := d.parseNumber()
		if err != nil {
			return nil, err
		}
		ep.addNode(num)
	}
	if err := d.expect('E', "'E' after literal"); err != nil {
		return nil, err
	}
	return ep, nil
}

// parseNumber parses [n] <decimal digits>.
func (d *demangler) parseNumber() (*Number, error) {
	start := d.r.Offset()
	n := &Number{}
	if d.consume("n") {
		n.negative = true
	}
	n.value = d.r.ReadDigits()
	if n.value == "" {
		return nil, d.errorAt(start, ErrMalformed, "expected number")
	}
	return n, nil
}

// parseUnresolvedName parses the body of an sr expression.
//
//	sr <unresolved-type> <simple-id>
//	<unresolved-type> ::= <template-param> | <decltype> | <substitution>
func (d *demangler) parseUnresolvedName() (*UnresolvedName, error) {
	un := &UnresolvedName{}
	switch c := d.peek(); {
	case c == 'T' || c == 'S':
		t, err := d.parseType()
		if err != nil {
			return nil, err
		}
		un.addNode(t)
	case c == 'D' && (d.peekAt(1) == 't' || d.peekAt(1) == 'T'):
		dt, err := d.parseDecltype()
		if err != nil {
			return nil, err
		}
		un.addNode(dt)
	case c == 'N':
		return nil, d.errorf(ErrUnsupported, "multi-level unresolved name")
	default:
		return nil, d.errorf(ErrUnsupported, "unresolved name starting with %q", c)
	}

	if !isDigit(d.peek()) {
		return nil, d.errorf(ErrUnsupported, "unresolved name component %q", d.peek())
	}
	sn, err := d.parseSourceName()
	if err != nil {
		return nil, err
	}
	un.addNode(sn)
	if d.peek() == 'I' {
		args, err := d.parseTemplateArgs(false)
		if err != nil {
			return nil, err
		}
		un.addNode(args)
	}
	return un, nil
}

// parseDecltype parses Dt <expression> E and DT <expression> E.
func (d *demangler) parseDecltype() (*Decltype, error) {
	d.advance(2)
	e, err := d.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := d.expect('E', "'E' after decltype"); err != nil {
		return nil, err
	}
	dt := &Decltype{}
	dt.addNode(e)
	return dt, nil
}

package demangle

// parseTemplateArgs parses I <template-arg>+ E. With tag set, the list
// becomes the argument list of the enclosing encoding.
func (d *demangler) parseTemplateArgs(tag bool) (*TemplateArgs, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	start := d.r.Offset()
	if err := d.expect('I', "'I'"); err != nil {
		return nil, err
	}

	saved := d.convType
	d.convType = false
	defer func() { d.convType = saved }()

	args := &TemplateArgs{}
	for {
		if d.empty() {
			return nil, d.errorAt(start, ErrMalformed, "unterminated template argument list")
		}
		if d.peek() == 'E' {
			d.advance(1)
			break
		}
		arg, err := d.parseTemplateArg()
		if err != nil {
			return nil, err
		}
		args.addNode(arg)
	}
	if len(args.children) == 0 {
		return nil, d.errorAt(start, ErrMalformed, "empty template argument list")
	}

	if tag {
		d.setTemplateArgs(args)
	}
	return args, nil
}

// parseTemplateArg parses one template argument.
//
//	<template-arg> ::= <type>
//	               ::= X <expression> E
//	               ::= <expr-primary>
//	               ::= J <template-arg>* E
func (d *demangler) parseTemplateArg() (*TemplateArg, error) {
	arg := &TemplateArg{}
	switch d.peek() {
	case 'X':
		d.advance(1)
		e, err := d.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := d.expect('E', "'E' after template argument expression"); err != nil {
			return nil, err
		}
		arg.addNode(e)

	case 'L':
		ep, err := d.parseExprPrimary()
		if err != nil {
			return nil, err
		}
		arg.addNode(ep)

	case 'J':
		start := d.r.Offset()
		d.advance(1)
		arg.pack = true
		for {
			if d.empty() {
				return nil, d.errorAt(start, ErrMalformed, "unterminated argument pack")
			}
			if d.peek() == 'E' {
				d.advance(1)
				break
			}
			elem, err := d.parseTemplateArg()
			if err != nil {
				return nil, err
			}
			arg.addNode(elem)
		}
		arg.empty = len(arg.children) == 0

	default:
		t, err := d.parseType()
		if err != nil {
			return nil, err
		}
		arg.addNode(t)
	}
	return arg, nil
}

// parseTemplateParam parses T_ or T <number> _ and binds it against the
// active template frame.
func (d *demangler) parseTemplateParam() (*TemplateParam, error) {
	start := d.r.Offset()
	if err := d.expect('T', "'T'"); err != nil {
		return nil, err
	}
	index := 0
	if d.peek() != '_' {
		n, err := d.r.ReadDecimal()
		if err != nil {
			return nil, d.errorAt(start, ErrMalformed, "invalid template parameter")
		}
		index = n + 1
	}
	if err := d.expect('_', "'_' after template parameter"); err != nil {
		return nil, err
	}

	ref := &paramRef{index: index, offset: start}
	if err := d.resolveParam(ref); err != nil {
		return nil, err
	}
	return &TemplateParam{ref: ref}, nil
}

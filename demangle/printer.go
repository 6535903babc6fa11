package demangle

import (
	"fmt"
	"strings"
)

// Options controls how a decoded tree is rendered.
type Options struct {
	// ShowElided prints what demanglers usually hide: empty parameter
	// packs, local-name discriminators and thunk offsets.
	ShowElided bool
	// ExpandStd spells library abbreviations such as std::string in full.
	ExpandStd bool
	// NoParams omits function parameter lists and return types.
	NoParams bool
}

// Option configures Demangle.
type Option func(*Options)

// WithShowElided enables Options.ShowElided.
func WithShowElided() Option {
	return func(o *Options) { o.ShowElided = true }
}

// WithExpandStd enables Options.ExpandStd.
func WithExpandStd() Option {
	return func(o *Options) { o.ExpandStd = true }
}

// WithNoParams enables Options.NoParams.
func WithNoParams() Option {
	return func(o *Options) { o.NoParams = true }
}

// printer accumulates rendered text. The first structural problem found
// while printing is kept in err; printing continues so callers never see
// a partially written node without an error.
type printer struct {
	sb   strings.Builder
	opts Options
	err  error
}

func (p *printer) Write(b []byte) (int, error) {
	return p.sb.Write(b)
}

func (p *printer) write(s string) {
	p.sb.WriteString(s)
}

func (p *printer) node(n Node) {
	if n == nil {
		p.fail("nil node")
		return
	}
	n.print(p)
}

// list prints nodes separated by ", ", skipping empty parameter packs
// unless elided entities are requested.
func (p *printer) list(nodes []Node) {
	first := true
	for _, n := range nodes {
		if !p.opts.ShowElided && isEmptyPack(n) {
			continue
		}
		if !first {
			p.write(", ")
		}
		first = false
		p.node(n)
	}
}

func isEmptyPack(n Node) bool {
	n = resolve(n)
	if tp, ok := n.(*TemplateParam); ok && tp.ref.target != nil {
		n = tp.ref.target
	}
	return n.IsEmpty()
}

// capture prints into a separate buffer and returns the text. Errors are
// kept on p.
func (p *printer) capture(f func(*printer)) string {
	sub := &printer{opts: p.opts}
	f(sub)
	if sub.err != nil && p.err == nil {
		p.err = sub.err
	}
	return sub.sb.String()
}

func (p *printer) requireChildren(n Node, count int) bool {
	if n.NodeCount() < count {
		p.fail("%s node has %d children, want at least %d", n.Kind(), n.NodeCount(), count)
		return false
	}
	return true
}

func (p *printer) fail(format string, args ...any) {
	if p.err == nil {
		p.err = &DecodeError{Kind: ErrInvariant, Offset: -1, Msg: fmt.Sprintf(format, args...)}
	}
}

func (p *printer) String() string {
	return p.sb.String()
}

// RenderNode prints a single node of a decoded tree.
func RenderNode(n Node, opts Options) (string, error) {
	if n == nil {
		return "", &DecodeError{Kind: ErrInvariant, Offset: -1, Msg: "nil node"}
	}
	p := &printer{opts: opts}
	p.node(n)
	if p.err != nil {
		return "", p.err
	}
	return p.String(), nil
}

package demangle

import (
	"fmt"

	"github.com/skdltmxn/cxxfilt-go/internal/stream"
)

// maxDepth bounds parser recursion on adversarial input.
const maxDepth = 256

// snippetLen is how much unread input an error quotes.
const snippetLen = 32

// demangler holds parser state for a single Decode call.
type demangler struct {
	r *stream.Reader

	// User substitution table, indexed by seq-id.
	subs []Node

	// Template frames, one per encoding being parsed.
	frames []*templateFrame

	// convType is set while parsing the type of a conversion operator,
	// where template arguments after a parameter belong to the operator.
	convType bool

	depth int
}

// templateFrame is the argument list template parameters resolve against.
type templateFrame struct {
	args []Node
	// awaiting is set while the encoding's own name is being parsed; its
	// final argument list is not known yet, so references are queued.
	awaiting bool
	pending  []*paramRef
}

func newDemangler(input string) *demangler {
	return &demangler{r: stream.NewReader(input)}
}

func (d *demangler) peek() byte { return d.r.Peek() }

func (d *demangler) peekAt(i int) byte { return d.r.PeekAt(i) }

func (d *demangler) empty() bool { return d.r.Empty() }

func (d *demangler) advance(n int) {
	// Callers only advance past bytes they have peeked.
	_ = d.r.Skip(n)
}

func (d *demangler) consume(p string) bool { return d.r.Consume(p) }

// expect consumes c or fails with a malformed-input error.
func (d *demangler) expect(c byte, what string) error {
	if d.empty() {
		return d.errorf(ErrMalformed, "unexpected end of input, expected %s", what)
	}
	if d.peek() != c {
		return d.errorf(ErrMalformed, "expected %s, found %q", what, d.peek())
	}
	d.advance(1)
	return nil
}

func (d *demangler) errorf(kind error, format string, args ...any) error {
	return d.errorAt(d.r.Offset(), kind, format, args...)
}

func (d *demangler) errorAt(offset int, kind error, format string, args ...any) error {
	return &DecodeError{
		Kind:   kind,
		Offset: offset,
		Msg:    fmt.Sprintf(format, args...),
		Input:  d.r.Snippet(offset, snippetLen),
	}
}

// enter guards against unbounded recursion; pair with leave.
func (d *demangler) enter() error {
	d.depth++
	if d.depth > maxDepth {
		return d.errorf(ErrMalformed, "nesting too deep")
	}
	return nil
}

func (d *demangler) leave() { d.depth-- }

// addSubstitution registers a substitution candidate.
func (d *demangler) addSubstitution(n Node) {
	d.subs = append(d.subs, n)
}

func (d *demangler) substitution(index, offset int) (Node, error) {
	if index < 0 || index >= len(d.subs) {
		return nil, d.errorAt(offset, ErrBackref,
			"substitution S%s_ out of range (%d registered)", seqID(index), len(d.subs))
	}
	return d.subs[index], nil
}

// seqID formats a table index back into its mangled seq-id.
func seqID(index int) string {
	if index == 0 {
		return ""
	}
	const digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	n := index - 1
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%36]}, buf...)
		n /= 36
	}
	return string(buf)
}

// pushFrame opens a template frame for an encoding. The returned func
// restores the previous frame.
func (d *demangler) pushFrame() func() {
	d.frames = append(d.frames, &templateFrame{awaiting: true})
	n := len(d.frames)
	return func() {
		d.frames = d.frames[:n-1]
	}
}

func (d *demangler) frame() *templateFrame {
	if len(d.frames) == 0 {
		return nil
	}
	return d.frames[len(d.frames)-1]
}

// setTemplateArgs makes args the active argument list of the current
// encoding. Later lists in the same name replace earlier ones.
func (d *demangler) setTemplateArgs(args *TemplateArgs) {
	if f := d.frame(); f != nil && f.awaiting {
		f.args = args.children
	}
}

// resolveParam binds ref against the active frame, or queues it while
// the frame's argument list is still being built.
func (d *demangler) resolveParam(ref *paramRef) error {
	f := d.frame()
	if f == nil {
		return d.errorAt(ref.offset, ErrBackref, "template parameter %s outside of a template", paramCode(ref.index))
	}
	if f.awaiting {
		f.pending = append(f.pending, ref)
		return nil
	}
	return d.bindParam(f, ref)
}

func (d *demangler) bindParam(f *templateFrame, ref *paramRef) error {
	if f.args == nil {
		return d.errorAt(ref.offset, ErrBackref, "template parameter %s outside of a template", paramCode(ref.index))
	}
	if ref.index < 0 || ref.index >= len(f.args) {
		return d.errorAt(ref.offset, ErrBackref,
			"template parameter %s out of range (%d arguments)", paramCode(ref.index), len(f.args))
	}
	target := f.args[ref.index]
	if reaches(target, ref, map[Node]bool{}) {
		return d.errorAt(ref.offset, ErrBackref, "template parameter %s refers to its own argument", paramCode(ref.index))
	}
	ref.target = target
	return nil
}

// reaches reports whether ref is reachable from n through owned children
// or resolved links.
func reaches(n Node, ref *paramRef, seen map[Node]bool) bool {
	if n == nil || seen[n] {
		return false
	}
	seen[n] = true
	switch v := n.(type) {
	case *TemplateParam:
		if v.ref == ref {
			return true
		}
		return reaches(v.ref.target, ref, seen)
	case *Holder:
		return reaches(v.target, ref, seen)
	case *UserSubstitution:
		return reaches(v.target, ref, seen)
	}
	for i := 0; i < n.NodeCount(); i++ {
		if reaches(n.Child(i), ref, seen) {
			return true
		}
	}
	return false
}

// finishName closes the argument list of the current encoding and
// resolves every reference queued while its name was parsed.
func (d *demangler) finishName() error {
	f := d.frame()
	if f == nil {
		return nil
	}
	f.awaiting = false
	pending := f.pending
	f.pending = nil
	for _, ref := range pending {
		if err := d.bindParam(f, ref); err != nil {
			return err
		}
	}
	return nil
}

func paramCode(index int) string {
	if index == 0 {
		return "T_"
	}
	return fmt.Sprintf("T%d_", index-1)
}

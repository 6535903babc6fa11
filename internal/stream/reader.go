// Package stream provides a forward-only text cursor used by the demangler.
package stream

import (
	"errors"
)

// Errors returned by Reader
var (
	ErrUnexpectedEOF = errors.New("stream: unexpected end of input")
	ErrInvalidNumber = errors.New("stream: invalid number")
	ErrOverflow      = errors.New("stream: number overflows int")
)

// Reader is a cursor over an immutable string. Reads return substrings
// of the original input; characters are never copied one by one.
type Reader struct {
	data   string
	offset int
}

// NewReader creates a Reader over s.
func NewReader(s string) *Reader {
	return &Reader{data: s, offset: 0}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of bytes remaining.
func (r *Reader) Remaining() int {
	if r.offset >= len(r.data) {
		return 0
	}
	return len(r.data) - r.offset
}

// Empty reports whether the whole input has been consumed.
func (r *Reader) Empty() bool {
	return r.offset >= len(r.data)
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if r.offset+n > len(r.data) {
		return ErrUnexpectedEOF
	}
	r.offset += n
	return nil
}

// Peek returns the next byte without advancing, or 0 at end of input.
func (r *Reader) Peek() byte {
	return r.PeekAt(0)
}

// PeekAt returns the byte i positions ahead without advancing, or 0 past
// the end of input.
func (r *Reader) PeekAt(i int) byte {
	if r.offset+i >= len(r.data) {
		return 0
	}
	return r.data[r.offset+i]
}

// HasPrefix reports whether the unread input starts with p.
func (r *Reader) HasPrefix(p string) bool {
	return len(r.data)-r.offset >= len(p) && r.data[r.offset:r.offset+len(p)] == p
}

// Consume advances past p if the unread input starts with it.
func (r *Reader) Consume(p string) bool {
	if !r.HasPrefix(p) {
		return false
	}
	r.offset += len(p)
	return true
}

// ReadString reads the next n bytes as a substring of the input.
func (r *Reader) ReadString(n int) (string, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return "", ErrUnexpectedEOF
	}
	v := r.data[r.offset : r.offset+n]
	r.offset += n
	return v, nil
}

// ReadDecimal reads a non-empty run of decimal digits.
func (r *Reader) ReadDecimal() (int, error) {
	start := r.offset
	v := 0
	for r.offset < len(r.data) && isDigit(r.data[r.offset]) {
		d := int(r.data[r.offset] - '0')
		if v > (maxInt-d)/10 {
			r.offset = start
			return 0, ErrOverflow
		}
		v = v*10 + d
		r.offset++
	}
	if r.offset == start {
		return 0, ErrInvalidNumber
	}
	return v, nil
}

// ReadDigits reads a possibly empty run of decimal digits and returns it
// as written.
func (r *Reader) ReadDigits() string {
	start := r.offset
	for r.offset < len(r.data) && isDigit(r.data[r.offset]) {
		r.offset++
	}
	return r.data[start:r.offset]
}

// ReadBase36 reads a non-empty run of [0-9A-Z] digits as a base-36 number.
func (r *Reader) ReadBase36() (int, error) {
	start := r.offset
	v := 0
	for r.offset < len(r.data) {
		d, ok := base36(r.data[r.offset])
		if !ok {
			break
		}
		if v > (maxInt-d)/36 {
			r.offset = start
			return 0, ErrOverflow
		}
		v = v*36 + d
		r.offset++
	}
	if r.offset == start {
		return 0, ErrInvalidNumber
	}
	return v, nil
}

// Data returns the whole input.
func (r *Reader) Data() string {
	return r.data
}

// RemainingData returns the unread input.
func (r *Reader) RemainingData() string {
	if r.offset >= len(r.data) {
		return ""
	}
	return r.data[r.offset:]
}

// Snippet returns at most n bytes of unread input starting at offset, with
// a trailing ellipsis when the input was cut.
func (r *Reader) Snippet(offset, n int) string {
	if offset < 0 || offset >= len(r.data) {
		return ""
	}
	rest := r.data[offset:]
	if n > 0 && len(rest) > n {
		return rest[:n] + "..."
	}
	return rest
}

const maxInt = int(^uint(0) >> 1)

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func base36(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	}
	return 0, false
}

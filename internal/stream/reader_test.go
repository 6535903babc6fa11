package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderPeekAndConsume(t *testing.T) {
	r := NewReader("N3fooE")
	assert.Equal(t, byte('N'), r.Peek())
	assert.Equal(t, byte('3'), r.PeekAt(1))
	assert.Equal(t, byte(0), r.PeekAt(100))

	assert.False(t, r.Consume("X"))
	assert.True(t, r.Consume("N"))
	assert.Equal(t, 1, r.Offset())
	assert.True(t, r.HasPrefix("3foo"))
	assert.Equal(t, 5, r.Remaining())
}

func TestReaderDecimal(t *testing.T) {
	r := NewReader("12abc")
	n, err := r.ReadDecimal()
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	s, err := r.ReadString(3)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	assert.True(t, r.Empty())

	_, err = r.ReadDecimal()
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestReaderDecimalOverflow(t *testing.T) {
	r := NewReader("99999999999999999999999")
	_, err := r.ReadDecimal()
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 0, r.Offset())
}

func TestReaderBase36(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0_", 0},
		{"9_", 9},
		{"A_", 10},
		{"Z_", 35},
		{"10_", 36},
	}
	for _, tt := range tests {
		r := NewReader(tt.in)
		n, err := r.ReadBase36()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, n, tt.in)
		assert.Equal(t, byte('_'), r.Peek())
	}

	_, err := NewReader("_").ReadBase36()
	assert.ErrorIs(t, err, ErrInvalidNumber)

	// lowercase letters are not seq-id digits
	_, err = NewReader("a").ReadBase36()
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestReaderStringBounds(t *testing.T) {
	r := NewReader("ab")
	_, err := r.ReadString(3)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
	assert.Equal(t, 0, r.Offset())

	assert.ErrorIs(t, r.Skip(5), ErrUnexpectedEOF)
	assert.Equal(t, 0, r.Offset())
	require.NoError(t, r.Skip(2))
	assert.True(t, r.Empty())
	_, err = r.ReadString(1)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReaderDigitsAndSnippet(t *testing.T) {
	r := NewReader("A10_i")
	r.Skip(1)
	assert.Equal(t, "10", r.ReadDigits())
	assert.Equal(t, "", r.ReadDigits())
	assert.Equal(t, "_i", r.RemainingData())

	assert.Equal(t, "10_i", r.Snippet(1, 0))
	assert.Equal(t, "10...", r.Snippet(1, 2))
	assert.Equal(t, "", r.Snippet(10, 2))
	assert.Equal(t, "A10_i", r.Data())
}

package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolLongestMatch(t *testing.T) {
	for _, tc := range []struct {
		in  string
		cat Category
		n   int
	}{
		{"<<=x", Operator, 3},
		{"<<x", Operator, 2},
		{"<x", Operator, 1},
		{"...", Punct, 3},
		{"..", Operator, 1},
		{"->y", Operator, 2},
		{"?", Punct, 1},
		{"@", Unknown, 0},
	} {
		cat, n := Symbol([]byte(tc.in))
		assert.Equal(t, tc.cat, cat, "%q", tc.in)
		assert.Equal(t, tc.n, n, "%q", tc.in)
	}
}

func TestLookup(t *testing.T) {
	c, ok := Lookup("while")
	assert.True(t, ok)
	assert.Equal(t, Keyword, c)

	c, ok = Lookup(">>=")
	assert.True(t, ok)
	assert.Equal(t, Operator, c)

	_, ok = Lookup("main")
	assert.False(t, ok)
}

func TestTokenIs(t *testing.T) {
	tk := Token{Cat: Punct, Text: ";"}
	assert.True(t, tk.Is(";"))

	tk = Token{Cat: Lit, Text: ";"}
	assert.False(t, tk.Is(";"))
}

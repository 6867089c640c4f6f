package lexer

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/token"
)

type tk struct {
	Cat  token.Category
	Text string
}

func lex(t *testing.T, src string) ([]token.Token, diag.List) {
	t.Helper()

	toks, diags := Tokenize(context.Background(), []byte(src))
	require.NotEmpty(t, toks)
	require.Equal(t, token.EOF, toks[len(toks)-1].Cat, "last token must be EOF")

	for _, x := range toks[:len(toks)-1] {
		require.NotEqual(t, token.EOF, x.Cat, "EOF in the middle")
	}

	return toks, diags
}

func short(toks []token.Token) (r []tk) {
	for _, t := range toks {
		r = append(r, tk{Cat: t.Cat, Text: t.Text})
	}

	return r
}

func TestTableRoundTrip(t *testing.T) {
	check := func(tab map[string]struct{}, cat token.Category) {
		for s := range tab {
			toks, diags := lex(t, s)

			assert.Empty(t, diags, "%q", s)
			if assert.Len(t, toks, 2, "%q", s) {
				assert.Equal(t, s, toks[0].Text)
				assert.Equal(t, cat, toks[0].Cat, "%q", s)
			}
		}
	}

	check(token.Keywords, token.Keyword)
	check(token.Operators, token.Operator)
	check(token.Puncts, token.Punct)
}

func TestWhitespaceIdempotent(t *testing.T) {
	src := "int   main(void)\t{\n  x  =  a\t\t+ b * 3;   return  x;  }\n"
	norm := regexp.MustCompile(`[ \t]+`).ReplaceAllString(src, " ")

	a, _ := lex(t, src)
	b, _ := lex(t, norm)

	assert.Equal(t, short(a), short(b))
}

func TestTokens(t *testing.T) {
	toks, diags := lex(t, "int x = a<<=2 ... b->c; // tail\n/* block\n */ y++")
	assert.Empty(t, diags)

	assert.Equal(t, []tk{
		{token.Keyword, "int"},
		{token.Ident, "x"},
		{token.Operator, "="},
		{token.Ident, "a"},
		{token.Operator, "<<="},
		{token.Lit, "2"},
		{token.Punct, "..."},
		{token.Ident, "b"},
		{token.Operator, "->"},
		{token.Ident, "c"},
		{token.Punct, ";"},
		{token.Ident, "y"},
		{token.Operator, "++"},
		{token.EOF, ""},
	}, short(toks))
}

func TestPositions(t *testing.T) {
	toks, _ := lex(t, "a\n  bb /* c\n */ cc\n\tdd")

	want := []token.Pos{
		{Offset: 0, Line: 1, Col: 1},
		{Offset: 4, Line: 2, Col: 3},
		{Offset: 16, Line: 3, Col: 5},
		{Offset: 20, Line: 4, Col: 2},
	}

	for i, p := range want {
		assert.Equal(t, p, toks[i].Pos, "token %d %q", i, toks[i].Text)
	}
}

func TestEscapedNewline(t *testing.T) {
	toks, diags := lex(t, "\"a\\\nb\" x\n'\\\nc' y")
	assert.Empty(t, diags)
	require.Len(t, toks, 5)

	assert.Equal(t, "ab", toks[0].Lit.Str)
	assert.Equal(t, token.Pos{Offset: 7, Line: 2, Col: 4}, toks[1].Pos)

	assert.Equal(t, int64('c'), toks[2].Lit.Int)
	assert.Equal(t, token.Pos{Offset: 9, Line: 3, Col: 1}, toks[2].Pos)
	assert.Equal(t, token.Pos{Offset: 15, Line: 4, Col: 4}, toks[3].Pos)
}

func TestNumbers(t *testing.T) {
	for _, tc := range []struct {
		src   string
		kind  token.LitKind
		i     int64
		f     float64
		count int
	}{
		{src: "42", kind: token.Int, i: 42, count: 1},
		{src: "3.25", kind: token.Float, f: 3.25, count: 1},
		{src: "3.", kind: token.Float, f: 3, count: 1},
		{src: "1e3", kind: token.Float, f: 1000, count: 1},
		{src: "2.5E-1", kind: token.Float, f: 0.25, count: 1},
		{src: "7e", kind: token.Int, i: 7, count: 2},
		{src: "1.2.3", kind: token.Float, f: 1.2, count: 3},
	} {
		toks, _ := lex(t, tc.src)

		assert.Len(t, toks, tc.count+1, "%q", tc.src)
		assert.Equal(t, token.Lit, toks[0].Cat, "%q", tc.src)
		assert.Equal(t, tc.kind, toks[0].Lit.Kind, "%q", tc.src)

		if tc.kind == token.Int {
			assert.Equal(t, tc.i, toks[0].Lit.Int, "%q", tc.src)
		} else {
			assert.InDelta(t, tc.f, toks[0].Lit.Float, 1e-12, "%q", tc.src)
		}
	}
}

func TestStringsAndChars(t *testing.T) {
	toks, diags := lex(t, `"a\n\t\\\"\q\0" '\'' 'x' '\n'`)
	assert.Empty(t, diags)
	require.Len(t, toks, 5)

	assert.Equal(t, token.String, toks[0].Lit.Kind)
	assert.Equal(t, "a\n\t\\\"q\x00", toks[0].Lit.Str)

	assert.Equal(t, token.Char, toks[1].Lit.Kind)
	assert.Equal(t, int64('\''), toks[1].Lit.Int)
	assert.Equal(t, int64('x'), toks[2].Lit.Int)
	assert.Equal(t, int64('\n'), toks[3].Lit.Int)
}

func TestErrorsAreTokens(t *testing.T) {
	toks, diags := lex(t, "a @ b \"open\nc ''")

	assert.Equal(t, []tk{
		{token.Ident, "a"},
		{token.Unknown, "@"},
		{token.Ident, "b"},
		{token.Unknown, `"open`},
		{token.Ident, "c"},
		{token.Unknown, "''"},
		{token.EOF, ""},
	}, short(toks))

	require.Len(t, diags, 3)

	for _, d := range diags {
		assert.Equal(t, diag.LexError, d.Kind)
		assert.Equal(t, diag.Error, d.Severity)
	}

	assert.Equal(t, token.Pos{Offset: 2, Line: 1, Col: 3}, diags[0].Pos)
}

func TestUnterminatedBlockComment(t *testing.T) {
	toks, diags := lex(t, "x /* never closed\n y z")

	assert.Empty(t, diags)
	assert.Equal(t, []tk{{token.Ident, "x"}, {token.EOF, ""}}, short(toks))
}

func TestDirective(t *testing.T) {
	toks, _ := lex(t, "#include <stdio.h>\nint a # b")

	assert.Equal(t, []tk{
		{token.Directive, "#include <stdio.h>"},
		{token.Keyword, "int"},
		{token.Ident, "a"},
		{token.Unknown, "#"},
		{token.Ident, "b"},
		{token.EOF, ""},
	}, short(toks))
}

func TestStream(t *testing.T) {
	toks, _ := lex(t, "a b")
	s := NewStream(toks)

	assert.Equal(t, "a", s.Peek().Text)
	assert.Equal(t, "b", s.Lookahead(1).Text)
	assert.Equal(t, token.EOF, s.Lookahead(5).Cat)

	assert.Equal(t, "a", s.Next().Text)
	assert.Equal(t, "b", s.Next().Text)
	assert.True(t, s.EOF())
	assert.Equal(t, token.EOF, s.Next().Cat)
	assert.Equal(t, token.EOF, s.Next().Cat)
	assert.Equal(t, "b", s.Prev().Text)

	s = NewStream(nil)
	assert.True(t, s.EOF())
}

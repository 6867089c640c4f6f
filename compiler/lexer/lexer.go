package lexer

import (
	"context"
	"strconv"

	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/token"
)

type (
	Lexer struct {
		b []byte
		i int

		line      int
		lineStart int

		done bool

		Diags diag.List
	}
)

func Tokenize(ctx context.Context, src []byte) (toks []token.Token, diags diag.List) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lexer: tokenize", "size", len(src))
	defer func() {
		tr.Finish("tokens", len(toks), "diags", len(diags))
	}()

	l := New(src)

	for {
		t := l.Next()
		toks = append(toks, t)

		if t.Cat == token.EOF {
			break
		}
	}

	if tr.If("dump_tokens") {
		for _, t := range toks {
			tr.Printw("token", "tok", t)
		}
	}

	return toks, l.Diags
}

func New(src []byte) *Lexer {
	return &Lexer{
		b:    src,
		line: 1,
	}
}

// Next returns the next token. After the end of input it keeps returning EOF.
func (l *Lexer) Next() token.Token {
	l.skipSpaces()

	if l.done || l.i >= len(l.b) {
		l.done = true

		return token.Token{Cat: token.EOF, Pos: l.pos()}
	}

	st := l.i
	pos := l.pos()
	c := l.b[l.i]

	switch {
	case c == '#' && pos.Col == 1:
		l.skipLine()

		return l.tok(token.Directive, st, pos)
	case isIdentStart(c):
		l.i = skipIdent(l.b, l.i+1)

		t := l.tok(token.Ident, st, pos)
		if _, ok := token.Keywords[t.Text]; ok {
			t.Cat = token.Keyword
		}

		return t
	case isDigit(c):
		return l.number(st, pos)
	case c == '"':
		return l.quoted(st, pos, '"')
	case c == '\'':
		return l.quoted(st, pos, '\'')
	}

	if cat, n := token.Symbol(l.b[l.i:]); n != 0 {
		l.i += n

		return l.tok(cat, st, pos)
	}

	l.i++

	t := l.tok(token.Unknown, st, pos)
	l.Diags.Errorf(diag.LexError, pos, "unexpected character %q", c)

	return t
}

func (l *Lexer) number(st int, pos token.Pos) token.Token {
	i := skipDigits(l.b, st)
	float := false

	if i < len(l.b) && l.b[i] == '.' {
		float = true
		i = skipDigits(l.b, i+1)
	}

	if i < len(l.b) && (l.b[i] == 'e' || l.b[i] == 'E') {
		j := i + 1

		if j < len(l.b) && (l.b[j] == '+' || l.b[j] == '-') {
			j++
		}

		if j < len(l.b) && isDigit(l.b[j]) {
			float = true
			i = skipDigits(l.b, j)
		}
	}

	l.i = i

	t := l.tok(token.Lit, st, pos)

	if float {
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			l.Diags.Errorf(diag.LexError, pos, "malformed float literal %s", t.Text)
		}

		t.Lit = token.Literal{Kind: token.Float, Float: v}

		return t
	}

	v, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil {
		l.Diags.Errorf(diag.LexError, pos, "integer literal %s out of range", t.Text)
	}

	t.Lit = token.Literal{Kind: token.Int, Int: v}

	return t
}

func (l *Lexer) quoted(st int, pos token.Pos, q byte) token.Token {
	var val []byte

	i := st + 1

	for {
		if i >= len(l.b) || l.b[i] == '\n' {
			l.i = i

			l.Diags.Errorf(diag.LexError, pos, "unterminated %s literal", quoteName(q))

			return l.tok(token.Unknown, st, pos)
		}

		c := l.b[i]

		if c == q {
			i++
			break
		}

		if c == '\\' && i+1 < len(l.b) && l.b[i+1] == '\n' {
			i += 2

			l.line++
			l.lineStart = i

			continue
		}

		if c == '\\' && i+1 < len(l.b) {
			val = append(val, unescape(l.b[i+1]))
			i += 2

			continue
		}

		val = append(val, c)
		i++
	}

	l.i = i

	if q == '"' {
		t := l.tok(token.Lit, st, pos)
		t.Lit = token.Literal{Kind: token.String, Str: string(val)}

		return t
	}

	if len(val) == 0 {
		l.Diags.Errorf(diag.LexError, pos, "empty character literal")

		return l.tok(token.Unknown, st, pos)
	}

	if len(val) > 1 {
		l.Diags.Warnf(diag.LexError, pos, "multi-character character literal")
	}

	t := l.tok(token.Lit, st, pos)
	t.Lit = token.Literal{Kind: token.Char, Int: int64(val[0]), Str: string(val[:1])}

	return t
}

func (l *Lexer) tok(cat token.Category, st int, pos token.Pos) token.Token {
	return token.Token{
		Cat:  cat,
		Text: string(l.b[st:l.i]),
		Pos:  pos,
	}
}

func (l *Lexer) pos() token.Pos {
	return token.Pos{
		Offset: l.i,
		Line:   l.line,
		Col:    l.i - l.lineStart + 1,
	}
}

func (l *Lexer) skipSpaces() {
	for l.i < len(l.b) {
		switch c := l.b[l.i]; c {
		case '\n':
			l.i++
			l.line++
			l.lineStart = l.i

			continue
		case ' ', '\t', '\r', '\v', '\f':
			l.i++

			continue
		case '/':
			if l.i+1 >= len(l.b) {
				return
			}

			switch l.b[l.i+1] {
			case '/':
				l.skipLine()

				continue
			case '*':
				l.skipBlockComment()

				continue
			}
		}

		return
	}
}

func (l *Lexer) skipLine() {
	for l.i < len(l.b) && l.b[l.i] != '\n' {
		l.i++
	}
}

// skipBlockComment stops lexing at the end of input if the comment is unterminated.
func (l *Lexer) skipBlockComment() {
	l.i += 2

	for l.i < len(l.b) {
		if l.b[l.i] == '*' && l.i+1 < len(l.b) && l.b[l.i+1] == '/' {
			l.i += 2
			return
		}

		if l.b[l.i] == '\n' {
			l.line++
			l.lineStart = l.i + 1
		}

		l.i++
	}

	l.done = true
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return c
	}
}

func quoteName(q byte) string {
	if q == '"' {
		return "string"
	}

	return "character"
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (isIdentStart(b[i]) || isDigit(b[i])) {
		i++
	}

	return i
}

func skipDigits(b []byte, i int) int {
	for i < len(b) && isDigit(b[i]) {
		i++
	}

	return i
}

func isIdentStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

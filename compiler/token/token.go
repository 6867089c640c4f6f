package token

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	Category int
	LitKind  int

	Pos struct {
		Offset int
		Line   int
		Col    int
	}

	Literal struct {
		Kind  LitKind
		Int   int64
		Float float64
		Str   string
	}

	Token struct {
		Cat  Category
		Text string
		Pos  Pos
		Lit  Literal
	}
)

const (
	Unknown Category = iota
	EOF
	Keyword
	Ident
	Lit
	Operator
	Punct
	Directive
)

const (
	NoLit LitKind = iota
	Int
	Float
	Char
	String
)

var catNames = [...]string{
	Unknown:   "unknown",
	EOF:       "eof",
	Keyword:   "keyword",
	Ident:     "ident",
	Lit:       "literal",
	Operator:  "operator",
	Punct:     "punct",
	Directive: "directive",
}

var litNames = [...]string{
	NoLit:  "none",
	Int:    "int",
	Float:  "float",
	Char:   "char",
	String: "string",
}

func (c Category) String() string {
	if c >= 0 && int(c) < len(catNames) {
		return catNames[c]
	}

	return fmt.Sprintf("category(%d)", int(c))
}

func (k LitKind) String() string {
	if k >= 0 && int(k) < len(litNames) {
		return litNames[k]
	}

	return fmt.Sprintf("lit(%d)", int(k))
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

func (p Pos) IsValid() bool { return p.Line > 0 }

// Is reports whether t is an operator, punctuation or keyword spelled s.
func (t Token) Is(s string) bool {
	switch t.Cat {
	case Operator, Punct, Keyword:
		return t.Text == s
	}

	return false
}

func (t Token) String() string {
	if t.Cat == EOF {
		return "EOF"
	}

	return fmt.Sprintf("%v %q", t.Cat, t.Text)
}

func (p Pos) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "line", p.Line)
	b = e.AppendKeyInt(b, "col", p.Col)

	return b
}

func (t Token) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 4)
	b = e.AppendKeyString(b, "cat", t.Cat.String())
	b = e.AppendKeyString(b, "text", t.Text)
	b = e.AppendKeyInt(b, "line", t.Pos.Line)
	b = e.AppendKeyInt(b, "col", t.Pos.Col)

	return b
}

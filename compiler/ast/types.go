package ast

import (
	"strconv"
	"strings"
)

type (
	BaseType int

	TypeSpec struct {
		Base     BaseType
		Unsigned bool
		Const    bool
		Static   bool
		Extern   bool

		Ptr   int
		Array int64 // element count, 0 if not an array, -1 for []
	}
)

const (
	NoType BaseType = iota
	Void
	Char
	Short
	Int
	Long
	Float
	Double
)

var baseNames = [...]string{
	NoType: "?",
	Void:   "void",
	Char:   "char",
	Short:  "short",
	Int:    "int",
	Long:   "long",
	Float:  "float",
	Double: "double",
}

func (b BaseType) String() string {
	if b >= 0 && int(b) < len(baseNames) {
		return baseNames[b]
	}

	return "?"
}

func (t TypeSpec) IsVoid() bool {
	return t.Base == Void && t.Ptr == 0 && t.Array == 0
}

func (t TypeSpec) IsArray() bool { return t.Array != 0 }

// Elem drops the outermost array dimension or pointer level.
func (t TypeSpec) Elem() TypeSpec {
	if t.IsArray() {
		t.Array = 0
		return t
	}

	if t.Ptr > 0 {
		t.Ptr--
	}

	return t
}

func (t TypeSpec) String() string {
	var b strings.Builder

	if t.Static {
		b.WriteString("static ")
	}

	if t.Extern {
		b.WriteString("extern ")
	}

	if t.Const {
		b.WriteString("const ")
	}

	if t.Unsigned {
		b.WriteString("unsigned ")
	}

	b.WriteString(t.Base.String())

	for i := 0; i < t.Ptr; i++ {
		b.WriteByte('*')
	}

	switch {
	case t.Array < 0:
		b.WriteString("[]")
	case t.Array > 0:
		b.WriteString("[")
		b.WriteString(strconv.FormatInt(t.Array, 10))
		b.WriteString("]")
	}

	return b.String()
}

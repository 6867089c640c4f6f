package tp

import (
	"github.com/nikandfor/hacked/hfmt"
)

type (
	ID int32

	Type interface {
		Size(t *Table) int64
		appendKey(b []byte, t *Table) []byte
	}

	Void struct{}

	Int struct {
		Bits   int16
		Signed bool
	}

	Float struct {
		Bits int16
	}

	Ptr struct {
		Elem ID
	}

	Array struct {
		Elem ID
		Len  int64
	}

	Func struct {
		Ret    ID
		Params []ID
		Vararg bool
	}

	// Table interns structurally equal types to a single ID.
	// Nested types are referenced by ID, so key equality is structural equality.
	Table struct {
		types []Type
		keys  []string
		index map[string]ID
	}
)

const None ID = -1

func NewTable() *Table {
	return &Table{
		index: map[string]ID{},
	}
}

func (t *Table) Intern(x Type) ID {
	key := string(x.appendKey(nil, t))

	if id, ok := t.index[key]; ok {
		return id
	}

	if f, ok := x.(Func); ok {
		f.Params = append([]ID{}, f.Params...)
		x = f
	}

	id := ID(len(t.types))

	t.types = append(t.types, x)
	t.keys = append(t.keys, key)
	t.index[key] = id

	return id
}

func (t *Table) Get(id ID) Type {
	return t.types[id]
}

func (t *Table) Valid(id ID) bool {
	return id >= 0 && int(id) < len(t.types)
}

func (t *Table) Len() int { return len(t.types) }

func (t *Table) Size(id ID) int64 {
	return t.types[id].Size(t)
}

func (t *Table) Align(id ID) int64 {
	switch x := t.types[id].(type) {
	case Array:
		return t.Align(x.Elem)
	case Void, Func:
		return 1
	default:
		return x.Size(t)
	}
}

func (t *Table) String(id ID) string {
	if !t.Valid(id) {
		return "<none>"
	}

	return t.keys[id]
}

func (t *Table) Void() ID { return t.Intern(Void{}) }
func (t *Table) Int(bits int, signed bool) ID { return t.Intern(Int{Bits: int16(bits), Signed: signed}) }
func (t *Table) Float(bits int) ID { return t.Intern(Float{Bits: int16(bits)}) }
func (t *Table) Ptr(elem ID) ID { return t.Intern(Ptr{Elem: elem}) }
func (t *Table) Array(elem ID, n int64) ID { return t.Intern(Array{Elem: elem, Len: n}) }

func (t *Table) Func(ret ID, params []ID, vararg bool) ID {
	return t.Intern(Func{Ret: ret, Params: params, Vararg: vararg})
}

func (t *Table) IsVoid(id ID) bool {
	_, ok := t.types[id].(Void)
	return ok
}

func (t *Table) IsInt(id ID) bool {
	_, ok := t.types[id].(Int)
	return ok
}

func (t *Table) IsFloat(id ID) bool {
	_, ok := t.types[id].(Float)
	return ok
}

func (t *Table) IsPtr(id ID) bool {
	_, ok := t.types[id].(Ptr)
	return ok
}

func (t *Table) IsArray(id ID) bool {
	_, ok := t.types[id].(Array)
	return ok
}

func (t *Table) IsFunc(id ID) bool {
	_, ok := t.types[id].(Func)
	return ok
}

// IsScalar reports whether values of the type fit a register.
func (t *Table) IsScalar(id ID) bool {
	switch t.types[id].(type) {
	case Int, Float, Ptr:
		return true
	}

	return false
}

// Elem returns the pointee or element type, or None.
func (t *Table) Elem(id ID) ID {
	switch x := t.types[id].(type) {
	case Ptr:
		return x.Elem
	case Array:
		return x.Elem
	}

	return None
}

func (x Void) Size(t *Table) int64 { return 0 }
func (x Int) Size(t *Table) int64 { return int64(x.Bits) / 8 }
func (x Float) Size(t *Table) int64 { return int64(x.Bits) / 8 }
func (x Ptr) Size(t *Table) int64 { return 8 }
func (x Func) Size(t *Table) int64 { return 0 }

func (x Array) Size(t *Table) int64 {
	return t.Size(x.Elem) * x.Len
}

func (x Void) appendKey(b []byte, t *Table) []byte {
	return append(b, "void"...)
}

func (x Int) appendKey(b []byte, t *Table) []byte {
	if x.Signed {
		return hfmt.Appendf(b, "i%d", x.Bits)
	}

	return hfmt.Appendf(b, "u%d", x.Bits)
}

func (x Float) appendKey(b []byte, t *Table) []byte {
	return hfmt.Appendf(b, "f%d", x.Bits)
}

func (x Ptr) appendKey(b []byte, t *Table) []byte {
	return hfmt.Appendf(b, "%s*", t.String(x.Elem))
}

func (x Array) appendKey(b []byte, t *Table) []byte {
	return hfmt.Appendf(b, "[%d]%s", x.Len, t.String(x.Elem))
}

func (x Func) appendKey(b []byte, t *Table) []byte {
	b = append(b, "fn("...)

	for i, p := range x.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, t.String(p)...)
	}

	if x.Vararg {
		if len(x.Params) != 0 {
			b = append(b, ", "...)
		}

		b = append(b, "..."...)
	}

	return hfmt.Appendf(b, ") %s", t.String(x.Ret))
}

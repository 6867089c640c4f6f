package front

import (
	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/token"
	"github.com/slowlang/minicc/compiler/tp"
)

type (
	// value is an rvalue with its C type.
	value struct {
		v   ir.ValueID
		typ tp.ID
	}

	// lvalue is an object address and the object type.
	lvalue struct {
		addr ir.ValueID
		typ  tp.ID
	}
)

func (c *Front) typeOf(pos token.Pos, ts ast.TypeSpec) (id tp.ID, err error) {
	t := c.m.Types

	switch ts.Base {
	case ast.Void:
		id = t.Void()
	case ast.Char:
		id = t.Int(8, !ts.Unsigned)
	case ast.Short:
		id = t.Int(16, !ts.Unsigned)
	case ast.Int:
		id = t.Int(32, !ts.Unsigned)
	case ast.Long:
		id = t.Int(64, !ts.Unsigned)
	case ast.Float:
		id = t.Float(32)
	case ast.Double:
		id = t.Float(64)
	default:
		return tp.None, c.errorf(pos, "unknown type %v", ts)
	}

	for i := 0; i < ts.Ptr; i++ {
		id = t.Ptr(id)
	}

	switch {
	case ts.Array < 0:
		return tp.None, c.errorf(pos, "array size missing")
	case ts.Array > 0:
		if t.IsVoid(id) {
			return tp.None, c.errorf(pos, "array of void")
		}

		id = t.Array(id, ts.Array)
	}

	return id, nil
}

func (c *Front) typeName(id tp.ID) string {
	return c.m.Types.String(id)
}

func (c *Front) isArith(id tp.ID) bool {
	return c.m.Types.IsInt(id) || c.m.Types.IsFloat(id)
}

func (c *Front) isSigned(id tp.ID) bool {
	it, ok := c.m.Types.Get(id).(tp.Int)

	return ok && it.Signed
}

func (c *Front) bits(id tp.ID) int {
	switch x := c.m.Types.Get(id).(type) {
	case tp.Int:
		return int(x.Bits)
	case tp.Float:
		return int(x.Bits)
	case tp.Ptr:
		return 64
	}

	return 0
}

// promoted applies the integer promotions to a type.
func (c *Front) promoted(id tp.ID) tp.ID {
	if c.m.Types.IsInt(id) && c.bits(id) < 32 {
		return c.i32
	}

	return id
}

// common is the type of the usual arithmetic conversions.
func (c *Front) common(a, b tp.ID) tp.ID {
	t := c.m.Types

	if t.IsFloat(a) || t.IsFloat(b) {
		if a == c.f64 || b == c.f64 {
			return c.f64
		}

		return c.f32
	}

	a, b = c.promoted(a), c.promoted(b)

	switch ba, bb := c.bits(a), c.bits(b); {
	case a == b:
		return a
	case ba > bb:
		return a
	case bb > ba:
		return b
	case !c.isSigned(a):
		return a
	default:
		return b
	}
}

func (c *Front) zero(typ tp.ID) ir.ValueID {
	if c.m.Types.IsFloat(typ) {
		return c.m.ConstFloat(typ, 0)
	}

	return c.m.ConstInt(typ, 0)
}

// valueOf tolerates None left behind by a failed builder.
func (c *Front) valueOf(id ir.ValueID) ir.Value {
	if !c.m.ValidValue(id) {
		return ir.Value{Kind: ir.Result, Instr: ir.NoInstr}
	}

	return *c.m.Value(id)
}

func (c *Front) isNullConst(x value) bool {
	v := c.valueOf(x.v)

	return c.m.Types.IsInt(x.typ) && v.Kind == ir.ConstInt && v.Int == 0
}

// implicit converts x for an assignment, argument or return.
func (c *Front) implicit(pos token.Pos, x value, to tp.ID) (ir.ValueID, error) {
	t := c.m.Types

	switch {
	case t.IsPtr(to) && t.IsInt(x.typ) && !c.isNullConst(x):
		c.diags.Warnf(diag.SemanticError, pos, "implicit conversion from %s to %s", c.typeName(x.typ), c.typeName(to))
	case t.IsInt(to) && t.IsPtr(x.typ):
		c.diags.Warnf(diag.SemanticError, pos, "implicit conversion from %s to %s", c.typeName(x.typ), c.typeName(to))
	}

	return c.convert(pos, x, to)
}

// convert performs an explicit scalar conversion. Constants are folded.
func (c *Front) convert(pos token.Pos, x value, to tp.ID) (ir.ValueID, error) {
	t := c.m.Types

	if x.typ == to {
		return x.v, nil
	}

	if t.IsVoid(x.typ) {
		return ir.None, c.errorf(pos, "void value not ignored as it ought to be")
	}

	if !t.IsScalar(x.typ) || !t.IsScalar(to) {
		return ir.None, c.errorf(pos, "cannot convert %s to %s", c.typeName(x.typ), c.typeName(to))
	}

	cv := c.valueOf(x.v)
	isConst := cv.Kind == ir.ConstInt || cv.Kind == ir.ConstFloat

	switch from := x.typ; {
	case !t.IsFloat(from) && !t.IsFloat(to) && isConst:
		return c.m.ConstInt(to, cv.Int), nil
	case t.IsInt(from) && t.IsInt(to):
		return c.b.Convert(ir.Conv, to, x.v), nil
	case t.IsInt(from) && t.IsFloat(to):
		if isConst {
			f := float64(cv.Int)
			if !c.isSigned(from) {
				f = float64(uint64(cv.Int))
			}

			return c.m.ConstFloat(to, f), nil
		}

		return c.b.Convert(ir.IToF, to, x.v), nil
	case t.IsFloat(from) && t.IsInt(to):
		if isConst {
			return c.m.ConstInt(to, int64(cv.Float)), nil
		}

		return c.b.Convert(ir.FToI, to, x.v), nil
	case t.IsFloat(from) && t.IsFloat(to):
		if isConst {
			return c.m.ConstFloat(to, cv.Float), nil
		}

		return c.b.Convert(ir.FConv, to, x.v), nil
	case t.IsPtr(from) && t.IsPtr(to):
		return c.b.Convert(ir.Bitcast, to, x.v), nil
	case t.IsInt(from) && t.IsPtr(to):
		v, err := c.convert(pos, x, c.i64)
		if err != nil {
			return ir.None, err
		}

		return c.b.Convert(ir.Bitcast, to, v), nil
	case t.IsPtr(from) && t.IsInt(to):
		v := c.b.Convert(ir.Bitcast, c.i64, x.v)

		return c.convert(pos, value{v: v, typ: c.i64}, to)
	}

	return ir.None, c.errorf(pos, "cannot convert %s to %s", c.typeName(x.typ), c.typeName(to))
}

// promote applies the integer promotions to a value.
func (c *Front) promote(pos token.Pos, x value) (value, error) {
	to := c.promoted(x.typ)
	if to == x.typ {
		return x, nil
	}

	v, err := c.convert(pos, x, to)

	return value{v: v, typ: to}, err
}

// argument applies the default argument promotions for variadic calls.
func (c *Front) argument(pos token.Pos, x value) (ir.ValueID, error) {
	if x.typ == c.f32 {
		return c.convert(pos, x, c.f64)
	}

	x, err := c.promote(pos, x)

	return x.v, err
}

// truth converts a scalar to an i32 0 or 1.
func (c *Front) truth(pos token.Pos, x value) (ir.ValueID, error) {
	t := c.m.Types

	if !t.IsScalar(x.typ) {
		return ir.None, c.errorf(pos, "used %s where a scalar is required", c.typeName(x.typ))
	}

	v := c.valueOf(x.v)

	switch v.Kind {
	case ir.ConstInt:
		return c.m.ConstInt(c.i32, b2i(v.Int != 0)), nil
	case ir.ConstFloat:
		return c.m.ConstInt(c.i32, b2i(v.Float != 0)), nil
	case ir.Result:
		if x.typ == c.i32 && v.Instr >= 0 && c.b.Func().Instr(v.Instr).Op.IsCompare() {
			return x.v, nil
		}
	}

	op := ir.Ne
	if t.IsFloat(x.typ) {
		op = ir.FNe
	}

	return c.b.Binary(op, c.i32, x.v, c.zero(x.typ)), nil
}

func b2i(x bool) int64 {
	if x {
		return 1
	}

	return 0
}

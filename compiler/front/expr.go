package front

import (
	"context"
	"math"

	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/token"
	"github.com/slowlang/minicc/compiler/tp"
)

var (
	intOps = map[string]ir.Op{
		"+": ir.Add, "-": ir.Sub, "*": ir.Mul, "/": ir.Div, "%": ir.Rem,
		"&": ir.And, "|": ir.Or, "^": ir.Xor, "<<": ir.Shl, ">>": ir.Shr,
		"==": ir.Eq, "!=": ir.Ne, "<": ir.Lt, "<=": ir.Le, ">": ir.Gt, ">=": ir.Ge,
	}

	floatOps = map[string]ir.Op{
		"+": ir.FAdd, "-": ir.FSub, "*": ir.FMul, "/": ir.FDiv,
		"==": ir.FEq, "!=": ir.FNe, "<": ir.FLt, "<=": ir.FLe, ">": ir.FGt, ">=": ir.FGe,
	}
)

// compileExpr evaluates an expression as an rvalue. Arrays decay to pointers.
func (c *Front) compileExpr(ctx context.Context, s *Scope, id ast.NodeID) (x value, err error) {
	n := c.t.Get(id)

	switch n.Kind {
	case ast.Bad:
		return x, syntaxError(n.Pos)
	case ast.Literal:
		return c.literal(n)
	case ast.Ident:
		sym, ok := s.lookup(n.Name)
		if !ok {
			if _, ok := c.m.LookupFunc(n.Name); ok {
				return x, c.errorf(n.Pos, "function %q used as a value", n.Name)
			}

			return x, c.errorf(n.Pos, "use of undeclared identifier %q", n.Name)
		}

		return c.load(n.Pos, lvalue(sym))
	case ast.Unary:
		return c.unary(ctx, s, n)
	case ast.Postfix:
		return c.incdec(ctx, s, n, false)
	case ast.Binary:
		switch n.Op {
		case "&&", "||":
			return c.logic(ctx, s, n)
		case ",":
			_, err = c.compileExpr(ctx, s, n.X)
			if err != nil {
				return x, err
			}

			return c.compileExpr(ctx, s, n.Y)
		}

		l, err := c.compileExpr(ctx, s, n.X)
		if err != nil {
			return x, err
		}

		r, err := c.compileExpr(ctx, s, n.Y)
		if err != nil {
			return x, err
		}

		return c.binary(n.Pos, n.Op, l, r)
	case ast.Ternary:
		return c.ternary(ctx, s, n)
	case ast.Call:
		return c.call(ctx, s, n)
	case ast.Index:
		lv, err := c.addr(ctx, s, id)
		if err != nil {
			return x, err
		}

		return c.load(n.Pos, lv)
	case ast.Member:
		return x, c.errorf(n.Pos, "struct member access is not supported")
	case ast.Assign:
		return c.assign(ctx, s, n)
	case ast.Cast:
		return c.cast(ctx, s, n)
	}

	return x, diag.Internal("lower: %v is not an expression", n.Kind)
}

// addr evaluates an expression designating an object.
func (c *Front) addr(ctx context.Context, s *Scope, id ast.NodeID) (lv lvalue, err error) {
	n := c.t.Get(id)

	switch {
	case n.Kind == ast.Ident:
		sym, ok := s.lookup(n.Name)
		if !ok {
			if _, ok := c.m.LookupFunc(n.Name); ok {
				return lv, c.errorf(n.Pos, "function %q is not assignable", n.Name)
			}

			return lv, c.errorf(n.Pos, "use of undeclared identifier %q", n.Name)
		}

		return lvalue(sym), nil
	case n.Kind == ast.Unary && n.Op == "*":
		x, err := c.compileExpr(ctx, s, n.X)
		if err != nil {
			return lv, err
		}

		return c.deref(n.Pos, x)
	case n.Kind == ast.Index:
		base, err := c.compileExpr(ctx, s, n.X)
		if err != nil {
			return lv, err
		}

		idx, err := c.compileExpr(ctx, s, n.Y)
		if err != nil {
			return lv, err
		}

		if c.m.Types.IsInt(base.typ) && c.m.Types.IsPtr(idx.typ) {
			base, idx = idx, base
		}

		if !c.m.Types.IsPtr(base.typ) || !c.m.Types.IsInt(idx.typ) {
			return lv, c.errorf(n.Pos, "subscripted value is not an array or pointer")
		}

		p, err := c.ptrAdd(n.Pos, base, idx, false)
		if err != nil {
			return lv, err
		}

		return c.deref(n.Pos, p)
	case n.Kind == ast.Member:
		return lv, c.errorf(n.Pos, "struct member access is not supported")
	case n.Kind == ast.Bad:
		return lv, syntaxError(n.Pos)
	}

	return lv, c.errorf(n.Pos, "expression is not assignable")
}

func (c *Front) deref(pos token.Pos, x value) (lv lvalue, err error) {
	t := c.m.Types

	if !t.IsPtr(x.typ) {
		return lv, c.errorf(pos, "indirection requires pointer operand (%s invalid)", c.typeName(x.typ))
	}

	elem := t.Elem(x.typ)
	if t.IsVoid(elem) {
		return lv, c.errorf(pos, "dereferencing a void pointer")
	}

	return lvalue{addr: x.v, typ: elem}, nil
}

// load reads an object. Arrays decay to a pointer to the first element.
func (c *Front) load(pos token.Pos, lv lvalue) (value, error) {
	t := c.m.Types

	if t.IsArray(lv.typ) {
		p := t.Ptr(t.Elem(lv.typ))

		return value{v: c.b.Convert(ir.Bitcast, p, lv.addr), typ: p}, nil
	}

	if c.fc == nil {
		return value{}, c.errorf(pos, "initializer element is not constant")
	}

	return value{v: c.b.Load(lv.typ, lv.addr), typ: lv.typ}, nil
}

func (c *Front) literal(n *ast.Node) (value, error) {
	switch n.Lit.Kind {
	case token.Int:
		if n.Lit.Int > math.MaxInt32 || n.Lit.Int < math.MinInt32 {
			return value{v: c.m.ConstInt(c.i64, n.Lit.Int), typ: c.i64}, nil
		}

		return value{v: c.m.ConstInt(c.i32, n.Lit.Int), typ: c.i32}, nil
	case token.Char:
		return value{v: c.m.ConstInt(c.i32, n.Lit.Int), typ: c.i32}, nil
	case token.Float:
		return value{v: c.m.ConstFloat(c.f64, n.Lit.Float), typ: c.f64}, nil
	case token.String:
		g := c.m.String(n.Lit.Str)
		p := c.m.Types.Ptr(c.i8)

		return value{v: c.b.Convert(ir.Bitcast, p, g.Value), typ: p}, nil
	}

	return value{}, diag.Internal("lower: literal of kind %v", n.Lit.Kind)
}

// needFunc rejects constructs which have no constant form outside of functions.
func (c *Front) needFunc(pos token.Pos) error {
	if c.fc == nil {
		return c.errorf(pos, "initializer element is not constant")
	}

	return nil
}

func (c *Front) unary(ctx context.Context, s *Scope, n *ast.Node) (x value, err error) {
	t := c.m.Types

	switch n.Op {
	case "++", "--":
		return c.incdec(ctx, s, n, true)
	case "&":
		if xn := c.t.Get(n.X); xn.Kind == ast.Ident {
			if _, ok := s.lookup(xn.Name); !ok {
				if _, ok := c.m.LookupFunc(xn.Name); ok {
					return x, c.errorf(n.Pos, "taking the address of function %q is not supported", xn.Name)
				}
			}
		}

		lv, err := c.addr(ctx, s, n.X)
		if err != nil {
			return x, err
		}

		return value{v: lv.addr, typ: t.Ptr(lv.typ)}, nil
	case "*":
		x, err = c.compileExpr(ctx, s, n.X)
		if err != nil {
			return x, err
		}

		lv, err := c.deref(n.Pos, x)
		if err != nil {
			return x, err
		}

		return c.load(n.Pos, lv)
	}

	x, err = c.compileExpr(ctx, s, n.X)
	if err != nil {
		return x, err
	}

	if n.Op == "!" {
		v, err := c.truth(n.Pos, x)
		if err != nil {
			return x, err
		}

		if cv := c.valueOf(v); cv.Kind == ir.ConstInt {
			return value{v: c.m.ConstInt(c.i32, b2i(cv.Int == 0)), typ: c.i32}, nil
		}

		return value{v: c.b.Binary(ir.Eq, c.i32, v, c.zero(c.i32)), typ: c.i32}, nil
	}

	if !c.isArith(x.typ) || n.Op == "~" && !t.IsInt(x.typ) {
		return x, c.errorf(n.Pos, "invalid argument type %s to unary %s", c.typeName(x.typ), n.Op)
	}

	x, err = c.promote(n.Pos, x)
	if err != nil {
		return x, err
	}

	cv := c.valueOf(x.v)

	switch {
	case n.Op == "+":
		return x, nil
	case n.Op == "-" && t.IsFloat(x.typ):
		if cv.Kind == ir.ConstFloat {
			return value{v: c.m.ConstFloat(x.typ, -cv.Float), typ: x.typ}, nil
		}

		return value{v: c.b.Unary(ir.FNeg, x.typ, x.v), typ: x.typ}, nil
	case n.Op == "-":
		if cv.Kind == ir.ConstInt {
			return value{v: c.m.ConstInt(x.typ, -cv.Int), typ: x.typ}, nil
		}

		return value{v: c.b.Unary(ir.Neg, x.typ, x.v), typ: x.typ}, nil
	default: // ~
		if cv.Kind == ir.ConstInt {
			return value{v: c.m.ConstInt(x.typ, ^cv.Int), typ: x.typ}, nil
		}

		return value{v: c.b.Unary(ir.Not, x.typ, x.v), typ: x.typ}, nil
	}
}

// binary applies an arithmetic, bitwise, shift or comparison operator.
func (c *Front) binary(pos token.Pos, op string, l, r value) (x value, err error) {
	t := c.m.Types

	if t.IsVoid(l.typ) || t.IsVoid(r.typ) {
		return x, c.errorf(pos, "void value not ignored as it ought to be")
	}

	cmp := intOps[op].IsCompare()

	switch {
	case t.IsPtr(l.typ) || t.IsPtr(r.typ):
		if cmp {
			return c.ptrCompare(pos, op, l, r)
		}

		return c.ptrArith(pos, op, l, r)
	case !c.isArith(l.typ) || !c.isArith(r.typ):
		return x, c.invalidOperands(pos, op, l, r)
	}

	var typ tp.ID

	switch op {
	case "<<", ">>":
		if !t.IsInt(l.typ) || !t.IsInt(r.typ) {
			return x, c.invalidOperands(pos, op, l, r)
		}

		typ = c.promoted(l.typ)
	case "%", "&", "|", "^":
		if !t.IsInt(l.typ) || !t.IsInt(r.typ) {
			return x, c.invalidOperands(pos, op, l, r)
		}

		typ = c.common(l.typ, r.typ)
	default:
		typ = c.common(l.typ, r.typ)
	}

	lv, err := c.convert(pos, l, typ)
	if err != nil {
		return x, err
	}

	rv, err := c.convert(pos, r, typ)
	if err != nil {
		return x, err
	}

	res := typ
	if cmp {
		res = c.i32
	}

	if t.IsFloat(typ) {
		return c.floatOp(op, typ, res, lv, rv)
	}

	return c.intOp(pos, op, typ, res, lv, rv)
}

func (c *Front) intOp(pos token.Pos, op string, typ, res tp.ID, l, r ir.ValueID) (value, error) {
	lc, rc := c.valueOf(l), c.valueOf(r)

	if lc.Kind == ir.ConstInt && rc.Kind == ir.ConstInt {
		if v, ok := foldInt(op, c.isSigned(typ), c.bits(typ), lc.Int, rc.Int); ok {
			return value{v: c.m.ConstInt(res, v), typ: res}, nil
		}
	}

	if (op == "/" || op == "%") && rc.Kind == ir.ConstInt && rc.Int == 0 {
		c.diags.Warnf(diag.SemanticError, pos, "division by zero")
	}

	return value{v: c.b.Binary(intOps[op], res, l, r), typ: res}, nil
}

func (c *Front) floatOp(op string, typ, res tp.ID, l, r ir.ValueID) (value, error) {
	lc, rc := c.valueOf(l), c.valueOf(r)

	if lc.Kind == ir.ConstFloat && rc.Kind == ir.ConstFloat {
		a, b := lc.Float, rc.Float

		switch op {
		case "+":
			return value{v: c.m.ConstFloat(typ, a+b), typ: typ}, nil
		case "-":
			return value{v: c.m.ConstFloat(typ, a-b), typ: typ}, nil
		case "*":
			return value{v: c.m.ConstFloat(typ, a*b), typ: typ}, nil
		case "/":
			return value{v: c.m.ConstFloat(typ, a/b), typ: typ}, nil
		}

		if v, ok := compare(op, a < b, a == b, a > b); ok {
			return value{v: c.m.ConstInt(res, b2i(v)), typ: res}, nil
		}
	}

	return value{v: c.b.Binary(floatOps[op], res, l, r), typ: res}, nil
}

// foldInt evaluates an integer operation of the given width and signedness.
// Division by zero and oversized shifts are left to run time.
func foldInt(op string, signed bool, bits int, a, b int64) (int64, bool) {
	ua, ub := uint64(a), uint64(b)

	if !signed && bits < 64 {
		mask := uint64(1)<<uint(bits) - 1
		ua, ub = ua&mask, ub&mask
	}

	switch op {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	case "&":
		return a & b, true
	case "|":
		return a | b, true
	case "^":
		return a ^ b, true
	case "/", "%":
		if b == 0 || signed && b == -1 {
			return 0, false
		}

		switch {
		case signed && op == "/":
			return a / b, true
		case signed:
			return a % b, true
		case op == "/":
			return int64(ua / ub), true
		default:
			return int64(ua % ub), true
		}
	case "<<", ">>":
		if b < 0 || b >= int64(bits) {
			return 0, false
		}

		switch {
		case op == "<<":
			return a << uint(b), true
		case signed:
			return a >> uint(b), true
		default:
			return int64(ua >> uint(b)), true
		}
	}

	if signed {
		return b2iOK(compare(op, a < b, a == b, a > b))
	}

	return b2iOK(compare(op, ua < ub, ua == ub, ua > ub))
}

func compare(op string, lt, eq, gt bool) (bool, bool) {
	switch op {
	case "==":
		return eq, true
	case "!=":
		return !eq, true
	case "<":
		return lt, true
	case "<=":
		return lt || eq, true
	case ">":
		return gt, true
	case ">=":
		return gt || eq, true
	}

	return false, false
}

func b2iOK(v, ok bool) (int64, bool) {
	return b2i(v), ok
}

func (c *Front) invalidOperands(pos token.Pos, op string, l, r value) error {
	return c.errorf(pos, "invalid operands to binary %s (have %s and %s)", op, c.typeName(l.typ), c.typeName(r.typ))
}

func (c *Front) ptrCompare(pos token.Pos, op string, l, r value) (x value, err error) {
	t := c.m.Types

	switch {
	case t.IsPtr(l.typ) && t.IsPtr(r.typ):
	case t.IsPtr(l.typ) && t.IsInt(r.typ):
		if !c.isNullConst(r) {
			c.diags.Warnf(diag.SemanticError, pos, "comparison between pointer and integer")
		}
	case t.IsInt(l.typ) && t.IsPtr(r.typ):
		if !c.isNullConst(l) {
			c.diags.Warnf(diag.SemanticError, pos, "comparison between pointer and integer")
		}
	default:
		return x, c.invalidOperands(pos, op, l, r)
	}

	u64 := t.Int(64, false)

	lv, err := c.convert(pos, l, u64)
	if err != nil {
		return x, err
	}

	rv, err := c.convert(pos, r, u64)
	if err != nil {
		return x, err
	}

	return c.intOp(pos, op, u64, c.i32, lv, rv)
}

func (c *Front) ptrArith(pos token.Pos, op string, l, r value) (x value, err error) {
	t := c.m.Types

	switch {
	case op == "+" && t.IsPtr(l.typ) && t.IsInt(r.typ):
		return c.ptrAdd(pos, l, r, false)
	case op == "+" && t.IsInt(l.typ) && t.IsPtr(r.typ):
		return c.ptrAdd(pos, r, l, false)
	case op == "-" && t.IsPtr(l.typ) && t.IsInt(r.typ):
		return c.ptrAdd(pos, l, r, true)
	case op == "-" && t.IsPtr(l.typ) && t.IsPtr(r.typ):
		return c.ptrDiff(pos, l, r)
	}

	return x, c.invalidOperands(pos, op, l, r)
}

// ptrAdd offsets a pointer by a number of elements.
func (c *Front) ptrAdd(pos token.Pos, p, idx value, neg bool) (x value, err error) {
	t := c.m.Types

	if t.IsVoid(t.Elem(p.typ)) {
		return x, c.errorf(pos, "arithmetic on a pointer to void")
	}

	i, err := c.convert(pos, idx, c.i64)
	if err != nil {
		return x, err
	}

	if neg {
		if cv := c.valueOf(i); cv.Kind == ir.ConstInt {
			i = c.m.ConstInt(c.i64, -cv.Int)
		} else {
			i = c.b.Unary(ir.Neg, c.i64, i)
		}
	}

	if err = c.needFunc(pos); err != nil {
		return x, err
	}

	return value{v: c.b.Elem(p.v, i), typ: p.typ}, nil
}

func (c *Front) ptrDiff(pos token.Pos, l, r value) (x value, err error) {
	t := c.m.Types

	if t.Elem(l.typ) != t.Elem(r.typ) {
		return x, c.errorf(pos, "%s and %s are not pointers to compatible types", c.typeName(l.typ), c.typeName(r.typ))
	}

	size := t.Size(t.Elem(l.typ))
	if size == 0 {
		return x, c.errorf(pos, "arithmetic on a pointer to void")
	}

	lv, err := c.convert(pos, l, c.i64)
	if err != nil {
		return x, err
	}

	rv, err := c.convert(pos, r, c.i64)
	if err != nil {
		return x, err
	}

	d, err := c.intOp(pos, "-", c.i64, c.i64, lv, rv)
	if err != nil {
		return x, err
	}

	if size == 1 {
		return d, nil
	}

	return c.intOp(pos, "/", c.i64, c.i64, d.v, c.m.ConstInt(c.i64, size))
}

// logic lowers && and || to a conditional branch and a phi in the merge block.
func (c *Front) logic(ctx context.Context, s *Scope, n *ast.Node) (x value, err error) {
	and := n.Op == "&&"
	pos, yid := n.Pos, n.Y

	if c.fc == nil {
		return c.constLogic(ctx, s, n)
	}

	l, err := c.compileExpr(ctx, s, n.X)
	if err != nil {
		return x, err
	}

	lt, err := c.truth(pos, l)
	if err != nil {
		return x, err
	}

	kind := "lor"
	if and {
		kind = "land"
	}

	bs := c.blocks(kind+".rhs", kind+".end")
	rhs, end := bs[0], bs[1]

	from := c.b.Block()

	if and {
		c.b.CondBr(lt, rhs, end)
	} else {
		c.b.CondBr(lt, end, rhs)
	}

	c.b.SetBlock(rhs)

	r, err := c.compileExpr(ctx, s, yid)
	if err != nil {
		return x, err
	}

	rt, err := c.truth(pos, r)
	if err != nil {
		return x, err
	}

	rhsEnd := c.b.Block()
	c.b.Br(end)

	c.b.SetBlock(end)

	short := c.m.ConstInt(c.i32, b2i(!and))

	v := c.b.Phi(c.i32, []ir.ValueID{short, rt}, []ir.BlockID{from, rhsEnd})

	return value{v: v, typ: c.i32}, nil
}

// constLogic folds && and || in initializers. Both operands must be constant.
func (c *Front) constLogic(ctx context.Context, s *Scope, n *ast.Node) (x value, err error) {
	var t [2]bool

	for i, id := range []ast.NodeID{n.X, n.Y} {
		v, err := c.compileExpr(ctx, s, id)
		if err != nil {
			return x, err
		}

		b, err := c.truth(n.Pos, v)
		if err != nil {
			return x, err
		}

		k := c.valueOf(b)
		if k.Kind != ir.ConstInt {
			return x, c.errorf(n.Pos, "initializer element is not constant")
		}

		t[i] = k.Int != 0
	}

	r := t[0] && t[1]
	if n.Op == "||" {
		r = t[0] || t[1]
	}

	return value{v: c.m.ConstInt(c.i32, b2i(r)), typ: c.i32}, nil
}

func (c *Front) ternary(ctx context.Context, s *Scope, n *ast.Node) (x value, err error) {
	pos, cid, yid, zid := n.Pos, n.X, n.Y, n.Z

	if err = c.needFunc(pos); err != nil {
		return x, err
	}

	bs := c.blocks("cond.then", "cond.else", "cond.end")
	then, els, end := bs[0], bs[1], bs[2]

	err = c.cond(ctx, s, cid, then, els)
	if err != nil {
		return x, err
	}

	c.b.SetBlock(then)

	a, err := c.compileExpr(ctx, s, yid)
	if err != nil {
		return x, err
	}

	thenEnd := c.b.Block()

	c.b.SetBlock(els)

	b, err := c.compileExpr(ctx, s, zid)
	if err != nil {
		return x, err
	}

	elsEnd := c.b.Block()

	typ, err := c.ternaryType(pos, a, b)
	if err != nil {
		return x, err
	}

	branch := func(blk ir.BlockID, y value) (ir.ValueID, error) {
		c.b.SetBlock(blk)

		var v ir.ValueID

		if typ != c.void {
			v, err = c.convert(pos, y, typ)
			if err != nil {
				return ir.None, err
			}
		}

		c.b.Br(end)

		return v, nil
	}

	av, err := branch(thenEnd, a)
	if err != nil {
		return x, err
	}

	bv, err := branch(elsEnd, b)
	if err != nil {
		return x, err
	}

	c.b.SetBlock(end)

	if typ == c.void {
		return value{v: ir.None, typ: typ}, nil
	}

	v := c.b.Phi(typ, []ir.ValueID{av, bv}, []ir.BlockID{thenEnd, elsEnd})

	return value{v: v, typ: typ}, nil
}

func (c *Front) ternaryType(pos token.Pos, a, b value) (tp.ID, error) {
	t := c.m.Types

	switch {
	case a.typ == b.typ:
		return a.typ, nil
	case c.isArith(a.typ) && c.isArith(b.typ):
		return c.common(a.typ, b.typ), nil
	case t.IsPtr(a.typ) && c.isNullConst(b):
		return a.typ, nil
	case t.IsPtr(b.typ) && c.isNullConst(a):
		return b.typ, nil
	case t.IsPtr(a.typ) && t.IsPtr(b.typ) && t.IsVoid(t.Elem(b.typ)):
		return b.typ, nil
	case t.IsPtr(a.typ) && t.IsPtr(b.typ):
		c.diags.Warnf(diag.SemanticError, pos, "pointer type mismatch in conditional expression")

		return a.typ, nil
	}

	return tp.None, c.errorf(pos, "incompatible operand types (%s and %s)", c.typeName(a.typ), c.typeName(b.typ))
}

func (c *Front) assign(ctx context.Context, s *Scope, n *ast.Node) (x value, err error) {
	pos, op, yid := n.Pos, n.Op, n.Y

	if err = c.needFunc(pos); err != nil {
		return x, err
	}

	lv, err := c.addr(ctx, s, n.X)
	if err != nil {
		return x, err
	}

	if c.m.Types.IsArray(lv.typ) {
		return x, c.errorf(pos, "array type is not assignable")
	}

	y, err := c.compileExpr(ctx, s, yid)
	if err != nil {
		return x, err
	}

	if op != "=" {
		cur := value{v: c.b.Load(lv.typ, lv.addr), typ: lv.typ}

		y, err = c.binary(pos, op[:len(op)-1], cur, y)
		if err != nil {
			return x, err
		}

		v, err := c.convert(pos, y, lv.typ)
		if err != nil {
			return x, err
		}

		c.b.Store(lv.addr, v)

		return value{v: v, typ: lv.typ}, nil
	}

	v, err := c.implicit(pos, y, lv.typ)
	if err != nil {
		return x, err
	}

	c.b.Store(lv.addr, v)

	return value{v: v, typ: lv.typ}, nil
}

// incdec lowers ++ and --. The prefix form yields the new value.
func (c *Front) incdec(ctx context.Context, s *Scope, n *ast.Node, prefix bool) (x value, err error) {
	pos, op := n.Pos, n.Op[:1]

	if err = c.needFunc(pos); err != nil {
		return x, err
	}

	lv, err := c.addr(ctx, s, n.X)
	if err != nil {
		return x, err
	}

	if !c.m.Types.IsScalar(lv.typ) {
		return x, c.errorf(pos, "cannot increment value of type %s", c.typeName(lv.typ))
	}

	cur := value{v: c.b.Load(lv.typ, lv.addr), typ: lv.typ}
	one := value{v: c.m.ConstInt(c.i32, 1), typ: c.i32}

	y, err := c.binary(pos, op, cur, one)
	if err != nil {
		return x, err
	}

	v, err := c.convert(pos, y, lv.typ)
	if err != nil {
		return x, err
	}

	c.b.Store(lv.addr, v)

	if prefix {
		return value{v: v, typ: lv.typ}, nil
	}

	return cur, nil
}

func (c *Front) cast(ctx context.Context, s *Scope, n *ast.Node) (x value, err error) {
	pos := n.Pos

	to, err := c.typeOf(pos, n.Type)
	if err != nil {
		return x, err
	}

	if c.m.Types.IsArray(to) {
		return x, c.errorf(pos, "cast to array type %s", c.typeName(to))
	}

	x, err = c.compileExpr(ctx, s, n.X)
	if err != nil {
		return x, err
	}

	if c.m.Types.IsVoid(to) {
		return value{v: ir.None, typ: to}, nil
	}

	v, err := c.convert(pos, x, to)
	if err != nil {
		return x, err
	}

	return value{v: v, typ: to}, nil
}

func (c *Front) call(ctx context.Context, s *Scope, n *ast.Node) (x value, err error) {
	pos, args := n.Pos, n.List

	if err = c.needFunc(pos); err != nil {
		return x, err
	}

	fn := c.t.Get(n.X)
	if fn.Kind != ast.Ident {
		return x, c.errorf(pos, "only direct calls by function name are supported")
	}

	name := fn.Name

	if _, ok := s.lookup(name); ok {
		return x, c.errorf(fn.Pos, "called object %q is not a function", name)
	}

	f, ok := c.m.LookupFunc(name)
	if !ok {
		c.diags.Warnf(diag.SemanticError, fn.Pos, "implicit declaration of function %q", name)

		f = c.m.NewFunc(name, c.m.Types.Func(c.i32, nil, true))
		c.implicitDecls[f.ID] = true
	}

	ft := c.m.FuncType(f)

	switch {
	case len(args) < len(ft.Params):
		return x, c.errorf(pos, "too few arguments to function %q: want %d, got %d", name, len(ft.Params), len(args))
	case len(args) > len(ft.Params) && !ft.Vararg:
		return x, c.errorf(pos, "too many arguments to function %q: want %d, got %d", name, len(ft.Params), len(args))
	}

	vals := make([]ir.ValueID, len(args))

	for i, a := range args {
		apos := c.t.Get(a).Pos

		y, err := c.compileExpr(ctx, s, a)
		if err != nil {
			return x, err
		}

		if c.m.Types.IsVoid(y.typ) {
			return x, c.errorf(apos, "passing void value as argument %d of %q", i+1, name)
		}

		if i < len(ft.Params) {
			vals[i], err = c.implicit(apos, y, ft.Params[i])
		} else {
			vals[i], err = c.argument(apos, y)
		}

		if err != nil {
			return x, err
		}
	}

	c.b.Pos = pos
	v := c.b.Call(f, vals)

	return value{v: v, typ: ft.Ret}, nil
}

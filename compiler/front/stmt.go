package front

import (
	"context"
	"fmt"

	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/tp"
)

func (c *Front) compileBlock(ctx context.Context, s *Scope, list []ast.NodeID) (err error) {
	for _, id := range list {
		err = c.compileStmt(ctx, s, id)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Front) compileStmt(ctx context.Context, s *Scope, id ast.NodeID) (err error) {
	n := c.t.Get(id)

	if c.b.Terminated() {
		c.b.SetBlock(c.newBlock("dead"))
	}

	c.b.Pos = n.Pos

	switch n.Kind {
	case ast.Bad:
		return syntaxError(n.Pos)
	case ast.Empty:
		return nil
	case ast.Compound:
		return c.compileBlock(ctx, s.child(), n.List)
	case ast.ExprStmt:
		_, err = c.compileExpr(ctx, s, n.X)
		return err
	case ast.DeclStmt:
		for _, v := range n.List {
			err = c.localVar(ctx, s, v)
			if err != nil {
				return err
			}
		}

		return nil
	case ast.If:
		return c.compileIf(ctx, s, n)
	case ast.While:
		return c.compileWhile(ctx, s, n)
	case ast.For:
		return c.compileFor(ctx, s, n)
	case ast.Return:
		return c.compileReturn(ctx, s, n)
	case ast.Break, ast.Continue:
		return c.compileJump(n)
	case ast.Func:
		if n.X != ast.Nil {
			return c.errorf(n.Pos, "function definition is not allowed here")
		}

		_, err = c.declareFunc(n)

		return err
	}

	return c.errorf(n.Pos, "unsupported statement %v", n.Kind)
}

// cond evaluates a controlling expression and branches on it.
func (c *Front) cond(ctx context.Context, s *Scope, id ast.NodeID, then, els ir.BlockID) error {
	n := c.t.Get(id)

	x, err := c.compileExpr(ctx, s, id)
	if err != nil {
		return err
	}

	v, err := c.truth(n.Pos, x)
	if err != nil {
		return err
	}

	c.b.CondBr(v, then, els)

	return nil
}

func (c *Front) compileIf(ctx context.Context, s *Scope, n *ast.Node) (err error) {
	x, y, z := n.X, n.Y, n.Z

	var then, els, end ir.BlockID

	if z == ast.Nil {
		bs := c.blocks("if.then", "if.end")
		then, end = bs[0], bs[1]
		els = end
	} else {
		bs := c.blocks("if.then", "if.else", "if.end")
		then, els, end = bs[0], bs[1], bs[2]
	}

	err = c.cond(ctx, s, x, then, els)
	if err != nil {
		return err
	}

	c.b.SetBlock(then)

	err = c.compileStmt(ctx, s.child(), y)
	if err != nil {
		return err
	}

	if !c.b.Terminated() {
		c.b.Br(end)
	}

	if z != ast.Nil {
		c.b.SetBlock(els)

		err = c.compileStmt(ctx, s.child(), z)
		if err != nil {
			return err
		}

		if !c.b.Terminated() {
			c.b.Br(end)
		}
	}

	c.b.SetBlock(end)

	return nil
}

func (c *Front) compileWhile(ctx context.Context, s *Scope, n *ast.Node) (err error) {
	x, y := n.X, n.Y

	bs := c.blocks("while.cond", "while.body", "while.end")
	cond, body, end := bs[0], bs[1], bs[2]

	c.b.Br(cond)
	c.b.SetBlock(cond)

	err = c.cond(ctx, s, x, body, end)
	if err != nil {
		return err
	}

	c.b.SetBlock(body)

	err = c.loopBody(ctx, s, y, loop{brk: end, cont: cond})
	if err != nil {
		return err
	}

	if !c.b.Terminated() {
		c.b.Br(cond)
	}

	c.b.SetBlock(end)

	return nil
}

func (c *Front) compileFor(ctx context.Context, s *Scope, n *ast.Node) (err error) {
	init, x, step, body := n.X, n.Y, n.Z, n.W

	s = s.child()

	if init != ast.Nil {
		err = c.compileStmt(ctx, s, init)
		if err != nil {
			return err
		}
	}

	bs := c.blocks("for.cond", "for.body", "for.step", "for.end")
	condb, bodyb, stepb, end := bs[0], bs[1], bs[2], bs[3]

	c.b.Br(condb)
	c.b.SetBlock(condb)

	if x != ast.Nil {
		err = c.cond(ctx, s, x, bodyb, end)
		if err != nil {
			return err
		}
	} else {
		c.b.Br(bodyb)
	}

	c.b.SetBlock(bodyb)

	err = c.loopBody(ctx, s, body, loop{brk: end, cont: stepb})
	if err != nil {
		return err
	}

	if !c.b.Terminated() {
		c.b.Br(stepb)
	}

	c.b.SetBlock(stepb)

	if step != ast.Nil {
		c.b.Pos = c.t.Get(step).Pos

		_, err = c.compileExpr(ctx, s, step)
		if err != nil {
			return err
		}
	}

	c.b.Br(condb)
	c.b.SetBlock(end)

	return nil
}

func (c *Front) loopBody(ctx context.Context, s *Scope, id ast.NodeID, l loop) error {
	c.fc.loops = append(c.fc.loops, l)
	defer func() {
		c.fc.loops = c.fc.loops[:len(c.fc.loops)-1]
	}()

	return c.compileStmt(ctx, s.child(), id)
}

func (c *Front) compileJump(n *ast.Node) error {
	word := "break"
	if n.Kind == ast.Continue {
		word = "continue"
	}

	if len(c.fc.loops) == 0 {
		return c.errorf(n.Pos, "%s statement not within a loop", word)
	}

	l := c.fc.loops[len(c.fc.loops)-1]

	if n.Kind == ast.Break {
		c.b.Br(l.brk)
	} else {
		c.b.Br(l.cont)
	}

	return nil
}

func (c *Front) compileReturn(ctx context.Context, s *Scope, n *ast.Node) (err error) {
	ret := c.fc.ret
	void := c.m.Types.IsVoid(ret)

	if n.X == ast.Nil {
		if void {
			c.b.Ret(ir.None)
			return nil
		}

		c.diags.Warnf(diag.SemanticError, n.Pos, "return with no value in function returning %s", c.typeName(ret))
		c.b.Ret(c.zero(ret))

		return nil
	}

	x, err := c.compileExpr(ctx, s, n.X)
	if err != nil {
		return err
	}

	if void {
		if !c.m.Types.IsVoid(x.typ) {
			return c.errorf(n.Pos, "void function should not return a value")
		}

		c.b.Ret(ir.None)

		return nil
	}

	v, err := c.implicit(n.Pos, x, ret)
	if err != nil {
		return err
	}

	c.b.Ret(v)

	return nil
}

func (c *Front) localVar(ctx context.Context, s *Scope, id ast.NodeID) (err error) {
	n := c.t.Get(id)

	typ, err := c.typeOf(n.Pos, n.Type)
	if err != nil {
		return err
	}

	if c.m.Types.IsVoid(typ) {
		return c.errorf(n.Pos, "variable %q declared void", n.Name)
	}

	if n.Type.Static || n.Type.Extern {
		return c.staticLocal(ctx, s, n, typ)
	}

	if c.m.Types.IsArray(typ) && n.X != ast.Nil {
		return c.errorf(n.Pos, "array initializers are not supported")
	}

	// the scope is extended after the initializer so it can't see the variable
	var init value

	if n.X != ast.Nil {
		init, err = c.compileExpr(ctx, s, n.X)
		if err != nil {
			return err
		}
	}

	c.b.Pos = n.Pos
	slot := c.b.Alloca(typ, n.Name)

	err = s.define(c, n.Pos, n.Name, symbol{addr: slot, typ: typ})
	if err != nil {
		return err
	}

	if n.X == ast.Nil {
		return nil
	}

	v, err := c.implicit(n.Pos, init, typ)
	if err != nil {
		return err
	}

	c.b.Store(slot, v)

	return nil
}

// staticLocal places the variable in the module with a function qualified name.
func (c *Front) staticLocal(ctx context.Context, s *Scope, n *ast.Node, typ tp.ID) (err error) {
	if n.Type.Extern {
		g, ok := c.m.LookupGlobal(n.Name)
		if !ok {
			g = c.m.AddGlobal(n.Name, typ)
			g.Extern = true
		} else if g.Type != typ {
			return c.errorf(n.Pos, "conflicting types for %q", n.Name)
		}

		return s.define(c, n.Pos, n.Name, symbol{addr: g.Value, typ: typ})
	}

	c.statics++
	name := fmt.Sprintf("%s.%s.%d", c.fc.f.Name, n.Name, c.statics)

	g := c.m.AddGlobal(name, typ)
	g.Static = true

	gid, addr := g.ID, g.Value

	err = s.define(c, n.Pos, n.Name, symbol{addr: addr, typ: typ})
	if err != nil {
		return err
	}

	if n.X == ast.Nil {
		return nil
	}

	v, err := c.constInit(ctx, n.X, typ)
	if err != nil {
		return err
	}

	c.m.Globals[gid].Init = v

	return nil
}

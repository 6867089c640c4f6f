package front

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/token"
	"github.com/slowlang/minicc/compiler/tp"
)

type (
	Options struct {
		// Entry is the function top-level statements are collected into.
		Entry string
	}

	// Front lowers one translation unit. It is not reusable.
	Front struct {
		opts Options

		t *ast.Tree
		m *ir.Module

		b  *ir.Builder
		fc *funContext

		// scratch evaluates global initializers outside of any function
		scratch *ir.Builder

		root *Scope

		implicitDecls map[ir.FuncID]bool
		statics       int

		diags diag.List

		void, i8, i32, i64, f32, f64 tp.ID
	}

	funContext struct {
		f   *ir.Func
		ret tp.ID

		next  int
		loops []loop
	}

	loop struct {
		brk, cont ir.BlockID
	}

	Scope struct {
		up   *Scope
		vars map[string]symbol
	}

	symbol struct {
		addr ir.ValueID
		typ  tp.ID
	}

	// semError aborts lowering of the current function.
	// Reported errors were already diagnosed by the parser.
	semError struct {
		Pos      token.Pos
		Msg      string
		Reported bool
	}
)

const DefaultEntry = "main"

// Lower translates the tree into an IR module. Semantic problems are reported
// as diagnostics. The error is only returned for internal errors.
func Lower(ctx context.Context, name string, t *ast.Tree, root ast.NodeID, opts Options) (m *ir.Module, diags diag.List, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: lower unit", "name", name, "nodes", t.Len())
	defer tr.Finish("err", &err)

	if opts.Entry == "" {
		opts.Entry = DefaultEntry
	}

	c := newFront(name, t, opts)

	err = c.unit(ctx, root)
	if err != nil {
		return nil, c.diags, err
	}

	err = ir.Verify(c.m)
	if err != nil {
		return nil, c.diags, errors.Wrap(err, "verify")
	}

	if tr.If("dump_ir") {
		tr.Printw("ir", "text", ir.Print(nil, c.m))
	}

	return c.m, c.diags, nil
}

func newFront(name string, t *ast.Tree, opts Options) *Front {
	m := ir.NewModule(name)

	c := &Front{
		opts:          opts,
		t:             t,
		m:             m,
		root:          &Scope{vars: map[string]symbol{}},
		implicitDecls: map[ir.FuncID]bool{},
	}

	c.void = m.Types.Void()
	c.i8 = m.Types.Int(8, true)
	c.i32 = m.Types.Int(32, true)
	c.i64 = m.Types.Int(64, true)
	c.f32 = m.Types.Float(32)
	c.f64 = m.Types.Float(64)

	sf := &ir.Func{ID: ir.NoFunc, Name: "<init>"}
	c.scratch = ir.NewBuilder(m, sf)
	c.scratch.SetBlock(sf.NewBlock(ir.EntryName))

	c.b = c.scratch

	return c
}

func (c *Front) unit(ctx context.Context, root ast.NodeID) (err error) {
	u := c.t.Get(root)
	if u.Kind != ast.Unit {
		return diag.Internal("lower: root is %v, not a unit", u.Kind)
	}

	var stmts []ast.NodeID

	for _, id := range u.List {
		n := c.t.Get(id)

		switch n.Kind {
		case ast.Bad, ast.Empty:
		case ast.Func:
			err = c.report(c.compileFunc(ctx, id))
		case ast.DeclStmt:
			for _, v := range n.List {
				err = c.report(c.globalVar(ctx, v))
				if err != nil {
					break
				}
			}
		default:
			if !n.Kind.IsStmt() {
				return diag.Internal("lower: unexpected top-level %v", n.Kind)
			}

			stmts = append(stmts, id)
		}

		if err != nil {
			return err
		}
	}

	if len(stmts) != 0 {
		return c.report(c.implicitEntry(ctx, stmts))
	}

	return nil
}

// report turns a semantic error into a diagnostic and passes other errors through.
func (c *Front) report(err error) error {
	var se *semError
	if !errors.As(err, &se) {
		return err
	}

	if !se.Reported {
		c.diags.Errorf(diag.SemanticError, se.Pos, "%s", se.Msg)
	}

	return nil
}

func (c *Front) errorf(pos token.Pos, format string, args ...any) error {
	return &semError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// syntaxError aborts the function containing a node the parser gave up on.
func syntaxError(pos token.Pos) error {
	return &semError{Pos: pos, Msg: "syntax error", Reported: true}
}

func (e *semError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
}

func isSemantic(err error) bool {
	var se *semError

	return errors.As(err, &se)
}

func (c *Front) globalVar(ctx context.Context, id ast.NodeID) (err error) {
	n := c.t.Get(id)

	typ, err := c.typeOf(n.Pos, n.Type)
	if err != nil {
		return err
	}

	if c.m.Types.IsVoid(typ) {
		return c.errorf(n.Pos, "variable %q declared void", n.Name)
	}

	if n.Type.Extern && n.X != ast.Nil {
		return c.errorf(n.Pos, "extern variable %q has an initializer", n.Name)
	}

	if _, ok := c.m.LookupFunc(n.Name); ok {
		return c.errorf(n.Pos, "%q redeclared as a different kind of symbol", n.Name)
	}

	g, ok := c.m.LookupGlobal(n.Name)

	switch {
	case !ok:
		g = c.m.AddGlobal(n.Name, typ)
		g.Static = n.Type.Static
		g.Extern = n.Type.Extern

		c.root.vars[n.Name] = symbol{addr: g.Value, typ: typ}
	case g.Type != typ:
		return c.errorf(n.Pos, "conflicting types for %q", n.Name)
	case n.X != ast.Nil && g.Init != ir.None:
		return c.errorf(n.Pos, "redefinition of %q", n.Name)
	case !n.Type.Extern:
		g.Extern = false
	}

	if n.X == ast.Nil {
		return nil
	}

	gid := g.ID

	v, err := c.constInit(ctx, n.X, typ)
	if err != nil {
		return err
	}

	c.m.Globals[gid].Init = v

	return nil
}

// constInit evaluates a static initializer.
func (c *Front) constInit(ctx context.Context, id ast.NodeID, typ tp.ID) (ir.ValueID, error) {
	n := c.t.Get(id)
	t := c.m.Types

	if t.IsArray(typ) {
		return ir.None, c.errorf(n.Pos, "array initializers are not supported")
	}

	if n.Kind == ast.Literal && n.Lit.Kind == token.String {
		if !t.IsPtr(typ) || !t.IsInt(t.Elem(typ)) || c.bits(t.Elem(typ)) != 8 {
			return ir.None, c.errorf(n.Pos, "initializing %s with a string literal", c.typeName(typ))
		}

		return c.m.String(n.Lit.Str).Value, nil
	}

	prev := c.b
	c.b = c.scratch

	defer func() {
		c.b = prev
	}()

	x, err := c.compileExpr(ctx, c.root, id)
	if err != nil {
		return ir.None, err
	}

	x.v = c.staticAddr(x.v)

	if !c.isStatic(x.v) {
		return ir.None, c.errorf(n.Pos, "initializer element is not constant")
	}

	v, err := c.implicit(n.Pos, x, typ)
	if err != nil {
		return ir.None, err
	}

	v = c.staticAddr(v)

	if !c.isStatic(v) {
		return ir.None, c.errorf(n.Pos, "initializer element is not constant")
	}

	return v, nil
}

// staticAddr folds pointer bitcasts of a global address
// evaluated by the initializer builder into a retyped address.
func (c *Front) staticAddr(v ir.ValueID) ir.ValueID {
	x := c.valueOf(v)
	if x.Kind != ir.Result || x.Func != ir.NoFunc || x.Instr == ir.NoInstr || !c.m.Types.IsPtr(x.Type) {
		return v
	}

	in := c.scratch.Func().Instr(x.Instr)
	if in.Op != ir.Bitcast || !c.m.Types.IsPtr(c.m.TypeOf(in.Args[0])) {
		return v
	}

	if base := c.valueOf(c.staticAddr(in.Args[0])); base.Kind == ir.GlobalAddr {
		return c.m.AddrOf(base.Global, x.Type)
	}

	return v
}

// isStatic reports whether v is known at link time.
func (c *Front) isStatic(v ir.ValueID) bool {
	k := c.valueOf(v).Kind

	return k == ir.ConstInt || k == ir.ConstFloat || k == ir.GlobalAddr
}

func (c *Front) funcType(n *ast.Node) (tp.ID, error) {
	ret, err := c.typeOf(n.Pos, n.Type)
	if err != nil {
		return tp.None, err
	}

	params := make([]tp.ID, len(n.List))

	for i, p := range n.List {
		pn := c.t.Get(p)

		params[i], err = c.typeOf(pn.Pos, pn.Type)
		if err != nil {
			return tp.None, err
		}

		if c.m.Types.IsVoid(params[i]) {
			return tp.None, c.errorf(pn.Pos, "parameter %q has void type", pn.Name)
		}
	}

	return c.m.Types.Func(ret, params, n.Flag), nil
}

// declareFunc finds or adds the function declared by n.
// An implicit declaration is replaced by a compatible prototype.
func (c *Front) declareFunc(n *ast.Node) (*ir.Func, error) {
	ft, err := c.funcType(n)
	if err != nil {
		return nil, err
	}

	if _, ok := c.root.vars[n.Name]; ok {
		return nil, c.errorf(n.Pos, "%q redeclared as a different kind of symbol", n.Name)
	}

	f, ok := c.m.LookupFunc(n.Name)
	if !ok {
		f = c.m.NewFunc(n.Name, ft)
		f.Static = n.Type.Static

		return f, nil
	}

	if f.Type == ft {
		return f, nil
	}

	if !c.implicitDecls[f.ID] || c.m.Types.Get(ft).(tp.Func).Ret != c.i32 {
		return nil, c.errorf(n.Pos, "conflicting types for %q", n.Name)
	}

	err = c.checkCalls(f, ft, n)
	if err != nil {
		return nil, err
	}

	c.m.SetFuncType(f, ft)
	delete(c.implicitDecls, f.ID)

	return f, nil
}

// checkCalls verifies that calls made through an implicit declaration fit ft.
func (c *Front) checkCalls(callee *ir.Func, ft tp.ID, n *ast.Node) error {
	typ := c.m.Types.Get(ft).(tp.Func)

	for _, f := range c.m.Funcs {
		for _, in := range f.Instrs {
			if in.Op != ir.Call || in.Callee != callee.ID {
				continue
			}

			if len(in.Args) < len(typ.Params) || !typ.Vararg && len(in.Args) != len(typ.Params) {
				return c.errorf(n.Pos, "conflicting types for %q: called at %d:%d with %d arguments", n.Name, in.Pos.Line, in.Pos.Col, len(in.Args))
			}
		}
	}

	return nil
}

func (c *Front) compileFunc(ctx context.Context, id ast.NodeID) (err error) {
	n := c.t.Get(id)

	f, err := c.declareFunc(n)
	if err != nil {
		return err
	}

	if n.X == ast.Nil {
		return nil
	}

	if !f.Decl {
		return c.errorf(n.Pos, "redefinition of %q", n.Name)
	}

	body := c.t.Get(n.X)

	return c.defineFunc(ctx, f, n.List, body.List)
}

// implicitEntry wraps statements written outside of functions into the entry function.
func (c *Front) implicitEntry(ctx context.Context, stmts []ast.NodeID) error {
	name := c.opts.Entry
	ft := c.m.Types.Func(c.i32, nil, false)

	f, ok := c.m.LookupFunc(name)

	switch {
	case ok && !f.Decl:
		for _, s := range stmts {
			c.diags.Errorf(diag.SemanticError, c.t.Get(s).Pos, "statement outside of a function")
		}

		return nil
	case ok && f.Type != ft:
		return c.errorf(c.t.Get(stmts[0]).Pos, "conflicting types for %q", name)
	case !ok:
		f = c.m.NewFunc(name, ft)
	}

	return c.defineFunc(ctx, f, nil, stmts)
}

func (c *Front) defineFunc(ctx context.Context, f *ir.Func, params, body []ast.NodeID) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: lower function", "name", f.Name, "params", len(params), "stmts", len(body))
	defer tr.Finish("err", &err)

	c.fc = &funContext{
		f:   f,
		ret: c.m.FuncType(f).Ret,
	}
	c.b = ir.NewBuilder(c.m, f)

	f.Decl = false

	defer func() {
		if isSemantic(err) {
			tr.Printw("function dropped", "name", f.Name, "reason", err)

			f.Reset()
		}

		c.fc = nil
		c.b = c.scratch
	}()

	c.b.SetBlock(c.b.NewBlock(ir.EntryName))

	s := c.root.child()

	for i, p := range params {
		pn := c.t.Get(p)

		if pn.Name == "" {
			return c.errorf(pn.Pos, "parameter %d of %q has no name", i+1, f.Name)
		}

		pt := c.m.TypeOf(f.Params[i])

		c.b.Pos = pn.Pos
		slot := c.b.Alloca(pt, pn.Name)
		c.b.Store(slot, f.Params[i])

		err = s.define(c, pn.Pos, pn.Name, symbol{addr: slot, typ: pt})
		if err != nil {
			return err
		}

		f.ParamNames[i] = pn.Name
	}

	err = c.compileBlock(ctx, s, body)
	if err != nil {
		return err
	}

	if !c.b.Terminated() {
		c.fallOff()
	}

	if err = c.b.Err(); err != nil {
		return errors.Wrap(err, "build %v", f.Name)
	}

	if tr.If("dump_ir_func") {
		tr.Printw("function", "name", f.Name, "blocks", len(f.Blocks), "instrs", len(f.Instrs))
	}

	return nil
}

// fallOff terminates the function body reaching its closing brace.
func (c *Front) fallOff() {
	if c.m.Types.IsVoid(c.fc.ret) {
		c.b.Ret(ir.None)
		return
	}

	c.b.Ret(c.zero(c.fc.ret))
}

func (c *Front) newBlock(kind string) ir.BlockID {
	c.fc.next++

	return c.b.NewBlock(fmt.Sprintf("%s.%d", kind, c.fc.next))
}

// blocks creates a group of blocks sharing one sequence number.
func (c *Front) blocks(kinds ...string) []ir.BlockID {
	c.fc.next++

	r := make([]ir.BlockID, len(kinds))

	for i, k := range kinds {
		r[i] = c.b.NewBlock(fmt.Sprintf("%s.%d", k, c.fc.next))
	}

	return r
}

func (s *Scope) child() *Scope {
	return &Scope{up: s, vars: map[string]symbol{}}
}

func (s *Scope) define(c *Front, pos token.Pos, name string, sym symbol) error {
	if _, ok := s.vars[name]; ok {
		return c.errorf(pos, "redefinition of %q", name)
	}

	s.vars[name] = sym

	return nil
}

func (s *Scope) lookup(name string) (symbol, bool) {
	for ; s != nil; s = s.up {
		if sym, ok := s.vars[name]; ok {
			return sym, true
		}
	}

	return symbol{}, false
}

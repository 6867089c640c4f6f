package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/token"
)

// Format renders the subtree rooted at id as S-expressions.
// Expressions are printed inline, statements one per line.
func Format(ctx context.Context, b []byte, t *ast.Tree, id ast.NodeID) ([]byte, error) {
	return format(ctx, b, t, id, 0)
}

// Expr renders a single expression, mostly for tests and diagnostics.
func Expr(t *ast.Tree, id ast.NodeID) string {
	b, err := formatExpr(context.Background(), nil, t, id)
	if err != nil {
		return "<" + err.Error() + ">"
	}

	return string(b)
}

func format(ctx context.Context, b []byte, t *ast.Tree, id ast.NodeID, d int) (_ []byte, err error) {
	if !t.Valid(id) {
		return nil, errors.New("dangling node handle %d", id)
	}

	n := t.Get(id)

	switch {
	case n.Kind == ast.Unit:
		for _, x := range n.List {
			b, err = format(ctx, b, t, x, d)
			if err != nil {
				return nil, errors.Wrap(err, "unit")
			}
		}

		return b, nil
	case n.Kind.IsExpr():
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, t, id)
		if err != nil {
			return nil, err
		}

		return append(b, '\n'), nil
	case n.Kind.IsDecl():
		return formatDecl(ctx, b, t, n, d)
	default:
		return formatStmt(ctx, b, t, n, d)
	}
}

func formatDecl(ctx context.Context, b []byte, t *ast.Tree, n *ast.Node, d int) (_ []byte, err error) {
	switch n.Kind {
	case ast.Var:
		b = app(b, d, "(var %v %s", n.Type, n.Name)

		if n.X != ast.Nil {
			b = append(b, ' ')

			b, err = formatExpr(ctx, b, t, n.X)
			if err != nil {
				return nil, errors.Wrap(err, "init %v", n.Name)
			}
		}

		b = append(b, ")\n"...)
	case ast.Param:
		b = app(b, d, "(param %v %s)\n", n.Type, n.Name)
	case ast.Func:
		b = app(b, d, "(func %v %s (", n.Type, n.Name)

		for i, p := range n.List {
			if i != 0 {
				b = append(b, ' ')
			}

			pn := t.Get(p)
			b = hfmt.Appendf(b, "%v %s", pn.Type, pn.Name)
		}

		if n.Flag {
			b = append(b, " ..."...)
		}

		b = append(b, ')')

		if n.X == ast.Nil {
			b = append(b, ")\n"...)
			break
		}

		b = append(b, '\n')

		b, err = format(ctx, b, t, n.X, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", n.Name)
		}

		b = app(b, d, ")\n")
	default:
		return nil, errors.New("unsupported decl: %v", n.Kind)
	}

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, t *ast.Tree, n *ast.Node, d int) (_ []byte, err error) {
	line := func(name string, x ast.NodeID) {
		b = app(b, d, "(%s", name)

		if x != ast.Nil && err == nil {
			b = append(b, ' ')
			b, err = formatExpr(ctx, b, t, x)
		}

		b = append(b, ")\n"...)
	}

	sub := func(x ast.NodeID) {
		if x != ast.Nil && err == nil {
			b, err = format(ctx, b, t, x, d+1)
		}
	}

	switch n.Kind {
	case ast.Bad:
		b = app(b, d, "(bad)\n")
	case ast.ExprStmt:
		line("expr", n.X)
	case ast.Return:
		line("return", n.X)
	case ast.Empty:
		line("empty", ast.Nil)
	case ast.Break:
		line("break", ast.Nil)
	case ast.Continue:
		line("continue", ast.Nil)
	case ast.Compound:
		b = app(b, d, "{\n")

		for _, x := range n.List {
			sub(x)
		}

		b = app(b, d, "}\n")
	case ast.DeclStmt:
		for _, x := range n.List {
			if err == nil {
				b, err = format(ctx, b, t, x, d)
			}
		}
	case ast.If:
		line("if", n.X)
		sub(n.Y)

		if n.Z != ast.Nil {
			b = app(b, d, "(else)\n")
			sub(n.Z)
		}
	case ast.While:
		line("while", n.X)
		sub(n.Y)
	case ast.For:
		b = app(b, d, "(for\n")
		for _, x := range []ast.NodeID{n.X, n.Y, n.Z} {
			if x == ast.Nil {
				b = app(b, d+1, "_\n")
				continue
			}

			sub(x)
		}
		b = app(b, d, ")\n")
		sub(n.W)
	default:
		return nil, errors.New("unsupported stmt: %v", n.Kind)
	}

	if err != nil {
		return nil, errors.Wrap(err, "%v", n.Kind)
	}

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, t *ast.Tree, id ast.NodeID) (_ []byte, err error) {
	if !t.Valid(id) {
		return nil, errors.New("dangling node handle %d", id)
	}

	n := t.Get(id)

	sexp := func(head string, xs ...ast.NodeID) {
		b = append(b, '(')
		b = append(b, head...)

		for _, x := range xs {
			if err != nil {
				return
			}

			b = append(b, ' ')
			b, err = formatExpr(ctx, b, t, x)
		}

		b = append(b, ')')
	}

	switch n.Kind {
	case ast.Bad:
		b = append(b, "(bad)"...)
	case ast.Literal:
		b = appendLit(b, n.Lit)
	case ast.Ident:
		b = append(b, n.Name...)
	case ast.Unary:
		sexp(n.Op, n.X)
	case ast.Postfix:
		sexp("post"+n.Op, n.X)
	case ast.Binary, ast.Assign:
		sexp(n.Op, n.X, n.Y)
	case ast.Ternary:
		sexp("?", n.X, n.Y, n.Z)
	case ast.Call:
		sexp("call", append([]ast.NodeID{n.X}, n.List...)...)
	case ast.Member:
		op := "."
		if n.Flag {
			op = "->"
		}

		sexp(op, n.X)

		if err == nil {
			b = hfmt.Appendf(b[:len(b)-1], " %s)", n.Name)
		}
	case ast.Index:
		sexp("[]", n.X, n.Y)
	case ast.Cast:
		sexp("cast "+n.Type.String(), n.X)
	default:
		return nil, errors.New("unsupported expr: %v", n.Kind)
	}

	if err != nil {
		return nil, err
	}

	return b, nil
}

func appendLit(b []byte, l token.Literal) []byte {
	switch l.Kind {
	case token.Int:
		return strconv.AppendInt(b, l.Int, 10)
	case token.Float:
		return strconv.AppendFloat(b, l.Float, 'g', -1, 64)
	case token.Char:
		return strconv.AppendQuoteRune(b, rune(l.Int))
	case token.String:
		return strconv.AppendQuote(b, l.Str)
	default:
		return append(b, '?')
	}
}

func app(b []byte, d int, f string, args ...any) []byte {
	for i := 0; i < d; i++ {
		b = append(b, "  "...)
	}

	return hfmt.Appendf(b, f, args...)
}

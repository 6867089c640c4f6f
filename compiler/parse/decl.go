package parse

import (
	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/token"
)

func (p *Parser) topLevel() ast.NodeID {
	if isTypeStart(p.s.Peek()) {
		return p.declaration(true)
	}

	return p.statement()
}

// declaration parses variables or a function prototype or definition.
// Function definitions are only allowed at the top level.
func (p *Parser) declaration(top bool) ast.NodeID {
	start := p.s.Peek()
	spec := p.specifiers()

	if p.accept(";") {
		return p.add(ast.Make(ast.Empty, start.Pos))
	}

	ts, name := p.declarator(spec)

	if p.is("(") {
		return p.function(ts, name, top)
	}

	n := ast.Make(ast.DeclStmt, start.Pos)

	for {
		v := ast.Make(ast.Var, name.Pos)
		v.Type = ts
		v.Name = name.Text

		if p.accept("=") {
			v.X = p.assignment()
		}

		n.List = append(n.List, p.add(v))

		if !p.accept(",") {
			break
		}

		ts, name = p.declarator(spec)
	}

	p.expect(";")

	return p.add(n)
}

func (p *Parser) function(ret ast.TypeSpec, name token.Token, top bool) ast.NodeID {
	if ret.IsArray() {
		p.errorf(name.Pos, "function %q cannot return an array", name.Text)
	}

	p.expect("(")

	n := ast.Make(ast.Func, name.Pos)
	n.Type = ret
	n.Name = name.Text

	switch {
	case p.is(")"):
	case p.is("void") && p.s.Lookahead(1).Is(")"):
		p.s.Next()
	default:
		for {
			if p.accept("...") {
				n.Flag = true
				break
			}

			n.List = append(n.List, p.param())

			if !p.accept(",") {
				break
			}
		}
	}

	p.expect(")")

	if p.accept(";") {
		return p.add(n)
	}

	if t := p.s.Peek(); !top && t.Is("{") {
		p.errorf(t.Pos, "function definition is not allowed here")
	}

	n.X = p.compound()

	return p.add(n)
}

// param parses a parameter with an optional name.
// Array parameters are adjusted to pointers.
func (p *Parser) param() ast.NodeID {
	start := p.s.Peek()
	ts := p.pointers(p.specifiers())

	n := ast.Make(ast.Param, start.Pos)

	if t := p.s.Peek(); t.Cat == token.Ident {
		p.s.Next()

		n.Name = t.Text
		n.Pos = t.Pos
	}

	if p.accept("[") {
		if t := p.s.Peek(); t.Cat == token.Lit && t.Lit.Kind == token.Int {
			p.s.Next()
		}

		p.expect("]")

		ts.Ptr++
	}

	if ts.IsVoid() {
		p.errorf(start.Pos, "parameter %q has void type", n.Name)
	}

	n.Type = ts

	return p.add(n)
}

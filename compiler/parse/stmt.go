package parse

import (
	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/token"
)

func (p *Parser) statement() ast.NodeID {
	p.enter()
	defer p.leave()

	t := p.s.Peek()

	switch {
	case t.Is("{"):
		return p.compound()
	case t.Is(";"):
		p.s.Next()

		return p.add(ast.Make(ast.Empty, t.Pos))
	case isTypeStart(t):
		return p.declaration(false)
	case t.Cat == token.Keyword:
		return p.keywordStmt(t)
	}

	x := p.expr()
	p.expect(";")

	n := ast.Make(ast.ExprStmt, t.Pos)
	n.X = x

	return p.add(n)
}

func (p *Parser) keywordStmt(t token.Token) ast.NodeID {
	switch t.Text {
	case "if":
		p.s.Next()
		p.expect("(")
		c := p.expr()
		p.expect(")")

		n := ast.Make(ast.If, t.Pos)
		n.X = c
		n.Y = p.statement()

		if p.accept("else") {
			n.Z = p.statement()
		}

		return p.add(n)
	case "while":
		p.s.Next()
		p.expect("(")
		c := p.expr()
		p.expect(")")

		n := ast.Make(ast.While, t.Pos)
		n.X = c
		n.Y = p.statement()

		return p.add(n)
	case "for":
		return p.forStmt(t)
	case "return":
		p.s.Next()

		n := ast.Make(ast.Return, t.Pos)

		if !p.is(";") {
			n.X = p.expr()
		}

		p.expect(";")

		return p.add(n)
	case "break", "continue":
		p.s.Next()
		p.expect(";")

		k := ast.Break
		if t.Text == "continue" {
			k = ast.Continue
		}

		return p.add(ast.Make(k, t.Pos))
	}

	p.errorf(t.Pos, "unsupported statement %q", t.Text)

	return ast.Nil
}

func (p *Parser) forStmt(t token.Token) ast.NodeID {
	p.s.Next()
	p.expect("(")

	n := ast.Make(ast.For, t.Pos)

	switch init := p.s.Peek(); {
	case init.Is(";"):
		p.s.Next()
	case isTypeStart(init):
		n.X = p.declaration(false)
	default:
		x := p.expr()
		p.expect(";")

		s := ast.Make(ast.ExprStmt, init.Pos)
		s.X = x

		n.X = p.add(s)
	}

	if !p.is(";") {
		n.Y = p.expr()
	}

	p.expect(";")

	if !p.is(")") {
		n.Z = p.expr()
	}

	p.expect(")")

	n.W = p.statement()

	return p.add(n)
}

// compound parses '{' stmt* '}'. Errors inside recover at the next statement.
func (p *Parser) compound() ast.NodeID {
	open := p.expect("{")

	n := ast.Make(ast.Compound, open.Pos)

	for {
		if p.accept("}") {
			break
		}

		if p.s.EOF() {
			p.diags.Errorf(diag.ParseError, open.Pos, "unmatched '{': reached end of file")
			break
		}

		n.List = append(n.List, p.guard(p.statement))
	}

	return p.add(n)
}

package parse

import (
	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/token"
)

// Binary operator precedence, lowest first. Zero means not a binary operator.
var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

var unaryOps = map[string]bool{
	"++": true, "--": true, "&": true, "*": true, "+": true, "-": true, "!": true, "~": true,
}

// expr parses a full expression including the comma operator.
func (p *Parser) expr() ast.NodeID {
	x := p.assignment()

	for p.is(",") {
		t := p.s.Next()
		y := p.assignment()

		x = p.binary(t, x, y)
	}

	return x
}

func (p *Parser) assignment() ast.NodeID {
	p.enter()
	defer p.leave()

	x := p.conditional()

	t := p.s.Peek()
	if t.Cat != token.Operator || !assignOps[t.Text] {
		return x
	}

	p.s.Next()

	y := p.assignment()

	n := ast.Make(ast.Assign, t.Pos)
	n.Op = t.Text
	n.X = x
	n.Y = y

	return p.add(n)
}

func (p *Parser) conditional() ast.NodeID {
	c := p.binaryExpr(1)

	if !p.is("?") {
		return c
	}

	t := p.s.Next()

	a := p.expr()
	p.expect(":")
	b := p.assignment()

	n := ast.Make(ast.Ternary, t.Pos)
	n.X = c
	n.Y = a
	n.Z = b

	return p.add(n)
}

// binaryExpr is the precedence climbing loop. The right operand is parsed
// with prec+1 so that operators of one level associate to the left.
func (p *Parser) binaryExpr(min int) ast.NodeID {
	x := p.unary()

	for {
		t := p.s.Peek()
		if t.Cat != token.Operator {
			return x
		}

		prec := binaryPrec[t.Text]
		if prec == 0 || prec < min {
			return x
		}

		p.s.Next()

		y := p.binaryExpr(prec + 1)

		x = p.binary(t, x, y)
	}
}

func (p *Parser) binary(op token.Token, x, y ast.NodeID) ast.NodeID {
	n := ast.Make(ast.Binary, op.Pos)
	n.Op = op.Text
	n.X = x
	n.Y = y

	return p.add(n)
}

func (p *Parser) unary() ast.NodeID {
	p.enter()
	defer p.leave()

	t := p.s.Peek()

	if t.Cat == token.Operator && unaryOps[t.Text] {
		p.s.Next()

		x := p.unary()

		n := ast.Make(ast.Unary, t.Pos)
		n.Op = t.Text
		n.X = x

		return p.add(n)
	}

	if t.Is("(") && isTypeStart(p.s.Lookahead(1)) {
		p.s.Next()

		typ := p.typeName()
		p.expect(")")

		x := p.unary()

		n := ast.Make(ast.Cast, t.Pos)
		n.Type = typ
		n.X = x

		return p.add(n)
	}

	return p.postfix()
}

func (p *Parser) postfix() ast.NodeID {
	x := p.primary()

	for {
		t := p.s.Peek()

		switch {
		case t.Is("("):
			p.s.Next()

			n := ast.Make(ast.Call, t.Pos)
			n.X = x

			if !p.is(")") {
				for {
					n.List = append(n.List, p.assignment())

					if !p.accept(",") {
						break
					}
				}
			}

			p.expect(")")

			x = p.add(n)
		case t.Is("["):
			p.s.Next()

			i := p.expr()
			p.expect("]")

			n := ast.Make(ast.Index, t.Pos)
			n.X = x
			n.Y = i

			x = p.add(n)
		case t.Is(".") || t.Is("->"):
			p.s.Next()

			name := p.ident()

			n := ast.Make(ast.Member, t.Pos)
			n.X = x
			n.Name = name.Text
			n.Flag = t.Text == "->"

			x = p.add(n)
		case t.Is("++") || t.Is("--"):
			p.s.Next()

			n := ast.Make(ast.Postfix, t.Pos)
			n.Op = t.Text
			n.X = x

			x = p.add(n)
		default:
			return x
		}
	}
}

func (p *Parser) primary() ast.NodeID {
	t := p.s.Peek()

	switch {
	case t.Cat == token.Ident:
		p.s.Next()

		n := ast.Make(ast.Ident, t.Pos)
		n.Name = t.Text

		return p.add(n)
	case t.Cat == token.Lit:
		p.s.Next()

		n := ast.Make(ast.Literal, t.Pos)
		n.Lit = t.Lit

		// adjacent string literals are concatenated
		for n.Lit.Kind == token.String && p.s.Peek().Cat == token.Lit && p.s.Peek().Lit.Kind == token.String {
			n.Lit.Str += p.s.Next().Lit.Str
		}

		return p.add(n)
	case t.Is("("):
		p.s.Next()

		x := p.expr()
		p.expect(")")

		return x
	}

	p.errorf(t.Pos, "expected expression, got %s", describe(t))

	return ast.Nil
}

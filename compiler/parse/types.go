package parse

import (
	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/token"
)

func isTypeStart(t token.Token) bool {
	return t.Cat == token.Keyword && token.IsTypeKeyword(t.Text)
}

// specifiers parses a run of type specifiers and qualifiers.
func (p *Parser) specifiers() (ts ast.TypeSpec) {
	start := p.s.Peek()
	sign := false

	for isTypeStart(p.s.Peek()) {
		t := p.s.Next()

		base := ast.NoType

		switch t.Text {
		case "void":
			base = ast.Void
		case "char":
			base = ast.Char
		case "short":
			base = ast.Short
		case "int":
			if ts.Base == ast.Short || ts.Base == ast.Long {
				continue
			}

			base = ast.Int
		case "long":
			switch ts.Base {
			case ast.Long:
				continue
			case ast.Double:
				continue
			}

			base = ast.Long
		case "float":
			base = ast.Float
		case "double":
			if ts.Base == ast.Long {
				ts.Base = ast.NoType
			}

			base = ast.Double
		case "signed":
			sign = true
		case "unsigned":
			sign = true
			ts.Unsigned = true
		case "const":
			ts.Const = true
		case "static":
			ts.Static = true
		case "extern":
			ts.Extern = true
		}

		if base == ast.NoType {
			continue
		}

		if ts.Base == ast.Int && (base == ast.Short || base == ast.Long) {
			ts.Base = ast.NoType
		}

		if ts.Base != ast.NoType {
			p.errorf(t.Pos, "conflicting type specifiers %q and %q", ts.Base, t.Text)
		}

		ts.Base = base
	}

	if ts.Base == ast.NoType {
		if !sign {
			p.errorf(start.Pos, "expected type specifier, got %s", describe(p.s.Peek()))
		}

		ts.Base = ast.Int
	}

	if ts.Unsigned && (ts.Base == ast.Float || ts.Base == ast.Double || ts.Base == ast.Void) {
		p.errorf(start.Pos, "%v cannot be unsigned", ts.Base)
	}

	return ts
}

func (p *Parser) pointers(ts ast.TypeSpec) ast.TypeSpec {
	for p.is("*") {
		p.s.Next()
		ts.Ptr++

		for p.accept("const") {
		}
	}

	return ts
}

// typeName is an abstract declarator as used in casts.
func (p *Parser) typeName() ast.TypeSpec {
	ts := p.specifiers()

	return p.pointers(ts)
}

// declarator parses '*'* ident ('[' int? ']')?.
func (p *Parser) declarator(base ast.TypeSpec) (ast.TypeSpec, token.Token) {
	ts := p.pointers(base)

	name := p.ident()

	if t := p.s.Peek(); t.Is("[") {
		p.s.Next()

		switch n := p.s.Peek(); {
		case n.Is("]"):
			ts.Array = -1
		case n.Cat == token.Lit && n.Lit.Kind == token.Int && n.Lit.Int > 0:
			p.s.Next()
			ts.Array = n.Lit.Int
		default:
			p.errorf(n.Pos, "expected positive array length, got %s", describe(n))
		}

		p.expect("]")
	}

	return ts, name
}

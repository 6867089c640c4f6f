package parse

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/format"
	"github.com/slowlang/minicc/compiler/lexer"
	"github.com/slowlang/minicc/compiler/token"
)

type (
	Options struct {
		// MaxDepth limits expression and statement nesting.
		MaxDepth int
	}

	Parser struct {
		s *lexer.Stream
		t *ast.Tree

		opts  Options
		depth int

		diags diag.List
	}

	// bailout unwinds the parser to the nearest recovery point.
	bailout struct{}
)

const DefaultMaxDepth = 512

func ParseSource(ctx context.Context, src []byte, opts Options) (*ast.Tree, ast.NodeID, diag.List) {
	toks, diags := lexer.Tokenize(ctx, src)

	t, root, pdiags := Parse(ctx, toks, opts)

	diags.Merge(pdiags)

	return t, root, diags
}

func Parse(ctx context.Context, toks []token.Token, opts Options) (t *ast.Tree, root ast.NodeID, diags diag.List) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse: translation unit", "tokens", len(toks))
	defer func() {
		tr.Finish("nodes", t.Len(), "diags", len(diags))
	}()

	p := New(toks, opts)

	root = p.unit()

	if tr.If("dump_ast") {
		b, err := format.Format(ctx, nil, p.t, root)
		tr.Printw("ast", "text", b, "err", err)
	}

	return p.t, root, p.diags
}

func New(toks []token.Token, opts Options) *Parser {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	filtered := make([]token.Token, 0, len(toks))

	for _, t := range toks {
		if t.Cat == token.Directive {
			continue
		}

		filtered = append(filtered, t)
	}

	return &Parser{
		s:    lexer.NewStream(filtered),
		t:    ast.New(),
		opts: opts,
	}
}

func (p *Parser) Diags() diag.List { return p.diags }

func (p *Parser) unit() ast.NodeID {
	n := ast.Make(ast.Unit, p.s.Peek().Pos)

	for !p.s.EOF() {
		x := p.guard(p.topLevel)
		n.List = append(n.List, x)
	}

	return p.t.Add(n)
}

// guard runs f and turns a bailout into a Bad node after skipping
// to the next statement boundary.
func (p *Parser) guard(f func() ast.NodeID) (id ast.NodeID) {
	start := p.s.Index()
	pos := p.s.Peek().Pos

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if _, ok := r.(bailout); !ok {
			panic(r)
		}

		p.sync()

		if p.s.Index() == start {
			p.s.Next()
		}

		id = p.t.Add(ast.Make(ast.Bad, pos))
	}()

	return f()
}

// sync skips tokens up to and including ';', or up to '}' or EOF.
func (p *Parser) sync() {
	for {
		t := p.s.Peek()

		switch {
		case t.Cat == token.EOF:
			return
		case t.Is(";"):
			p.s.Next()
			return
		case t.Is("}"):
			return
		}

		p.s.Next()
	}
}

func (p *Parser) errorf(pos token.Pos, format string, args ...any) {
	p.diags.Errorf(diag.ParseError, pos, format, args...)

	panic(bailout{})
}

func (p *Parser) enter() {
	p.depth++

	if p.depth > p.opts.MaxDepth {
		p.depth--
		p.errorf(p.s.Peek().Pos, "nesting too deep (limit %d)", p.opts.MaxDepth)
	}
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) is(s string) bool {
	return p.s.Peek().Is(s)
}

func (p *Parser) accept(s string) bool {
	if !p.is(s) {
		return false
	}

	p.s.Next()

	return true
}

func (p *Parser) expect(s string) token.Token {
	t := p.s.Peek()

	if !t.Is(s) {
		p.errorf(t.Pos, "expected %q, got %s", s, describe(t))
	}

	return p.s.Next()
}

func (p *Parser) ident() token.Token {
	t := p.s.Peek()

	if t.Cat != token.Ident {
		p.errorf(t.Pos, "expected identifier, got %s", describe(t))
	}

	return p.s.Next()
}

func (p *Parser) add(n ast.Node) ast.NodeID {
	return p.t.Add(n)
}

func describe(t token.Token) string {
	switch t.Cat {
	case token.EOF:
		return "end of file"
	case token.Unknown:
		return "invalid token " + quote(t.Text)
	default:
		return quote(t.Text)
	}
}

func quote(s string) string {
	return "'" + s + "'"
}

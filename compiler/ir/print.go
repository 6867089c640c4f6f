package ir

import (
	"github.com/nikandfor/hacked/hfmt"
)

type printer struct {
	m *Module
	f *Func

	names map[ValueID]int
}

// Print renders the module as stable text. Values are named by per-function sequence numbers.
func Print(b []byte, m *Module) []byte {
	p := printer{m: m}

	b = hfmt.Appendf(b, "; module %s\n", m.Name)

	for i := range m.Globals {
		b = p.global(b, &m.Globals[i])
	}

	for _, f := range m.Funcs {
		b = p.fun(b, f)
	}

	return b
}

func (p *printer) global(b []byte, g *Global) []byte {
	kind := "global"
	if g.Const {
		kind = "constant"
	}

	b = hfmt.Appendf(b, "%s = %s %s", p.globalName(g.ID), kind, p.m.Types.String(g.Type))

	switch {
	case g.Str:
		b = hfmt.Appendf(b, " %q", g.Data)
	case g.Init != None:
		b = append(b, ' ')
		b = p.operand(b, g.Init)
	default:
		b = append(b, " zeroinit"...)
	}

	return append(b, '\n')
}

func (p *printer) globalName(id GlobalID) string {
	g := &p.m.Globals[id]

	if g.Name == "" {
		return string(hfmt.Appendf(nil, "@.str%d", id))
	}

	return "@" + g.Name
}

func (p *printer) fun(b []byte, f *Func) []byte {
	p.f = f
	p.names = map[ValueID]int{}

	for _, v := range f.Params {
		p.names[v] = len(p.names)
	}

	if f.Decl {
		return hfmt.Appendf(b, "declare @%s %s\n", f.Name, p.m.Types.String(f.Type))
	}

	for _, in := range f.Instrs {
		if in.Result != None {
			p.names[in.Result] = len(p.names)
		}
	}

	b = hfmt.Appendf(b, "define @%s %s {\n", f.Name, p.m.Types.String(f.Type))

	for _, blk := range f.Blocks {
		b = hfmt.Appendf(b, "%s:\n", blk.Name)

		for _, id := range blk.Code {
			b = p.instr(b, &f.Instrs[id])
		}
	}

	return append(b, "}\n"...)
}

func (p *printer) instr(b []byte, in *Instr) []byte {
	b = append(b, '\t')

	if in.Result != None {
		b = hfmt.Appendf(b, "%%%d = ", p.names[in.Result])
	}

	b = append(b, in.Op.String()...)

	switch in.Op {
	case Alloca:
		return hfmt.Appendf(b, " %s ; %s\n", p.m.Types.String(p.m.Types.Elem(in.Type)), in.Name)
	case Call:
		b = hfmt.Appendf(b, " %s @%s(", p.m.Types.String(in.Type), p.m.Funcs[in.Callee].Name)

		for i, a := range in.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = p.operand(b, a)
		}

		return append(b, ")\n"...)
	case Phi:
		b = hfmt.Appendf(b, " %s", p.m.Types.String(in.Type))

		for i, a := range in.Args {
			if i != 0 {
				b = append(b, ',')
			}

			b = append(b, " ["...)
			b = p.operand(b, a)
			b = hfmt.Appendf(b, ", %s]", p.f.Blocks[in.Targets[i]].Name)
		}

		return append(b, '\n')
	}

	if in.Result != None {
		b = hfmt.Appendf(b, " %s", p.m.Types.String(in.Type))
	}

	for i, a := range in.Args {
		if i != 0 {
			b = append(b, ',')
		}

		b = append(b, ' ')
		b = p.operand(b, a)
	}

	for i, t := range in.Targets {
		if i != 0 || len(in.Args) != 0 {
			b = append(b, ',')
		}

		b = hfmt.Appendf(b, " %s", p.f.Blocks[t].Name)
	}

	return append(b, '\n')
}

func (p *printer) operand(b []byte, id ValueID) []byte {
	v := &p.m.Values[id]

	switch v.Kind {
	case ConstInt:
		return hfmt.Appendf(b, "%s %d", p.m.Types.String(v.Type), v.Int)
	case ConstFloat:
		return hfmt.Appendf(b, "%s %v", p.m.Types.String(v.Type), v.Float)
	case GlobalAddr:
		return append(b, p.globalName(v.Global)...)
	}

	if n, ok := p.names[id]; ok {
		return hfmt.Appendf(b, "%%%d", n)
	}

	return hfmt.Appendf(b, "%%?%d", id)
}

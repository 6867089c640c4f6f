package back

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/asm"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/set"
	"github.com/slowlang/minicc/compiler/tp"
)

type (
	Compiler struct{}

	modContext struct {
		*ir.Module

		fn *funContext

		strs    map[ir.GlobalID]string // string globals already in .rodata
		nextStr int
	}

	funContext struct {
		*ir.Func

		// rbp offsets of param and result slots and of alloca objects
		slots   map[ir.ValueID]int64
		objects map[ir.ValueID]int64
		frame   int64

		reach set.Bits[ir.BlockID]
		order []ir.BlockID

		labels int // local labels not tied to blocks
	}
)

func New() *Compiler {
	return &Compiler{}
}

// Generate translates the module to x86-64 GNU assembler text in Intel syntax.
func Generate(ctx context.Context, m *ir.Module) ([]byte, error) {
	return New().CompileModule(ctx, nil, m)
}

func (c *Compiler) CompileModule(ctx context.Context, b []byte, m *ir.Module) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile module", "name", m.Name, "funcs", len(m.Funcs), "globals", len(m.Globals))
	defer tr.Finish("err", &err)

	p := &modContext{
		Module: m,
		strs:   map[ir.GlobalID]string{},
	}

	b = append(b, "\t.file "...)
	b = appendQuoted(b, m.Name)
	b = append(b, "\n\t.intel_syntax noprefix\n"...)

	for _, f := range m.Funcs {
		if f.Decl {
			continue
		}

		b, err = c.compileFunc(ctx, b, p, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	for i := range m.Globals {
		g := &m.Globals[i]

		if g.Str || g.Extern {
			continue
		}

		b = p.global(b, g)
	}

	b = append(b, "\n\t.section .note.GNU-stack,\"\",@progbits\n"...)

	if tr.If("omit_out") {
		b = nil
	}

	return b, nil
}

func (c *Compiler) compileFunc(ctx context.Context, b []byte, p *modContext, fn *ir.Func) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: compile func", "name", fn.Name, "blocks", len(fn.Blocks), "instrs", len(fn.Instrs))
	defer tr.Finish("err", &err)

	p.fn = p.layout(fn)
	defer func() {
		p.fn = nil
	}()

	if tr.If("dump_frame") {
		tr.Printw("frame", "size", p.fn.frame, "slots", len(p.fn.slots), "objects", len(p.fn.objects), "reachable", p.fn.reach)
	}

	b = append(b, "\n\t.text\n"...)

	if !fn.Static {
		b = hfmt.Appendf(b, "\t.globl %s\n", fn.Name)
	}

	b = hfmt.Appendf(b, "\t.type %s, @function\n%s:\n", fn.Name, fn.Name)

	b = ins(b, "push", "rbp")
	b = ins(b, "mov", "rbp", "rsp")

	if p.fn.frame != 0 {
		b = ins(b, "sub", "rsp", strconv.FormatInt(p.fn.frame, 10))
	}

	b = p.spillParams(b)

	for i, id := range p.fn.order {
		next := ir.NoBlock
		if i+1 < len(p.fn.order) {
			next = p.fn.order[i+1]
		}

		if id != 0 {
			b = append(b, p.label(id)...)
			b = append(b, ":\n"...)
		}

		for _, iid := range fn.Blocks[id].Code {
			in := &fn.Instrs[iid]

			tr.V("instr").Printw("instr", "block", fn.Blocks[id].Name, "id", iid, "op", in.Op)

			b, err = p.instr(b, in, next)
			if err != nil {
				return nil, errors.Wrap(err, "block %v", fn.Blocks[id].Name)
			}
		}
	}

	b = hfmt.Appendf(b, "\t.size %s, .-%s\n", fn.Name, fn.Name)

	return b, nil
}

// layout assigns frame slots. Every param and result gets 8 bytes,
// alloca objects are rounded up to 8 bytes.
func (p *modContext) layout(fn *ir.Func) *funContext {
	f := &funContext{
		Func:    fn,
		slots:   map[ir.ValueID]int64{},
		objects: map[ir.ValueID]int64{},
	}

	var off int64

	slot := func(size int64) int64 {
		if size <= 0 {
			size = 8
		}

		off += (size + 7) &^ 7

		return -off
	}

	for _, v := range fn.Params {
		f.slots[v] = slot(8)
	}

	for i := range fn.Instrs {
		in := &fn.Instrs[i]

		switch {
		case in.Op == ir.Alloca:
			f.objects[in.Result] = slot(p.Types.Size(p.Types.Elem(in.Type)))
		case in.Result != ir.None:
			f.slots[in.Result] = slot(8)
		}
	}

	f.frame = (off + 15) &^ 15

	f.reach = ir.Reachable(fn)
	f.order = f.reach.Slice()

	return f
}

func (p *modContext) spillParams(b []byte) []byte {
	ft := p.FuncType(p.fn.Func)

	var ints, floats, stack int

	for i, v := range p.fn.Params {
		typ := ft.Params[i]
		dst := asm.Mem{Base: asm.RBP, Off: p.fn.slots[v]}
		isFloat := p.Types.IsFloat(typ)

		switch {
		case isFloat && floats < len(asm.FloatArgs):
			w := p.width(typ)
			b = ins(b, "mov"+asm.SSE(w), mem(dst, w), asm.FloatArgs[floats].String())
			floats++
		case !isFloat && ints < len(asm.IntArgs):
			r := asm.IntArgs[ints]
			b = p.normalize(b, r, typ)
			b = ins(b, "mov", mem(dst, asm.Qword), r.String())
			ints++
		default:
			src := asm.Mem{Base: asm.RBP, Off: 16 + 8*int64(stack)}
			b = ins(b, "mov", "rax", mem(src, asm.Qword))

			if !isFloat {
				b = p.normalize(b, asm.RAX, typ)
			}

			b = ins(b, "mov", mem(dst, asm.Qword), "rax")
			stack++
		}
	}

	return b
}

func (p *modContext) global(b []byte, g *ir.Global) []byte {
	var sym string

	if g.Init != ir.None {
		if v := p.Value(g.Init); v.Kind == ir.GlobalAddr {
			b, sym = p.symbol(b, v.Global, ".data")
		}
	}

	b = append(b, "\n\t.data\n"...)

	if !g.Static {
		b = hfmt.Appendf(b, "\t.globl %s\n", g.Name)
	}

	b = hfmt.Appendf(b, "\t.align %d\n%s:\n", p.Types.Align(g.Type), g.Name)

	size := p.Types.Size(g.Type)

	switch {
	case g.Init == ir.None:
		return hfmt.Appendf(b, "\t.zero %d\n", size)
	case sym != "":
		return hfmt.Appendf(b, "\t.quad %s\n", sym)
	}

	bits := p.bits(g.Init)

	switch size {
	case 1:
		return hfmt.Appendf(b, "\t.byte %d\n", int8(bits))
	case 2:
		return hfmt.Appendf(b, "\t.short %d\n", int16(bits))
	case 4:
		return hfmt.Appendf(b, "\t.long %d\n", int32(bits))
	default:
		return hfmt.Appendf(b, "\t.quad %d\n", bits)
	}
}

// symbol returns the assembler name of a global. String constants are
// placed into .rodata on first use, then section back is restored.
func (p *modContext) symbol(b []byte, id ir.GlobalID, back string) ([]byte, string) {
	g := &p.Globals[id]

	if !g.Str {
		return b, g.Name
	}

	if l, ok := p.strs[id]; ok {
		return b, l
	}

	l := ".LC" + strconv.Itoa(p.nextStr)
	p.nextStr++
	p.strs[id] = l

	b = append(b, "\t.section .rodata\n"...)
	b = append(b, l...)
	b = append(b, ":\n\t.string "...)
	b = appendQuoted(b, g.Data)
	b = append(b, "\n\t"...)
	b = append(b, back...)
	b = append(b, '\n')

	return b, l
}

func (p *modContext) label(id ir.BlockID) string {
	return ".L" + p.fn.Name + "." + p.fn.Blocks[id].Name
}

// localLabel names a jump target which is not a block.
func (p *modContext) localLabel(kind string, n int) string {
	return ".L" + p.fn.Name + "." + kind + "." + strconv.Itoa(n)
}

func (p *modContext) width(typ tp.ID) asm.Width {
	return asm.Width(p.Types.Size(typ))
}

func ins(b []byte, op string, args ...string) []byte {
	b = append(b, '\t')
	b = append(b, op...)

	for i, a := range args {
		if i == 0 {
			b = append(b, ' ')
		} else {
			b = append(b, ", "...)
		}

		b = append(b, a...)
	}

	return append(b, '\n')
}

func mem(m asm.Mem, w asm.Width) string {
	return string(m.Append(nil, w))
}

// appendQuoted quotes s the way the GNU assembler reads it back.
func appendQuoted(b []byte, s string) []byte {
	b = append(b, '"')

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '"' || c == '\\':
			b = append(b, '\\', c)
		case c == '\n':
			b = append(b, `\n`...)
		case c == '\t':
			b = append(b, `\t`...)
		case c < 0x20 || c >= 0x7f:
			b = append(b, '\\', '0'+c>>6, '0'+c>>3&7, '0'+c&7)
		default:
			b = append(b, c)
		}
	}

	return append(b, '"')
}

package ir

import (
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/token"
	"github.com/slowlang/minicc/compiler/tp"
)

type (
	// Builder appends instructions to the end of the current block.
	// The first violated invariant is kept in Err and makes further calls no-ops.
	Builder struct {
		m *Module
		f *Func

		cur BlockID

		Pos token.Pos

		err error
	}
)

func NewBuilder(m *Module, f *Func) *Builder {
	return &Builder{
		m:   m,
		f:   f,
		cur: NoBlock,
	}
}

func (b *Builder) Module() *Module { return b.m }
func (b *Builder) Func() *Func     { return b.f }
func (b *Builder) Block() BlockID  { return b.cur }
func (b *Builder) Err() error      { return b.err }

func (b *Builder) NewBlock(name string) BlockID {
	return b.f.NewBlock(name)
}

func (b *Builder) SetBlock(id BlockID) {
	b.cur = id
}

// Terminated reports whether the current block already has a terminator.
func (b *Builder) Terminated() bool {
	_, ok := b.f.Terminator(b.cur)

	return ok
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) emit(in Instr) ValueID {
	if b.err != nil {
		return None
	}

	if b.cur < 0 || int(b.cur) >= len(b.f.Blocks) {
		b.fail(diag.Internal("%s: emit %v: no current block", b.f.Name, in.Op))
		return None
	}

	if b.Terminated() {
		b.fail(diag.Internal("%s: emit %v: block %s is already terminated", b.f.Name, in.Op, b.f.Blocks[b.cur].Name))
		return None
	}

	for _, a := range in.Args {
		if !b.m.ValidValue(a) {
			b.fail(diag.Internal("%s: emit %v: dangling operand %d", b.f.Name, in.Op, a))
			return None
		}
	}

	id := InstrID(len(b.f.Instrs))

	in.Block = b.cur
	in.Pos = b.Pos
	in.Result = None

	if !b.m.Types.IsVoid(in.Type) {
		in.Result = b.m.newValue(Value{Kind: Result, Type: in.Type, Func: b.f.ID, Instr: id})
	}

	b.f.Instrs = append(b.f.Instrs, in)

	blk := &b.f.Blocks[b.cur]
	blk.Code = append(blk.Code, id)

	return in.Result
}

func (b *Builder) void() tp.ID { return b.m.Types.Void() }

// Binary emits an arithmetic, bitwise or compare operation.
// Compares produce typ as 0 or 1.
func (b *Builder) Binary(op Op, typ tp.ID, x, y ValueID) ValueID {
	return b.emit(Instr{Op: op, Type: typ, Args: []ValueID{x, y}})
}

func (b *Builder) Unary(op Op, typ tp.ID, x ValueID) ValueID {
	return b.emit(Instr{Op: op, Type: typ, Args: []ValueID{x}})
}

// Alloca reserves a stack object of type typ and returns its address.
func (b *Builder) Alloca(typ tp.ID, name string) ValueID {
	return b.emit(Instr{Op: Alloca, Type: b.m.Types.Ptr(typ), Name: name})
}

func (b *Builder) Load(typ tp.ID, ptr ValueID) ValueID {
	return b.emit(Instr{Op: Load, Type: typ, Args: []ValueID{ptr}})
}

func (b *Builder) Store(ptr, val ValueID) {
	b.emit(Instr{Op: Store, Type: b.void(), Args: []ValueID{ptr, val}})
}

// Elem computes ptr + idx * sizeof(*ptr). The result has the type of ptr.
func (b *Builder) Elem(ptr, idx ValueID) ValueID {
	return b.emit(Instr{Op: Elem, Type: b.m.TypeOf(ptr), Args: []ValueID{ptr, idx}})
}

// Convert emits one of the conversion operations to typ.
func (b *Builder) Convert(op Op, typ tp.ID, x ValueID) ValueID {
	return b.emit(Instr{Op: op, Type: typ, Args: []ValueID{x}})
}

func (b *Builder) Call(callee *Func, args []ValueID) ValueID {
	ft := b.m.FuncType(callee)

	return b.emit(Instr{Op: Call, Type: ft.Ret, Args: args, Callee: callee.ID, Name: callee.Name})
}

// Ret returns v, or nothing if v is None.
func (b *Builder) Ret(v ValueID) {
	in := Instr{Op: Ret, Type: b.void()}

	if v != None {
		in.Args = []ValueID{v}
	}

	b.emit(in)
}

func (b *Builder) Br(to BlockID) {
	from := b.cur

	b.emit(Instr{Op: Br, Type: b.void(), Targets: []BlockID{to}})

	if b.err == nil {
		b.f.AddEdge(from, to)
	}
}

func (b *Builder) CondBr(c ValueID, then, els BlockID) {
	from := b.cur

	b.emit(Instr{Op: CondBr, Type: b.void(), Args: []ValueID{c}, Targets: []BlockID{then, els}})

	if b.err == nil {
		b.f.AddEdge(from, then)
		b.f.AddEdge(from, els)
	}
}

// Phi merges vals[i] arriving from blocks[i]. It must be emitted
// before any other instruction of the block.
func (b *Builder) Phi(typ tp.ID, vals []ValueID, blocks []BlockID) ValueID {
	if len(vals) != len(blocks) {
		b.fail(diag.Internal("%s: phi: %d values for %d blocks", b.f.Name, len(vals), len(blocks)))
		return None
	}

	return b.emit(Instr{Op: Phi, Type: typ, Args: vals, Targets: blocks})
}

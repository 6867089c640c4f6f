package back

import (
	"math"
	"strconv"

	"github.com/slowlang/minicc/compiler/asm"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/tp"
)

var (
	intMnemonics = map[ir.Op]string{
		ir.Add: "add", ir.Sub: "sub", ir.Mul: "imul",
		ir.And: "and", ir.Or: "or", ir.Xor: "xor",
	}

	floatMnemonics = map[ir.Op]string{
		ir.FAdd: "add", ir.FSub: "sub", ir.FMul: "mul", ir.FDiv: "div",
	}

	intConds = map[ir.Op]asm.Cond{
		ir.Eq: asm.E, ir.Ne: asm.NE, ir.Lt: asm.L, ir.Le: asm.LE, ir.Gt: asm.G, ir.Ge: asm.GE,
	}
)

func (p *modContext) instr(b []byte, in *ir.Instr, next ir.BlockID) ([]byte, error) {
	switch in.Op {
	case ir.Nop, ir.Alloca, ir.Phi:
		return b, nil
	case ir.Add, ir.Sub, ir.Mul, ir.And, ir.Or, ir.Xor:
		b = p.loadInt(b, asm.RAX, in.Args[0])
		b = p.loadInt(b, asm.RCX, in.Args[1])
		b = ins(b, intMnemonics[in.Op], "rax", "rcx")

		return p.storeInt(b, in, asm.RAX), nil
	case ir.Div, ir.Rem:
		b = p.loadInt(b, asm.RAX, in.Args[0])
		b = p.loadInt(b, asm.RCX, in.Args[1])

		if p.signed(in.Type) {
			b = ins(b, "cqo")
			b = ins(b, "idiv", "rcx")
		} else {
			b = ins(b, "xor", "edx", "edx")
			b = ins(b, "div", "rcx")
		}

		if in.Op == ir.Rem {
			return p.storeInt(b, in, asm.RDX), nil
		}

		return p.storeInt(b, in, asm.RAX), nil
	case ir.Shl, ir.Shr:
		b = p.loadInt(b, asm.RAX, in.Args[0])
		b = p.loadInt(b, asm.RCX, in.Args[1])

		op := "shl"
		switch {
		case in.Op == ir.Shl:
		case p.signed(in.Type):
			op = "sar"
		default:
			op = "shr"
		}

		b = ins(b, op, "rax", "cl")

		return p.storeInt(b, in, asm.RAX), nil
	case ir.Neg, ir.Not:
		b = p.loadInt(b, asm.RAX, in.Args[0])

		if in.Op == ir.Neg {
			b = ins(b, "neg", "rax")
		} else {
			b = ins(b, "not", "rax")
		}

		return p.storeInt(b, in, asm.RAX), nil
	case ir.FAdd, ir.FSub, ir.FMul, ir.FDiv:
		w := p.width(in.Type)

		b = p.loadFloat(b, asm.XMM0, in.Args[0])
		b = p.loadFloat(b, asm.XMM1, in.Args[1])
		b = ins(b, floatMnemonics[in.Op]+asm.SSE(w), "xmm0", "xmm1")

		return p.storeFloat(b, in, asm.XMM0), nil
	case ir.FNeg:
		b = p.loadInt(b, asm.RAX, in.Args[0])

		if p.width(in.Type) == asm.Dword {
			b = ins(b, "btc", "eax", "31")
		} else {
			b = ins(b, "btc", "rax", "63")
		}

		return p.storeRaw(b, in, asm.RAX), nil
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Gt, ir.Ge:
		b = p.loadInt(b, asm.RAX, in.Args[0])
		b = p.loadInt(b, asm.RCX, in.Args[1])
		b = ins(b, "cmp", "rax", "rcx")

		cond := intConds[in.Op]
		if !p.signed(p.TypeOf(in.Args[0])) {
			cond = asm.Unsigned(cond)
		}

		b = ins(b, "set"+string(cond), "al")
		b = ins(b, "movzx", "eax", "al")

		return p.storeRaw(b, in, asm.RAX), nil
	case ir.FEq, ir.FNe, ir.FLt, ir.FLe, ir.FGt, ir.FGe:
		return p.floatCompare(b, in), nil
	case ir.Load:
		return p.load(b, in), nil
	case ir.Store:
		return p.store(b, in), nil
	case ir.Elem:
		return p.elem(b, in), nil
	case ir.Conv:
		b = p.loadInt(b, asm.RAX, in.Args[0])

		return p.storeInt(b, in, asm.RAX), nil
	case ir.Bitcast:
		b = p.loadInt(b, asm.RAX, in.Args[0])

		return p.storeRaw(b, in, asm.RAX), nil
	case ir.IToF:
		from, w := p.TypeOf(in.Args[0]), p.width(in.Type)

		b = p.loadInt(b, asm.RAX, in.Args[0])

		if p.width(from) == asm.Qword && !p.signed(from) {
			b = p.unsignedToFloat(b, w)
		} else {
			b = ins(b, "cvtsi2"+asm.SSE(w), "xmm0", "rax")
		}

		return p.storeFloat(b, in, asm.XMM0), nil
	case ir.FToI:
		b = p.loadFloat(b, asm.XMM0, in.Args[0])
		b = ins(b, "cvtt"+asm.SSE(p.width(p.TypeOf(in.Args[0])))+"2si", "rax", "xmm0")

		return p.storeInt(b, in, asm.RAX), nil
	case ir.FConv:
		from, to := p.width(p.TypeOf(in.Args[0])), p.width(in.Type)

		b = p.loadFloat(b, asm.XMM0, in.Args[0])

		if from != to {
			b = ins(b, "cvt"+asm.SSE(from)+"2"+asm.SSE(to), "xmm0", "xmm0")
		}

		return p.storeFloat(b, in, asm.XMM0), nil
	case ir.Call:
		return p.call(b, in), nil
	case ir.Ret:
		return p.ret(b, in), nil
	case ir.Br:
		b = p.phiCopies(b, in.Block, in.Targets[0])

		if in.Targets[0] != next {
			b = ins(b, "jmp", p.label(in.Targets[0]))
		}

		return b, nil
	case ir.CondBr:
		then, els := in.Targets[0], in.Targets[1]

		b = p.phiCopies(b, in.Block, then)
		if els != then {
			b = p.phiCopies(b, in.Block, els)
		}

		b = p.loadInt(b, asm.RAX, in.Args[0])
		b = ins(b, "test", "rax", "rax")
		b = ins(b, "jne", p.label(then))

		if els != next {
			b = ins(b, "jmp", p.label(els))
		}

		return b, nil
	}

	return nil, diag.Internal("back: unsupported op %v", in.Op)
}

func (p *modContext) floatCompare(b []byte, in *ir.Instr) []byte {
	w := p.width(p.TypeOf(in.Args[0]))
	ucomi := "ucomi" + asm.SSE(w)

	b = p.loadFloat(b, asm.XMM0, in.Args[0])
	b = p.loadFloat(b, asm.XMM1, in.Args[1])

	switch in.Op {
	case ir.FEq:
		b = ins(b, ucomi, "xmm0", "xmm1")
		b = ins(b, "sete", "al")
		b = ins(b, "setnp", "cl")
		b = ins(b, "and", "al", "cl")
	case ir.FNe:
		b = ins(b, ucomi, "xmm0", "xmm1")
		b = ins(b, "setne", "al")
		b = ins(b, "setp", "cl")
		b = ins(b, "or", "al", "cl")
	case ir.FGt:
		b = ins(b, ucomi, "xmm0", "xmm1")
		b = ins(b, "seta", "al")
	case ir.FGe:
		b = ins(b, ucomi, "xmm0", "xmm1")
		b = ins(b, "setae", "al")
	case ir.FLt:
		b = ins(b, ucomi, "xmm1", "xmm0")
		b = ins(b, "seta", "al")
	case ir.FLe:
		b = ins(b, ucomi, "xmm1", "xmm0")
		b = ins(b, "setae", "al")
	}

	b = ins(b, "movzx", "eax", "al")

	return p.storeRaw(b, in, asm.RAX)
}

func (p *modContext) load(b []byte, in *ir.Instr) []byte {
	var m asm.Mem

	b, m = p.addr(b, in.Args[0], asm.RAX)

	w := p.width(in.Type)
	src := mem(m, w)

	switch {
	case p.Types.IsFloat(in.Type) || w == asm.Qword:
		b = ins(b, "mov", asm.RAX.Name(w), src)
	case w == asm.Dword && p.signed(in.Type):
		b = ins(b, "movsxd", "rax", src)
	case w == asm.Dword:
		b = ins(b, "mov", "eax", src)
	case p.signed(in.Type):
		b = ins(b, "movsx", "rax", src)
	default:
		b = ins(b, "movzx", "eax", src)
	}

	return p.storeRaw(b, in, asm.RAX)
}

func (p *modContext) store(b []byte, in *ir.Instr) []byte {
	ptr, val := in.Args[0], in.Args[1]
	w := p.width(p.TypeOf(val))

	b = p.loadInt(b, asm.RCX, val)

	var m asm.Mem

	b, m = p.addr(b, ptr, asm.RAX)

	return ins(b, "mov", mem(m, w), asm.RCX.Name(w))
}

func (p *modContext) elem(b []byte, in *ir.Instr) []byte {
	size := p.Types.Size(p.Types.Elem(p.TypeOf(in.Args[0])))

	b = p.loadInt(b, asm.RAX, in.Args[0])
	b = p.loadInt(b, asm.RCX, in.Args[1])

	switch size {
	case 1, 2, 4, 8:
		b = ins(b, "lea", "rax", "[rax+rcx*"+strconv.FormatInt(size, 10)+"]")
	default:
		b = ins(b, "imul", "rcx", "rcx", strconv.FormatInt(size, 10))
		b = ins(b, "add", "rax", "rcx")
	}

	return p.storeRaw(b, in, asm.RAX)
}

// call follows the System V convention. Arguments which do not fit
// into registers are pushed right to left keeping rsp 16 byte aligned.
func (p *modContext) call(b []byte, in *ir.Instr) []byte {
	callee := p.Funcs[in.Callee]
	ft := p.FuncType(callee)

	type regArg struct {
		r asm.Reg
		v ir.ValueID
	}

	var regs []regArg
	var stack []ir.ValueID
	var ints, floats int

	for _, a := range in.Args {
		isFloat := p.Types.IsFloat(p.TypeOf(a))

		switch {
		case isFloat && floats < len(asm.FloatArgs):
			regs = append(regs, regArg{r: asm.FloatArgs[floats], v: a})
			floats++
		case !isFloat && ints < len(asm.IntArgs):
			regs = append(regs, regArg{r: asm.IntArgs[ints], v: a})
			ints++
		default:
			stack = append(stack, a)
		}
	}

	pop := int64(len(stack)) * 8

	if len(stack)%2 == 1 {
		b = ins(b, "sub", "rsp", "8")
		pop += 8
	}

	for i := len(stack) - 1; i >= 0; i-- {
		b = p.loadInt(b, asm.RAX, stack[i])
		b = ins(b, "push", "rax")
	}

	for _, a := range regs {
		if a.r.IsXMM() {
			b = p.loadFloat(b, a.r, a.v)
		} else {
			b = p.loadInt(b, a.r, a.v)
		}
	}

	if ft.Vararg {
		b = movImm(b, asm.RAX, int64(floats))
	}

	b = ins(b, "call", callee.Name)

	if pop != 0 {
		b = ins(b, "add", "rsp", strconv.FormatInt(pop, 10))
	}

	switch {
	case in.Result == ir.None:
		return b
	case p.Types.IsFloat(in.Type):
		return p.storeFloat(b, in, asm.XMM0)
	default:
		return p.storeInt(b, in, asm.RAX)
	}
}

func (p *modContext) ret(b []byte, in *ir.Instr) []byte {
	if len(in.Args) != 0 {
		v := in.Args[0]

		if p.Types.IsFloat(p.TypeOf(v)) {
			b = p.loadFloat(b, asm.XMM0, v)
		} else {
			b = p.loadInt(b, asm.RAX, v)
		}
	}

	b = ins(b, "mov", "rsp", "rbp")
	b = ins(b, "pop", "rbp")

	return ins(b, "ret")
}

// phiCopies writes the values flowing from block from into the phi slots of to.
func (p *modContext) phiCopies(b []byte, from, to ir.BlockID) []byte {
	for _, id := range p.fn.Blocks[to].Code {
		phi := &p.fn.Instrs[id]
		if phi.Op != ir.Phi {
			break
		}

		for k, t := range phi.Targets {
			if t != from {
				continue
			}

			b = p.loadInt(b, asm.RAX, phi.Args[k])
			b = p.storeRaw(b, phi, asm.RAX)

			break
		}
	}

	return b
}

// loadInt puts the canonical 64 bit form of v into r.
// Floats are loaded as their bit patterns.
func (p *modContext) loadInt(b []byte, r asm.Reg, v ir.ValueID) []byte {
	x := p.Value(v)

	switch x.Kind {
	case ir.ConstInt, ir.ConstFloat:
		return movImm(b, r, p.bits(v))
	case ir.GlobalAddr:
		var sym string

		b, sym = p.symbol(b, x.Global, ".text")

		return ins(b, "lea", r.String(), mem(asm.Mem{Base: asm.RIP, Sym: sym}, 0))
	}

	if off, ok := p.fn.objects[v]; ok {
		return ins(b, "lea", r.String(), mem(asm.Mem{Base: asm.RBP, Off: off}, 0))
	}

	return ins(b, "mov", r.String(), mem(asm.Mem{Base: asm.RBP, Off: p.fn.slots[v]}, asm.Qword))
}

func (p *modContext) loadFloat(b []byte, r asm.Reg, v ir.ValueID) []byte {
	w := p.width(p.TypeOf(v))

	if k := p.Value(v).Kind; k == ir.ConstFloat || k == ir.ConstInt {
		b = movImm(b, asm.RAX, p.bits(v))

		if w == asm.Dword {
			return ins(b, "movd", r.String(), "eax")
		}

		return ins(b, "movq", r.String(), "rax")
	}

	return ins(b, "mov"+asm.SSE(w), r.String(), mem(asm.Mem{Base: asm.RBP, Off: p.fn.slots[v]}, w))
}

// unsignedToFloat converts rax as an unsigned 64-bit integer into xmm0.
// Values with the top bit set are halved keeping the low bit for rounding,
// then converted and doubled.
func (p *modContext) unsignedToFloat(b []byte, w asm.Width) []byte {
	p.fn.labels++

	big := p.localLabel("u2f", p.fn.labels)
	done := big + ".done"
	sse := asm.SSE(w)

	b = ins(b, "test", "rax", "rax")
	b = ins(b, "js", big)
	b = ins(b, "cvtsi2"+sse, "xmm0", "rax")
	b = ins(b, "jmp", done)

	b = append(b, big...)
	b = append(b, ":\n"...)

	b = ins(b, "mov", "rcx", "rax")
	b = ins(b, "shr", "rcx", "1")
	b = ins(b, "and", "eax", "1")
	b = ins(b, "or", "rcx", "rax")
	b = ins(b, "cvtsi2"+sse, "xmm0", "rcx")
	b = ins(b, "add"+sse, "xmm0", "xmm0")

	b = append(b, done...)
	b = append(b, ":\n"...)

	return b
}

// addr returns a memory operand for the object ptr points to.
func (p *modContext) addr(b []byte, ptr ir.ValueID, scratch asm.Reg) ([]byte, asm.Mem) {
	if off, ok := p.fn.objects[ptr]; ok {
		return b, asm.Mem{Base: asm.RBP, Off: off}
	}

	if x := p.Value(ptr); x.Kind == ir.GlobalAddr {
		var sym string

		b, sym = p.symbol(b, x.Global, ".text")

		return b, asm.Mem{Base: asm.RIP, Sym: sym}
	}

	b = p.loadInt(b, scratch, ptr)

	return b, asm.Mem{Base: scratch}
}

func (p *modContext) storeInt(b []byte, in *ir.Instr, r asm.Reg) []byte {
	b = p.normalize(b, r, in.Type)

	return p.storeRaw(b, in, r)
}

func (p *modContext) storeRaw(b []byte, in *ir.Instr, r asm.Reg) []byte {
	return ins(b, "mov", mem(asm.Mem{Base: asm.RBP, Off: p.fn.slots[in.Result]}, asm.Qword), r.String())
}

func (p *modContext) storeFloat(b []byte, in *ir.Instr, r asm.Reg) []byte {
	w := p.width(in.Type)

	return ins(b, "mov"+asm.SSE(w), mem(asm.Mem{Base: asm.RBP, Off: p.fn.slots[in.Result]}, w), r.String())
}

// normalize sign or zero extends the low bits of r to 64 bits by typ.
func (p *modContext) normalize(b []byte, r asm.Reg, typ tp.ID) []byte {
	it, ok := p.Types.Get(typ).(tp.Int)
	if !ok {
		return b
	}

	switch {
	case it.Bits == 64:
		return b
	case it.Bits == 32 && it.Signed:
		return ins(b, "movsxd", r.String(), r.Name(asm.Dword))
	case it.Bits == 32:
		return ins(b, "mov", r.Name(asm.Dword), r.Name(asm.Dword))
	case it.Signed:
		return ins(b, "movsx", r.String(), r.Name(asm.Width(it.Bits/8)))
	default:
		return ins(b, "movzx", r.Name(asm.Dword), r.Name(asm.Width(it.Bits/8)))
	}
}

// bits is the bit pattern of a constant as stored in memory.
func (p *modContext) bits(v ir.ValueID) int64 {
	x := p.Value(v)

	if x.Kind != ir.ConstFloat {
		return x.Int
	}

	if p.width(x.Type) == asm.Dword {
		return int64(math.Float32bits(float32(x.Float)))
	}

	return int64(math.Float64bits(x.Float))
}

func (p *modContext) signed(typ tp.ID) bool {
	it, ok := p.Types.Get(typ).(tp.Int)

	return ok && it.Signed
}

func movImm(b []byte, r asm.Reg, x int64) []byte {
	s := strconv.FormatInt(x, 10)

	switch {
	case x >= 0 && x <= math.MaxUint32:
		return ins(b, "mov", r.Name(asm.Dword), s)
	case x >= math.MinInt32 && x < 0:
		return ins(b, "mov", r.String(), s)
	default:
		return ins(b, "movabs", r.String(), s)
	}
}

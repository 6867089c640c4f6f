package ir

import (
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/set"
)

type funcCheck struct {
	m *Module
	f *Func

	pos   []int // index in block
	reach set.Bits[BlockID]
	dom   []set.Bits[BlockID]
}

// Verify checks the structural invariants of every defined function.
// Any violation is a compiler bug and is reported as *diag.InternalError.
func Verify(m *Module) error {
	for _, f := range m.Funcs {
		if f.Decl {
			continue
		}

		if err := verifyFunc(m, f); err != nil {
			return err
		}
	}

	for _, g := range m.Globals {
		if g.Init != None && !(m.ValidValue(g.Init) && (m.IsConst(g.Init) || m.Values[g.Init].Kind == GlobalAddr)) {
			return diag.Internal("global %q: initializer is not a constant", g.Name)
		}
	}

	return nil
}

func verifyFunc(m *Module, f *Func) error {
	if len(f.Blocks) == 0 {
		return diag.Internal("%s: defined function has no blocks", f.Name)
	}

	if len(f.Blocks[0].Preds) != 0 {
		return diag.Internal("%s: entry block has predecessors", f.Name)
	}

	pos := make([]int, len(f.Instrs))

	for bi := range f.Blocks {
		for i, id := range f.Blocks[bi].Code {
			if id < 0 || int(id) >= len(f.Instrs) {
				return diag.Internal("%s: block %s: dangling instruction %d", f.Name, f.Blocks[bi].Name, id)
			}

			pos[id] = i
		}

		if err := verifyEdges(f, &f.Blocks[bi]); err != nil {
			return err
		}
	}

	reach := Reachable(f)

	c := &funcCheck{
		m:     m,
		f:     f,
		pos:   pos,
		reach: reach,
		dom:   Dominators(f, reach),
	}

	for bi := range f.Blocks {
		b := &f.Blocks[bi]

		if b.ID != BlockID(bi) {
			return diag.Internal("%s: block %s: id %d at index %d", f.Name, b.Name, b.ID, bi)
		}

		if len(b.Code) == 0 {
			return diag.Internal("%s: block %s: no terminator", f.Name, b.Name)
		}

		phis := true

		for i, id := range b.Code {
			in := &f.Instrs[id]
			last := i == len(b.Code)-1

			if in.Block != b.ID {
				return diag.Internal("%s: block %s: instruction %d belongs to block %d", f.Name, b.Name, id, in.Block)
			}

			if in.Op.IsTerminator() != last {
				if last {
					return diag.Internal("%s: block %s: no terminator", f.Name, b.Name)
				}

				return diag.Internal("%s: block %s: %v in the middle of the block", f.Name, b.Name, in.Op)
			}

			if in.Op == Phi {
				if !phis {
					return diag.Internal("%s: block %s: phi after other instructions", f.Name, b.Name)
				}

				if err := verifyPhi(f, b, in); err != nil {
					return err
				}
			} else {
				phis = false
			}

			for k, a := range in.Args {
				use := b.ID
				if in.Op == Phi {
					use = in.Targets[k]
				}

				if err := c.operand(b, in, i, a, use); err != nil {
					return err
				}
			}

			if in.Op == Call {
				if err := verifyCall(m, f, in); err != nil {
					return err
				}
			}
		}

		term := &f.Instrs[b.Code[len(b.Code)-1]]

		if !sameBlocks(term.Targets, b.Succs) {
			return diag.Internal("%s: block %s: %v targets %v do not match successors %v", f.Name, b.Name, term.Op, term.Targets, b.Succs)
		}
	}

	return nil
}

func verifyEdges(f *Func, b *Block) error {
	for _, s := range b.Succs {
		if s < 0 || int(s) >= len(f.Blocks) {
			return diag.Internal("%s: block %s: dangling successor %d", f.Name, b.Name, s)
		}

		if count(f.Blocks[s].Preds, b.ID) != count(b.Succs, s) {
			return diag.Internal("%s: edge %s -> %s is not symmetric", f.Name, b.Name, f.Blocks[s].Name)
		}
	}

	for _, p := range b.Preds {
		if p < 0 || int(p) >= len(f.Blocks) {
			return diag.Internal("%s: block %s: dangling predecessor %d", f.Name, b.Name, p)
		}

		if count(f.Blocks[p].Succs, b.ID) != count(b.Preds, p) {
			return diag.Internal("%s: edge %s -> %s is not symmetric", f.Name, f.Blocks[p].Name, b.Name)
		}
	}

	return nil
}

func verifyPhi(f *Func, b *Block, in *Instr) error {
	if len(in.Args) != len(in.Targets) || len(in.Args) != len(b.Preds) {
		return diag.Internal("%s: block %s: phi has %d values for %d predecessors", f.Name, b.Name, len(in.Args), len(b.Preds))
	}

	if !sameBlocks(in.Targets, b.Preds) {
		return diag.Internal("%s: block %s: phi blocks %v do not match predecessors %v", f.Name, b.Name, in.Targets, b.Preds)
	}

	return nil
}

// operand checks that a is available at the end of block use,
// or before instruction i if use is b itself.
func (c *funcCheck) operand(b *Block, in *Instr, i int, a ValueID, use BlockID) error {
	m, f := c.m, c.f

	if !m.ValidValue(a) {
		return diag.Internal("%s: block %s: %v: dangling operand %d", f.Name, b.Name, in.Op, a)
	}

	v := &m.Values[a]

	switch v.Kind {
	case ConstInt, ConstFloat, GlobalAddr:
		return nil
	case Param:
		if v.Func != f.ID {
			return diag.Internal("%s: block %s: %v uses a parameter of another function", f.Name, b.Name, in.Op)
		}

		return nil
	case Result:
	default:
		return diag.Internal("%s: block %s: %v: bad operand kind %v", f.Name, b.Name, in.Op, v.Kind)
	}

	if v.Func != f.ID || v.Instr < 0 || int(v.Instr) >= len(f.Instrs) {
		return diag.Internal("%s: block %s: %v uses a result of another function", f.Name, b.Name, in.Op)
	}

	def := &f.Instrs[v.Instr]

	if def.Block < 0 || int(def.Block) >= len(f.Blocks) {
		return diag.Internal("%s: block %s: %v uses a result of dangling block %d", f.Name, b.Name, in.Op, def.Block)
	}

	switch {
	case in.Op != Phi && def.Block == b.ID:
		if c.pos[v.Instr] >= i {
			return diag.Internal("%s: block %s: %v uses a value before its definition", f.Name, b.Name, in.Op)
		}
	case !c.reach.IsSet(use):
	case !c.dom[use].IsSet(def.Block):
		return diag.Internal("%s: block %s: %v uses a value of block %s which does not dominate %s",
			f.Name, b.Name, in.Op, f.Blocks[def.Block].Name, f.Blocks[use].Name)
	}

	return nil
}

func verifyCall(m *Module, f *Func, in *Instr) error {
	if in.Callee < 0 || int(in.Callee) >= len(m.Funcs) {
		return diag.Internal("%s: call of dangling function %d", f.Name, in.Callee)
	}

	callee := m.Funcs[in.Callee]
	ft := m.FuncType(callee)

	if len(in.Args) < len(ft.Params) || !ft.Vararg && len(in.Args) != len(ft.Params) {
		return diag.Internal("%s: call %s: %d arguments for %d parameters", f.Name, callee.Name, len(in.Args), len(ft.Params))
	}

	return nil
}

func count(l []BlockID, x BlockID) (n int) {
	for _, y := range l {
		if y == x {
			n++
		}
	}

	return n
}

// sameBlocks compares a and b as multisets.
func sameBlocks(a, b []BlockID) bool {
	if len(a) != len(b) {
		return false
	}

	for _, x := range a {
		if count(a, x) != count(b, x) {
			return false
		}
	}

	return true
}

package ir

import (
	"nikand.dev/go/heap"

	"github.com/slowlang/minicc/compiler/set"
)

// Reachable returns the blocks reachable from the entry block.
// Blocks are visited in ascending id order.
func Reachable(f *Func) (r set.Bits[BlockID]) {
	if len(f.Blocks) == 0 {
		return r
	}

	r = set.MakeBits[BlockID](len(f.Blocks))

	q := heap.Heap[BlockID]{Less: func(d []BlockID, i, j int) bool { return d[i] < d[j] }}
	q.Push(0)

	for q.Len() != 0 {
		b := q.Pop()

		if r.IsSet(b) {
			continue
		}

		r.Set(b)

		for _, s := range f.Blocks[b].Succs {
			if !r.IsSet(s) {
				q.Push(s)
			}
		}
	}

	return r
}

// Dominators returns the set of blocks dominating each block reachable
// per reach. Unreachable blocks get an empty set and unreachable
// predecessors are ignored.
func Dominators(f *Func, reach set.Bits[BlockID]) []set.Bits[BlockID] {
	dom := make([]set.Bits[BlockID], len(f.Blocks))
	order := reach.Slice()

	if len(order) == 0 {
		return dom
	}

	for _, b := range order {
		if b == 0 {
			dom[b] = set.MakeBits[BlockID](len(f.Blocks))
			dom[b].Set(0)

			continue
		}

		dom[b] = reach.Copy()
	}

	for changed := true; changed; {
		changed = false

		for _, b := range order[1:] {
			d := reach.Copy()

			for _, p := range f.Blocks[b].Preds {
				if reach.IsSet(p) {
					d.Intersect(dom[p])
				}
			}

			d.Set(b)

			if !d.Equal(dom[b]) {
				dom[b] = d
				changed = true
			}
		}
	}

	return dom
}

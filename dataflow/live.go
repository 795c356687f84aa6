package dataflow

import (
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/he-andy/cs6120/cfg"
)

// VarIndex assigns a stable bit position to each variable name referenced
// anywhere in the CFG, mirroring the teacher's objIndices map in
// liveVarBuilder.buildDefUse (there indexed by *ast.Object, here by name
// since bril variables are already flat strings).
type VarIndex struct {
	names []string
	index map[string]uint
}

func newVarIndex(g *cfg.CFG) *VarIndex {
	vi := &VarIndex{index: map[string]uint{}}
	add := func(name string) {
		if _, ok := vi.index[name]; !ok {
			vi.index[name] = uint(len(vi.names))
			vi.names = append(vi.names, name)
		}
	}
	for _, n := range g.Nodes {
		names := make([]string, 0, len(n.Block.Uses())+len(n.Block.Defs()))
		for v := range n.Block.Uses() {
			names = append(names, v)
		}
		for v := range n.Block.Defs() {
			names = append(names, v)
		}
		sort.Strings(names)
		for _, v := range names {
			add(v)
		}
	}
	return vi
}

// Name returns the variable name for bit i.
func (vi *VarIndex) Name(i uint) string { return vi.names[i] }

// Bit returns the bit position for name, if it appears in the CFG.
func (vi *VarIndex) Bit(name string) (uint, bool) {
	i, ok := vi.index[name]
	return i, ok
}

func (vi *VarIndex) toSet(names map[string]bool) *bitset.BitSet {
	s := bitset.New(uint(len(vi.names)))
	for name := range names {
		if i, ok := vi.index[name]; ok {
			s.Set(i)
		}
	}
	return s
}

func (vi *VarIndex) fromSet(s *bitset.BitSet) map[string]bool {
	out := map[string]bool{}
	for i, ok := s.NextSet(0); ok; i, ok = s.NextSet(i + 1) {
		out[vi.names[i]] = true
	}
	return out
}

// LiveVarResult is the live-in/live-out variable set for every block of a
// function (spec §4.5).
type LiveVarResult struct {
	In  map[int]map[string]bool
	Out map[int]map[string]bool
}

// LiveVariables computes live-in and live-out variable sets per block: a
// backward problem with meet = ∪, transfer(L, n) = uses(n) ∪ (L \ defs(n)),
// top = bottom = ∅ (spec §4.5).
func LiveVariables(g *cfg.CFG) *LiveVarResult {
	vi := newVarIndex(g)
	size := uint(len(vi.names))
	top := bitset.New(size)
	bottom := bitset.New(size)

	uses := make(map[int]*bitset.BitSet, len(g.Nodes))
	defs := make(map[int]*bitset.BitSet, len(g.Nodes))
	for i, n := range g.Nodes {
		uses[i] = vi.toSet(n.Block.Uses())
		defs[i] = vi.toSet(n.Block.Defs())
	}

	transfer := func(out *bitset.BitSet, node int) *bitset.BitSet {
		return uses[node].Union(out.Difference(defs[node]))
	}

	res := Solve(g, Union, transfer, top, bottom, Backward)

	result := &LiveVarResult{In: map[int]map[string]bool{}, Out: map[int]map[string]bool{}}
	for i := range g.Nodes {
		result.In[i] = vi.fromSet(res.In[i])
		result.Out[i] = vi.fromSet(res.Out[i])
	}
	return result
}

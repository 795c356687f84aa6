package dom

import "github.com/bits-and-blooms/bitset"

// Frontiers computes the dominance frontier of every node (spec §4.4):
//
//	DF(n) = (succs(n) ∪ ⋃_{m ∈ children(n)} DF(m)) \ (DomBy(n) \ {n})
//
// memoized over nodes (bottom-up over the dominator tree, since DF(n)
// depends on DF(m) for n's dominator-tree children).
func (t *Tree) Frontiers() map[int]*bitset.BitSet {
	size := uint(len(t.g.Nodes))
	df := make(map[int]*bitset.BitSet, len(t.g.Nodes))

	var compute func(n int) *bitset.BitSet
	compute = func(n int) *bitset.BitSet {
		if existing, ok := df[n]; ok {
			return existing
		}
		s := bitset.New(size)
		for _, e := range t.g.Nodes[n].Succs {
			s.Set(uint(e.To))
		}
		for _, c := range t.children[n] {
			s.InPlaceUnion(compute(c))
		}

		domBy := t.DomBy(n).Clone()
		domBy.Clear(uint(n))
		s = s.Difference(domBy)

		df[n] = s
		return s
	}

	for i := range t.g.Nodes {
		compute(i)
	}
	return df
}

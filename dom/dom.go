// Package dom computes immediate dominators, the "dominated-by" relation
// and dominance frontiers over a cfg.CFG (spec §4.4), grounded on the same
// iterate-to-fixed-point discipline as the teacher's extras/cfg/df.go
// (there applied to reaching definitions and live variables; here applied
// to the dominator lattice). Sets are represented with the same
// bits-and-blooms/bitset type the dataflow package uses, indexed by node.
package dom

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/he-andy/cs6120/cfg"
)

// Tree holds the immediate-dominator relation and memoized derived sets
// for a CFG.
type Tree struct {
	g       *cfg.CFG
	idom    []int // idom[n] == n for the entry; -1 if unreachable
	order   []int // reverse postorder, for the standard iterative algorithm
	domByMemo []*bitset.BitSet
	children  [][]int
}

// Build computes the immediate-dominator tree of g, seeded at its entry
// node, via the standard iterative (Cooper/Harvey/Kennedy) algorithm.
func Build(g *cfg.CFG) *Tree {
	n := len(g.Nodes)
	t := &Tree{g: g, idom: make([]int, n), domByMemo: make([]*bitset.BitSet, n)}
	for i := range t.idom {
		t.idom[i] = -1
	}
	entry := g.Entry()
	t.idom[entry] = entry

	order, postIndex := reversePostorder(g)
	t.order = order

	changed := true
	for changed {
		changed = false
		for _, n := range order {
			if n == entry {
				continue
			}
			newIdom := -1
			for _, e := range g.Nodes[n].Preds {
				p := e.To
				if t.idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(t.idom, postIndex, newIdom, p)
			}
			if newIdom != -1 && t.idom[n] != newIdom {
				t.idom[n] = newIdom
				changed = true
			}
		}
	}

	t.children = make([][]int, n)
	for i := 0; i < n; i++ {
		if i == entry || t.idom[i] == -1 {
			continue
		}
		t.children[t.idom[i]] = append(t.children[t.idom[i]], i)
	}

	return t
}

// IDom returns n's immediate dominator. For the entry, IDom returns the
// entry itself. Returns -1 if n is unreachable from the entry.
func (t *Tree) IDom(n int) int { return t.idom[n] }

// Children returns n's children in the dominator tree.
func (t *Tree) Children(n int) []int { return t.children[n] }

// Dominates reports whether d dominates n (every node dominates itself).
func (t *Tree) Dominates(d, n int) bool {
	if t.idom[n] == -1 {
		return false
	}
	for cur := n; ; {
		if cur == d {
			return true
		}
		if cur == t.idom[cur] {
			return cur == d
		}
		cur = t.idom[cur]
	}
}

// DomBy returns the set of nodes dominated by n (n included), memoized via
// a DFS over the dominator tree.
func (t *Tree) DomBy(n int) *bitset.BitSet {
	if t.domByMemo[n] != nil {
		return t.domByMemo[n]
	}
	s := bitset.New(uint(len(t.g.Nodes)))
	s.Set(uint(n))
	for _, c := range t.children[n] {
		s.InPlaceUnion(t.DomBy(c))
	}
	t.domByMemo[n] = s
	return s
}

func reversePostorder(g *cfg.CFG) (order []int, postIndex map[int]int) {
	visited := make([]bool, len(g.Nodes))
	var post []int
	var visit func(int)
	visit = func(n int) {
		visited[n] = true
		for _, e := range g.Nodes[n].Succs {
			if !visited[e.To] {
				visit(e.To)
			}
		}
		post = append(post, n)
	}
	visit(g.Entry())
	// any node unreachable from the entry is appended in arbitrary
	// (construction) order so every index in the CFG is present.
	for i := range g.Nodes {
		if !visited[i] {
			visited[i] = true
			post = append(post, i)
		}
	}

	order = make([]int, len(post))
	postIndex = make(map[int]int, len(post))
	for i, n := range post {
		rpoIndex := len(post) - 1 - i
		order[rpoIndex] = n
		postIndex[n] = i
	}
	return order, postIndex
}

// intersect walks two nodes up the (partially built) dominator tree until
// their paths meet, comparing by postorder index as the standard algorithm
// requires.
func intersect(idom []int, postIndex map[int]int, a, b int) int {
	for a != b {
		for postIndex[a] < postIndex[b] {
			a = idom[a]
		}
		for postIndex[b] < postIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// Package ssa rewrites a cfg.CFG into static single assignment
// form: φ-insertion at dominance-frontier nodes, followed by dominator-tree
// renaming (spec §4.7). Grounded on the dom package's Frontiers computation
// plus the teacher's general "iterate a worklist to a fixed point" style
// from extras/cfg/df.go, here applied to the set of blocks needing a φ for
// each variable instead of a dataflow lattice.
package ssa

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/he-andy/cs6120/cfg"
	"github.com/he-andy/cs6120/diag"
	"github.com/he-andy/cs6120/dom"
	"github.com/he-andy/cs6120/ir"
)

// phiSource pairs a φ argument with the predecessor label it flows from
// (spec §4.7 invariant ii: args[i] corresponds to labels[i]).
type phiSource struct {
	value string
	label string
}

type phiNode struct {
	canonical string // pre-renaming variable name, for type lookup
	dest      string // fresh name assigned during renaming
	sources   []phiSource
}

// BuildTypeTable collects the declared type of every variable fn defines
// (including its parameters), keyed by the pre-renaming name. ToSSA needs
// this to give freshly-materialized φ instructions a Type field, since a φ
// itself never appears in the original function to supply one.
func BuildTypeTable(fn *ir.Function) map[string]ir.Type {
	types := make(map[string]ir.Type, len(fn.Args)+len(fn.Instrs))
	for _, a := range fn.Args {
		types[a.Name] = a.Type
	}
	for _, instr := range fn.Instrs {
		switch v := instr.(type) {
		case *ir.Const:
			types[v.Dest] = v.Type
		case *ir.ValueInstr:
			types[v.Dest] = v.Type
		}
	}
	return types
}

func paramNames(fn *ir.Function) []string {
	names := make([]string, len(fn.Args))
	for i, a := range fn.Args {
		names[i] = a.Name
	}
	return names
}

// ToSSA converts g to SSA in place (spec §4.7): φ nodes are inserted at the
// iterated dominance frontier of every defined variable's definition sites
// (with no liveness pruning), then every definition and use is renamed by a
// dominator-tree walk. g must already have every block labeled (see
// cfg.CFG.AssignLabels) since φ sources are recorded by predecessor label.
func ToSSA(g *cfg.CFG, fn *ir.Function, log *diag.Log) error {
	types := BuildTypeTable(fn)
	tree := dom.Build(g)
	frontiers := tree.Frontiers()

	phis := insertPhis(g, frontiers)
	if err := rename(g, tree, phis, paramNames(fn)); err != nil {
		return err
	}
	if err := materialize(g, fn.Name, phis, types); err != nil {
		return err
	}

	for _, n := range g.Nodes {
		n.Block.RecomputeUsesDefs()
	}
	return nil
}

// insertPhis runs the standard worklist over each variable's def sites,
// installing an (initially sourceless) φ at every node in the iterated
// dominance frontier that doesn't already carry one for that variable.
func insertPhis(g *cfg.CFG, frontiers map[int]*bitset.BitSet) map[int]map[string]*phiNode {
	phis := map[int]map[string]*phiNode{}

	names := make([]string, 0, len(g.Defs))
	for v := range g.Defs {
		names = append(names, v)
	}
	sort.Strings(names)

	for _, v := range names {
		hasPhi := make(map[int]bool)
		worklist := append([]int(nil), g.Defs[v]...)
		for len(worklist) > 0 {
			n := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]

			df := frontiers[n]
			for m, ok := df.NextSet(0); ok; m, ok = df.NextSet(m + 1) {
				mi := int(m)
				if hasPhi[mi] {
					continue
				}
				if phis[mi] == nil {
					phis[mi] = map[string]*phiNode{}
				}
				phis[mi][v] = &phiNode{canonical: v}
				hasPhi[mi] = true
				worklist = append(worklist, mi)
			}
		}
	}
	return phis
}

// versionStack tracks, per canonical variable name, the stack of names
// currently in scope along the dominator-tree path being visited, plus a
// monotonic per-variable counter for fresh-name allocation.
type versionStack struct {
	stacks   map[string][]string
	counters map[string]int
}

func newVersionStack() *versionStack {
	return &versionStack{stacks: map[string][]string{}, counters: map[string]int{}}
}

func (vs *versionStack) push(canonical, name string) {
	vs.stacks[canonical] = append(vs.stacks[canonical], name)
}

func (vs *versionStack) pop(canonical string) {
	s := vs.stacks[canonical]
	vs.stacks[canonical] = s[:len(s)-1]
}

func (vs *versionStack) top(canonical string) (string, bool) {
	s := vs.stacks[canonical]
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

func (vs *versionStack) fresh(canonical string) string {
	vs.counters[canonical]++
	return fmt.Sprintf("%s_%d", canonical, vs.counters[canonical])
}

// rename performs the dominator-tree DFS renaming pass: at each block, φ
// destinations are renamed first (spec §4.7 step 1), then every ordinary
// instruction has its args resolved to the top of each argument's stack and
// its own destination renamed and pushed, then each CFG successor's φ
// sources are patched with the current top-of-stack value, then the dominator
// subtree is visited recursively, then this block's pushes are undone.
func rename(g *cfg.CFG, tree *dom.Tree, phis map[int]map[string]*phiNode, params []string) error {
	vs := newVersionStack()
	for _, p := range params {
		vs.push(p, p)
	}

	var visit func(n int) error
	visit = func(n int) error {
		pushed := map[string]int{}
		push := func(canonical, name string) {
			vs.push(canonical, name)
			pushed[canonical]++
		}

		block := g.Nodes[n].Block
		if local := phis[n]; local != nil {
			vars := make([]string, 0, len(local))
			for v := range local {
				vars = append(vars, v)
			}
			sort.Strings(vars)
			for _, v := range vars {
				ph := local[v]
				ph.dest = vs.fresh(v)
				push(v, ph.dest)
			}
		}

		newInstrs := make([]ir.Instruction, len(block.Instrs))
		for i, instr := range block.Instrs {
			rewritten, err := rewriteArgs(instr, vs)
			if err != nil {
				return err
			}
			for _, d := range instr.Defs() {
				fresh := vs.fresh(d)
				setDest(rewritten, fresh)
				push(d, fresh)
			}
			newInstrs[i] = rewritten
		}
		block.Instrs = newInstrs

		for _, e := range g.Nodes[n].Succs {
			local := phis[e.To]
			for v, ph := range local {
				if top, ok := vs.top(v); ok {
					ph.sources = append(ph.sources, phiSource{value: top, label: block.Label})
				}
				// an empty stack (variable never defined on this path)
				// leaves this φ with one fewer source: a narrower φ
				// rather than a fabricated argument.
			}
		}

		for _, c := range tree.Children(n) {
			if err := visit(c); err != nil {
				return err
			}
		}

		for v, count := range pushed {
			for i := 0; i < count; i++ {
				vs.pop(v)
			}
		}
		return nil
	}

	return visit(g.Entry())
}

// rewriteArgs returns a shallow copy of instr with every argument resolved
// to the top of its current version stack (or left unchanged if the
// variable has no live definition on this path — e.g. a use before any
// def, which nothing earlier in the pipeline rejects).
func rewriteArgs(instr ir.Instruction, vs *versionStack) (ir.Instruction, error) {
	resolve := func(args []string) []string {
		out := make([]string, len(args))
		for i, a := range args {
			if top, ok := vs.top(a); ok {
				out[i] = top
			} else {
				out[i] = a
			}
		}
		return out
	}
	switch v := instr.(type) {
	case *ir.Const:
		c := *v
		return &c, nil
	case *ir.ValueInstr:
		c := *v
		c.Args = resolve(v.Args)
		return &c, nil
	case *ir.EffectInstr:
		c := *v
		c.Args = resolve(v.Args)
		return &c, nil
	default:
		return nil, fmt.Errorf("ssa: unsupported instruction type %T", instr)
	}
}

func setDest(instr ir.Instruction, dest string) {
	switch v := instr.(type) {
	case *ir.Const:
		v.Dest = dest
	case *ir.ValueInstr:
		v.Dest = dest
	}
}

// materialize turns each block's accumulated phiNodes into Value
// instructions (op "phi") and prepends them, sorted by canonical variable
// name for a deterministic textual serialization (spec §5). A variable with
// no recorded type is a fatal condition (spec §7 "Type-missing in SSA"):
// defaulting it would risk silently mistyping a bool/float/ptr-valued φ as
// int in the emitted JSON.
func materialize(g *cfg.CFG, fname string, phis map[int]map[string]*phiNode, types map[string]ir.Type) error {
	for n, local := range phis {
		if len(local) == 0 {
			continue
		}
		vars := make([]string, 0, len(local))
		for v := range local {
			vars = append(vars, v)
		}
		sort.Strings(vars)

		phiInstrs := make([]ir.Instruction, 0, len(vars))
		for _, v := range vars {
			ph := local[v]
			typ, ok := types[v]
			if !ok {
				return fmt.Errorf("ssa: function %q: no declared type for %q; cannot materialize phi %q", fname, v, ph.dest)
			}
			args := make([]string, len(ph.sources))
			labels := make([]string, len(ph.sources))
			for i, s := range ph.sources {
				args[i] = s.value
				labels[i] = s.label
			}
			phiInstrs = append(phiInstrs, &ir.ValueInstr{
				Dest: ph.dest, Op: "phi", Type: typ, Args: args, Labels: labels,
			})
		}
		block := g.Nodes[n].Block
		block.Instrs = append(phiInstrs, block.Instrs...)
	}
	return nil
}

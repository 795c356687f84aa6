// Package driver wires the engine's passes into the command-line surface
// (spec §6), grounded on the teacher's engine/cli.Run: a flag.FlagSet
// parsed from args[1:], stdin/stdout/stderr threaded explicitly rather
// than read from os.Stdin/os.Stdout (the same shape cmd/godoctor's own
// tests exercise), and a plain integer exit code instead of os.Exit calls
// buried in business logic.
package driver

import (
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/he-andy/cs6120/cfg"
	"github.com/he-andy/cs6120/dataflow"
	"github.com/he-andy/cs6120/diag"
	"github.com/he-andy/cs6120/dom"
	"github.com/he-andy/cs6120/ir"
	"github.com/he-andy/cs6120/lvn"
	"github.com/he-andy/cs6120/ssa"
	"github.com/he-andy/cs6120/tdce"
	"github.com/he-andy/cs6120/trace"
)

// Run executes the cs6120 command-line interface. Typical usage is
//
//	os.Exit(driver.Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
//
// All arguments must be non-nil, and args[0] is required.
func Run(stdin io.Reader, stdout io.Writer, stderr io.Writer, args []string) int {
	flags := flag.NewFlagSet("cs6120", flag.ContinueOnError)
	flags.SetOutput(stderr)

	dceFlag := flags.Bool("dce", false, "run trivial dead code elimination")
	lvnFlag := flags.Bool("lvn", false, "run local value numbering")
	livenessFlag := flags.Bool("liveness", false, "print live-in/live-out variable sets")
	domFlag := flags.Bool("dom", false, "print the dominator tree and dominance frontiers")
	cfgFlag := flags.Bool("cfg", false, "print the control-flow graph")
	ssaFlag := flags.Bool("ssa", false, "convert to static single assignment form")
	traceFlag := flags.Bool("trace", false, "re-linearize via the trace flattener")

	if err := flags.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 2
		}
		return 1
	}

	input, err := io.ReadAll(stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	program, err := ir.Decode(input)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	needsCFG := *dceFlag || *lvnFlag || *livenessFlag || *domFlag || *cfgFlag || *ssaFlag || *traceFlag
	log := diag.NewLog()
	exitCode := 0

	if needsCFG {
		for _, fn := range program.Functions {
			if !transformFunction(fn, log, dceFlag, lvnFlag, livenessFlag, domFlag, cfgFlag, ssaFlag) {
				exitCode = 1
			}
		}
	}

	for _, e := range log.Entries {
		fmt.Fprintln(stderr, e.String())
	}
	if log.ContainsErrors() {
		exitCode = 1
	}

	out, err := ir.Encode(program)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))
	return exitCode
}

// transformFunction applies the requested passes to fn in place, in the
// order SSA, LVN, DCE (spec §6 expansion: SSA first when combined with
// optimizations), logs any requested diagnostics, and always re-emits
// fn.Instrs via the trace flattener since the function was taken apart
// into a CFG. Returns false if a fatal error left fn untransformed.
func transformFunction(fn *ir.Function, log *diag.Log, dceFlag, lvnFlag, livenessFlag, domFlag, cfgFlag, ssaFlag *bool) bool {
	if err := ir.Validate(fn); err != nil {
		log.Errorf(fn.Name, "%v", err)
		return false
	}

	blocks := cfg.BuildBlocks(fn.Instrs)
	g, err := cfg.Build(blocks, log, fn.Name)
	if err != nil {
		log.Errorf(fn.Name, "%v", err)
		return false
	}
	g.AssignLabels()

	if *ssaFlag {
		if err := ssa.ToSSA(g, fn, log); err != nil {
			log.Errorf(fn.Name, "%v", err)
			return false
		}
	}
	if *lvnFlag {
		for _, n := range g.Nodes {
			n.Block.Instrs = lvn.Block(n.Block)
			n.Block.RecomputeUsesDefs()
		}
	}
	if *dceFlag {
		tdce.Run(g)
	}

	if *cfgFlag {
		logCFG(log, fn.Name, g)
	}
	if *domFlag {
		logDom(log, fn.Name, g)
	}
	if *livenessFlag {
		logLiveness(log, fn.Name, g)
	}

	fn.Instrs = trace.Flatten(g)
	return true
}

func logCFG(log *diag.Log, fname string, g *cfg.CFG) {
	log.Infof(fname, "cfg %s:", fname)
	for i, n := range g.Nodes {
		preds := make([]int, 0, len(n.Preds))
		for _, e := range n.Preds {
			preds = append(preds, e.To)
		}
		succs := make([]int, 0, len(n.Succs))
		for _, e := range n.Succs {
			succs = append(succs, e.To)
		}
		log.Infof(fname, "  %d (%s): preds=%v succs=%v", i, n.Block.Label, preds, succs)
	}
}

func logDom(log *diag.Log, fname string, g *cfg.CFG) {
	tree := dom.Build(g)
	df := tree.Frontiers()
	log.Infof(fname, "dom %s:", fname)
	for i, n := range g.Nodes {
		log.Infof(fname, "  %d (%s): idom=%d df=%s", i, n.Block.Label, tree.IDom(i), setString(df[i], len(g.Nodes)))
	}
}

func logLiveness(log *diag.Log, fname string, g *cfg.CFG) {
	res := dataflow.LiveVariables(g)
	log.Infof(fname, "liveness %s:", fname)
	for i, n := range g.Nodes {
		log.Infof(fname, "  %d (%s): in=%s out=%s", i, n.Block.Label, varsString(res.In[i]), varsString(res.Out[i]))
	}
}

func varsString(vars map[string]bool) string {
	names := make([]string, 0, len(vars))
	for v := range vars {
		names = append(names, v)
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}

func setString(s interface{ NextSet(uint) (uint, bool) }, size int) string {
	var members []int
	for i, ok := s.NextSet(0); ok; i, ok = s.NextSet(i + 1) {
		members = append(members, int(i))
	}
	return fmt.Sprint(members)
}

// Package localdce removes instructions whose results are never observed
// from a single method body.
//
// A backward liveness analysis over the control-flow graph decides which
// instructions are required; everything else is deleted. Calls are only
// dropped when the callee, and for virtual calls every override, is known to
// be side-effect free. Registers read by a catch handler are live across the
// whole protected block. After deletion, constructions of the same type
// whose identities are never compared are merged into one object.
package localdce

import (
	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
	"github.com/bnb-chain/dexdce/core/overrides"
	"github.com/bnb-chain/dexdce/core/purity"
	"github.com/bnb-chain/dexdce/log"
)

// Stats counts what one or more runs changed.
type Stats struct {
	NpeInstructions         int // dead calls narrowed to a null-check
	DeadInstructions        int
	UnreachableInstructions int
	AliasedNewInstances     int
	NormalizedNewInstances  int
}

// Add merges other into s.
func (s *Stats) Add(other Stats) {
	s.NpeInstructions += other.NpeInstructions
	s.DeadInstructions += other.DeadInstructions
	s.UnreachableInstructions += other.UnreachableInstructions
	s.AliasedNewInstances += other.AliasedNewInstances
	s.NormalizedNewInstances += other.NormalizedNewInstances
}

// Removed is the number of instructions deleted outright.
func (s Stats) Removed() int {
	return s.DeadInstructions + s.UnreachableInstructions
}

// LocalDce runs dead-code elimination one method at a time. It is not safe
// for concurrent use; the oracles it reads may be shared.
type LocalDce struct {
	pure                 *purity.Oracle
	overrides            *overrides.Graph
	mayAllocateRegisters bool
	preserveNullChecks   bool
	required             RequiredFunc
	stats                Stats
}

type Option func(*LocalDce)

// WithNullChecks controls whether a dead call whose receiver may be null is
// narrowed to a null-check rather than deleted. It is on by default.
func WithNullChecks(preserve bool) Option {
	return func(d *LocalDce) { d.preserveNullChecks = preserve }
}

// WithRequired replaces the requiredness policy. The replacement usually
// calls IsRequired and adds its own conditions.
func WithRequired(fn RequiredFunc) Option {
	return func(d *LocalDce) { d.required = fn }
}

// New returns a pass using pure as the set of side-effect-free methods and
// ovr, which may be nil, to resolve virtual calls. With a nil override graph
// no virtual call is considered pure.
func New(pure *purity.Oracle, ovr *overrides.Graph, mayAllocateRegisters bool, opts ...Option) *LocalDce {
	d := &LocalDce{
		pure:                 pure,
		overrides:            ovr,
		mayAllocateRegisters: mayAllocateRegisters,
		preserveNullChecks:   true,
	}
	d.required = d.IsRequired
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats returns the totals over every run of d.
func (d *LocalDce) Stats() Stats { return d.stats }

// DceMethod optimizes the body of m in place.
func (d *LocalDce) DceMethod(m *cfg.Method) Stats {
	st := d.Dce(m.Graph)
	log.Trace("Optimized method", "method", m.Ref, "dead", st.DeadInstructions,
		"unreachable", st.UnreachableInstructions, "npe", st.NpeInstructions,
		"aliased", st.AliasedNewInstances, "normalized", st.NormalizedNewInstances)
	return st
}

// Dce optimizes g in place and returns what changed. It panics if g is
// malformed.
func (d *LocalDce) Dce(g *cfg.Graph) Stats {
	g.MustValidate()

	var st Stats
	for _, b := range g.Unreachable() {
		st.UnreachableInstructions += b.Size()
		g.RemoveBlock(b)
	}

	sol := d.solve(g)
	for _, dead := range sol.Dead() {
		if dead.NullCheck {
			r, _ := dead.Insn.Receiver()
			dead.Block.ReplaceAt(dead.Index, ir.NewInstruction(ir.OpNullCheck, r))
			st.NpeInstructions++
			continue
		}
		dead.Block.RemoveAt(dead.Index)
		st.DeadInstructions++
	}

	st.AliasedNewInstances, st.NormalizedNewInstances = d.normalizeNewInstances(g, sol)
	d.stats.Add(st)
	return st
}

// Analyze lists what Dce would remove from g, or narrow to a null-check,
// without changing it. Unreachable blocks are not visited.
func (d *LocalDce) Analyze(g *cfg.Graph) []DeadInstruction {
	g.MustValidate()
	return d.solve(g).Dead()
}

// solve computes liveness over the reachable blocks of g under the policy
// Dce applies.
func (d *LocalDce) solve(g *cfg.Graph) *Solution {
	blocks := postOrder(g, cfg.NormalSuccs)
	sol := newSolution(g, blocks, cfg.NormalSuccs, d.required, nil)
	if d.preserveNullChecks {
		sol.marks = nullableReceivers(g, blocks)
		sol.residue = nullCheckResidue(sol.marks)
	}
	sol.solve()
	log.Trace("Solved liveness", "blocks", len(blocks), "passes", sol.Passes())
	return sol
}

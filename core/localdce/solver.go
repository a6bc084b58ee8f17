package localdce

import (
	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
)

// residueFunc returns the registers an instruction still reads after the
// policy dropped it, for instructions that are rewritten rather than
// deleted.
type residueFunc func(b *cfg.Block, idx int, insn *ir.Instruction) []ir.Reg

type blockLiveness struct {
	in, out *Liveness
}

// Solution holds the per-block fixed point of the backward liveness
// analysis.
type Solution struct {
	g        *cfg.Graph
	blocks   []*cfg.Block
	succs    cfg.SuccsFunc
	required RequiredFunc
	residue  residueFunc
	marks    receiverMarks
	live     map[*cfg.Block]*blockLiveness
	full     *Liveness
	regs     uint32 // frame width when solved
	passes   int

	// observe, when set, runs after every pass.
	observe func(pass int)
}

func newSolution(g *cfg.Graph, blocks []*cfg.Block, succs cfg.SuccsFunc, required RequiredFunc, residue residueFunc) *Solution {
	regs := g.RegistersSize()
	s := &Solution{
		g:        g,
		blocks:   blocks,
		succs:    succs,
		required: required,
		residue:  residue,
		live:     make(map[*cfg.Block]*blockLiveness, len(blocks)),
		full:     NewLiveness(regs),
		regs:     regs,
	}
	s.full.Fill()
	for _, b := range blocks {
		if b.Graph() != g {
			panic("localdce: block " + b.ID().String() + " does not belong to the graph")
		}
		s.live[b] = &blockLiveness{in: NewLiveness(regs), out: NewLiveness(regs)}
	}
	return s
}

// LiveIn is the set of registers live on entry to b. Blocks outside the
// analyzed subset are treated as reading every register.
func (s *Solution) LiveIn(b *cfg.Block) *Liveness {
	if bl, ok := s.live[b]; ok {
		return bl.in
	}
	return s.full
}

// LiveOut is the set of registers live on exit from b.
func (s *Solution) LiveOut(b *cfg.Block) *Liveness {
	if bl, ok := s.live[b]; ok {
		return bl.out
	}
	return s.full
}

// CatchLive is the union of live-in over b's catch handlers. Every
// instruction of b is treated as if it could reach them. The set keeps the
// frame width the solution was computed at, even after registers were
// allocated.
func (s *Solution) CatchLive(b *cfg.Block) *Liveness {
	live := NewLiveness(s.regs)
	for _, e := range b.ThrowSuccs() {
		live.Union(s.LiveIn(e.Target))
	}
	return live
}

// Passes is the number of full sweeps the fixed point took.
func (s *Solution) Passes() int { return s.passes }

// solve sweeps the blocks in order until no live set grows. Live sets only
// ever gain bits.
func (s *Solution) solve() {
	for changed := true; changed; {
		changed = false
		s.passes++
		for _, b := range s.blocks {
			bl := s.live[b]
			out := NewLiveness(s.regs)
			for _, e := range s.succs(b) {
				out.Union(s.LiveIn(e.Target))
			}
			if !bl.out.Contains(out) {
				bl.out.Union(out)
				changed = true
			}
			in := s.transfer(b, nil)
			if !bl.in.Contains(in) {
				bl.in.Union(in)
				changed = true
			}
		}
		if s.observe != nil {
			s.observe(s.passes)
		}
	}
}

// transfer walks b backwards from its live-out and returns its live-in.
// visit, when set, sees every instruction with the policy's verdict.
func (s *Solution) transfer(b *cfg.Block, visit func(idx int, insn *ir.Instruction, required bool)) *Liveness {
	catch := s.CatchLive(b)
	work := s.LiveOut(b).Clone()
	work.Union(catch)

	insns := b.Instructions()
	for i := len(insns) - 1; i >= 0; i-- {
		insn := insns[i]
		required := s.required(s.g, b, insn, work)
		if visit != nil {
			visit(i, insn, required)
		}
		switch {
		case required:
			if insn.HasDest() {
				work.Clear(insn.Dest)
			}
			if insn.WritesResult() {
				work.ClearResult()
			}
			for _, r := range insn.Srcs {
				work.Set(r)
			}
			if insn.IsMoveResult() {
				work.SetResult()
			}
		case s.residue != nil:
			for _, r := range s.residue(b, i, insn) {
				work.Set(r)
			}
		}
		work.Union(catch)
	}
	return work
}

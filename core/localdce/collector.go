package localdce

import (
	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
)

// DeadInstruction locates an instruction the policy does not require.
type DeadInstruction struct {
	Block *cfg.Block
	Index int
	Insn  *ir.Instruction

	// NullCheck is set when the call is narrowed to a null-check on its
	// receiver instead of being deleted.
	NullCheck bool
}

// Solve computes live sets for blocks, visited in the given order until a
// fixed point. A nil blocks defaults to the postorder of g, a nil succs to
// the normal successors, and a nil required to IsRequired. Catch handlers
// are always reached through each block's throw edges.
func (d *LocalDce) Solve(g *cfg.Graph, blocks []*cfg.Block, succs cfg.SuccsFunc, required RequiredFunc) *Solution {
	blocks, succs, required = d.defaults(g, blocks, succs, required)
	s := newSolution(g, blocks, succs, required, nil)
	s.solve()
	return s
}

// DeadInstructions lists every instruction of blocks that required rejects
// at the fixed point, without modifying the graph. Entries follow the order
// of blocks and, within a block, run from the last instruction to the
// first, so deleting them in list order never shifts a pending position.
func (d *LocalDce) DeadInstructions(g *cfg.Graph, blocks []*cfg.Block, succs cfg.SuccsFunc, required RequiredFunc) []DeadInstruction {
	return d.Solve(g, blocks, succs, required).Dead()
}

// Dead collects the unrequired instructions of the solved blocks.
func (s *Solution) Dead() []DeadInstruction {
	var dead []DeadInstruction
	for _, b := range s.blocks {
		b := b
		s.transfer(b, func(idx int, insn *ir.Instruction, required bool) {
			if !required {
				dead = append(dead, DeadInstruction{Block: b, Index: idx, Insn: insn,
					NullCheck: needsNullCheck(s.marks, b, idx)})
			}
		})
	}
	return dead
}

func (d *LocalDce) defaults(g *cfg.Graph, blocks []*cfg.Block, succs cfg.SuccsFunc, required RequiredFunc) ([]*cfg.Block, cfg.SuccsFunc, RequiredFunc) {
	if succs == nil {
		succs = cfg.NormalSuccs
	}
	if required == nil {
		required = d.required
	}
	if blocks == nil {
		blocks = postOrder(g, succs)
	}
	return blocks, succs, required
}

// postOrder orders the blocks reachable through succs or a throw edge.
func postOrder(g *cfg.Graph, succs cfg.SuccsFunc) []*cfg.Block {
	return g.PostOrder(func(b *cfg.Block) []*cfg.Edge {
		edges := append([]*cfg.Edge(nil), succs(b)...)
		return append(edges, b.ThrowSuccs()...)
	})
}

package cfg

import (
	"fmt"
	"strings"

	"github.com/bnb-chain/dexdce/core/ir"
)

// BlockID identifies a block within its graph. IDs are never reused.
type BlockID uint

func (id BlockID) String() string { return fmt.Sprintf("B%d", uint(id)) }

// EdgeType classifies a control-flow edge.
type EdgeType byte

const (
	EdgeGoto        EdgeType = iota // unconditional fallthrough or jump
	EdgeBranchTrue                  // taken side of a conditional
	EdgeBranchFalse                 // not-taken side of a conditional
	EdgeThrow                       // exceptional edge to a catch handler
	EdgeGhost                       // synthetic edge that carries no control
)

var edgeTypeNames = [...]string{
	EdgeGoto:        "goto",
	EdgeBranchTrue:  "true",
	EdgeBranchFalse: "false",
	EdgeThrow:       "catch",
	EdgeGhost:       "ghost",
}

func (t EdgeType) String() string {
	if int(t) < len(edgeTypeNames) {
		return edgeTypeNames[t]
	}
	return fmt.Sprintf("edge(%d)", byte(t))
}

// ParseEdgeType maps a directive name back to its EdgeType.
func ParseEdgeType(s string) (EdgeType, bool) {
	for t, name := range edgeTypeNames {
		if name == s {
			return EdgeType(t), true
		}
	}
	return 0, false
}

// Edge is a directed edge between two blocks of the same graph.
type Edge struct {
	Src       *Block
	Target    *Block
	Type      EdgeType
	CatchType ir.TypeRef // EdgeThrow only; empty catches everything
}

func (e *Edge) String() string {
	if e.Type == EdgeThrow && e.CatchType != "" {
		return fmt.Sprintf("-> %s %s %s", e.Type, e.Target.id, e.CatchType)
	}
	return fmt.Sprintf("-> %s %s", e.Type, e.Target.id)
}

// Block is a straight-line sequence of instructions.
type Block struct {
	id    BlockID
	graph *Graph
	insns []*ir.Instruction
	succs []*Edge
	preds []*Edge
}

func (b *Block) ID() BlockID { return b.id }

func (b *Block) Graph() *Graph { return b.graph }

func (b *Block) Size() int { return len(b.insns) }

// Instructions returns the block body. The slice must not be modified.
func (b *Block) Instructions() []*ir.Instruction { return b.insns }

func (b *Block) Instruction(idx int) *ir.Instruction { return b.insns[idx] }

func (b *Block) Succs() []*Edge { return b.succs }

func (b *Block) Preds() []*Edge { return b.preds }

// NormalSuccs returns every outgoing edge that is not a throw edge.
func (b *Block) NormalSuccs() []*Edge {
	out := make([]*Edge, 0, len(b.succs))
	for _, e := range b.succs {
		if e.Type != EdgeThrow {
			out = append(out, e)
		}
	}
	return out
}

// ThrowSuccs returns the edges to the catch handlers protecting the block.
func (b *Block) ThrowSuccs() []*Edge {
	var out []*Edge
	for _, e := range b.succs {
		if e.Type == EdgeThrow {
			out = append(out, e)
		}
	}
	return out
}

// Append adds instructions at the end of the block.
func (b *Block) Append(insns ...*ir.Instruction) {
	b.insns = append(b.insns, insns...)
}

// RemoveAt deletes the instruction at idx. Positions before idx are
// unaffected.
func (b *Block) RemoveAt(idx int) *ir.Instruction {
	insn := b.insns[idx]
	copy(b.insns[idx:], b.insns[idx+1:])
	b.insns[len(b.insns)-1] = nil
	b.insns = b.insns[:len(b.insns)-1]
	return insn
}

// ReplaceAt swaps the instruction at idx for insn.
func (b *Block) ReplaceAt(idx int, insn *ir.Instruction) *ir.Instruction {
	old := b.insns[idx]
	b.insns[idx] = insn
	return old
}

// InsertAfter places insn right after position idx; idx == -1 inserts at the
// front.
func (b *Block) InsertAfter(idx int, insn *ir.Instruction) {
	b.insns = append(b.insns, nil)
	copy(b.insns[idx+2:], b.insns[idx+1:])
	b.insns[idx+1] = insn
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.id)
	for _, insn := range b.insns {
		fmt.Fprintf(&sb, "  %s\n", insn)
	}
	for _, e := range b.succs {
		fmt.Fprintf(&sb, "  %s\n", e)
	}
	return sb.String()
}

package cfg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/bnb-chain/dexdce/core/ir"
)

// SuccsFunc selects the successor edges a traversal follows from a block.
type SuccsFunc func(*Block) []*Edge

// NormalSuccs follows every non-throw edge.
func NormalSuccs(b *Block) []*Edge { return b.NormalSuccs() }

// AllSuccs follows every edge, including throw edges.
func AllSuccs(b *Block) []*Edge { return b.Succs() }

// Graph is the control-flow graph of a single method body.
type Graph struct {
	blocks    []*Block
	entry     *Block
	registers uint32
	nextID    BlockID
}

// Method pairs a method reference with its body.
type Method struct {
	Ref   ir.MethodRef
	Graph *Graph
}

// New returns an empty graph using `registers` virtual registers.
func New(registers uint32) *Graph {
	return &Graph{registers: registers}
}

// NewBlock creates a block. The first block created becomes the entry.
func (g *Graph) NewBlock() *Block {
	b := &Block{id: g.nextID, graph: g}
	g.nextID++
	g.blocks = append(g.blocks, b)
	if g.entry == nil {
		g.entry = b
	}
	return b
}

func (g *Graph) SetEntry(b *Block) {
	g.mustOwn(b)
	g.entry = b
}

func (g *Graph) Entry() *Block { return g.entry }

// Blocks returns the blocks in creation order.
func (g *Graph) Blocks() []*Block { return g.blocks }

// Block looks a block up by id.
func (g *Graph) Block(id BlockID) *Block {
	for _, b := range g.blocks {
		if b.id == id {
			return b
		}
	}
	return nil
}

// RegistersSize is the number of virtual registers the body may use.
func (g *Graph) RegistersSize() uint32 { return g.registers }

// AllocateRegister widens the register frame by one and returns the new
// register.
func (g *Graph) AllocateRegister() ir.Reg {
	r := ir.Reg(g.registers)
	g.registers++
	return r
}

// InstructionCount sums the sizes of all blocks.
func (g *Graph) InstructionCount() int {
	n := 0
	for _, b := range g.blocks {
		n += len(b.insns)
	}
	return n
}

// AddEdge connects src to dst.
func (g *Graph) AddEdge(src, dst *Block, t EdgeType) *Edge {
	g.mustOwn(src)
	g.mustOwn(dst)
	e := &Edge{Src: src, Target: dst, Type: t}
	src.succs = append(src.succs, e)
	dst.preds = append(dst.preds, e)
	return e
}

// AddThrowEdge marks handler as a catch block for src.
func (g *Graph) AddThrowEdge(src, handler *Block, catchType ir.TypeRef) *Edge {
	e := g.AddEdge(src, handler, EdgeThrow)
	e.CatchType = catchType
	return e
}

// RemoveBlock detaches b from its neighbours and drops it from the graph.
// The entry block cannot be removed.
func (g *Graph) RemoveBlock(b *Block) {
	g.mustOwn(b)
	if b == g.entry {
		panic("cfg: removing the entry block")
	}
	for _, e := range b.succs {
		e.Target.preds = removeEdge(e.Target.preds, e)
	}
	for _, e := range b.preds {
		e.Src.succs = removeEdge(e.Src.succs, e)
	}
	b.succs, b.preds = nil, nil
	for i, other := range g.blocks {
		if other == b {
			g.blocks = append(g.blocks[:i], g.blocks[i+1:]...)
			break
		}
	}
	b.graph = nil
}

func removeEdge(edges []*Edge, e *Edge) []*Edge {
	out := edges[:0]
	for _, other := range edges {
		if other != e {
			out = append(out, other)
		}
	}
	return out
}

// reachable marks every block with a path from the entry over non-ghost
// edges, indexed by BlockID.
func (g *Graph) reachable() bitmap {
	seen := bitmap{0}
	if g.entry == nil {
		return seen
	}
	stack := []*Block{g.entry}
	seen.set1(uint64(g.entry.id))
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range b.succs {
			if e.Type == EdgeGhost || seen.testAndSet(uint64(e.Target.id)) {
				continue
			}
			stack = append(stack, e.Target)
		}
	}
	return seen
}

// Unreachable returns the blocks with no path from the entry, in creation
// order.
func (g *Graph) Unreachable() []*Block {
	seen := g.reachable()
	var out []*Block
	for _, b := range g.blocks {
		if !seen.isBitSet(uint64(b.id)) {
			out = append(out, b)
		}
	}
	return out
}

// PostOrder lists the blocks reachable from the entry through succs, each
// block after all of its successors except along back edges.
func (g *Graph) PostOrder(succs SuccsFunc) []*Block {
	if g.entry == nil {
		return nil
	}
	if succs == nil {
		succs = NormalSuccs
	}
	type frame struct {
		b     *Block
		edges []*Edge
		next  int
	}
	var (
		order []*Block
		seen  = bitmap{0}
		stack = []frame{{b: g.entry, edges: succs(g.entry)}}
	)
	seen.set1(uint64(g.entry.id))
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.edges) {
			dst := top.edges[top.next].Target
			top.next++
			if !seen.testAndSet(uint64(dst.id)) {
				stack = append(stack, frame{b: dst, edges: succs(dst)})
			}
			continue
		}
		order = append(order, top.b)
		stack = stack[:len(stack)-1]
	}
	return order
}

// Validate checks the structural preconditions the optimizer relies on.
func (g *Graph) Validate() error {
	if g.entry == nil {
		return errors.Errorf("cfg: no entry block")
	}
	if g.entry.graph != g {
		return errors.Errorf("cfg: entry %s does not belong to the graph", g.entry.id)
	}
	for _, b := range g.blocks {
		if b.graph != g {
			return errors.Errorf("cfg: block %s does not belong to the graph", b.id)
		}
		for _, e := range b.succs {
			if e.Src != b {
				return errors.Errorf("cfg: edge %s %s listed on foreign block %s", e.Src.id, e, b.id)
			}
			if e.Target.graph != g {
				return errors.Errorf("cfg: edge %s %s leaves the graph", b.id, e)
			}
		}
		for _, e := range b.preds {
			if e.Target != b || e.Src.graph != g {
				return errors.Errorf("cfg: predecessor edge of %s is inconsistent", b.id)
			}
		}
		for i, insn := range b.insns {
			if insn == nil {
				return errors.Errorf("cfg: %s[%d]: nil instruction", b.id, i)
			}
			if insn.HasDest() && uint32(insn.Dest) >= g.registers {
				return errors.Errorf("cfg: %s[%d] %s: register %s out of range (%d registers)", b.id, i, insn, insn.Dest, g.registers)
			}
			for _, r := range insn.Srcs {
				if uint32(r) >= g.registers {
					return errors.Errorf("cfg: %s[%d] %s: register %s out of range (%d registers)", b.id, i, insn, r, g.registers)
				}
			}
			if n := insn.Op.NumSrcs(); n >= 0 && n != len(insn.Srcs) {
				return errors.Errorf("cfg: %s[%d] %s: want %d sources, have %d", b.id, i, insn, n, len(insn.Srcs))
			}
			if insn.Op.HasDest() != insn.HasDest() {
				return errors.Errorf("cfg: %s[%d] %s: destination mismatch", b.id, i, insn)
			}
			if insn.IsInvoke() && insn.Method.IsZero() {
				return errors.Errorf("cfg: %s[%d] %s: invoke without method", b.id, i, insn)
			}
			if insn.Op.HasReceiver() && len(insn.Srcs) == 0 {
				return errors.Errorf("cfg: %s[%d] %s: missing receiver", b.id, i, insn)
			}
		}
	}
	return nil
}

// MustValidate panics when Validate fails.
func (g *Graph) MustValidate() {
	if err := g.Validate(); err != nil {
		panic(err)
	}
}

func (g *Graph) mustOwn(b *Block) {
	if b == nil || b.graph != g {
		panic("cfg: block does not belong to this graph")
	}
}

// String renders the body in assembler syntax, entry block first.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ".registers %d\n", g.registers)
	if g.entry != nil {
		sb.WriteString(g.entry.String())
	}
	for _, b := range g.blocks {
		if b != g.entry {
			sb.WriteString(b.String())
		}
	}
	return sb.String()
}

package localdce

import (
	"strings"

	"github.com/willf/bitset"
	"golang.org/x/exp/slices"

	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
)

// construction is a new-instance whose object never leaves its block and is
// only observed in ways that cannot tell two instances apart.
type construction struct {
	newIdx  int
	ctorIdx int
	dest    ir.Reg
	typ     ir.TypeRef
	ctor    ir.MethodRef
	uses    *bitset.BitSet // instruction indices reading the object
}

type constructionKey struct {
	typ  ir.TypeRef
	ctor ir.MethodRef
}

type constructionGroup struct {
	rep    *construction
	fresh  ir.Reg
	merged int
	uses   *bitset.BitSet // uses of every member so far
}

func newConstructionGroup(rep *construction) *constructionGroup {
	return &constructionGroup{rep: rep, fresh: ir.NoReg, uses: rep.uses.Clone()}
}

type editKind byte

const (
	editInsertAfter editKind = iota
	editReplace
	editDelete
)

type edit struct {
	idx  int
	kind editKind
	insn *ir.Instruction
}

// normalizeNewInstances merges interchangeable constructions of each block
// into one object. The live sets in sol must describe g as it is now.
func (d *LocalDce) normalizeNewInstances(g *cfg.Graph, sol *Solution) (aliased, normalized int) {
	for _, b := range g.Blocks() {
		a, n := d.normalizeBlock(g, b, sol)
		aliased += a
		normalized += n
	}
	return aliased, normalized
}

func (d *LocalDce) normalizeBlock(g *cfg.Graph, b *cfg.Block, sol *Solution) (aliased, normalized int) {
	var (
		insns   = b.Instructions()
		catch   = sol.CatchLive(b)
		liveOut = sol.LiveOut(b)
		found   = make(map[int]*construction)
	)
	for i, insn := range insns {
		if insn.IsConstruction() {
			if c := d.analyzeConstruction(insns, i, catch, liveOut); c != nil {
				found[i] = c
			}
		}
	}
	if len(found) < 2 {
		return 0, 0
	}

	var (
		holds  = make(map[ir.Reg]*construction)
		groups = make(map[constructionKey]*constructionGroup)
		edits  []edit
	)
	finish := func(grp *constructionGroup) {
		if grp.merged > 0 {
			aliased += grp.merged + 1
			normalized++
		}
	}
	for i, insn := range insns {
		c, ok := found[i]
		if !ok {
			if !insn.HasDest() {
				continue
			}
			if insn.Op == ir.OpMoveObject {
				if src, ok := holds[insn.Srcs[0]]; ok {
					holds[insn.Dest] = src
					continue
				}
			}
			delete(holds, insn.Dest)
			continue
		}
		key := constructionKey{c.typ, c.ctor}
		grp := groups[key]
		if grp == nil {
			groups[key] = newConstructionGroup(c)
			holds[c.dest] = c
			continue
		}
		rep := grp.rep
		// a use shared with any member would see one object twice
		if rep.ctorIdx > i || grp.uses.IntersectionCardinality(c.uses) > 0 {
			holds[c.dest] = c
			continue
		}
		src := holderOf(holds, rep)
		if src == ir.NoReg && d.mayAllocateRegisters {
			if grp.fresh == ir.NoReg {
				grp.fresh = g.AllocateRegister()
				fresh := &ir.Instruction{Op: ir.OpNewInstance, Dest: grp.fresh, Type: rep.typ}
				edits = append(edits,
					edit{rep.newIdx, editReplace, fresh},
					edit{rep.newIdx, editInsertAfter, ir.NewDefInstruction(ir.OpMoveObject, rep.dest, grp.fresh)},
				)
				holds[grp.fresh] = rep
			}
			src = grp.fresh
		}
		if src == ir.NoReg {
			// nothing holds the representative here; start over from c
			finish(grp)
			groups[key] = newConstructionGroup(c)
			holds[c.dest] = c
			continue
		}
		edits = append(edits,
			edit{i, editReplace, ir.NewDefInstruction(ir.OpMoveObject, c.dest, src)},
			edit{c.ctorIdx, editDelete, nil},
		)
		holds[c.dest] = rep
		grp.uses.InPlaceUnion(c.uses)
		grp.merged++
	}
	for _, grp := range groups {
		finish(grp)
	}
	applyEdits(b, edits)
	return aliased, normalized
}

// analyzeConstruction follows the object created at insns[idx] through its
// register copies. It returns nil unless a no-argument side-effect-free
// constructor runs before any other use, every later use is a copy, a
// type test or a call to a side-effect-free method returning no reference,
// and no copy is visible to a catch handler or live at the block exit.
func (d *LocalDce) analyzeConstruction(insns []*ir.Instruction, idx int, catch, liveOut *Liveness) *construction {
	ni := insns[idx]
	if catch.Test(ni.Dest) {
		return nil
	}
	c := &construction{
		newIdx:  idx,
		ctorIdx: -1,
		dest:    ni.Dest,
		typ:     ni.Type,
		uses:    bitset.New(uint(len(insns))),
	}
	aliases := map[ir.Reg]bool{ni.Dest: true}
	for j := idx + 1; j < len(insns) && len(aliases) > 0; j++ {
		insn := insns[j]
		used := false
		for _, r := range insn.Srcs {
			if aliases[r] {
				used = true
				break
			}
		}
		if used {
			c.uses.Set(uint(j))
			switch {
			case c.ctorIdx < 0:
				if !insn.IsConstructorCall() || len(insn.Srcs) != 1 || insn.Method.Class != c.typ ||
					!insn.Method.IsNoArgConstructor() || !d.IsPure(insn) {
					return nil
				}
				c.ctorIdx, c.ctor = j, insn.Method
			case insn.Op == ir.OpMoveObject, insn.Op == ir.OpInstanceOf:
			case insn.IsInvoke() && !insn.IsConstructorCall() && !returnsReference(insn.Method) && d.IsPure(insn):
			default:
				return nil
			}
		}
		if !insn.HasDest() {
			continue
		}
		if insn.Op == ir.OpMoveObject && aliases[insn.Srcs[0]] {
			if catch.Test(insn.Dest) {
				return nil
			}
			aliases[insn.Dest] = true
		} else {
			delete(aliases, insn.Dest)
		}
	}
	if c.ctorIdx < 0 {
		return nil
	}
	for r := range aliases {
		if liveOut.Test(r) {
			return nil
		}
	}
	return c
}

func returnsReference(m ir.MethodRef) bool {
	i := strings.LastIndexByte(m.Proto, ')')
	return i >= 0 && i+1 < len(m.Proto) && (m.Proto[i+1] == 'L' || m.Proto[i+1] == '[')
}

// holderOf returns the lowest register holding c, or NoReg.
func holderOf(holds map[ir.Reg]*construction, c *construction) ir.Reg {
	best := ir.NoReg
	for r, held := range holds {
		if held == c && r < best {
			best = r
		}
	}
	return best
}

// applyEdits rewrites b from the highest position down so that pending
// positions stay valid.
func applyEdits(b *cfg.Block, edits []edit) {
	slices.SortStableFunc(edits, func(x, y edit) int {
		if x.idx != y.idx {
			return y.idx - x.idx
		}
		return int(x.kind) - int(y.kind)
	})
	for _, e := range edits {
		switch e.kind {
		case editInsertAfter:
			b.InsertAfter(e.idx, e.insn)
		case editReplace:
			b.ReplaceAt(e.idx, e.insn)
		case editDelete:
			b.RemoveAt(e.idx)
		}
	}
}

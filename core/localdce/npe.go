package localdce

import (
	"github.com/willf/bitset"

	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
)

// receiverMarks flags instruction positions per block.
type receiverMarks map[*cfg.Block]*bitset.BitSet

// nullableReceivers marks, per block, the invokes whose receiver is not
// known to be non-null at the call. Removing such a call would also remove
// the NullPointerException it raises, so it is narrowed to a null-check
// instead.
func nullableReceivers(g *cfg.Graph, blocks []*cfg.Block) receiverMarks {
	out := make(receiverMarks, len(blocks))
	for _, b := range blocks {
		if marks := scanNonNull(g, b); marks != nil {
			out[b] = marks
		}
	}
	return out
}

// scanNonNull walks b forward tracking registers that provably hold a
// non-null reference. Nothing is assumed at block entry.
func scanNonNull(g *cfg.Graph, b *cfg.Block) *bitset.BitSet {
	var (
		marks         *bitset.BitSet
		nonNull       = bitset.New(uint(g.RegistersSize()))
		resultNonNull bool
	)
	for i, insn := range b.Instructions() {
		if r, ok := insn.Receiver(); ok && insn.IsInvoke() && !nonNull.Test(uint(r)) {
			if marks == nil {
				marks = bitset.New(uint(b.Size()))
			}
			marks.Set(uint(i))
		}

		// a reference that was dereferenced without throwing is non-null
		switch insn.Op {
		case ir.OpIput, ir.OpAput:
			nonNull.Set(uint(insn.Srcs[1]))
		case ir.OpMonitorEnter, ir.OpMonitorExit, ir.OpNullCheck:
			nonNull.Set(uint(insn.Srcs[0]))
		default:
			if r, ok := insn.Receiver(); ok {
				nonNull.Set(uint(r))
			}
		}

		if insn.WritesResult() {
			resultNonNull = insn.Op == ir.OpFilledNewArray
		}
		if !insn.HasDest() {
			continue
		}
		d := uint(insn.Dest)
		switch insn.Op {
		case ir.OpNewInstance, ir.OpNewArray, ir.OpConstString, ir.OpConstClass, ir.OpMoveException:
			nonNull.Set(d)
		case ir.OpMoveObject:
			setTo(nonNull, d, nonNull.Test(uint(insn.Srcs[0])))
		case ir.OpMoveResultObject:
			setTo(nonNull, d, resultNonNull)
		case ir.OpCheckCast:
		default:
			nonNull.Clear(d)
		}
	}
	return marks
}

func setTo(bits *bitset.BitSet, i uint, v bool) {
	if v {
		bits.Set(i)
	} else {
		bits.Clear(i)
	}
}

// nullCheckResidue keeps the receiver of a dropped invoke live when the
// call is narrowed to a null-check.
func nullCheckResidue(marks receiverMarks) residueFunc {
	return func(b *cfg.Block, idx int, insn *ir.Instruction) []ir.Reg {
		if m, ok := marks[b]; !ok || !m.Test(uint(idx)) {
			return nil
		}
		r, _ := insn.Receiver()
		return []ir.Reg{r}
	}
}

func needsNullCheck(marks receiverMarks, b *cfg.Block, idx int) bool {
	m, ok := marks[b]
	return ok && m.Test(uint(idx))
}

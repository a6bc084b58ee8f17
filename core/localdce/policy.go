package localdce

import (
	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
)

// RequiredFunc decides whether insn must be kept given the registers live
// right after it.
type RequiredFunc func(g *cfg.Graph, b *cfg.Block, insn *ir.Instruction, live *Liveness) bool

// IsRequired is the default policy:
//   - an invoke is kept when its target may have side effects, when its
//     result is consumed, or when it constructs an object that is still live;
//   - any other side-effecting instruction is kept;
//   - an instruction producing a value is kept when that value is live.
//
// An instruction that may throw but has no other effect is not kept for
// that reason alone.
func (d *LocalDce) IsRequired(g *cfg.Graph, b *cfg.Block, insn *ir.Instruction, live *Liveness) bool {
	if insn.IsInvoke() {
		if !d.IsPure(insn) || live.TestResult() {
			return true
		}
		if insn.IsConstructorCall() {
			r, _ := insn.Receiver()
			return live.Test(r)
		}
		return false
	}
	switch {
	case insn.HasSideEffects():
		return true
	case insn.WritesResult():
		return live.TestResult()
	case insn.HasDest():
		return live.Test(insn.Dest)
	}
	return false
}

// IsPure reports whether the method insn invokes is known to be free of
// side effects. A virtual call also needs every possible override to be
// known and pure.
func (d *LocalDce) IsPure(insn *ir.Instruction) bool {
	ref := insn.Method
	if !d.pure.IsPure(ref) {
		return false
	}
	if !insn.IsVirtual() {
		return true
	}
	if d.overrides == nil {
		return false
	}
	overriders, known := d.overrides.Overriders(ref)
	if !known {
		return false
	}
	for _, o := range overriders {
		if !d.pure.IsPure(o) {
			return false
		}
	}
	return true
}

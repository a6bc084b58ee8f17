package localdce

import (
	"fmt"
	"strings"

	"github.com/willf/bitset"

	"github.com/bnb-chain/dexdce/core/ir"
)

// Liveness is the set of registers whose current value may still be read.
// One extra bit past the last register tracks the pending call result.
type Liveness struct {
	bits      *bitset.BitSet
	registers uint
}

// NewLiveness returns an empty set over `registers` registers plus the
// result slot.
func NewLiveness(registers uint32) *Liveness {
	return &Liveness{
		bits:      bitset.New(uint(registers) + 1),
		registers: uint(registers),
	}
}

// Width is the number of bits, registers + 1.
func (l *Liveness) Width() uint { return l.registers + 1 }

func (l *Liveness) index(r ir.Reg) uint {
	if uint(r) >= l.registers {
		panic(fmt.Sprintf("localdce: register %s out of range (%d registers)", r, l.registers))
	}
	return uint(r)
}

func (l *Liveness) Set(r ir.Reg) { l.bits.Set(l.index(r)) }

func (l *Liveness) Clear(r ir.Reg) { l.bits.Clear(l.index(r)) }

func (l *Liveness) Test(r ir.Reg) bool { return l.bits.Test(l.index(r)) }

func (l *Liveness) SetResult() { l.bits.Set(l.registers) }

func (l *Liveness) ClearResult() { l.bits.Clear(l.registers) }

// TestResult reports whether the pending call result is still needed.
func (l *Liveness) TestResult() bool { return l.bits.Test(l.registers) }

// Fill marks every register and the result slot live.
func (l *Liveness) Fill() {
	for i := uint(0); i <= l.registers; i++ {
		l.bits.Set(i)
	}
}

// Union adds every bit of other to l.
func (l *Liveness) Union(other *Liveness) {
	l.mustMatch(other)
	l.bits.InPlaceUnion(other.bits)
}

// Contains reports whether every bit of other is set in l.
func (l *Liveness) Contains(other *Liveness) bool {
	l.mustMatch(other)
	return l.bits.IsSuperSet(other.bits)
}

func (l *Liveness) Equal(other *Liveness) bool {
	l.mustMatch(other)
	return l.bits.Equal(other.bits)
}

func (l *Liveness) Clone() *Liveness {
	return &Liveness{bits: l.bits.Clone(), registers: l.registers}
}

// Count is the number of live bits, the result slot included.
func (l *Liveness) Count() uint { return l.bits.Count() }

func (l *Liveness) Empty() bool { return l.bits.None() }

// Registers lists the live registers in ascending order.
func (l *Liveness) Registers() []ir.Reg {
	var out []ir.Reg
	for i, ok := l.bits.NextSet(0); ok && i < l.registers; i, ok = l.bits.NextSet(i + 1) {
		out = append(out, ir.Reg(i))
	}
	return out
}

func (l *Liveness) mustMatch(other *Liveness) {
	if l.registers != other.registers {
		panic(fmt.Sprintf("localdce: liveness width mismatch %d != %d", l.Width(), other.Width()))
	}
}

func (l *Liveness) String() string {
	var parts []string
	for _, r := range l.Registers() {
		parts = append(parts, r.String())
	}
	if l.TestResult() {
		parts = append(parts, "result")
	}
	return "{" + strings.Join(parts, " ") + "}"
}

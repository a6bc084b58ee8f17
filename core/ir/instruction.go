package ir

import (
	"strconv"
	"strings"
)

// Reg is a virtual register index.
type Reg uint32

// NoReg marks an absent destination.
const NoReg Reg = ^Reg(0)

func (r Reg) String() string {
	if r == NoReg {
		return "v?"
	}
	return "v" + strconv.FormatUint(uint64(r), 10)
}

// Instruction is a single byte-code operation over virtual registers.
type Instruction struct {
	Op      Opcode
	Dest    Reg
	Srcs    []Reg
	Method  MethodRef // invokes
	Type    TypeRef   // const-class, new-instance, new-array, check-cast, instance-of
	Field   FieldRef  // iget/iput/sget/sput
	Literal int64     // const
	Str     string    // const-string
}

// NewInstruction returns an instruction with no destination.
func NewInstruction(op Opcode, srcs ...Reg) *Instruction {
	return &Instruction{Op: op, Dest: NoReg, Srcs: srcs}
}

// NewDefInstruction returns an instruction writing dest.
func NewDefInstruction(op Opcode, dest Reg, srcs ...Reg) *Instruction {
	return &Instruction{Op: op, Dest: dest, Srcs: srcs}
}

// NewInvoke returns an invoke of method with the given arguments.
func NewInvoke(op Opcode, method MethodRef, args ...Reg) *Instruction {
	return &Instruction{Op: op, Dest: NoReg, Srcs: args, Method: method}
}

func (insn *Instruction) HasDest() bool { return insn.Dest != NoReg }

// HasSideEffects reports whether the instruction is observable beyond its
// destination. Invokes report true here; purity is decided by the caller.
func (insn *Instruction) HasSideEffects() bool { return insn.Op.HasSideEffects() }

func (insn *Instruction) MayThrow() bool { return insn.Op.MayThrow() }

func (insn *Instruction) IsInvoke() bool { return insn.Op.IsInvoke() }

func (insn *Instruction) IsVirtual() bool { return insn.Op.IsVirtual() }

func (insn *Instruction) IsMoveResult() bool { return insn.Op.IsMoveResult() }

func (insn *Instruction) WritesResult() bool { return insn.Op.WritesResult() }

func (insn *Instruction) IsConstruction() bool { return insn.Op.IsConstruction() }

// IsConstructorCall reports whether insn is an invoke-direct of an <init>.
func (insn *Instruction) IsConstructorCall() bool {
	return insn.Op == OpInvokeDirect && insn.Method.IsConstructor()
}

// Receiver returns the object an instance invoke dispatches on.
func (insn *Instruction) Receiver() (Reg, bool) {
	if !insn.Op.HasReceiver() || len(insn.Srcs) == 0 {
		return NoReg, false
	}
	return insn.Srcs[0], true
}

// Clone returns a deep copy of insn.
func (insn *Instruction) Clone() *Instruction {
	cpy := *insn
	if insn.Srcs != nil {
		cpy.Srcs = append([]Reg(nil), insn.Srcs...)
	}
	return &cpy
}

// Equal reports whether two instructions are identical.
func (insn *Instruction) Equal(other *Instruction) bool {
	if insn.Op != other.Op || insn.Dest != other.Dest || len(insn.Srcs) != len(other.Srcs) {
		return false
	}
	for i, r := range insn.Srcs {
		if other.Srcs[i] != r {
			return false
		}
	}
	return insn.Method == other.Method && insn.Type == other.Type && insn.Field == other.Field &&
		insn.Literal == other.Literal && insn.Str == other.Str
}

// NumSrcs returns the fixed number of source registers op reads, or -1 when
// the count is variable.
func (op Opcode) NumSrcs() int {
	switch op {
	case OpNop, OpConst, OpConstString, OpConstClass, OpMoveResult, OpMoveResultObject,
		OpMoveException, OpReturnVoid, OpNewInstance, OpSget:
		return 0
	case OpMove, OpMoveObject, OpNegInt, OpIfEqz, OpIfNez, OpSwitch, OpReturn, OpReturnObject,
		OpThrow, OpMonitorEnter, OpMonitorExit, OpNewArray, OpArrayLength, OpFillArrayData,
		OpIget, OpSput, OpCheckCast, OpInstanceOf, OpNullCheck:
		return 1
	case OpAddInt, OpSubInt, OpMulInt, OpDivInt, OpRemInt, OpAndInt, OpOrInt, OpXorInt,
		OpCmpLong, OpIfEq, OpIfNe, OpIfLt, OpIput, OpAget:
		return 2
	case OpAput:
		return 3
	}
	return -1
}

// HasTypeOperand reports whether op carries a TypeRef.
func (op Opcode) HasTypeOperand() bool { return op.hasType() }

// HasFieldOperand reports whether op carries a FieldRef.
func (op Opcode) HasFieldOperand() bool { return op.hasField() }

// HasMethodOperand reports whether op carries a MethodRef.
func (op Opcode) HasMethodOperand() bool { return op.hasMethod() }

// String renders insn in assembler syntax.
func (insn *Instruction) String() string {
	var (
		sb  strings.Builder
		ops []string
	)
	sb.WriteString(insn.Op.String())

	switch {
	case insn.Op.IsInvoke() || insn.Op == OpFilledNewArray:
		regs := make([]string, len(insn.Srcs))
		for i, r := range insn.Srcs {
			regs[i] = r.String()
		}
		ops = append(ops, "{"+strings.Join(regs, ", ")+"}")
	case insn.Op == OpCheckCast:
		ops = append(ops, insn.Dest.String())
	default:
		if insn.HasDest() {
			ops = append(ops, insn.Dest.String())
		}
		for _, r := range insn.Srcs {
			ops = append(ops, r.String())
		}
	}
	switch {
	case insn.Op.hasMethod():
		ops = append(ops, insn.Method.String())
	case insn.Op.hasField():
		ops = append(ops, insn.Field.String())
	case insn.Op.hasType():
		ops = append(ops, string(insn.Type))
	case insn.Op == OpConst:
		ops = append(ops, strconv.FormatInt(insn.Literal, 10))
	case insn.Op == OpConstString:
		ops = append(ops, strconv.Quote(insn.Str))
	}
	if len(ops) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(ops, ", "))
	}
	return sb.String()
}

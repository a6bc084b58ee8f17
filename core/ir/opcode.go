package ir

import "fmt"

// Opcode is a register byte-code operation.
type Opcode byte

const (
	OpNop Opcode = iota // nop

	// constants
	OpConst       // const vD, #lit
	OpConstString // const-string vD, "str"
	OpConstClass  // const-class vD, Type

	// moves
	OpMove             // move vD, vS
	OpMoveObject       // move-object vD, vS
	OpMoveResult       // move-result vD
	OpMoveResultObject // move-result-object vD
	OpMoveException    // move-exception vD

	// arithmetic
	OpAddInt // add-int vD, vA, vB
	OpSubInt // sub-int vD, vA, vB
	OpMulInt // mul-int vD, vA, vB
	OpDivInt // div-int vD, vA, vB
	OpRemInt // rem-int vD, vA, vB
	OpAndInt // and-int vD, vA, vB
	OpOrInt  // or-int vD, vA, vB
	OpXorInt // xor-int vD, vA, vB
	OpNegInt // neg-int vD, vA
	OpCmpLong

	// control flow
	OpIfEq  // if-eq vA, vB
	OpIfNe  // if-ne vA, vB
	OpIfLt  // if-lt vA, vB
	OpIfEqz // if-eqz vA
	OpIfNez // if-nez vA
	OpSwitch
	OpReturnVoid
	OpReturn
	OpReturnObject
	OpThrow

	// synchronization
	OpMonitorEnter
	OpMonitorExit

	// objects and arrays
	OpNewInstance    // new-instance vD, Type
	OpNewArray       // new-array vD, vSize, Type
	OpFilledNewArray // filled-new-array {vA..}, Type -> result
	OpArrayLength    // array-length vD, vA
	OpFillArrayData  // fill-array-data vA
	OpIget           // iget vD, vObj, Field
	OpIput           // iput vV, vObj, Field
	OpSget           // sget vD, Field
	OpSput           // sput vV, Field
	OpAget           // aget vD, vArr, vIdx
	OpAput           // aput vV, vArr, vIdx
	OpCheckCast      // check-cast vA, Type
	OpInstanceOf     // instance-of vD, vA, Type

	// invokes
	OpInvokeVirtual
	OpInvokeSuper
	OpInvokeDirect
	OpInvokeStatic
	OpInvokeInterface

	// OpNullCheck throws a NullPointerException when vA is null. It is what
	// remains of a removed call whose receiver may be null.
	OpNullCheck

	opcodeCount
)

const (
	fDest        = 1 << iota // writes an explicit destination register
	fSideEffect              // observable effect besides its destination
	fMayThrow                // can transfer control to a catch handler
	fBranch                  // ends a block with more than one successor
	fInvoke                  // method invocation
	fWritesResult            // writes the call-result pseudo register
	fReadsResult             // reads the call-result pseudo register
	fVirtual                 // dispatched on the runtime receiver type
	fReceiver                // first source is a receiver object
	fField                   // carries a field reference
	fType                    // carries a type reference
	fMethod                  // carries a method reference
)

type opInfo struct {
	name  string
	flags uint16
}

var opTable = [opcodeCount]opInfo{
	OpNop:              {"nop", 0},
	OpConst:            {"const", fDest},
	OpConstString:      {"const-string", fDest},
	OpConstClass:       {"const-class", fDest | fMayThrow | fType},
	OpMove:             {"move", fDest},
	OpMoveObject:       {"move-object", fDest},
	OpMoveResult:       {"move-result", fDest | fReadsResult},
	OpMoveResultObject: {"move-result-object", fDest | fReadsResult},
	OpMoveException:    {"move-exception", fDest},
	OpAddInt:           {"add-int", fDest},
	OpSubInt:           {"sub-int", fDest},
	OpMulInt:           {"mul-int", fDest},
	OpDivInt:           {"div-int", fDest | fMayThrow},
	OpRemInt:           {"rem-int", fDest | fMayThrow},
	OpAndInt:           {"and-int", fDest},
	OpOrInt:            {"or-int", fDest},
	OpXorInt:           {"xor-int", fDest},
	OpNegInt:           {"neg-int", fDest},
	OpCmpLong:          {"cmp-long", fDest},
	OpIfEq:             {"if-eq", fSideEffect | fBranch},
	OpIfNe:             {"if-ne", fSideEffect | fBranch},
	OpIfLt:             {"if-lt", fSideEffect | fBranch},
	OpIfEqz:            {"if-eqz", fSideEffect | fBranch},
	OpIfNez:            {"if-nez", fSideEffect | fBranch},
	OpSwitch:           {"switch", fSideEffect | fBranch},
	OpReturnVoid:       {"return-void", fSideEffect},
	OpReturn:           {"return", fSideEffect},
	OpReturnObject:     {"return-object", fSideEffect},
	OpThrow:            {"throw", fSideEffect | fMayThrow},
	OpMonitorEnter:     {"monitor-enter", fSideEffect | fMayThrow},
	OpMonitorExit:      {"monitor-exit", fSideEffect | fMayThrow},
	OpNewInstance:      {"new-instance", fDest | fMayThrow | fType},
	OpNewArray:         {"new-array", fDest | fMayThrow | fType},
	OpFilledNewArray:   {"filled-new-array", fMayThrow | fWritesResult | fType},
	OpArrayLength:      {"array-length", fDest | fMayThrow},
	OpFillArrayData:    {"fill-array-data", fSideEffect | fMayThrow},
	OpIget:             {"iget", fDest | fMayThrow | fField},
	OpIput:             {"iput", fSideEffect | fMayThrow | fField},
	OpSget:             {"sget", fDest | fMayThrow | fField},
	OpSput:             {"sput", fSideEffect | fMayThrow | fField},
	OpAget:             {"aget", fDest | fMayThrow},
	OpAput:             {"aput", fSideEffect | fMayThrow},
	OpCheckCast:        {"check-cast", fDest | fMayThrow | fType},
	OpInstanceOf:       {"instance-of", fDest | fMayThrow | fType},
	OpInvokeVirtual:    {"invoke-virtual", fSideEffect | fMayThrow | fInvoke | fWritesResult | fVirtual | fReceiver | fMethod},
	OpInvokeSuper:      {"invoke-super", fSideEffect | fMayThrow | fInvoke | fWritesResult | fReceiver | fMethod},
	OpInvokeDirect:     {"invoke-direct", fSideEffect | fMayThrow | fInvoke | fWritesResult | fReceiver | fMethod},
	OpInvokeStatic:     {"invoke-static", fSideEffect | fMayThrow | fInvoke | fWritesResult | fMethod},
	OpInvokeInterface:  {"invoke-interface", fSideEffect | fMayThrow | fInvoke | fWritesResult | fVirtual | fReceiver | fMethod},
	OpNullCheck:        {"null-check", fSideEffect | fMayThrow},
}

var stringToOp = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		m[opTable[op].name] = op
	}
	return m
}()

// StringToOp finds the opcode whose name is stored in `str`.
func StringToOp(str string) (Opcode, bool) {
	op, ok := stringToOp[str]
	return op, ok
}

func (op Opcode) String() string {
	if op < opcodeCount {
		return opTable[op].name
	}
	return fmt.Sprintf("opcode %#x not defined", byte(op))
}

func (op Opcode) has(flag uint16) bool {
	return op < opcodeCount && opTable[op].flags&flag != 0
}

// HasDest reports whether the opcode writes an explicit destination register.
func (op Opcode) HasDest() bool { return op.has(fDest) }

// HasSideEffects reports whether executing the opcode is observable beyond
// the value written to its destination.
func (op Opcode) HasSideEffects() bool { return op.has(fSideEffect) }

func (op Opcode) MayThrow() bool { return op.has(fMayThrow) }

func (op Opcode) IsBranch() bool { return op.has(fBranch) }

func (op Opcode) IsInvoke() bool { return op.has(fInvoke) }

// IsVirtual reports whether the invoked method is selected by the runtime
// type of the receiver.
func (op Opcode) IsVirtual() bool { return op.has(fVirtual) }

// WritesResult reports whether the opcode deposits its value in the
// call-result pseudo register instead of a destination.
func (op Opcode) WritesResult() bool { return op.has(fWritesResult) }

func (op Opcode) IsMoveResult() bool { return op.has(fReadsResult) }

func (op Opcode) HasReceiver() bool { return op.has(fReceiver) }

func (op Opcode) IsReturn() bool {
	return op == OpReturnVoid || op == OpReturn || op == OpReturnObject
}

// IsConstruction reports whether the opcode yields a fresh, uninitialized
// object awaiting its constructor call.
func (op Opcode) IsConstruction() bool { return op == OpNewInstance }

func (op Opcode) hasField() bool  { return op.has(fField) }
func (op Opcode) hasType() bool   { return op.has(fType) }
func (op Opcode) hasMethod() bool { return op.has(fMethod) }

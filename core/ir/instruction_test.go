package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeNames(t *testing.T) {
	for op := Opcode(0); op < opcodeCount; op++ {
		name := op.String()
		require.NotEmpty(t, name, "opcode %d has no name", op)
		back, ok := StringToOp(name)
		require.True(t, ok, "name %q does not resolve", name)
		assert.Equal(t, op, back)
	}
	_, ok := StringToOp("goto")
	assert.False(t, ok)
	assert.Contains(t, Opcode(0xff).String(), "not defined")
}

func TestOpcodePredicates(t *testing.T) {
	tests := []struct {
		op                                  Opcode
		dest, effect, throws, invoke, virt  bool
		writesResult, readsResult, receiver bool
	}{
		{op: OpConst, dest: true},
		{op: OpAddInt, dest: true},
		{op: OpDivInt, dest: true, throws: true},
		{op: OpIput, effect: true, throws: true},
		{op: OpReturnVoid, effect: true},
		{op: OpIfEqz, effect: true},
		{op: OpNewInstance, dest: true, throws: true},
		{op: OpFilledNewArray, throws: true, writesResult: true},
		{op: OpMoveResultObject, dest: true, readsResult: true},
		{op: OpInvokeStatic, effect: true, throws: true, invoke: true, writesResult: true},
		{op: OpInvokeVirtual, effect: true, throws: true, invoke: true, virt: true, writesResult: true, receiver: true},
		{op: OpInvokeInterface, effect: true, throws: true, invoke: true, virt: true, writesResult: true, receiver: true},
		{op: OpInvokeDirect, effect: true, throws: true, invoke: true, writesResult: true, receiver: true},
		{op: OpNullCheck, effect: true, throws: true},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.Equal(t, tt.dest, tt.op.HasDest(), "HasDest")
			assert.Equal(t, tt.effect, tt.op.HasSideEffects(), "HasSideEffects")
			assert.Equal(t, tt.throws, tt.op.MayThrow(), "MayThrow")
			assert.Equal(t, tt.invoke, tt.op.IsInvoke(), "IsInvoke")
			assert.Equal(t, tt.virt, tt.op.IsVirtual(), "IsVirtual")
			assert.Equal(t, tt.writesResult, tt.op.WritesResult(), "WritesResult")
			assert.Equal(t, tt.readsResult, tt.op.IsMoveResult(), "IsMoveResult")
			assert.Equal(t, tt.receiver, tt.op.HasReceiver(), "HasReceiver")
		})
	}
}

func TestMethodRef(t *testing.T) {
	ref, err := ParseMethodRef("Lcom/example/Foo;.<init>:()V")
	require.NoError(t, err)
	assert.Equal(t, TypeRef("Lcom/example/Foo;"), ref.Class)
	assert.Equal(t, "<init>", ref.Name)
	assert.True(t, ref.IsConstructor())
	assert.True(t, ref.IsNoArgConstructor())
	assert.Equal(t, "Lcom/example/Foo;.<init>:()V", ref.String())

	ref = MustParseMethodRef("LFoo;.hash:(ILjava/lang/String;)I")
	assert.False(t, ref.IsConstructor())
	assert.Equal(t, "(ILjava/lang/String;)I", ref.Proto)

	for _, bad := range []string{"", "Foo.bar:()V", "LFoo;.bar", "LFoo;.:()V", "LFoo;.bar:V"} {
		_, err := ParseMethodRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestFieldRef(t *testing.T) {
	f, err := ParseFieldRef("LFoo;.count:I")
	require.NoError(t, err)
	assert.Equal(t, FieldRef{Class: "LFoo;", Name: "count", Type: "I"}, f)
	assert.Equal(t, "LFoo;.count:I", f.String())

	_, err = ParseFieldRef("LFoo;.count:")
	assert.Error(t, err)
}

func TestInstructionString(t *testing.T) {
	foo := MustParseMethodRef("LFoo;.bar:(I)V")
	tests := []struct {
		insn *Instruction
		want string
	}{
		{&Instruction{Op: OpConst, Dest: 0, Literal: 5}, "const v0, 5"},
		{&Instruction{Op: OpConstString, Dest: 1, Str: "a\"b"}, `const-string v1, "a\"b"`},
		{NewDefInstruction(OpAddInt, 1, 0, 0), "add-int v1, v0, v0"},
		{NewInstruction(OpReturnVoid), "return-void"},
		{NewInvoke(OpInvokeVirtual, foo, 0, 1), "invoke-virtual {v0, v1}, LFoo;.bar:(I)V"},
		{NewInvoke(OpInvokeStatic, MustParseMethodRef("LFoo;.baz:()V")), "invoke-static {}, LFoo;.baz:()V"},
		{&Instruction{Op: OpCheckCast, Dest: 2, Srcs: []Reg{2}, Type: "LFoo;"}, "check-cast v2, LFoo;"},
		{&Instruction{Op: OpIget, Dest: 0, Srcs: []Reg{1}, Field: FieldRef{"LFoo;", "x", "I"}}, "iget v0, v1, LFoo;.x:I"},
		{&Instruction{Op: OpNewInstance, Dest: 3, Type: "LFoo;"}, "new-instance v3, LFoo;"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.insn.String())
	}
}

func TestInstructionCloneAndReceiver(t *testing.T) {
	insn := NewInvoke(OpInvokeVirtual, MustParseMethodRef("LFoo;.bar:()V"), 4)
	cpy := insn.Clone()
	require.True(t, insn.Equal(cpy))
	cpy.Srcs[0] = 5
	assert.Equal(t, Reg(4), insn.Srcs[0])
	assert.False(t, insn.Equal(cpy))

	r, ok := insn.Receiver()
	assert.True(t, ok)
	assert.Equal(t, Reg(4), r)

	_, ok = NewInvoke(OpInvokeStatic, MustParseMethodRef("LFoo;.baz:()V")).Receiver()
	assert.False(t, ok)

	ctor := NewInvoke(OpInvokeDirect, MustParseMethodRef("LFoo;.<init>:()V"), 0)
	assert.True(t, ctor.IsConstructorCall())
	assert.False(t, insn.IsConstructorCall())
	assert.Equal(t, "v?", NoReg.String())
}

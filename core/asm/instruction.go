package asm

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bnb-chain/dexdce/core/ir"
)

// parseInstruction decodes a single instruction line such as
// "invoke-virtual {v0, v1}, LFoo;.bar:(I)V".
func parseInstruction(text string) (*ir.Instruction, error) {
	mnemonic, rest := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		mnemonic, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	op, ok := ir.StringToOp(mnemonic)
	if !ok {
		return nil, errors.Errorf("unknown opcode %q", mnemonic)
	}
	operands, err := splitOperands(rest)
	if err != nil {
		return nil, err
	}
	insn := &ir.Instruction{Op: op, Dest: ir.NoReg}

	var regs []ir.Reg
	if op.IsInvoke() || op == ir.OpFilledNewArray {
		if len(operands) == 0 || !strings.HasPrefix(operands[0], "{") {
			return nil, errors.Errorf("%s: expected {register list}", op)
		}
		if regs, err = parseRegList(operands[0]); err != nil {
			return nil, err
		}
		insn.Srcs = regs
		operands = operands[1:]
	} else {
		for len(operands) > 0 && isRegister(operands[0]) {
			r, err := parseReg(operands[0])
			if err != nil {
				return nil, err
			}
			regs = append(regs, r)
			operands = operands[1:]
		}
		switch {
		case op == ir.OpCheckCast:
			if len(regs) != 1 {
				return nil, errors.Errorf("%s: want 1 register, have %d", op, len(regs))
			}
			insn.Dest, insn.Srcs = regs[0], []ir.Reg{regs[0]}
		case op.HasDest():
			if len(regs) == 0 {
				return nil, errors.Errorf("%s: missing destination", op)
			}
			insn.Dest, insn.Srcs = regs[0], regs[1:]
		default:
			insn.Srcs = regs
		}
	}
	if n := op.NumSrcs(); n >= 0 && len(insn.Srcs) != n {
		return nil, errors.Errorf("%s: want %d source registers, have %d", op, n, len(insn.Srcs))
	}
	if len(insn.Srcs) == 0 {
		insn.Srcs = nil
	}

	want := 0
	switch {
	case op.HasMethodOperand(), op.HasFieldOperand(), op.HasTypeOperand(), op == ir.OpConst, op == ir.OpConstString:
		want = 1
	}
	if len(operands) != want {
		return nil, errors.Errorf("%s: unexpected operands %v", op, operands)
	}
	if want == 0 {
		return insn, nil
	}
	arg := operands[0]
	switch {
	case op.HasMethodOperand():
		insn.Method, err = ir.ParseMethodRef(arg)
	case op.HasFieldOperand():
		insn.Field, err = ir.ParseFieldRef(arg)
	case op.HasTypeOperand():
		insn.Type = ir.TypeRef(arg)
	case op == ir.OpConst:
		insn.Literal, err = strconv.ParseInt(arg, 0, 64)
	case op == ir.OpConstString:
		insn.Str, err = strconv.Unquote(arg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s", op)
	}
	return insn, nil
}

// splitOperands splits on top-level commas, keeping brace lists and quoted
// strings intact.
func splitOperands(s string) ([]string, error) {
	var (
		out   []string
		start int
		brace bool
		quote bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case quote && c == '\\':
			i++
		case c == '"':
			quote = !quote
		case quote:
		case c == '{':
			brace = true
		case c == '}':
			brace = false
		case c == ',' && !brace:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if quote || brace {
		return nil, errors.Errorf("unterminated operand in %q", s)
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" || len(out) > 0 {
		out = append(out, tail)
	}
	for _, o := range out {
		if o == "" {
			return nil, errors.Errorf("empty operand in %q", s)
		}
	}
	return out, nil
}

func isRegister(s string) bool {
	return len(s) > 1 && s[0] == 'v' && s[1] >= '0' && s[1] <= '9'
}

func parseReg(s string) (ir.Reg, error) {
	if !isRegister(s) {
		return 0, errors.Errorf("bad register %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil || ir.Reg(n) == ir.NoReg {
		return 0, errors.Errorf("bad register %q", s)
	}
	return ir.Reg(n), nil
}

func parseRegList(s string) ([]ir.Reg, error) {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}"))
	if body == "" {
		return nil, nil
	}
	var regs []ir.Reg
	for _, f := range strings.Split(body, ",") {
		r, err := parseReg(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, nil
}

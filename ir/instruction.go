// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ir

import (
	"bytes"
	"fmt"
	"go/constant"
	"go/token"
)

// Instructions are numbered in linear order.  Numbers are even so that
// moves can be placed between instructions if needed.

type InstructionT struct {
	Number      int
	Opcode      OpcodeT
	NumericType NumericTypeT   // binops
	Literal     constant.Value // const
	Method      string         // invoke and invoke-range
	Out         *ValueT        // may be nil
	Inputs      []*ValueT
}

func MakeInstruction(number int, opcode OpcodeT, out *ValueT, inputs ...*ValueT) *InstructionT {
	instr := &InstructionT{Number: number, Opcode: opcode, Out: out, Inputs: inputs}
	if out != nil {
		if out.Definition != nil {
			panic(fmt.Sprintf("%s is defined twice", out))
		}
		out.Definition = instr
	}
	for _, input := range inputs {
		input.addUse(instr)
	}
	return instr
}

func MakeConst(number int, out *ValueT, literal constant.Value) *InstructionT {
	instr := MakeInstruction(number, Const, out)
	instr.Literal = literal
	return instr
}

func MakeBinop(number int, opcode OpcodeT, typ NumericTypeT, out *ValueT, left *ValueT, right *ValueT) *InstructionT {
	if !opcode.IsBinop() {
		panic(fmt.Sprintf("%s is not a binop", opcode))
	}
	instr := MakeInstruction(number, opcode, out, left, right)
	instr.NumericType = typ
	return instr
}

func MakeInvoke(number int, opcode OpcodeT, method string, out *ValueT, args ...*ValueT) *InstructionT {
	if opcode != Invoke && opcode != InvokeRange {
		panic(fmt.Sprintf("%s is not an invoke", opcode))
	}
	instr := MakeInstruction(number, opcode, out, args...)
	instr.Method = method
	return instr
}

// Everything other than the values: opcode, operand type, literal,
// and method.

func (instr *InstructionT) IdenticalNonValueParts(other *InstructionT) bool {
	if instr.Opcode != other.Opcode || instr.NumericType != other.NumericType || instr.Method != other.Method {
		return false
	}
	if (instr.Literal == nil) != (other.Literal == nil) {
		return false
	}
	return instr.Literal == nil || identicalLiterals(instr.Literal, other.Literal)
}

func identicalLiterals(x constant.Value, y constant.Value) bool {
	if x.Kind() != y.Kind() {
		return false
	}
	return constant.Compare(x, token.EQL, y)
}

func (instr *InstructionT) String() string {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%d (%s", instr.Number, instr.OpcodeName())
	if instr.Out != nil {
		fmt.Fprintf(buf, " %s", instr.Out)
	} else {
		fmt.Fprintf(buf, " ()")
	}
	if instr.Literal != nil {
		fmt.Fprintf(buf, " %s", instr.Literal.ExactString())
	}
	if instr.Method != "" {
		fmt.Fprintf(buf, " %s", instr.Method)
	}
	for _, input := range instr.Inputs {
		fmt.Fprintf(buf, " %s", input)
	}
	fmt.Fprintf(buf, ")")
	return buf.String()
}

// "add-int", "const", ...

func (instr *InstructionT) OpcodeName() string {
	if instr.NumericType == NoNumericType {
		return instr.Opcode.String()
	}
	return instr.Opcode.String() + "-" + instr.NumericType.String()
}

// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Deciding which constant inputs can be encoded as instruction
// literals instead of being loaded into registers.

package ir

import (
	"go/constant"
)

const (
	lit8Bits  = 8
	lit16Bits = 16
)

func FitsInBits(value constant.Value, bits int) bool {
	if value == nil || value.Kind() != constant.Int {
		return false
	}
	n, exact := constant.Int64Val(value)
	if !exact {
		return false
	}
	limit := int64(1) << (bits - 1)
	return -limit <= n && n < limit
}

// Shifts only have an 8-bit literal form.

func literalBits(op OpcodeT) int {
	if op == Shl || op == Shr {
		return lit8Bits
	}
	return lit16Bits
}

// True if 'value' is an int constant small enough to be a literal
// operand of 'instr'.

func (instr *InstructionT) fitsInLiteral(value *ValueT) bool {
	if instr.NumericType != Int || !value.IsConstant() {
		return false
	}
	return FitsInBits(value.Definition.Literal, literalBits(instr.Opcode))
}

// The left operand of a binop is always in a register except for a
// reversed subtraction, where a small constant minuend is encoded as a
// literal.  If left and right are the same value both use its register.

func (instr *InstructionT) NeedsValueInRegister(value *ValueT) bool {
	if !instr.Opcode.IsBinop() {
		return true
	}
	left := instr.Inputs[0]
	right := instr.Inputs[1]
	if instr.Opcode == Sub {
		if value == left && value != right && !right.IsConstant() {
			return !instr.fitsInLiteral(value)
		}
		return true
	}
	if value == left {
		return true
	}
	return !instr.fitsInLiteral(value)
}

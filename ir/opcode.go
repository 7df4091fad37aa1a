// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// The instruction opcodes that matter to register allocation.

package ir

type OpcodeT int

const (
	Const OpcodeT = iota
	Move
	Add
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
	Shl
	Shr
	Invoke
	InvokeRange
	Return
)

type opcodeInfoT struct {
	name        string
	isBinop     bool
	sideEffects bool
}

var opcodeInfo = []opcodeInfoT{
	Const:       {"const", false, false},
	Move:        {"move", false, false},
	Add:         {"add", true, false},
	Sub:         {"sub", true, false},
	Mul:         {"mul", true, false},
	Div:         {"div", true, true}, // may throw
	Rem:         {"rem", true, true},
	And:         {"and", true, false},
	Or:          {"or", true, false},
	Xor:         {"xor", true, false},
	Shl:         {"shl", true, false},
	Shr:         {"shr", true, false},
	Invoke:      {"invoke", false, true},
	InvokeRange: {"invoke-range", false, true},
	Return:      {"return", false, true},
}

func (op OpcodeT) String() string    { return opcodeInfo[op].name }
func (op OpcodeT) IsBinop() bool     { return opcodeInfo[op].isBinop }
func (op OpcodeT) SideEffects() bool { return opcodeInfo[op].sideEffects }

func LookupOpcode(name string) (OpcodeT, bool) {
	for i, info := range opcodeInfo {
		if info.name == name {
			return OpcodeT(i), true
		}
	}
	return Const, false
}

// Operand type of arithmetic instructions.

type NumericTypeT int

const (
	NoNumericType NumericTypeT = iota
	Int
	Long
	Float
	Double
)

var numericTypeNames = []string{"", "int", "long", "float", "double"}

func (typ NumericTypeT) String() string { return numericTypeNames[typ] }

func (typ NumericTypeT) MoveType() MoveTypeT {
	if typ == Long || typ == Double {
		return Wide
	}
	return Single
}

func LookupNumericType(name string) (NumericTypeT, bool) {
	for i, typeName := range numericTypeNames {
		if i != 0 && typeName == name {
			return NumericTypeT(i), true
		}
	}
	return NoNumericType, false
}

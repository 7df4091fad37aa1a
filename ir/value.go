// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Values and their live intervals.

package ir

import (
	"fmt"
)

const NoRegister = -1

// An SSA value.  The live interval is in instruction-number space,
// inclusive start and exclusive end.  An interval with End <= Start
// has not been computed yet.

type ValueT struct {
	Number        int
	Name          string
	Type          MoveTypeT
	Start         int
	End           int
	FixedRegister int           // NoRegister unless pinned
	IsArgument    bool
	Definition    *InstructionT // nil for arguments and copy destinations
	Uses          []*InstructionT
}

func MakeValue(number int, name string, typ MoveTypeT) *ValueT {
	return &ValueT{Number: number, Name: name, Type: typ, FixedRegister: NoRegister}
}

func (value *ValueT) String() string {
	if value.Name == "" {
		return fmt.Sprintf("v%d", value.Number)
	}
	return fmt.Sprintf("%s_%d", value.Name, value.Number)
}

func (value *ValueT) IsConstant() bool {
	return value.Definition != nil && value.Definition.Opcode == Const
}

func (value *ValueT) HasLiveInterval() bool {
	return value.Start < value.End
}

func (value *ValueT) SetLiveInterval(start int, end int) {
	if end <= start {
		panic(fmt.Sprintf("%s: empty live interval [%d, %d)", value, start, end))
	}
	value.Start = start
	value.End = end
}

func (value *ValueT) LiveAt(position int) bool {
	return value.Start <= position && position < value.End
}

func (value *ValueT) Overlaps(other *ValueT) bool {
	return value.Start < other.End && other.Start < value.End
}

// A non-constant always needs a register.  A constant needs one only
// if some user cannot encode it as a literal.

func (value *ValueT) NeedsRegister() bool {
	if !value.IsConstant() {
		return true
	}
	for _, use := range value.Uses {
		if use.NeedsValueInRegister(value) {
			return true
		}
	}
	return false
}

func (value *ValueT) addUse(instr *InstructionT) {
	for _, use := range value.Uses {
		if use == instr {
			return
		}
	}
	value.Uses = append(value.Uses, instr)
}

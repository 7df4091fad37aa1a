// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Finding instructions that are identical once registers have been
// assigned, so that later passes can share code between them.
//
// Instructions are hashed on their opcode, non-value parts, and the
// registers or literals of their values.  Candidates with the same key
// are confirmed with IdenticalAfterRegisterAllocation.

package regalloc

import (
	"github.com/s48/backend/ir"
)

const maxDedupInputs = 3

type dedupStateT struct {
	allocator RegisterAllocatorT
	opcodes   map[string]int
	literals  map[string]int
	exprsMap  map[[3 + maxDedupInputs]int][]int // indexes into groups
	groups    [][]*ir.InstructionT
}

// Returns groups of two or more instructions that are identical after
// allocation, in order of their first members.  Instructions with side
// effects are never grouped.

func FindDuplicates(instructions []*ir.InstructionT, allocator RegisterAllocatorT) [][]*ir.InstructionT {
	state := &dedupStateT{
		allocator: allocator,
		opcodes:   map[string]int{},
		literals:  map[string]int{},
		exprsMap:  map[[3 + maxDedupInputs]int][]int{},
	}
	for _, instr := range instructions {
		state.add(instr)
	}
	result := [][]*ir.InstructionT{}
	for _, group := range state.groups {
		if 1 < len(group) {
			result = append(result, group)
		}
	}
	return result
}

func (state *dedupStateT) add(instr *ir.InstructionT) {
	if instr.Opcode.SideEffects() || maxDedupInputs < len(instr.Inputs) {
		return
	}
	var key [3 + maxDedupInputs]int
	key[0] = state.code(state.opcodes, instr.OpcodeName()+"/"+instr.Method)
	if instr.Literal != nil {
		key[1] = state.code(state.literals, instr.Literal.ExactString()) + 1
	}
	if instr.Out != nil {
		key[2] = state.encodeValue(instr.Out, instr)
	}
	for i, input := range instr.Inputs {
		key[i+3] = state.encodeValue(input, instr)
	}
	candidates := state.exprsMap[key]
	for _, index := range candidates {
		if IdenticalAfterRegisterAllocation(state.groups[index][0], instr, state.allocator) {
			state.groups[index] = append(state.groups[index], instr)
			return
		}
	}
	state.exprsMap[key] = append(candidates, len(state.groups))
	state.groups = append(state.groups, []*ir.InstructionT{instr})
}

func (state *dedupStateT) code(table map[string]int, name string) int {
	code, found := table[name]
	if !found {
		code = len(table)
		table[name] = code
	}
	return code
}

// Registers are odd, literals even, and zero is reserved for missing
// values.

func (state *dedupStateT) encodeValue(value *ir.ValueT, instr *ir.InstructionT) int {
	if value.NeedsRegister() {
		return (state.allocator.RegisterForValue(value, instr.Number)*4+int(value.Type))*2 + 1
	}
	literal := value.Definition.Literal.ExactString()
	return (state.code(state.literals, literal)*4+int(value.Type))*2 + 2
}

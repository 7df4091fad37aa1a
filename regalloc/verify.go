// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Checking a finished allocation.

package regalloc

import (
	"fmt"
	"slices"

	"github.com/s48/backend/ir"
)

// Checks that:
//   - every value that needs a register has one throughout its interval
//   - no two values share a register slot at the same time
//   - fixed registers, argument registers and ranges are respected
//   - the moves at each position have their parallel meaning and
//     leave each split or copied value in its new register.

func VerifyAllocation(allocator *LinearScanAllocatorT) error {
	allocator.checkDone()
	unit := allocator.unit
	allocs := []*regAllocT{}
	for _, value := range unit.Values {
		if !value.NeedsRegister() {
			continue
		}
		pieces := allocator.allocations[value]
		position := value.Start
		for _, alloc := range pieces {
			if alloc.start != position {
				return fmt.Errorf("%s: %s has no register at %d", unit.Name, value, position)
			}
			position = alloc.end
		}
		if position != value.End {
			return fmt.Errorf("%s: %s has no register at %d", unit.Name, value, position)
		}
		allocs = append(allocs, pieces...)
	}
	slices.SortStableFunc(allocs, func(x *regAllocT, y *regAllocT) int {
		return x.start - y.start
	})
	for i, x := range allocs {
		xSlots := footprint(x.register, x.value.Type)
		for _, y := range allocs[i+1:] {
			if x.end <= y.start {
				break
			}
			if xSlots.Intersects(footprint(y.register, y.value.Type)) {
				return fmt.Errorf("%s: %s and %s share a register", unit.Name, x, y)
			}
		}
	}
	if err := allocator.verifyFixed(); err != nil {
		return err
	}
	for _, position := range allocator.positions {
		if err := allocator.verifyMoves(position); err != nil {
			return fmt.Errorf("%s: moves at %d: %w", unit.Name, position, err)
		}
	}
	return nil
}

func (allocator *LinearScanAllocatorT) verifyFixed() error {
	unit := allocator.unit
	register := 0
	for _, arg := range unit.Arguments {
		if got := allocator.RegisterForValue(arg, arg.Start); got != register {
			return fmt.Errorf("%s: argument %s is in r%d, not r%d", unit.Name, arg, got, register)
		}
		register += arg.Type.RequiredRegisters()
	}
	for _, value := range unit.Values {
		if value.FixedRegister == ir.NoRegister || !value.NeedsRegister() {
			continue
		}
		for _, alloc := range allocator.allocations[value] {
			if alloc.register != value.FixedRegister {
				return fmt.Errorf("%s: %s is not in its fixed register", unit.Name, alloc)
			}
		}
	}
	for _, instr := range unit.Instructions {
		if instr.Opcode != ir.InvokeRange || len(instr.Inputs) == 0 {
			continue
		}
		register := allocator.RegisterForValue(instr.Inputs[0], instr.Number)
		for _, input := range instr.Inputs {
			if got := allocator.RegisterForValue(input, instr.Number); got != register {
				return fmt.Errorf("%s: range of instruction %d is not contiguous at %s", unit.Name, instr.Number, input)
			}
			register += input.Type.RequiredRegisters()
		}
	}
	return nil
}

func (allocator *LinearScanAllocatorT) verifyMoves(position int) error {
	set := allocator.moveSets[position]
	state, err := verifySchedule(set.moves, set.scheduled, allocator.tempRegister)
	if err != nil {
		return err
	}
	// Each value split here must now be in its new register.
	for _, value := range allocator.unit.Values {
		pieces := allocator.allocations[value]
		for i := 1; i < len(pieces); i++ {
			if pieces[i].start != position {
				continue
			}
			from := pieces[i-1].register
			if value.IsConstant() {
				from = ir.NoRegister
			}
			if err := checkArrival(state, value, from, pieces[i].register); err != nil {
				return err
			}
		}
	}
	for _, copy := range allocator.unit.Copies {
		if copy.At != position {
			continue
		}
		from := ir.NoRegister
		if copy.From.NeedsRegister() {
			from = allocator.registerAt(copy.From, position-1)
		}
		to := allocator.registerAt(copy.To, position)
		if err := checkArrival(state, copy.From, from, to); err != nil {
			return err
		}
	}
	return nil
}

// Checks that 'to' now holds what was in 'from' before the moves, or
// the value's constant if 'from' is NoRegister.

func checkArrival(state *RegisterFileT, value *ir.ValueT, from int, to int) error {
	for i := range value.Type.RequiredRegisters() {
		var want any
		if from == ir.NoRegister {
			want = constantValueT{value.Definition, i}
		} else {
			want = initialValueT{from + i}
		}
		if got := state.Get(to + i); got != want {
			return fmt.Errorf("%s: register %d holds %s, want %s", value, to+i, valueString(got), valueString(want))
		}
	}
	return nil
}

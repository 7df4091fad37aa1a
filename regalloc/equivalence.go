// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"github.com/s48/backend/ir"
)

// True if 'a' and 'b' would be encoded identically.  Values that are
// in registers must be in the same registers, constants that are
// encoded as literals must have the same literal.

func IdenticalAfterRegisterAllocation(a *ir.InstructionT, b *ir.InstructionT, allocator RegisterAllocatorT) bool {
	if !a.IdenticalNonValueParts(b) {
		return false
	}
	if (a.Out == nil) != (b.Out == nil) {
		return false
	}
	if a.Out != nil && !identicalValues(a.Out, a, b.Out, b, allocator) {
		return false
	}
	if len(a.Inputs) != len(b.Inputs) {
		return false
	}
	for i, input := range a.Inputs {
		if !identicalValues(input, a, b.Inputs[i], b, allocator) {
			return false
		}
	}
	return true
}

func identicalValues(x *ir.ValueT, xInstr *ir.InstructionT, y *ir.ValueT, yInstr *ir.InstructionT, allocator RegisterAllocatorT) bool {
	if x.Type != y.Type {
		return false
	}
	if x.NeedsRegister() != y.NeedsRegister() {
		return false
	}
	if x.NeedsRegister() {
		return allocator.RegisterForValue(x, xInstr.Number) == allocator.RegisterForValue(y, yInstr.Number)
	}
	// Neither needs a register, so both are literals.
	return x.Definition.IdenticalNonValueParts(y.Definition)
}

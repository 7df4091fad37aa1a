// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"github.com/s48/backend/ir"
)

// What the rest of the backend needs to know about an allocation.
// Register queries are only valid after AllocateRegisters() has
// returned without an error.

type RegisterAllocatorT interface {
	AllocateRegisters() error

	// Registers needed by the unit, including move temporaries.
	RegistersUsed() int

	// The first register of the value at the given instruction, which
	// must be within the value's live interval.
	RegisterForValue(value *ir.ValueT, instructionNumber int) int

	// True if the value's last register slot at the instruction does
	// not fit the short register encodings.
	ArgumentValueUsesHighRegister(value *ir.ValueT, instructionNumber int) bool
}

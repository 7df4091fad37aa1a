// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// The result of allocating a unit as a record for the encoder, and its
// CBOR serialization.  Canonical encoding makes equal allocations
// produce equal bytes.

package regalloc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/s48/backend/ir"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("regalloc: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type AssignmentT struct {
	Unit          string            `cbor:"1,keyasint"`
	RegistersUsed int               `cbor:"2,keyasint"`
	Values        []ValueRegistersT `cbor:"3,keyasint,omitempty"`
	Moves         []MoveSetT        `cbor:"4,keyasint,omitempty"`
}

type ValueRegistersT struct {
	Value     int             `cbor:"1,keyasint"`
	Type      string          `cbor:"2,keyasint"`
	Registers []LiveRegisterT `cbor:"3,keyasint"`
}

// The sequential moves before the instruction at Position.
type MoveSetT struct {
	Position int         `cbor:"1,keyasint"`
	Moves    []WireMoveT `cbor:"2,keyasint"`
}

type WireMoveT struct {
	Dst      int    `cbor:"1,keyasint"`
	Src      int    `cbor:"2,keyasint"`
	Type     string `cbor:"3,keyasint"`
	Constant string `cbor:"4,keyasint,omitempty"` // literal for constant moves
}

func (allocator *LinearScanAllocatorT) Assignment() *AssignmentT {
	allocator.checkDone()
	result := &AssignmentT{Unit: allocator.unit.Name, RegistersUsed: allocator.registersUsed}
	for _, value := range allocator.unit.Values {
		if value.NeedsRegister() {
			result.Values = append(result.Values, ValueRegistersT{
				Value:     value.Number,
				Type:      value.Type.String(),
				Registers: allocator.LiveRegisters(value),
			})
		}
	}
	for _, position := range allocator.positions {
		set := MoveSetT{Position: position}
		for _, move := range allocator.moveSets[position].scheduled {
			wire := WireMoveT{Dst: move.Dst, Src: move.Src, Type: move.Type.String()}
			if move.IsConstant() {
				wire.Constant = move.Definition.Literal.ExactString()
			}
			set.Moves = append(set.Moves, wire)
		}
		result.Moves = append(result.Moves, set)
	}
	return result
}

// Checks the move types while decoding.
func (assignment *AssignmentT) check() error {
	for _, value := range assignment.Values {
		if _, ok := ir.ParseMoveType(value.Type); !ok {
			return fmt.Errorf("value %d has unknown type %q", value.Value, value.Type)
		}
	}
	for _, set := range assignment.Moves {
		for _, move := range set.Moves {
			if _, ok := ir.ParseMoveType(move.Type); !ok {
				return fmt.Errorf("move at %d has unknown type %q", set.Position, move.Type)
			}
		}
	}
	return nil
}

func MarshalAssignment(assignment *AssignmentT) ([]byte, error) {
	return cborEncMode.Marshal(assignment)
}

func UnmarshalAssignment(data []byte) (*AssignmentT, error) {
	var assignment AssignmentT
	if err := cbor.Unmarshal(data, &assignment); err != nil {
		return nil, fmt.Errorf("regalloc: unmarshal assignment: %w", err)
	}
	if err := assignment.check(); err != nil {
		return nil, fmt.Errorf("regalloc: unmarshal assignment: %w", err)
	}
	return &assignment, nil
}

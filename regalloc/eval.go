// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Run register moves on a simulated register file for testing.
//
// Each register slot starts out holding a token naming the slot.
// Running the original moves in parallel and the scheduled moves in
// sequence must leave the same token in every register that is not a
// temporary.

package regalloc

import (
	"fmt"

	"github.com/s48/backend/ir"
	"github.com/s48/backend/util"
)

type RegisterFileT struct {
	values map[int]any
}

type initialValueT struct {
	register int
}

// The value loaded by a constant move.  Wide constants fill two slots.
type constantValueT struct {
	definition *ir.InstructionT
	half       int
}

func MakeRegisterFile() *RegisterFileT {
	return &RegisterFileT{values: map[int]any{}}
}

func (file *RegisterFileT) Get(register int) any {
	value, found := file.values[register]
	if !found {
		return initialValueT{register}
	}
	return value
}

func (file *RegisterFileT) Set(register int, value any) {
	file.values[register] = value
}

// The values 'move' would write, read from the current state.

func (file *RegisterFileT) read(move *RegisterMoveT) []any {
	width := move.Type.RequiredRegisters()
	result := make([]any, width)
	for i := range width {
		if move.IsConstant() {
			result[i] = constantValueT{move.Definition, i}
		} else {
			result[i] = file.Get(move.Src + i)
		}
	}
	return result
}

func (file *RegisterFileT) write(move *RegisterMoveT, values []any) {
	for i, value := range values {
		file.Set(move.Dst+i, value)
	}
}

// Run the moves one after another.

func (file *RegisterFileT) Run(moves []*RegisterMoveT) {
	for _, move := range moves {
		file.write(move, file.read(move))
	}
}

// Run the moves all at once: every source is read before any
// destination is written.

func (file *RegisterFileT) RunParallel(moves []*RegisterMoveT) {
	values := make([][]any, len(moves))
	for i, move := range moves {
		values[i] = file.read(move)
	}
	for i, move := range moves {
		file.write(move, values[i])
	}
}

// Checks that 'scheduled' has the effect of the parallel 'moves'
// without touching any register below 'tempRegister' other than the
// destinations.

func VerifySchedule(moves []*RegisterMoveT, scheduled []*RegisterMoveT, tempRegister int) error {
	_, err := verifySchedule(moves, scheduled, tempRegister)
	return err
}

// Also returns the final state of the sequential run.

func verifySchedule(moves []*RegisterMoveT, scheduled []*RegisterMoveT, tempRegister int) (*RegisterFileT, error) {
	parallel := MakeRegisterFile()
	parallel.RunParallel(moves)
	sequential := MakeRegisterFile()
	sequential.Run(scheduled)

	touched := util.NewSet[int]()
	for _, move := range moves {
		touched.Add(move.DestinationFootprint().Members()...)
	}
	for _, move := range scheduled {
		for slot := range move.DestinationFootprint() {
			if slot < tempRegister {
				touched.Add(slot)
			}
		}
	}
	for _, slot := range util.SortedMembers(touched) {
		want := parallel.Get(slot)
		got := sequential.Get(slot)
		if got != want {
			return nil, fmt.Errorf("register %d holds %s, want %s", slot, valueString(got), valueString(want))
		}
	}
	return sequential, nil
}

func valueString(value any) string {
	switch value := value.(type) {
	case initialValueT:
		return fmt.Sprintf("r%d", value.register)
	case constantValueT:
		return fmt.Sprintf("'%s.%d", value.definition.Literal.ExactString(), value.half)
	default:
		return fmt.Sprintf("%v", value)
	}
}

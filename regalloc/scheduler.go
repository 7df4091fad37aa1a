// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Sequentializing a set of parallel register moves.
//
// A move is blocked while some other pending move still needs to read
// a register slot that the move would write.  Unblocked moves are
// emitted in order.  When every remaining move is blocked there is a
// cycle, which is broken by copying the sources that are in the way
// into fresh temporary registers.  Temporaries are never reused
// within one set, so several cycles may have temporaries live at the
// same time.

package regalloc

import (
	"fmt"
	"slices"

	"github.com/s48/backend/ir"
)

type MoveSchedulerT struct {
	tempRegister      int // first temporary
	usedTempRegisters int
	moves             []*RegisterMoveT // in the order added

	// State during Schedule().
	pending   []*RegisterMoveT // blocked
	worklist  []*RegisterMoveT // unblocked, waiting to be emitted
	valueMap  map[int]int      // original source register -> current location
	scheduled []*RegisterMoveT
}

func MakeMoveScheduler(tempRegister int) *MoveSchedulerT {
	return &MoveSchedulerT{tempRegister: tempRegister}
}

// Identical moves are only added once.  Two different moves may not
// write the same register slot.

func (scheduler *MoveSchedulerT) AddMove(move *RegisterMoveT) {
	for _, other := range scheduler.moves {
		if other.Equal(move) {
			return
		}
		if other.DestinationFootprint().Intersects(move.DestinationFootprint()) {
			panic(fmt.Sprintf("moves %s and %s write the same register", other, move))
		}
	}
	slots := move.DestinationFootprint()
	slots.Add(move.SourceFootprint().Members()...)
	for slot := range slots {
		if scheduler.tempRegister <= slot {
			panic(fmt.Sprintf("move %s overlaps temporary register %d", move, scheduler.tempRegister))
		}
	}
	scheduler.moves = append(scheduler.moves, move)
}

func (scheduler *MoveSchedulerT) Empty() bool {
	return len(scheduler.moves) == 0
}

// The number of temporary register slots used by the last call to
// Schedule().
func (scheduler *MoveSchedulerT) UsedTempRegisters() int {
	return scheduler.usedTempRegisters
}

func (scheduler *MoveSchedulerT) Schedule() []*RegisterMoveT {
	scheduler.pending = slices.Clone(scheduler.moves)
	scheduler.valueMap = map[int]int{}
	for _, move := range scheduler.moves {
		if !move.IsConstant() {
			scheduler.valueMap[move.Src] = move.Src
		}
		scheduler.valueMap[move.Dst] = move.Dst
	}
	scheduler.scheduled = nil
	scheduler.usedTempRegisters = 0

	scheduler.worklist = nil
	scheduler.takeUnblocked()
	for len(scheduler.worklist) != 0 || len(scheduler.pending) != 0 {
		for len(scheduler.worklist) != 0 {
			move := scheduler.worklist[0]
			scheduler.worklist = scheduler.worklist[1:]
			scheduler.emit(move)
			scheduler.takeUnblocked()
		}
		if len(scheduler.pending) != 0 {
			move := scheduler.pickMoveToUnblock()
			scheduler.worklist = append(scheduler.worklist, move)
			scheduler.moveSourcesToTemps(move)
		}
	}
	result := scheduler.scheduled
	scheduler.pending = nil
	scheduler.worklist = nil
	scheduler.valueMap = nil
	scheduler.scheduled = nil
	return result
}

// Moves the unblocked pending moves to the end of the worklist, keeping
// their order.

func (scheduler *MoveSchedulerT) takeUnblocked() {
	i := 0
	for i < len(scheduler.pending) {
		move := scheduler.pending[i]
		if scheduler.isBlocked(move) {
			i += 1
		} else {
			scheduler.worklist = append(scheduler.worklist, move)
			scheduler.pending = slices.Delete(scheduler.pending, i, i+1)
		}
	}
}

// True if a move other than 'move' that has not been emitted yet
// reads the same source register and satisfies 'pred'.

func (scheduler *MoveSchedulerT) otherReader(move *RegisterMoveT, pred func(*RegisterMoveT) bool) bool {
	for _, moves := range [][]*RegisterMoveT{scheduler.pending, scheduler.worklist} {
		for _, other := range moves {
			if other != move && !other.IsConstant() && other.Src == move.Src && pred(other) {
				return true
			}
		}
	}
	return false
}

func (scheduler *MoveSchedulerT) isBlocked(move *RegisterMoveT) bool {
	for _, other := range scheduler.pending {
		if other == move || other.IsConstant() {
			continue
		}
		src := scheduler.valueMap[other.Src]
		if move.writes(src) || (other.Type == ir.Wide && move.writes(src+1)) {
			return true
		}
	}
	return false
}

func (scheduler *MoveSchedulerT) emit(move *RegisterMoveT) {
	if move.IsConstant() {
		scheduler.scheduled = append(scheduler.scheduled, MakeConstantMove(move.Dst, move.Definition, move.Type))
		return
	}
	src := scheduler.valueMap[move.Src]
	scheduler.scheduled = append(scheduler.scheduled, MakeRegisterMove(move.Dst, src, move.Type))
	// Later reads of the source can use the copy, unless some unemitted
	// read needs a different number of slots than were copied.
	width := move.Type.RequiredRegisters()
	if !scheduler.otherReader(move, func(other *RegisterMoveT) bool {
		return other.Type.RequiredRegisters() != width
	}) {
		scheduler.valueMap[move.Src] = move.Dst
	}
}

// The first non-wide move, or the last move if they are all wide.

func (scheduler *MoveSchedulerT) pickMoveToUnblock() *RegisterMoveT {
	index := len(scheduler.pending) - 1
	for i, move := range scheduler.pending {
		if move.Type != ir.Wide {
			index = i
			break
		}
	}
	move := scheduler.pending[index]
	scheduler.pending = slices.Delete(scheduler.pending, index, index+1)
	return move
}

// Copies every pending source that overlaps the destination of 'move'
// into temporaries.

func (scheduler *MoveSchedulerT) moveSourcesToTemps(move *RegisterMoveT) {
	dst := move.DestinationFootprint()
	for _, other := range scheduler.pending {
		if other.IsConstant() || !footprint(scheduler.valueMap[other.Src], other.Type).Intersects(dst) {
			continue
		}
		typ := scheduler.sourceType(other)
		temp := scheduler.tempRegister + scheduler.usedTempRegisters
		log.Debugf("unblocking %s: %d <- %d %s", move, temp, scheduler.valueMap[other.Src], typ)
		scheduler.scheduled = append(scheduler.scheduled,
			MakeRegisterMove(temp, scheduler.valueMap[other.Src], typ))
		scheduler.valueMap[other.Src] = temp
		scheduler.usedTempRegisters += typ.RequiredRegisters()
	}
}

// The type of 'move', unless another unemitted move reads the same
// source as a wide value.

func (scheduler *MoveSchedulerT) sourceType(move *RegisterMoveT) ir.MoveTypeT {
	if scheduler.otherReader(move, func(other *RegisterMoveT) bool { return other.Type == ir.Wide }) {
		return ir.Wide
	}
	return move.Type
}

// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Linear scan register allocation.
//
// Values with fixed registers (arguments, explicitly pinned values,
// and the inputs of invoke-range instructions) are placed first.  The
// rest are allocated in order of their start positions.  When no
// register is free the active value that lives longest is split: its
// remainder moves to a spill area above the allocatable registers and
// a move is added at the split point.  The moves at each position are
// then sequentialized by the move scheduler.

package regalloc

import (
	"fmt"
	"slices"

	"github.com/s48/backend/ir"
	"github.com/s48/backend/util"
)

// A register assigned to a value for part or all of its live interval.

type regAllocT struct {
	value    *ir.ValueT
	start    int
	end      int
	register int
	fixed    bool
}

func (alloc *regAllocT) width() int {
	return alloc.value.Type.RequiredRegisters()
}

func (alloc *regAllocT) usesSlot(slot int) bool {
	return alloc.register <= slot && slot < alloc.register+alloc.width()
}

func (alloc *regAllocT) String() string {
	return fmt.Sprintf("%s[%d,%d)=r%d", alloc.value, alloc.start, alloc.end, alloc.register)
}

// The moves at one position: resolution moves for values split there
// and copies into merged values.  They all read the registers as they
// were before the position.

type moveSetT struct {
	moves     []*RegisterMoveT
	scheduled []*RegisterMoveT
}

type LinearScanAllocatorT struct {
	unit   *ir.UnitT
	config *ConfigT

	allocations map[*ir.ValueT][]*regAllocT // in order of position
	fixedRanges map[int]*liveRangeT         // register slot -> when fixed values use it
	fixed       []*regAllocT
	active      []*regAllocT // non-fixed, live at the current position

	moveSets      map[int]*moveSetT
	positions     []int // sorted keys of moveSets
	tempRegister  int   // first move temporary
	registersUsed int
	done          bool
}

func MakeLinearScanAllocator(unit *ir.UnitT, config *ConfigT) *LinearScanAllocatorT {
	if config == nil {
		config = DefaultConfig()
	}
	return &LinearScanAllocatorT{unit: unit, config: config}
}

func (allocator *LinearScanAllocatorT) Unit() *ir.UnitT {
	return allocator.unit
}

func (allocator *LinearScanAllocatorT) fatalf(format string, args ...any) {
	fatalf(allocator.unit.Name, format, args...)
}

func (allocator *LinearScanAllocatorT) AllocateRegisters() (err error) {
	defer catchCompilerError(&err)
	allocator.allocations = map[*ir.ValueT][]*regAllocT{}
	allocator.fixedRanges = map[int]*liveRangeT{}
	allocator.fixed = nil
	allocator.active = nil
	allocator.moveSets = map[int]*moveSetT{}
	allocator.positions = nil
	allocator.tempRegister = 0
	allocator.registersUsed = 0
	allocator.done = false

	allocator.checkIntervals()
	allocator.assignArguments()
	allocator.assignPinnedValues()
	allocator.assignRanges()
	allocator.linearScan()
	allocator.addCopies()
	allocator.scheduleMoves()
	allocator.done = true
	log.Debugf("%s: %d values, %d registers, %d move positions",
		allocator.unit.Name, len(allocator.allocations), allocator.registersUsed, len(allocator.positions))
	return nil
}

func (allocator *LinearScanAllocatorT) checkIntervals() {
	for _, value := range allocator.unit.Values {
		if value.NeedsRegister() && !value.HasLiveInterval() {
			allocator.fatalf("%s has no live interval", value)
		}
	}
}

//----------------------------------------------------------------
// Fixed registers

func (allocator *LinearScanAllocatorT) assignFixed(value *ir.ValueT, register int) {
	width := value.Type.RequiredRegisters()
	if register < 0 || allocator.config.MaxRegisters < register+width {
		allocator.fatalf("%s cannot be fixed to register %d", value, register)
	}
	live := makeLiveRange(value.Start, value.End)
	for slot := register; slot < register+width; slot++ {
		if allocator.fixedRanges[slot].conflicts(live) {
			other := allocator.fixedUser(slot, value)
			allocator.fatalf("%s and %s are both fixed to register %d", other.value, value, slot)
		}
	}
	for slot := register; slot < register+width; slot++ {
		allocator.fixedRanges[slot] = allocator.fixedRanges[slot].union(live)
	}
	alloc := &regAllocT{value: value, start: value.Start, end: value.End, register: register, fixed: true}
	allocator.fixed = append(allocator.fixed, alloc)
	allocator.allocations[value] = []*regAllocT{alloc}
}

func (allocator *LinearScanAllocatorT) fixedUser(slot int, value *ir.ValueT) *regAllocT {
	for _, alloc := range allocator.fixed {
		if alloc.usesSlot(slot) && alloc.start < value.End && value.Start < alloc.end {
			return alloc
		}
	}
	panic("fixed register conflict with no user")
}

// Arguments arrive in consecutive registers starting at zero.

func (allocator *LinearScanAllocatorT) assignArguments() {
	register := 0
	for _, arg := range allocator.unit.Arguments {
		if arg.FixedRegister != ir.NoRegister && arg.FixedRegister != register {
			allocator.fatalf("argument %s is fixed to register %d but arrives in %d",
				arg, arg.FixedRegister, register)
		}
		allocator.assignFixed(arg, register)
		register += arg.Type.RequiredRegisters()
	}
}

func (allocator *LinearScanAllocatorT) assignPinnedValues() {
	for _, value := range allocator.unit.Values {
		if !value.IsArgument && value.FixedRegister != ir.NoRegister && value.NeedsRegister() {
			allocator.assignFixed(value, value.FixedRegister)
		}
	}
}

// The inputs to an invoke-range go in consecutive registers.  We use
// the lowest base register where none of them conflict with values
// that are already fixed.

func (allocator *LinearScanAllocatorT) assignRanges() {
	inRange := map[*ir.ValueT]*ir.InstructionT{}
	for _, instr := range allocator.unit.Instructions {
		if instr.Opcode != ir.InvokeRange || len(instr.Inputs) == 0 {
			continue
		}
		width := 0
		for _, input := range instr.Inputs {
			if other := inRange[input]; other != nil {
				if other == instr {
					allocator.fatalf("%s appears twice in the range of instruction %d", input, instr.Number)
				}
				allocator.fatalf("%s is in the ranges of instructions %d and %d", input, other.Number, instr.Number)
			}
			if input.IsArgument || input.FixedRegister != ir.NoRegister {
				allocator.fatalf("%s in the range of instruction %d already has a fixed register",
					input, instr.Number)
			}
			inRange[input] = instr
			width += input.Type.RequiredRegisters()
		}
		if allocator.config.Registers < width {
			allocator.fatalf("range of instruction %d needs %d registers, only %d are available",
				instr.Number, width, allocator.config.Registers)
		}
		base := allocator.findRangeBase(instr.Inputs, width)
		if base == ir.NoRegister {
			allocator.fatalf("no free register range for instruction %d", instr.Number)
		}
		log.Debugf("%s: range of instruction %d at r%d", allocator.unit.Name, instr.Number, base)
		register := base
		for _, input := range instr.Inputs {
			allocator.assignFixed(input, register)
			register += input.Type.RequiredRegisters()
		}
	}
}

func (allocator *LinearScanAllocatorT) findRangeBase(inputs []*ir.ValueT, width int) int {
	for base := 0; base+width <= allocator.config.Registers; base++ {
		register := base
		okay := true
		for _, input := range inputs {
			live := makeLiveRange(input.Start, input.End)
			for slot := register; slot < register+input.Type.RequiredRegisters(); slot++ {
				if allocator.fixedRanges[slot].conflicts(live) {
					okay = false
				}
			}
			register += input.Type.RequiredRegisters()
		}
		if okay {
			return base
		}
	}
	return ir.NoRegister
}

//----------------------------------------------------------------
// The scan

func (allocator *LinearScanAllocatorT) linearScan() {
	unhandled := util.MakePriorityQueue(func(x *ir.ValueT, y *ir.ValueT) bool {
		if x.Start != y.Start {
			return x.Start < y.Start
		}
		return x.Number < y.Number
	})
	for _, value := range allocator.unit.Values {
		if value.NeedsRegister() && allocator.allocations[value] == nil {
			unhandled.Enqueue(value)
		}
	}
	for !unhandled.Empty() {
		position := unhandled.Peek().Start
		allocator.expire(position)
		for !unhandled.Empty() && unhandled.Peek().Start == position {
			allocator.allocate(unhandled.Dequeue())
		}
	}
}

func (allocator *LinearScanAllocatorT) expire(position int) {
	allocator.active = slices.DeleteFunc(allocator.active, func(alloc *regAllocT) bool {
		return alloc.end <= position
	})
}

func (allocator *LinearScanAllocatorT) allocate(value *ir.ValueT) {
	position := value.Start
	width := value.Type.RequiredRegisters()
	for {
		register := allocator.findFree(0, allocator.config.Registers, width, position, value.End)
		if register != ir.NoRegister {
			allocator.activate(&regAllocT{value: value, start: position, end: value.End, register: register})
			return
		}
		victim := allocator.pickVictim()
		if victim == nil || victim.end <= value.End {
			log.Debugf("%s: spilling %s at %d", allocator.unit.Name, value, position)
			alloc := &regAllocT{value: value, start: position, end: value.End}
			alloc.register = allocator.spillRegister(alloc)
			allocator.activate(alloc)
			return
		}
		allocator.split(victim, position)
	}
}

func (allocator *LinearScanAllocatorT) activate(alloc *regAllocT) {
	allocator.active = append(allocator.active, alloc)
	allocator.allocations[alloc.value] = append(allocator.allocations[alloc.value], alloc)
}

// Returns the lowest register in [low, high) whose 'width' slots are
// not used by an active value or by a fixed value during [start, end).

func (allocator *LinearScanAllocatorT) findFree(low int, high int, width int, start int, end int) int {
	live := makeLiveRange(start, end)
	for register := low; register+width <= high; register++ {
		if allocator.slotsFree(register, width, live) {
			return register
		}
	}
	return ir.NoRegister
}

func (allocator *LinearScanAllocatorT) slotsFree(register int, width int, live *liveRangeT) bool {
	for slot := register; slot < register+width; slot++ {
		if allocator.fixedRanges[slot].conflicts(live) {
			return false
		}
		for _, alloc := range allocator.active {
			if alloc.usesSlot(slot) {
				return false
			}
		}
	}
	return true
}

// The active allocation in the allocatable registers that ends last.
// Ties go to the one that started later and then to the higher value
// number.

func (allocator *LinearScanAllocatorT) pickVictim() *regAllocT {
	var victim *regAllocT
	for _, alloc := range allocator.active {
		if allocator.config.Registers < alloc.register+alloc.width() {
			continue
		}
		if victim == nil ||
			victim.end < alloc.end ||
			(victim.end == alloc.end &&
				(victim.start < alloc.start ||
					(victim.start == alloc.start && victim.value.Number < alloc.value.Number))) {
			victim = alloc
		}
	}
	return victim
}

func (allocator *LinearScanAllocatorT) spillRegister(alloc *regAllocT) int {
	register := allocator.findFree(allocator.config.Registers, allocator.config.MaxRegisters,
		alloc.width(), alloc.start, alloc.end)
	if register == ir.NoRegister {
		allocator.fatalf("out of registers for %s at %d", alloc.value, alloc.start)
	}
	return register
}

// Moves the part of 'victim' from 'position' on into the spill area.

func (allocator *LinearScanAllocatorT) split(victim *regAllocT, position int) {
	allocator.active = slices.DeleteFunc(allocator.active, func(alloc *regAllocT) bool {
		return alloc == victim
	})
	if victim.start == position {
		victim.register = allocator.spillRegister(victim)
		allocator.active = append(allocator.active, victim)
		log.Debugf("%s: evicting %s", allocator.unit.Name, victim)
		return
	}
	tail := &regAllocT{value: victim.value, start: position, end: victim.end}
	victim.end = position
	tail.register = allocator.spillRegister(tail)
	allocator.activate(tail)
	log.Debugf("%s: splitting %s at %d to r%d", allocator.unit.Name, victim.value, position, tail.register)

	var move *RegisterMoveT
	if victim.value.IsConstant() {
		move = MakeConstantMove(tail.register, victim.value.Definition, victim.value.Type)
	} else {
		move = MakeRegisterMove(tail.register, victim.register, victim.value.Type)
	}
	set := allocator.getMoveSet(position)
	set.moves = append(set.moves, move)
}

func (allocator *LinearScanAllocatorT) getMoveSet(position int) *moveSetT {
	set := allocator.moveSets[position]
	if set == nil {
		set = &moveSetT{}
		allocator.moveSets[position] = set
		index, _ := slices.BinarySearch(allocator.positions, position)
		allocator.positions = slices.Insert(allocator.positions, index, position)
	}
	return set
}

//----------------------------------------------------------------
// Moves

// A copy reads its source as it was just before the copy's position,
// so the source may die there and give its register to the
// destination.

func (allocator *LinearScanAllocatorT) addCopies() {
	written := map[int]util.SetT[*ir.ValueT]{}
	for _, copy := range allocator.unit.Copies {
		if !copy.To.LiveAt(copy.At) {
			allocator.fatalf("copy at %d: destination %s is not live", copy.At, copy.To)
		}
		if copy.From.Type.RequiredRegisters() != copy.To.Type.RequiredRegisters() {
			allocator.fatalf("copy at %d: %s and %s have different widths", copy.At, copy.From, copy.To)
		}
		if written[copy.At] == nil {
			written[copy.At] = util.NewSet[*ir.ValueT]()
		}
		if written[copy.At].Contains(copy.To) {
			allocator.fatalf("copy at %d: %s is written twice", copy.At, copy.To)
		}
		written[copy.At].Add(copy.To)

		dst := allocator.registerAt(copy.To, copy.At)
		var move *RegisterMoveT
		if copy.From.NeedsRegister() {
			if !copy.From.LiveAt(copy.At - 1) {
				allocator.fatalf("copy at %d: source %s is not live", copy.At, copy.From)
			}
			src := allocator.registerAt(copy.From, copy.At-1)
			if src == dst {
				continue
			}
			move = MakeRegisterMove(dst, src, copy.To.Type)
		} else {
			move = MakeConstantMove(dst, copy.From.Definition, copy.To.Type)
		}
		set := allocator.getMoveSet(copy.At)
		set.moves = append(set.moves, move)
	}
}

// Temporaries go above every assigned register.

func (allocator *LinearScanAllocatorT) scheduleMoves() {
	tempRegister := 0
	for _, allocs := range allocator.allocations {
		for _, alloc := range allocs {
			tempRegister = max(tempRegister, alloc.register+alloc.width())
		}
	}
	allocator.tempRegister = tempRegister
	used := tempRegister
	for _, position := range allocator.positions {
		set := allocator.moveSets[position]
		scheduler := MakeMoveScheduler(tempRegister)
		for _, move := range set.moves {
			scheduler.AddMove(move)
		}
		set.scheduled = scheduler.Schedule()
		used = max(used, tempRegister+scheduler.UsedTempRegisters())
	}
	if allocator.config.MaxRegisters < used {
		allocator.fatalf("needs %d registers, the limit is %d", used, allocator.config.MaxRegisters)
	}
	allocator.registersUsed = used
}

//----------------------------------------------------------------
// Queries

func (allocator *LinearScanAllocatorT) checkDone() {
	if !allocator.done {
		panic(fmt.Sprintf("%s: registers have not been allocated", allocator.unit.Name))
	}
}

func (allocator *LinearScanAllocatorT) registerAt(value *ir.ValueT, position int) int {
	for _, alloc := range allocator.allocations[value] {
		if alloc.start <= position && position < alloc.end {
			return alloc.register
		}
	}
	allocator.fatalf("%s has no register at %d", value, position)
	return ir.NoRegister
}

func (allocator *LinearScanAllocatorT) RegistersUsed() int {
	allocator.checkDone()
	return allocator.registersUsed
}

func (allocator *LinearScanAllocatorT) RegisterForValue(value *ir.ValueT, instructionNumber int) int {
	allocator.checkDone()
	for _, alloc := range allocator.allocations[value] {
		if alloc.start <= instructionNumber && instructionNumber < alloc.end {
			return alloc.register
		}
	}
	panic(fmt.Sprintf("%s: %s has no register at %d", allocator.unit.Name, value, instructionNumber))
}

func (allocator *LinearScanAllocatorT) ArgumentValueUsesHighRegister(value *ir.ValueT, instructionNumber int) bool {
	register := allocator.RegisterForValue(value, instructionNumber)
	return allocator.config.HighRegisterThreshold < register+value.Type.RequiredRegisters()-1
}

// Positions that have moves, in increasing order.
func (allocator *LinearScanAllocatorT) MovePositions() []int {
	allocator.checkDone()
	return slices.Clone(allocator.positions)
}

// The sequential moves to execute before the instruction at
// 'position'.
func (allocator *LinearScanAllocatorT) ScheduledMoves(position int) []*RegisterMoveT {
	allocator.checkDone()
	set := allocator.moveSets[position]
	if set == nil {
		return nil
	}
	return set.scheduled
}

// A register held by a value over part of its live interval.

type LiveRegisterT struct {
	Start    int `cbor:"1,keyasint"`
	End      int `cbor:"2,keyasint"`
	Register int `cbor:"3,keyasint"`
}

func (allocator *LinearScanAllocatorT) LiveRegisters(value *ir.ValueT) []LiveRegisterT {
	allocator.checkDone()
	result := []LiveRegisterT{}
	for _, alloc := range allocator.allocations[value] {
		result = append(result, LiveRegisterT{alloc.start, alloc.end, alloc.register})
	}
	return result
}

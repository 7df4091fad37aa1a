// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// A compilation unit: one method body ready for register allocation.

package ir

import (
	"fmt"
	"slices"
)

// A value copy at a control-flow merge point.  'To' receives the value
// 'From' had just before position 'At', so 'From' need only be live
// up to 'At'.

type CopyT struct {
	At   int
	From *ValueT
	To   *ValueT
}

type UnitT struct {
	Name         string
	Arguments    []*ValueT
	Instructions []*InstructionT
	Values       []*ValueT // every value, sorted by Number
	Copies       []*CopyT
}

func MakeUnit(name string) *UnitT {
	return &UnitT{Name: name}
}

func (unit *UnitT) AddValue(value *ValueT) {
	for _, other := range unit.Values {
		if other.Number == value.Number {
			panic(fmt.Sprintf("%s: value number %d used twice", unit.Name, value.Number))
		}
	}
	unit.Values = append(unit.Values, value)
	slices.SortFunc(unit.Values, func(x *ValueT, y *ValueT) int {
		return x.Number - y.Number
	})
}

func (unit *UnitT) AddArgument(value *ValueT) {
	value.IsArgument = true
	unit.Arguments = append(unit.Arguments, value)
	unit.AddValue(value)
}

func (unit *UnitT) AddInstruction(instr *InstructionT) {
	if len(unit.Instructions) != 0 {
		last := unit.Instructions[len(unit.Instructions)-1]
		if instr.Number <= last.Number {
			panic(fmt.Sprintf("%s: instruction %d follows instruction %d", unit.Name, instr.Number, last.Number))
		}
	} else if instr.Number <= 0 {
		panic(fmt.Sprintf("%s: instruction number %d is not positive", unit.Name, instr.Number))
	}
	unit.Instructions = append(unit.Instructions, instr)
}

func (unit *UnitT) AddCopy(at int, from *ValueT, to *ValueT) {
	unit.Copies = append(unit.Copies, &CopyT{At: at, From: from, To: to})
}

func (unit *UnitT) Value(number int) *ValueT {
	i, found := slices.BinarySearchFunc(unit.Values, number, func(value *ValueT, n int) int {
		return value.Number - n
	})
	if !found {
		return nil
	}
	return unit.Values[i]
}

// Fills in live intervals for values that do not have one.  Arguments
// are live from position zero, other values from their definition or
// the copy that defines them.  A value is live through its last use
// and up to the last copy that reads it.

func (unit *UnitT) ComputeLiveIntervals() {
	starts := map[*ValueT]int{}
	ends := map[*ValueT]int{}
	extend := func(value *ValueT, position int) {
		end, found := ends[value]
		if !found || end < position+1 {
			ends[value] = position + 1
		}
	}
	begin := func(value *ValueT, position int) {
		start, found := starts[value]
		if !found || position < start {
			starts[value] = position
		}
		extend(value, position)
	}
	for _, arg := range unit.Arguments {
		begin(arg, 0)
	}
	for _, instr := range unit.Instructions {
		if instr.Out != nil {
			begin(instr.Out, instr.Number)
		}
		for _, input := range instr.Inputs {
			extend(input, instr.Number)
		}
	}
	for _, copy := range unit.Copies {
		extend(copy.From, copy.At-1)
		begin(copy.To, copy.At)
	}
	for _, value := range unit.Values {
		if value.HasLiveInterval() {
			continue
		}
		start, found := starts[value]
		if !found {
			panic(fmt.Sprintf("%s: %s is never defined", unit.Name, value))
		}
		value.SetLiveInterval(start, ends[value])
	}
}

// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Pretty-printer for allocated units.  Instructions are shown with
// their registers and literals in place of values, preceded by the
// moves done before them.

package regalloc

import (
	"fmt"
	"io"
	"strings"

	"github.com/s48/backend/ir"
)

func PpAllocation(allocator *LinearScanAllocatorT, out io.Writer) {
	allocator.checkDone()
	writer := MakePpWriter(out)
	unit := allocator.unit
	fmt.Fprintf(writer, "(unit %s registers %d", unit.Name, allocator.registersUsed)
	if len(unit.Arguments) != 0 {
		writer.Newline()
		writer.IndentTo(2)
		fmt.Fprintf(writer, "(arguments")
		for _, arg := range unit.Arguments {
			fmt.Fprintf(writer, " %s=r%d", arg, allocator.RegisterForValue(arg, arg.Start))
		}
		fmt.Fprintf(writer, ")")
	}
	positions := allocator.positions
	for _, instr := range unit.Instructions {
		for len(positions) != 0 && positions[0] <= instr.Number {
			ppMoves(positions[0], allocator.moveSets[positions[0]].scheduled, writer)
			positions = positions[1:]
		}
		ppInstruction(instr, allocator, writer)
	}
	for _, position := range positions {
		ppMoves(position, allocator.moveSets[position].scheduled, writer)
	}
	for _, value := range unit.Values {
		if !value.NeedsRegister() {
			continue
		}
		writer.Newline()
		writer.IndentTo(2)
		fmt.Fprintf(writer, "(%s %s", value, value.Type)
		writer.IndentTo(24)
		for _, alloc := range allocator.allocations[value] {
			fmt.Fprintf(writer, " [%d,%d)=r%d", alloc.start, alloc.end, alloc.register)
		}
		fmt.Fprintf(writer, ")")
	}
	fmt.Fprintf(writer, ")")
	writer.Newline()
}

func ppMoves(position int, moves []*RegisterMoveT, writer *PpWriterT) {
	for _, move := range moves {
		writer.Newline()
		writer.IndentTo(2)
		fmt.Fprintf(writer, "%d", position)
		writer.IndentTo(8)
		fmt.Fprintf(writer, "(move-%s r%d ", move.Type, move.Dst)
		if move.IsConstant() {
			fmt.Fprintf(writer, "'%s)", move.Definition.Literal.ExactString())
		} else {
			fmt.Fprintf(writer, "r%d)", move.Src)
		}
	}
}

func ppInstruction(instr *ir.InstructionT, allocator RegisterAllocatorT, writer *PpWriterT) {
	writer.Newline()
	writer.IndentTo(2)
	fmt.Fprintf(writer, "%d", instr.Number)
	writer.IndentTo(8)
	fmt.Fprintf(writer, "%s", InstructionString(instr, allocator))
}

// An instruction with registers and literals in place of its values.

func InstructionString(instr *ir.InstructionT, allocator RegisterAllocatorT) string {
	buf := new(strings.Builder)
	fmt.Fprintf(buf, "(%s", instr.OpcodeName())
	if instr.Out == nil || !instr.Out.NeedsRegister() {
		fmt.Fprintf(buf, " ()")
	} else {
		fmt.Fprintf(buf, " %s", valueOperand(instr.Out, instr, allocator))
	}
	if instr.Literal != nil {
		fmt.Fprintf(buf, " '%s", instr.Literal.ExactString())
	}
	if instr.Method != "" {
		fmt.Fprintf(buf, " %s", instr.Method)
	}
	for _, input := range instr.Inputs {
		fmt.Fprintf(buf, " %s", valueOperand(input, instr, allocator))
	}
	fmt.Fprintf(buf, ")")
	return buf.String()
}

func valueOperand(value *ir.ValueT, instr *ir.InstructionT, allocator RegisterAllocatorT) string {
	if value.NeedsRegister() {
		return fmt.Sprintf("r%d", allocator.RegisterForValue(value, instr.Number))
	}
	return "'" + value.Definition.Literal.ExactString()
}

//----------------------------------------------------------------
// An io.Writer that keeps track of the current column.

type PpWriterT struct {
	writer io.Writer
	Column int
}

func MakePpWriter(writer io.Writer) *PpWriterT {
	return &PpWriterT{writer: writer, Column: 0}
}

func (writer *PpWriterT) Write(p []byte) (n int, err error) {
	for _, b := range p {
		if b == '\n' {
			writer.Column = 0
		} else {
			writer.Column += 1
		}
	}
	return writer.writer.Write(p)
}

func (writer *PpWriterT) Newline() {
	writer.Column = 0
	writer.writer.Write([]byte("\n"))
}

func (writer *PpWriterT) IndentTo(column int) {
	if writer.Column == column {
		return
	}
	count := column
	if writer.Column < column {
		count -= writer.Column
	} else {
		writer.Newline()
	}
	writer.writer.Write([]byte(strings.Repeat(" ", count)))
	writer.Column += count
}

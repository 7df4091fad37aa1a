// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"fmt"

	"github.com/s48/backend/ir"
	"github.com/s48/backend/util"
)

// A register to register move.  A move that reloads a constant has a
// Definition and no source register.

type RegisterMoveT struct {
	Dst        int
	Src        int
	Type       ir.MoveTypeT
	Definition *ir.InstructionT
}

func MakeRegisterMove(dst int, src int, typ ir.MoveTypeT) *RegisterMoveT {
	return &RegisterMoveT{Dst: dst, Src: src, Type: typ}
}

func MakeConstantMove(dst int, definition *ir.InstructionT, typ ir.MoveTypeT) *RegisterMoveT {
	if definition == nil || definition.Opcode != ir.Const {
		panic("constant move without a constant definition")
	}
	return &RegisterMoveT{Dst: dst, Src: ir.NoRegister, Type: typ, Definition: definition}
}

func (move *RegisterMoveT) IsConstant() bool {
	return move.Src == ir.NoRegister
}

func (move *RegisterMoveT) Equal(other *RegisterMoveT) bool {
	return move.Dst == other.Dst &&
		move.Src == other.Src &&
		move.Type == other.Type &&
		move.Definition == other.Definition
}

func footprint(register int, typ ir.MoveTypeT) util.SetT[int] {
	result := util.NewSet(register)
	if typ == ir.Wide {
		result.Add(register + 1)
	}
	return result
}

// The register slots read by the move.  Empty for constants.
func (move *RegisterMoveT) SourceFootprint() util.SetT[int] {
	if move.IsConstant() {
		return util.NewSet[int]()
	}
	return footprint(move.Src, move.Type)
}

func (move *RegisterMoveT) DestinationFootprint() util.SetT[int] {
	return footprint(move.Dst, move.Type)
}

// True if writing 'register' clobbers part of the destination.
func (move *RegisterMoveT) writes(register int) bool {
	return register == move.Dst || (move.Type == ir.Wide && register == move.Dst+1)
}

func (move *RegisterMoveT) String() string {
	if move.IsConstant() {
		return fmt.Sprintf("%d <- %s %s", move.Dst, move.Definition.Literal.ExactString(), move.Type)
	}
	return fmt.Sprintf("%d <- %d %s", move.Dst, move.Src, move.Type)
}

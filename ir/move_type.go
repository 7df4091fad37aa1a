// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ir

import (
	"fmt"
)

// The width class of a value.  WIDE values (longs and doubles) occupy
// two consecutive registers r and r+1.

type MoveTypeT int

const (
	Single MoveTypeT = iota
	Wide
	Object
)

var moveTypeNames = []string{"single", "wide", "object"}

func (typ MoveTypeT) String() string {
	if typ < 0 || int(typ) >= len(moveTypeNames) {
		return fmt.Sprintf("movetype%d", int(typ))
	}
	return moveTypeNames[typ]
}

func (typ MoveTypeT) RequiredRegisters() int {
	if typ == Wide {
		return 2
	}
	return 1
}

func ParseMoveType(name string) (MoveTypeT, bool) {
	for i, typeName := range moveTypeNames {
		if typeName == name {
			return MoveTypeT(i), true
		}
	}
	return Single, false
}

// Maps the first character of a type descriptor to its move type.

func MoveTypeFromDescriptor(c byte) MoveTypeT {
	switch c {
	case 'L', '[':
		return Object
	case 'Z', 'B', 'S', 'C', 'I', 'F':
		return Single
	case 'J', 'D':
		return Wide
	case 'V':
		panic("void type has no move type")
	}
	panic(fmt.Sprintf("unexpected type descriptor character '%c'", c))
}

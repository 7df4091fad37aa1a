// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package ir

import (
	"go/constant"
	"testing"
)

func TestMoveTypeFromDescriptor(t *testing.T) {
	tests := []struct {
		descriptor string
		want       MoveTypeT
	}{
		{"Ljava/lang/Object;", Object},
		{"[I", Object},
		{"Z", Single},
		{"B", Single},
		{"S", Single},
		{"C", Single},
		{"I", Single},
		{"F", Single},
		{"J", Wide},
		{"D", Wide},
	}
	for _, test := range tests {
		if got := MoveTypeFromDescriptor(test.descriptor[0]); got != test.want {
			t.Errorf("MoveTypeFromDescriptor(%q) = %s, want %s", test.descriptor, got, test.want)
		}
	}
}

func TestMoveTypeFromVoidPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for 'V'")
		}
	}()
	MoveTypeFromDescriptor('V')
}

func TestRequiredRegisters(t *testing.T) {
	if Single.RequiredRegisters() != 1 || Object.RequiredRegisters() != 1 || Wide.RequiredRegisters() != 2 {
		t.Error("wrong register counts")
	}
}

func constValue(number int, n int64) *ValueT {
	value := MakeValue(number, "", Single)
	MakeConst(number*2+2, value, constant.MakeInt64(n))
	return value
}

func TestNeedsRegister(t *testing.T) {
	small := constValue(0, 7)
	large := constValue(1, 1<<20)
	shiftCount := constValue(2, 200)
	x := MakeValue(3, "x", Single)
	out := MakeValue(4, "", Single)
	MakeBinop(10, Add, Int, out, x, small)
	MakeBinop(12, Add, Int, MakeValue(5, "", Single), x, large)
	MakeBinop(14, Shl, Int, MakeValue(6, "", Single), x, shiftCount)

	if !x.NeedsRegister() {
		t.Error("non-constant does not need a register")
	}
	if small.NeedsRegister() {
		t.Error("small right operand needs a register")
	}
	if !large.NeedsRegister() {
		t.Error("constant too large for lit16 does not need a register")
	}
	if !shiftCount.NeedsRegister() {
		t.Error("shift count too large for lit8 does not need a register")
	}
}

func TestLeftOperandNeedsRegister(t *testing.T) {
	zero := constValue(0, 0)
	one := constValue(1, 1)
	MakeBinop(10, Add, Int, MakeValue(2, "", Single), zero, one)
	if !zero.NeedsRegister() {
		t.Error("left operand does not need a register")
	}
	if one.NeedsRegister() {
		t.Error("right operand needs a register")
	}
}

func TestReverseSubtract(t *testing.T) {
	minuend := constValue(0, 10)
	x := MakeValue(1, "x", Single)
	subtrahend := constValue(2, 3)
	MakeBinop(10, Sub, Int, MakeValue(3, "", Single), minuend, x)
	if minuend.NeedsRegister() {
		t.Error("constant minuend needs a register")
	}
	MakeBinop(12, Sub, Int, MakeValue(4, "", Single), x, subtrahend)
	if !subtrahend.NeedsRegister() {
		t.Error("subtrahend does not need a register")
	}
}

func TestLongConstantsNeedRegisters(t *testing.T) {
	small := MakeValue(0, "", Wide)
	MakeConst(2, small, constant.MakeInt64(1))
	x := MakeValue(1, "x", Wide)
	MakeBinop(4, Add, Long, MakeValue(2, "", Wide), x, small)
	if !small.NeedsRegister() {
		t.Error("long constant operand does not need a register")
	}
}

func TestComputeLiveIntervals(t *testing.T) {
	unit := MakeUnit("intervals")
	a := MakeValue(0, "a", Single)
	b := MakeValue(1, "b", Single)
	c := MakeValue(2, "c", Single)
	d := MakeValue(3, "d", Single)
	unit.AddArgument(a)
	unit.AddValue(b)
	unit.AddValue(c)
	unit.AddValue(d)
	unit.AddInstruction(MakeBinop(2, Add, Int, b, a, a))
	unit.AddInstruction(MakeBinop(4, Mul, Int, c, b, b))
	unit.AddCopy(6, c, d)
	unit.AddInstruction(MakeInstruction(8, Return, nil, d))
	unit.ComputeLiveIntervals()

	want := map[*ValueT][2]int{a: {0, 3}, b: {2, 5}, c: {4, 6}, d: {6, 9}}
	for value, interval := range want {
		if value.Start != interval[0] || value.End != interval[1] {
			t.Errorf("%s live [%d, %d), want [%d, %d)", value, value.Start, value.End, interval[0], interval[1])
		}
	}
	if unit.Value(2) != c || unit.Value(7) != nil {
		t.Error("value lookup failed")
	}
	if !a.Overlaps(b) || a.Overlaps(d) || !c.LiveAt(5) || c.LiveAt(6) {
		t.Error("wrong overlaps")
	}
}

func TestIdenticalNonValueParts(t *testing.T) {
	x := MakeConst(2, MakeValue(0, "", Single), constant.MakeInt64(1))
	y := MakeConst(4, MakeValue(1, "", Single), constant.MakeInt64(1))
	z := MakeConst(6, MakeValue(2, "", Single), constant.MakeInt64(2))
	if !x.IdenticalNonValueParts(y) {
		t.Error("equal constants differ")
	}
	if x.IdenticalNonValueParts(z) {
		t.Error("different constants are identical")
	}
	f := MakeConst(8, MakeValue(3, "", Single), constant.MakeFloat64(1))
	if x.IdenticalNonValueParts(f) {
		t.Error("int and float constants are identical")
	}
}

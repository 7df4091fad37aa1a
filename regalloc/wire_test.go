// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"go/constant"
	"reflect"
	"strings"
	"testing"

	"github.com/s48/backend/ir"
)

func TestAssignment(t *testing.T) {
	unit := ir.MakeUnit("wire")
	a := ir.MakeValue(0, "a", ir.Single)
	k := ir.MakeValue(1, "k", ir.Single)
	b := ir.MakeValue(2, "b", ir.Wide)
	c := ir.MakeValue(3, "c", ir.Single)
	d := ir.MakeValue(4, "d", ir.Single)
	unit.AddArgument(a)
	for _, value := range []*ir.ValueT{k, b, c, d} {
		unit.AddValue(value)
	}
	unit.AddInstruction(ir.MakeConst(2, k, constant.MakeInt64(70000)))
	a.SetLiveInterval(0, 29)
	k.SetLiveInterval(2, 30)
	b.SetLiveInterval(4, 10)
	c.SetLiveInterval(4, 6)
	d.SetLiveInterval(28, 29)
	// k is a left operand so it needs a register.
	unit.AddInstruction(ir.MakeBinop(28, ir.Add, ir.Int, d, k, a))

	allocator := allocate(t, unit, smallConfig(3))
	assignment := allocator.Assignment()
	if len(assignment.Moves) != 1 || assignment.Moves[0].Position != 4 {
		t.Fatalf("unexpected moves %+v", assignment.Moves)
	}
	wantMove := WireMoveT{Dst: 3, Src: -1, Type: "single", Constant: "70000"}
	if got := assignment.Moves[0].Moves; len(got) != 1 || got[0] != wantMove {
		t.Errorf("got moves %+v, want %+v", got, wantMove)
	}

	data, err := MarshalAssignment(assignment)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalAssignment(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(assignment, decoded) {
		t.Errorf("decoded %+v, want %+v", decoded, assignment)
	}
}

func TestUnmarshalChecksTypes(t *testing.T) {
	data, err := MarshalAssignment(&AssignmentT{
		Unit:   "bad",
		Values: []ValueRegistersT{{Value: 0, Type: "quad", Registers: []LiveRegisterT{{0, 4, 0}}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalAssignment(data); err == nil || !strings.Contains(err.Error(), `unknown type "quad"`) {
		t.Errorf("got %v", err)
	}
	if _, err := UnmarshalAssignment([]byte{0xff}); err == nil {
		t.Error("no error for garbage")
	}
}

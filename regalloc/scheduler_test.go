// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"go/constant"
	"math/rand"
	"slices"
	"testing"

	"github.com/s48/backend/ir"
)

const testTempRegister = 42

func single(dst int, src int) *RegisterMoveT { return MakeRegisterMove(dst, src, ir.Single) }
func wide(dst int, src int) *RegisterMoveT   { return MakeRegisterMove(dst, src, ir.Wide) }
func object(dst int, src int) *RegisterMoveT { return MakeRegisterMove(dst, src, ir.Object) }

func schedule(moves ...*RegisterMoveT) (*MoveSchedulerT, []*RegisterMoveT) {
	scheduler := MakeMoveScheduler(testTempRegister)
	for _, move := range moves {
		scheduler.AddMove(move)
	}
	return scheduler, scheduler.Schedule()
}

func moveStrings(moves []*RegisterMoveT) []string {
	result := []string{}
	for _, move := range moves {
		result = append(result, move.String())
	}
	return result
}

func TestScheduleMoves(t *testing.T) {
	tests := []struct {
		name  string
		moves []*RegisterMoveT
		want  []string
		temps int
	}{
		{"swap",
			[]*RegisterMoveT{single(0, 1), single(1, 0)},
			[]string{"42 <- 0 single", "0 <- 1 single", "1 <- 42 single"},
			1},
		{"wide swap",
			[]*RegisterMoveT{wide(0, 2), wide(2, 0)},
			[]string{"42 <- 2 wide", "2 <- 0 wide", "0 <- 42 wide"},
			2},
		{"mixed",
			[]*RegisterMoveT{wide(1, 0), single(0, 1)},
			[]string{"42 <- 0 wide", "0 <- 1 single", "1 <- 42 wide"},
			2},
		{"mixed reversed",
			[]*RegisterMoveT{single(0, 1), wide(1, 0)},
			[]string{"42 <- 0 wide", "0 <- 1 single", "1 <- 42 wide"},
			2},
		{"slide",
			[]*RegisterMoveT{wide(0, 1), wide(2, 3)},
			[]string{"0 <- 1 wide", "2 <- 3 wide"},
			0},
		{"crossed slide",
			[]*RegisterMoveT{wide(2, 1), wide(0, 3)},
			[]string{"42 <- 1 wide", "0 <- 3 wide", "2 <- 42 wide"},
			2},
		{"wide blocked by two singles",
			[]*RegisterMoveT{wide(2, 0), single(0, 2), single(1, 3)},
			[]string{"42 <- 0 wide", "0 <- 2 single", "1 <- 3 single", "2 <- 42 wide"},
			2},
		{"single blocked by the high half of a wide",
			[]*RegisterMoveT{wide(0, 2), single(3, 0)},
			[]string{"42 <- 2 wide", "3 <- 0 single", "0 <- 42 wide"},
			2},
		{"multiple wide moves",
			[]*RegisterMoveT{wide(14, 11), wide(16, 13), wide(10, 17), wide(12, 19)},
			[]string{"42 <- 11 wide", "44 <- 13 wide", "12 <- 19 wide",
				"14 <- 42 wide", "10 <- 17 wide", "16 <- 44 wide"},
			4},
		{"multiple live temporaries",
			[]*RegisterMoveT{single(26, 22), wide(29, 24), object(28, 26), wide(23, 28)},
			[]string{"42 <- 26 object", "26 <- 22 single", "43 <- 28 wide",
				"28 <- 42 object", "29 <- 24 wide", "23 <- 43 wide"},
			3},
		{"shared source at two widths",
			[]*RegisterMoveT{object(7, 4), wide(8, 4)},
			[]string{"7 <- 4 object", "8 <- 4 wide"},
			0},
		{"shared source at two widths reversed",
			[]*RegisterMoveT{wide(8, 4), object(7, 4)},
			[]string{"8 <- 4 wide", "7 <- 4 object"},
			0},
		{"shared source overwritten",
			[]*RegisterMoveT{single(5, 2), wide(8, 2), single(2, 0)},
			[]string{"5 <- 2 single", "8 <- 2 wide", "2 <- 0 single"},
			0},
		{"chain",
			[]*RegisterMoveT{single(1, 0), single(2, 1), single(3, 2)},
			[]string{"3 <- 2 single", "2 <- 1 single", "1 <- 0 single"},
			0},
		{"cycle of four",
			[]*RegisterMoveT{single(0, 1), single(1, 2), single(2, 3), single(3, 0)},
			[]string{"42 <- 0 single", "0 <- 1 single", "1 <- 2 single", "2 <- 3 single", "3 <- 42 single"},
			1},
	}
	for _, test := range tests {
		scheduler, got := schedule(test.moves...)
		if !slices.Equal(moveStrings(got), test.want) {
			t.Errorf("%s: got %v, want %v", test.name, moveStrings(got), test.want)
		}
		if scheduler.UsedTempRegisters() != test.temps {
			t.Errorf("%s: used %d temporaries, want %d", test.name, scheduler.UsedTempRegisters(), test.temps)
		}
		if err := VerifySchedule(test.moves, got, testTempRegister); err != nil {
			t.Errorf("%s: %s", test.name, err)
		}
	}
}

func TestDuplicateMovesAreIgnored(t *testing.T) {
	_, got := schedule(single(0, 1), single(0, 1), single(1, 0))
	if len(got) != 3 {
		t.Errorf("got %v", moveStrings(got))
	}
}

func TestOverlappingDestinationsPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for two moves writing register 1")
		}
	}()
	schedule(wide(0, 4), single(1, 6))
}

func TestConstantMoves(t *testing.T) {
	five := ir.MakeConst(2, ir.MakeValue(0, "", ir.Single), constant.MakeInt64(5))
	moves := []*RegisterMoveT{MakeConstantMove(0, five, ir.Single), single(1, 0)}
	scheduler, got := schedule(moves...)
	want := []string{"1 <- 0 single", "0 <- 5 single"}
	if !slices.Equal(moveStrings(got), want) {
		t.Errorf("got %v, want %v", moveStrings(got), want)
	}
	if scheduler.UsedTempRegisters() != 0 {
		t.Errorf("used %d temporaries", scheduler.UsedTempRegisters())
	}
	if err := VerifySchedule(moves, got, testTempRegister); err != nil {
		t.Error(err)
	}
}

func TestScheduleIsRepeatable(t *testing.T) {
	scheduler, first := schedule(wide(14, 11), wide(16, 13), wide(10, 17), wide(12, 19), single(0, 1), single(1, 0))
	second := scheduler.Schedule()
	if !slices.Equal(moveStrings(first), moveStrings(second)) {
		t.Errorf("%v and %v differ", moveStrings(first), moveStrings(second))
	}
}

// Random parallel move sets over a small register file, checked by
// simulation.

func randomMoves(random *rand.Rand, registers int) []*RegisterMoveT {
	written := map[int]bool{}
	moves := []*RegisterMoveT{}
	for range random.Intn(registers) + 1 {
		typ := []ir.MoveTypeT{ir.Single, ir.Wide, ir.Object}[random.Intn(3)]
		width := typ.RequiredRegisters()
		dst := random.Intn(registers - width + 1)
		src := random.Intn(registers - width + 1)
		if dst == src || written[dst] || written[dst+width-1] {
			continue
		}
		written[dst] = true
		written[dst+width-1] = true
		moves = append(moves, MakeRegisterMove(dst, src, typ))
	}
	return moves
}

func TestRandomSchedules(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	for i := range 2000 {
		moves := randomMoves(random, 12)
		scheduler, got := schedule(moves...)
		if err := VerifySchedule(moves, got, testTempRegister); err != nil {
			t.Fatalf("set %d %v scheduled as %v: %s", i, moveStrings(moves), moveStrings(got), err)
		}
		if again := scheduler.Schedule(); !slices.Equal(moveStrings(got), moveStrings(again)) {
			t.Fatalf("set %d scheduled differently the second time", i)
		}
	}
}

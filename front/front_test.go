// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package front

import (
	"strings"
	"testing"

	"github.com/s48/backend/ir"
	"github.com/s48/backend/regalloc"
)

func TestFixtures(t *testing.T) {
	fixtures, err := LoadDirectory("testdata")
	if err != nil {
		t.Fatal(err)
	}
	if len(fixtures) == 0 {
		t.Fatal("no fixtures")
	}
	for _, fixture := range fixtures {
		got, _, err := fixture.Run()
		if err != nil {
			t.Errorf("%s: %s", fixture.Name, err)
			continue
		}
		if got != fixture.Want {
			t.Errorf("%s: got\n%s\nwant\n%s", fixture.Name, got, fixture.Want)
		}
	}
}

func TestConvertUnit(t *testing.T) {
	fixture, err := ParseArchive("convert", []byte(`-- unit --
(unit convert
  (arguments (a wide) (b object))
  (instructions
    (2 const (k single) 2.5)
    (4 sub-long (c wide) a a)
    (6 invoke Foo.baz (d single) b k)
    (8 return () d))
  (fixed (d 7))
  (copies (8 b (e object)))
  (intervals (x single 3 4)))
`))
	if err != nil {
		t.Fatal(err)
	}
	unit := fixture.Unit
	if unit.Name != "convert" || len(unit.Arguments) != 2 || len(unit.Instructions) != 4 || len(unit.Values) != 7 {
		t.Fatalf("unit has %d arguments, %d instructions and %d values",
			len(unit.Arguments), len(unit.Instructions), len(unit.Values))
	}
	names := []string{"a", "b", "k", "c", "d", "e", "x"}
	for i, value := range unit.Values {
		if value.Name != names[i] || value.Number != i {
			t.Errorf("value %d is %s", i, value)
		}
	}
	sub := unit.Instructions[1]
	if sub.Opcode != ir.Sub || sub.NumericType != ir.Long || sub.OpcodeName() != "sub-long" {
		t.Errorf("got %s", sub)
	}
	call := unit.Instructions[2]
	if call.Method != "Foo.baz" || call.Out != unit.Value(4) || len(call.Inputs) != 2 {
		t.Errorf("got %s", call)
	}
	if unit.Value(4).FixedRegister != 7 {
		t.Error("fixed register is missing")
	}
	want := map[string][2]int{"a": {0, 5}, "b": {0, 8}, "c": {4, 5}, "d": {6, 9}, "e": {8, 9}, "x": {3, 4}}
	for _, value := range unit.Values {
		if interval, found := want[value.Name]; found && (value.Start != interval[0] || value.End != interval[1]) {
			t.Errorf("%s live [%d, %d), want %v", value, value.Start, value.End, interval)
		}
	}
	if !unit.Value(0).IsArgument || unit.Value(3).IsArgument {
		t.Error("wrong arguments")
	}
}

func TestArchiveErrors(t *testing.T) {
	tests := []struct {
		archive string
		message string
	}{
		{"-- want --\nx\n", "no unit or moves"},
		{"-- other --\n", "unknown section"},
		{"-- moves --\n(moves)\n-- moves --\n(moves)\n", "duplicate section"},
		{"-- moves --\n(moves (0 1 quad))\n", "unknown move type"},
		{"-- moves --\n(moves (0 1 wide) (1 4 single))\n", "two moves write register 1"},
		{"-- moves --\n(moves (3 4 single) (2 0 wide))\n", "two moves write register 3"},
		{"-- moves --\n(moves (0 1 single)\n", "unterminated list"},
		{"-- config.toml --\nregisters = 1\n-- moves --\n(moves)\n", "at least 2"},
		{"-- unit --\n(unit u (arguments (a single)) (bogus))\n", "unknown unit clause"},
		{"-- unit --\n(unit u (instructions (2 frob-int (a single) b c)))\n", "unknown opcode 'frob-int'"},
		{"-- unit --\n(unit u (instructions (2 add-int (a single) b c)))\n", "undefined value 'b'"},
		{"-- unit --\n(unit u (arguments (a single))\n  (instructions (2 const (a single) 1)))\n", "'a' is defined twice"},
		{"-- unit --\n(unit u (instructions (4 const (a single) 1) (2 const (b single) 2)))\n", "instruction 2 follows instruction 4"},
		{"-- unit --\n(unit u (intervals (a single 5 5)))\n", "empty interval"},
		{"-- unit --\n(unit u (arguments (a single) (a wide)))\n", "'a' is defined twice"},
		{"-- unit --\n(unit u (instructions (2 const (a single) x)))\n", "bad literal"},
		{"-- unit --\n(unit u (arguments (a single)) (fixed (a -1)))\n", "negative register"},
	}
	for _, test := range tests {
		_, err := ParseArchive("bad", []byte(test.archive))
		if err == nil || !strings.Contains(err.Error(), test.message) {
			t.Errorf("%q: got %v, want %q", test.archive, err, test.message)
		}
	}
}

func TestRunReturnsAssignment(t *testing.T) {
	fixture, err := ParseArchive("run", []byte("-- unit --\n(unit run (intervals (a single 0 4)))\n"))
	if err != nil {
		t.Fatal(err)
	}
	_, assignment, err := fixture.Run()
	if err != nil {
		t.Fatal(err)
	}
	if assignment == nil || assignment.Unit != "run" || len(assignment.Values) != 1 {
		t.Errorf("got %+v", assignment)
	}
}

func TestUseDefaultConfig(t *testing.T) {
	own, err := ParseArchive("own", []byte("-- config.toml --\nregisters = 256\n-- moves --\n(moves (0 1 single))\n"))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := ParseArchive("plain", []byte("-- moves --\n(moves (0 1 single))\n"))
	if err != nil {
		t.Fatal(err)
	}
	config := &regalloc.ConfigT{Registers: 4, MaxRegisters: 16, HighRegisterThreshold: 15}
	UseDefaultConfig([]*FixtureT{own, plain}, config)
	if own.Config == config || own.Config.Registers != 256 {
		t.Errorf("fixture's own config was replaced: %+v", own.Config)
	}
	if plain.Config != config {
		t.Errorf("fixture without a config kept %+v", plain.Config)
	}
}

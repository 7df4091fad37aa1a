// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Loading and running test fixtures.  A fixture is a txtar archive
// with some of these sections:
//
//	-- unit --         a unit to allocate, see convert.go
//	-- moves --        a parallel move set to schedule
//	-- config.toml --  register file limits
//	-- want --         the expected output of Run

package front

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/s48/backend/ir"
	"github.com/s48/backend/regalloc"
	"github.com/s48/backend/util"
	"github.com/tliron/commonlog"
	"golang.org/x/tools/txtar"
)

var log = commonlog.GetLogger("backend.front")

type FixtureT struct {
	Name      string
	Unit      *ir.UnitT
	Moves     []*regalloc.RegisterMoveT
	Config    *regalloc.ConfigT
	OwnConfig bool   // true if Config came from a config.toml section
	Want      string // empty if there is no want section
}

func LoadArchive(path string) (*FixtureT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fixture, err := ParseArchive(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fixture, nil
}

// Loads every .txtar file in 'dir', sorted by name.

func LoadDirectory(dir string) ([]*FixtureT, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txtar"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	fixtures := []*FixtureT{}
	for _, path := range paths {
		fixture, err := LoadArchive(path)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fixture)
	}
	log.Infof("loaded %d fixtures from %s", len(fixtures), dir)
	return fixtures, nil
}

func ParseArchive(name string, data []byte) (*FixtureT, error) {
	archive := txtar.Parse(data)
	fixture := &FixtureT{Name: name, Config: regalloc.DefaultConfig()}
	seen := util.NewSet[string]()
	for _, file := range archive.Files {
		if seen.Contains(file.Name) {
			return nil, fmt.Errorf("duplicate section '%s'", file.Name)
		}
		seen.Add(file.Name)
		text := string(file.Data)
		switch file.Name {
		case "unit":
			sexp, err := util.ParseSExp(text)
			if err != nil {
				return nil, fmt.Errorf("unit: %w", err)
			}
			fixture.Unit, err = ConvertUnit(sexp)
			if err != nil {
				return nil, fmt.Errorf("unit: %w", err)
			}
		case "moves":
			sexp, err := util.ParseSExp(text)
			if err != nil {
				return nil, fmt.Errorf("moves: %w", err)
			}
			fixture.Moves, err = ConvertMoves(sexp)
			if err != nil {
				return nil, fmt.Errorf("moves: %w", err)
			}
		case "config.toml":
			config, err := regalloc.ParseConfig(text)
			if err != nil {
				return nil, err
			}
			fixture.Config = config
			fixture.OwnConfig = true
		case "want":
			fixture.Want = text
		default:
			return nil, fmt.Errorf("unknown section '%s'", file.Name)
		}
	}
	if fixture.Unit == nil && fixture.Moves == nil {
		return nil, errors.New("no unit or moves section")
	}
	return fixture, nil
}

// Gives 'config' to every fixture that lacks a config.toml section.

func UseDefaultConfig(fixtures []*FixtureT, config *regalloc.ConfigT) {
	for _, fixture := range fixtures {
		if !fixture.OwnConfig {
			fixture.Config = config
		}
	}
}

// Allocates the unit and schedules the moves, checking both results.
// The output is the allocation as printed by PpAllocation followed by
// the scheduled moves.  A unit that cannot be allocated is reported in
// the output, so fixtures can expect compiler errors.  Other problems
// are returned as errors.

func (fixture *FixtureT) Run() (string, *regalloc.AssignmentT, error) {
	out := new(strings.Builder)
	var assignment *regalloc.AssignmentT
	if fixture.Unit != nil {
		allocator := regalloc.MakeLinearScanAllocator(fixture.Unit, fixture.Config)
		err := allocator.AllocateRegisters()
		var compilerError *regalloc.CompilerErrorT
		switch {
		case errors.As(err, &compilerError):
			fmt.Fprintf(out, "error: %s\n", compilerError.Message)
		case err != nil:
			return "", nil, err
		default:
			if err := regalloc.VerifyAllocation(allocator); err != nil {
				return "", nil, err
			}
			regalloc.PpAllocation(allocator, out)
			assignment = allocator.Assignment()
		}
	}
	if fixture.Moves != nil {
		temp := 0
		for _, move := range fixture.Moves {
			temp = max(temp, move.Dst+2, move.Src+2)
		}
		scheduler := regalloc.MakeMoveScheduler(temp)
		for _, move := range fixture.Moves {
			scheduler.AddMove(move)
		}
		scheduled := scheduler.Schedule()
		if err := regalloc.VerifySchedule(fixture.Moves, scheduled, temp); err != nil {
			return "", nil, err
		}
		fmt.Fprintf(out, "(scheduled temp %d used %d", temp, scheduler.UsedTempRegisters())
		for _, move := range scheduled {
			fmt.Fprintf(out, "\n  %s", move)
		}
		fmt.Fprintf(out, ")\n")
	}
	return out.String(), assignment, nil
}

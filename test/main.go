// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Allocate registers for fixture units and check the results.
//  --dir <dir>       Runs every fixture in <dir>/*.txtar (default test/units).
//  --jobs <n>        Runs up to <n> fixtures at once.
//  --config <file>   Register file limits for fixtures without their own.
//  --cbor <file>     Writes the allocations to <file> as a CBOR sequence.
//  -v                Logs allocation decisions; repeat for more.

package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/s48/backend/front"
	"github.com/s48/backend/regalloc"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("backend.test")

type verbosityT int

func (verbosity *verbosityT) String() string   { return fmt.Sprintf("%d", int(*verbosity)) }
func (verbosity *verbosityT) IsBoolFlag() bool { return true }

func (verbosity *verbosityT) Set(string) error {
	*verbosity += 1
	return nil
}

type resultT struct {
	output     string
	assignment *regalloc.AssignmentT
	err        error
}

func main() {
	dir := flag.String("dir", "test/units", "fixture directory")
	jobs := flag.Int("jobs", runtime.NumCPU(), "fixtures to run at once")
	configFile := flag.String("config", "", "TOML register file limits")
	cborFile := flag.String("cbor", "", "CBOR output file")
	var verbosity verbosityT
	flag.Var(&verbosity, "v", "verbose")
	flag.Parse()

	commonlog.Configure(int(verbosity), nil)

	fixtures, err := front.LoadDirectory(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if *configFile != "" {
		config, err := regalloc.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		front.UseDefaultConfig(fixtures, config)
	}

	results := runFixtures(fixtures, *jobs)

	okay := true
	for i, fixture := range fixtures {
		result := results[i]
		fmt.Printf("running '%s'\n", fixture.Name)
		switch {
		case result.err != nil:
			fmt.Printf("  failed: %s\n", result.err)
			okay = false
		case fixture.Want != "" && result.output != fixture.Want:
			fmt.Printf("  got\n%s  but expected\n%s", result.output, fixture.Want)
			okay = false
		default:
			fmt.Print(result.output)
		}
	}
	if *cborFile != "" {
		if err := writeAssignments(*cborFile, results); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			okay = false
		}
	}
	if !okay {
		os.Exit(1)
	}
}

// Each fixture's result goes in its own slot so that the output order
// does not depend on which finishes first.

func runFixtures(fixtures []*front.FixtureT, jobs int) []resultT {
	results := make([]resultT, len(fixtures))
	var group errgroup.Group
	group.SetLimit(max(jobs, 1))
	for i, fixture := range fixtures {
		group.Go(func() error {
			log.Debugf("running %s", fixture.Name)
			output, assignment, err := fixture.Run()
			results[i] = resultT{output: output, assignment: assignment, err: err}
			return nil
		})
	}
	group.Wait()
	return results
}

func writeAssignments(path string, results []resultT) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer out.Close()
	count := 0
	for _, result := range results {
		if result.assignment == nil {
			continue
		}
		data, err := regalloc.MarshalAssignment(result.assignment)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		count += 1
	}
	log.Infof("wrote %d allocations to %s", count, path)
	return out.Close()
}

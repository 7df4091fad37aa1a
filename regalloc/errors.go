// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"fmt"
)

// A broken invariant in the input or in the allocator itself.  These
// are raised with panic and turned into errors at the unit boundary.

type CompilerErrorT struct {
	Unit    string
	Message string
}

func (err *CompilerErrorT) Error() string {
	return fmt.Sprintf("internal error in %s: %s", err.Unit, err.Message)
}

func fatalf(unit string, format string, args ...any) {
	panic(&CompilerErrorT{Unit: unit, Message: fmt.Sprintf(format, args...)})
}

// Use as 'defer catchCompilerError(&err)'.  Other panics are passed on.

func catchCompilerError(result *error) {
	switch err := recover().(type) {
	case nil:
	case *CompilerErrorT:
		*result = err
	default:
		panic(err)
	}
}

// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"fmt"
)

// The positions at which a register is reserved, as sorted disjoint
// intervals.

type liveRangeT struct {
	intervals []intervalT
}

type intervalT struct {
	start int // instruction number, inclusive
	end   int // ditto, exclusive
}

func makeLiveRange(start int, end int) *liveRangeT {
	return &liveRangeT{intervals: []intervalT{{start, end}}}
}

func (live *liveRangeT) add(interval intervalT) {
	intervals := live.intervals
	if len(intervals) != 0 {
		last := &intervals[len(intervals)-1]
		if interval.start == last.end {
			last.end = interval.end
			return
		}
	}
	live.intervals = append(live.intervals, interval)
}

func (live *liveRangeT) conflicts(other *liveRangeT) bool {
	if live == nil || other == nil {
		return false
	}
	x := live.intervals
	y := other.intervals
	i := 0
	j := 0
	for i < len(x) && j < len(y) {
		if x[i].end <= y[j].start {
			i += 1
		} else if y[j].end <= x[i].start {
			j += 1
		} else {
			return true
		}
	}
	return false
}

func (live *liveRangeT) union(other *liveRangeT) *liveRangeT {
	if live == nil {
		return other
	}
	if live.conflicts(other) {
		panic(fmt.Sprintf("union of conflicting live ranges %s and %s", live, other))
	}
	x := live.intervals
	y := other.intervals
	i := 0
	j := 0
	result := &liveRangeT{}
	for i < len(x) && j < len(y) {
		if x[i].start <= y[j].start {
			result.add(x[i])
			i += 1
		} else {
			result.add(y[j])
			j += 1
		}
	}
	for ; i < len(x); i++ {
		result.add(x[i])
	}
	for ; j < len(y); j++ {
		result.add(y[j])
	}
	return result
}

func (live *liveRangeT) String() string {
	result := ""
	for _, interval := range live.intervals {
		result += fmt.Sprintf("[%d,%d)", interval.start, interval.end)
	}
	return result
}

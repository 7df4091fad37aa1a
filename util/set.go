// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"cmp"
	"slices"
)

// A set is a map from objects to the empty struct.

type SetT[E comparable] map[E]struct{}

// s := NewSet[int]()
//   or
// s := NewSet(1, 2)

func NewSet[E comparable](members ...E) SetT[E] {
	set := SetT[E]{}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return set
}

func (set SetT[E]) Add(members ...E) {
	for _, member := range members {
		set[member] = struct{}{}
	}
}

func (set SetT[E]) Remove(member E) {
	delete(set, member)
}

func (set SetT[E]) Contains(member E) bool {
	_, found := set[member]
	return found
}

// The order is arbitrary.  Use SortedMembers when the result
// affects output.

func (set SetT[E]) Members() []E {
	result := make([]E, 0, len(set))
	for member := range set {
		result = append(result, member)
	}
	return result
}

func SortedMembers[E cmp.Ordered](set SetT[E]) []E {
	result := set.Members()
	slices.Sort(result)
	return result
}

// Loops through the smaller of the two sets.

func (set SetT[E]) Intersects(other SetT[E]) bool {
	if len(other) < len(set) {
		return other.Intersects(set)
	}
	for member := range set {
		if other.Contains(member) {
			return true
		}
	}
	return false
}

func (set SetT[E]) Intersection(other SetT[E]) SetT[E] {
	if len(other) < len(set) {
		return other.Intersection(set)
	}
	result := NewSet[E]()
	for member := range set {
		if other.Contains(member) {
			result.Add(member)
		}
	}
	return result
}

// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Based on the example in container/heap.  Elements with equal
// priority come out in the order they went in.

package util

import (
	"container/heap"
)

// Wrapper type to hide the sort and heap interface methods.

type PriorityQueueT[T any] struct {
	queue priorityQueueT[T]
}

// Dequeue returns the least element according to 'less'.
func MakePriorityQueue[T any](less func(x T, y T) bool) *PriorityQueueT[T] {
	return &PriorityQueueT[T]{priorityQueueT[T]{less: less}}
}

func (pq *PriorityQueueT[T]) Len() int {
	return len(pq.queue.queue)
}

func (pq *PriorityQueueT[T]) Empty() bool {
	return len(pq.queue.queue) == 0
}

func (pq *PriorityQueueT[T]) Enqueue(x T) {
	heap.Push(&pq.queue, queueEntryT[T]{x, pq.queue.count})
	pq.queue.count += 1
}

func (pq *PriorityQueueT[T]) Dequeue() T {
	return heap.Pop(&pq.queue).(queueEntryT[T]).value
}

// The element that Dequeue would return.
func (pq *PriorityQueueT[T]) Peek() T {
	if pq.Empty() {
		panic("peeking into an empty priority queue")
	}
	return pq.queue.queue[0].value
}

// The actual priority queue.

type queueEntryT[T any] struct {
	value T
	index int // insertion order
}

type priorityQueueT[T any] struct {
	queue []queueEntryT[T]
	less  func(x T, y T) bool
	count int
}

func (pq priorityQueueT[T]) Len() int { return len(pq.queue) }

func (pq priorityQueueT[T]) Less(i, j int) bool {
	x := pq.queue[i]
	y := pq.queue[j]
	if pq.less(x.value, y.value) {
		return true
	}
	if pq.less(y.value, x.value) {
		return false
	}
	return x.index < y.index
}

func (pq priorityQueueT[T]) Swap(i, j int) {
	pq.queue[i], pq.queue[j] = pq.queue[j], pq.queue[i]
}

func (pq *priorityQueueT[T]) Push(x any) {
	pq.queue = append(pq.queue, x.(queueEntryT[T]))
}

func (pq *priorityQueueT[T]) Pop() any {
	queue := pq.queue
	newLength := len(queue) - 1
	item := queue[newLength]
	queue[newLength] = queueEntryT[T]{} // reinitialize for safety
	pq.queue = queue[0:newLength]
	return item
}

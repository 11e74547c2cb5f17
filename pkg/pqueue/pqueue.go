// Package pqueue provides a generic max-priority queue with FIFO tie-breaking.
package pqueue

import "container/heap"

// Item is a payload with its priority
type Item[T any] struct {
	Value    T
	Priority float64
	seq      uint64
}

// Queue is a binary max-heap. Among equal priorities the earliest pushed
// item pops first, which keeps traversal order reproducible.
type Queue[T any] struct {
	items entries[T]
	next  uint64
}

// New creates an empty queue
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push inserts value with priority in O(log n)
func (q *Queue[T]) Push(value T, priority float64) {
	heap.Push(&q.items, Item[T]{Value: value, Priority: priority, seq: q.next})
	q.next++
}

// Pop removes and returns the highest-priority item.
// ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item Item[T], ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	return heap.Pop(&q.items).(Item[T]), true
}

// Peek returns the highest-priority item without removing it
func (q *Queue[T]) Peek() (item Item[T], ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	return q.items[0], true
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// IsEmpty reports whether the queue holds no items
func (q *Queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}

// entries implements heap.Interface
type entries[T any] []Item[T]

func (e entries[T]) Len() int { return len(e) }

func (e entries[T]) Less(i, j int) bool {
	if e[i].Priority != e[j].Priority {
		return e[i].Priority > e[j].Priority
	}
	return e[i].seq < e[j].seq
}

func (e entries[T]) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

func (e *entries[T]) Push(x any) {
	*e = append(*e, x.(Item[T]))
}

func (e *entries[T]) Pop() any {
	old := *e
	n := len(old)
	item := old[n-1]
	var zero Item[T]
	old[n-1] = zero
	*e = old[:n-1]
	return item
}

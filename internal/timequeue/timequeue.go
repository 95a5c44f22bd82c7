// Package timequeue implements the time-ordered event queue that drives both
// the multicell kernel and the population layer. Entries are (id, time)
// pairs; the queue clock advances monotonically as entries are popped.
//
// Multiple entries for the same id are legal: consumers detect stale entries
// by comparing the popped time against the entity's current schedule and
// discard mismatches.
package timequeue

import "container/heap"

type entry struct {
	id   int
	time float64
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].time == h[j].time {
		return h[i].id < h[j].id
	}
	return h[i].time < h[j].time
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is a min-ordered schedule of entity events with a monotonic clock.
type Queue struct {
	entries entryHeap
	clock   float64
	base    float64
}

// New creates a queue whose clock starts at base. The base sits above the
// 0.0 "empty" sentinel so a live schedule time can never collide with it.
func New(base float64) *Queue {
	return &Queue{clock: base, base: base}
}

// Insert schedules an event for id at absolute time t.
func (q *Queue) Insert(id int, t float64) {
	heap.Push(&q.entries, entry{id: id, time: t})
}

// Next removes the earliest entry, advances the clock to its time, and
// returns its id. Next must only be called on a non-empty queue.
func (q *Queue) Next() int {
	e := heap.Pop(&q.entries).(entry)
	q.clock = e.time
	return e.id
}

// Time returns the current clock: the scheduled time of the most recently
// popped entry, or the base if nothing has been popped.
func (q *Queue) Time() float64 { return q.clock }

// Len reports the number of pending entries, stale ones included.
func (q *Queue) Len() int { return len(q.entries) }

// Reset empties the queue and returns the clock to its base.
func (q *Queue) Reset() {
	q.entries = q.entries[:0]
	q.clock = q.base
}

package schedule

import "container/heap"

// Queue is an unbounded priority queue of calls ordered by
// (priority, enqueue time, sequence). It is not safe for concurrent use.
type Queue struct {
	h callHeap
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Len() int {
	return len(q.h)
}

func (q *Queue) Push(c Call) {
	heap.Push(&q.h, c)
}

// Peek returns the next call without removing it.
func (q *Queue) Peek() (Call, bool) {
	if len(q.h) == 0 {
		return Call{}, false
	}
	return q.h[0], true
}

func (q *Queue) Pop() (Call, bool) {
	if len(q.h) == 0 {
		return Call{}, false
	}
	return heap.Pop(&q.h).(Call), true
}

type callHeap []Call

func (h callHeap) Len() int           { return len(h) }
func (h callHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h callHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *callHeap) Push(x any) {
	*h = append(*h, x.(Call))
}

func (h *callHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = Call{}
	*h = old[:n-1]
	return c
}

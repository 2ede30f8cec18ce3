package scheduler

import "container/heap"

// firingHeap is a min-heap of pending firings ordered by At.
type firingHeap []firing

func (h firingHeap) Len() int           { return len(h) }
func (h firingHeap) Less(i, j int) bool { return h[i].At.Before(h[j].At) }
func (h firingHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *firingHeap) Push(x any) {
	*h = append(*h, x.(firing))
}

func (h *firingHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *firingHeap, f firing) {
	heap.Push(h, f)
}

// heapPop panics on an empty heap.
func heapPop(h *firingHeap) firing {
	return heap.Pop(h).(firing)
}

// heapNext returns the scheduled time of a schedule id, if pending.
func heapNext(h firingHeap, scheduleID string) (firing, bool) {
	for _, f := range h {
		if f.ScheduleID == scheduleID {
			return f, true
		}
	}
	return firing{}, false
}

package recorder

import "container/heap"

// pendingRecord is one buffered decision record awaiting its flush to Redis.
// index is required for heap.Fix/heap.Remove in O(log n).
type pendingRecord struct {
	pid     int64
	seq     uint64
	payload string
	index   int
}

// flushQueue orders buffered records by sequence number so a flush always
// writes them to Redis in the order the simulation produced them, even
// though Record() calls can race in from concurrent HTTP handlers. A
// second Record() call for a pid still sitting in the queue supersedes the
// first: only the latest decision for a given process is worth keeping
// once it hasn't been flushed yet.
type flushQueue struct {
	h       recordHeap
	entries map[int64]*pendingRecord
}

func newFlushQueue() *flushQueue {
	h := recordHeap{}
	heap.Init(&h)
	return &flushQueue{h: h, entries: make(map[int64]*pendingRecord)}
}

func (q *flushQueue) push(pid int64, seq uint64, payload string) {
	if old, ok := q.entries[pid]; ok {
		heap.Remove(&q.h, old.index)
		delete(q.entries, pid)
	}

	rec := &pendingRecord{pid: pid, seq: seq, payload: payload}
	q.entries[pid] = rec
	heap.Push(&q.h, rec)
}

func (q *flushQueue) len() int { return len(q.h) }

// drain removes and returns every buffered record in sequence order.
func (q *flushQueue) drain() []string {
	out := make([]string, 0, len(q.h))
	for q.h.Len() > 0 {
		rec := heap.Pop(&q.h).(*pendingRecord)
		delete(q.entries, rec.pid)
		out = append(out, rec.payload)
	}
	return out
}

// recordHeap is a min-heap ordered by sequence number.
type recordHeap []*pendingRecord

func (h recordHeap) Len() int            { return len(h) }
func (h recordHeap) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h recordHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *recordHeap) Push(x any) {
	rec := x.(*pendingRecord)
	rec.index = len(*h)
	*h = append(*h, rec)
}

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	rec := old[n-1]
	rec.index = -1
	*h = old[:n-1]
	return rec
}

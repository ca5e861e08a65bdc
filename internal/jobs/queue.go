package jobs

import "container/heap"

// pendingQueue orders jobs for dispatch: higher priority first, equal
// priorities oldest first.
type pendingQueue []*Job

func newPendingQueue(jobs []*Job) *pendingQueue {
	q := make(pendingQueue, len(jobs))
	copy(q, jobs)
	heap.Init(&q)
	return &q
}

func (q *pendingQueue) next() *Job {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*Job)
}

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].CreatedAt.Before(q[j].CreatedAt)
}

func (q pendingQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *pendingQueue) Push(x any) {
	*q = append(*q, x.(*Job))
}

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return job
}

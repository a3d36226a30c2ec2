package queue

import (
	"container/heap"
	"sync"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
)

// Priority represents the urgency of a dispatch job
type Priority int

const (
	// PriorityHigh for tasks that have been pending across cycles
	PriorityHigh Priority = iota
	// PriorityNormal for freshly generated tasks
	PriorityNormal
)

// DispatchJob represents one notification task queued for delivery
type DispatchJob struct {
	ID       string
	Priority Priority
	Task     *domain.NotificationTask
	Index    int // Index in the heap
}

// dispatchJobHeap implements heap.Interface
type dispatchJobHeap []*DispatchJob

func (h dispatchJobHeap) Len() int { return len(h) }

func (h dispatchJobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		// Lower priority value = higher priority (processed first)
		return h[i].Priority < h[j].Priority
	}
	// Same priority: oldest task first
	return h[i].Task.CreatedAt.Before(h[j].Task.CreatedAt)
}

func (h dispatchJobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].Index = i
	h[j].Index = j
}

func (h *dispatchJobHeap) Push(x interface{}) {
	n := len(*h)
	job := x.(*DispatchJob)
	job.Index = n
	*h = append(*h, job)
}

func (h *dispatchJobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil // Avoid memory leak
	job.Index = -1
	*h = old[0 : n-1]
	return job
}

// DispatchQueue is a thread-safe priority queue for dispatch jobs
type DispatchQueue struct {
	jobs   dispatchJobHeap
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

// NewDispatchQueue creates a new dispatch queue
func NewDispatchQueue() *DispatchQueue {
	q := &DispatchQueue{
		jobs: make(dispatchJobHeap, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.jobs)
	return q
}

// Push adds a job to the queue
func (q *DispatchQueue) Push(job *DispatchJob) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.jobs, job)
	q.cond.Signal() // Wake up a waiting worker
}

// Pop removes and returns the highest priority job.
// Blocks while the queue is empty; returns nil once the queue is closed
// and drained.
func (q *DispatchQueue) Pop() *DispatchJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.jobs.Len() == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.jobs.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.jobs).(*DispatchJob)
}

// Close wakes all workers; Pop returns nil once drained
func (q *DispatchQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of jobs in the queue
func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs.Len()
}

package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/vhvplatform/go-reminder-service/internal/domain"
)

func jobAt(id string, priority Priority, createdAt time.Time) *DispatchJob {
	return &DispatchJob{
		ID:       id,
		Priority: priority,
		Task:     &domain.NotificationTask{CreatedAt: createdAt},
	}
}

// TestDispatchQueuePriorityOrder tests that carried-over jobs come out
// before fresh ones, oldest first within a priority.
func TestDispatchQueuePriorityOrder(t *testing.T) {
	q := NewDispatchQueue()
	base := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)

	q.Push(jobAt("fresh-new", PriorityNormal, base.Add(2*time.Minute)))
	q.Push(jobAt("fresh-old", PriorityNormal, base.Add(time.Minute)))
	q.Push(jobAt("carried", PriorityHigh, base))
	q.Close()

	want := []string{"carried", "fresh-old", "fresh-new"}
	for _, expected := range want {
		job := q.Pop()
		if job == nil {
			t.Fatalf("Pop() = nil, want job %q", expected)
		}
		if job.ID != expected {
			t.Errorf("Pop() = %q, want %q", job.ID, expected)
		}
	}

	if job := q.Pop(); job != nil {
		t.Errorf("Pop() after drain = %v, want nil", job)
	}
}

// TestDispatchQueueBlockingPop tests that Pop blocks until a push arrives
func TestDispatchQueueBlockingPop(t *testing.T) {
	q := NewDispatchQueue()
	done := make(chan *DispatchJob)

	go func() {
		done <- q.Pop()
	}()

	select {
	case <-done:
		t.Fatal("Pop() returned before any push")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push(jobAt("late", PriorityNormal, time.Now()))

	select {
	case job := <-done:
		if job == nil || job.ID != "late" {
			t.Errorf("Pop() = %v, want job late", job)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop() did not wake after push")
	}
}

// TestDispatchQueueCloseWakesWorkers tests that Close unblocks every
// waiting worker with a nil job.
func TestDispatchQueueCloseWakesWorkers(t *testing.T) {
	q := NewDispatchQueue()

	var wg sync.WaitGroup
	results := make(chan *DispatchJob, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.Pop()
		}()
	}

	q.Close()
	wg.Wait()
	close(results)

	for job := range results {
		if job != nil {
			t.Errorf("Pop() after close = %v, want nil", job)
		}
	}
}

// TestDispatchQueueLen tests the size accessor
func TestDispatchQueueLen(t *testing.T) {
	q := NewDispatchQueue()
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}

	q.Push(jobAt("a", PriorityNormal, time.Now()))
	q.Push(jobAt("b", PriorityNormal, time.Now()))
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}

	q.Close()
	q.Pop()
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

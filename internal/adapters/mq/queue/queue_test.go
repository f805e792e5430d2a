package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/codenames/internal/domain/model"
)

func playerJob(id string) Job {
	return model.PersistJob{Kind: model.JobPlayer, Player: &model.Player{ID: id}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, playerJob("p1")); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	job := <-q.Dequeue(ctx)
	if job.Key() != "player:p1" {
		t.Errorf("expected player:p1, got %s", job.Key())
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		if err := q.Enqueue(ctx, playerJob(id)); err != nil {
			t.Fatalf("expected enqueue to succeed: %v", err)
		}
	}

	if err := q.Enqueue(ctx, playerJob("p3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CanceledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, playerJob("p1")); !errors.Is(err, ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	_ = q.Enqueue(ctx, playerJob("p1"))
	_ = q.Enqueue(ctx, playerJob("p2"))
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Enqueue(ctx, playerJob("p3")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []string
	for job := range q.Dequeue(ctx) {
		drained = append(drained, job.Player.ID)
	}
	if len(drained) != 2 || drained[0] != "p1" || drained[1] != "p2" {
		t.Errorf("expected queued jobs to drain in order, got %v", drained)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for i := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range perProducer {
				if err := q.Enqueue(ctx, playerJob(fmt.Sprintf("p%d-%d", i, j))); err != nil {
					t.Errorf("enqueue: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Fatalf("expected %d jobs, got %d", producers*perProducer, l)
	}

	dctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	seen := map[string]bool{}
	ch := q.Dequeue(dctx)
	for range producers * perProducer {
		job := <-ch
		seen[job.Key()] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d distinct jobs, got %d", producers*perProducer, len(seen))
	}
}

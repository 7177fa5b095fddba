// internal/taskqueue/taskqueue_test.go
package taskqueue

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_RunsInArrivalOrder(t *testing.T) {
	q := New()
	defer q.Destroy()

	var mu sync.Mutex
	var order []int

	gate := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup

	// First unit blocks until the gate opens, so the following units must
	// queue up behind it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(func() error {
			close(started)
			<-gate
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return nil
		})
	}()
	<-started

	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Let each enqueue land before the next so arrival order is fixed.
		for q.Pending() < i {
			time.Sleep(time.Millisecond)
		}
	}

	close(gate)
	wg.Wait()

	if len(order) != 4 {
		t.Fatalf("ran %d units, want 4", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("order[%d] = %d, want %d", i, got, i)
		}
	}
}

func TestQueue_ErrorPropagatesToOwnCallerOnly(t *testing.T) {
	q := New()
	defer q.Destroy()

	boom := errors.New("boom")
	if err := q.Do(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Do() = %v, want %v", err, boom)
	}

	// Queue still advances after a failed unit.
	if err := q.Do(func() error { return nil }); err != nil {
		t.Errorf("Do() after failure = %v, want nil", err)
	}
}

func TestQueue_DestroyRejectsPendingAndFuture(t *testing.T) {
	q := New()

	gate := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(func() error {
			close(started)
			<-gate
			return nil
		})
	}()
	<-started

	pendingErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		pendingErr <- q.Do(func() error { return nil })
	}()
	for q.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}

	q.Destroy()
	close(gate)
	wg.Wait()

	if err := <-pendingErr; !errors.Is(err, ErrDestroyed) {
		t.Errorf("pending unit error = %v, want ErrDestroyed", err)
	}
	if err := q.Do(func() error { return nil }); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Do() after Destroy = %v, want ErrDestroyed", err)
	}
}

func TestQueue_GoKeepsCallOrder(t *testing.T) {
	q := New()
	defer q.Destroy()

	gate := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = q.Do(func() error {
			close(started)
			<-gate
			return nil
		})
	}()
	<-started

	// Both units land behind the busy runner; they must run in call order
	// even though neither caller waits for them.
	var mu sync.Mutex
	var order []int
	ran := make(chan struct{})
	q.Go(func() error {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		return nil
	})
	q.Go(func() error {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		close(ran)
		return nil
	})

	if got := q.Pending(); got != 2 {
		t.Fatalf("Pending() = %d before the runner is released, want 2", got)
	}

	close(gate)
	wg.Wait()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("units enqueued via Go never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2]", order)
	}
}

func TestQueue_GoDoesNotBlock(t *testing.T) {
	q := New()
	defer q.Destroy()

	done := make(chan struct{})
	q.Go(func() error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unit enqueued via Go never ran")
	}
}

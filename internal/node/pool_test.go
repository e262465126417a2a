package node

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBorrowReturnConserve(t *testing.T) {
	p := New([]Node{"w1:9001", "w2:9001"})
	if got := p.Len(); got != 2 {
		t.Fatalf("expected len 2, got %d", got)
	}

	n, err := p.Borrow(context.Background())
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if got := p.Len(); got != 1 {
		t.Fatalf("expected len 1 after borrow, got %d", got)
	}

	p.Return(n)
	if got := p.Len(); got != 2 {
		t.Fatalf("expected len 2 after return, got %d", got)
	}
}

func TestBorrowBlocksUntilReturn(t *testing.T) {
	p := New(nil)
	got := make(chan Node, 1)
	go func() {
		n, err := p.Borrow(context.Background())
		if err != nil {
			t.Errorf("borrow: %v", err)
			return
		}
		got <- n
	}()

	select {
	case <-got:
		t.Fatal("borrow returned before any node was available")
	case <-time.After(50 * time.Millisecond):
	}

	p.Return("w1:9001")

	select {
	case n := <-got:
		if n != "w1:9001" {
			t.Fatalf("unexpected node: %s", n)
		}
	case <-time.After(time.Second):
		t.Fatal("borrow did not unblock after return")
	}
}

func TestBorrowCanceledByContext(t *testing.T) {
	p := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Borrow(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != ErrBorrowCanceled {
			t.Fatalf("expected ErrBorrowCanceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("borrow did not unblock on context cancellation")
	}

	if got := p.Len(); got != 0 {
		t.Fatalf("expected pool to stay empty, got %d", got)
	}
}

func TestFanOutTwoWorkersThreeJobs(t *testing.T) {
	p := New([]Node{"w1", "w2"})
	var inFlight, maxInFlight int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := p.Borrow(context.Background())
			if err != nil {
				t.Errorf("borrow: %v", err)
				return
			}
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			p.Return(n)
		}()
	}
	wg.Wait()

	if maxInFlight > 2 {
		t.Fatalf("expected at most 2 concurrent borrows, saw %d", maxInFlight)
	}
	if got := p.Len(); got != 2 {
		t.Fatalf("expected pool restored to 2, got %d", got)
	}
}

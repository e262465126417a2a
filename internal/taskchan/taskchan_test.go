package taskchan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errFailTest = errors.New("taskchan: test failure")

func TestSendRecvReply(t *testing.T) {
	ch := New[string, int](1)
	rx, tx := Split[string, int](ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		req, ok := rx.Recv()
		if !ok {
			t.Error("expected a request")
			return
		}
		if req.Input != "hello" {
			t.Errorf("unexpected input: %q", req.Input)
		}
		req.Reply(42)
	}()

	out, err := tx.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out != 42 {
		t.Fatalf("expected 42, got %d", out)
	}
	<-done
}

func TestSenderIsCloneableAcrossGoroutines(t *testing.T) {
	ch := New[int, int](1)
	rx, tx := Split[int, int](ch)

	go func() {
		for i := 0; i < 5; i++ {
			req, ok := rx.Recv()
			if !ok {
				return
			}
			req.Reply(req.Input * 2)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := tx.Send(context.Background(), i)
			if err != nil {
				t.Errorf("send: %v", err)
				return
			}
			if out != i*2 {
				t.Errorf("expected %d, got %d", i*2, out)
			}
		}(i)
	}
	wg.Wait()
}

func TestReplyTwiceIsLogicError(t *testing.T) {
	ch := New[string, string](1)
	rx, tx := Split[string, string](ch)

	go func() {
		req, _ := rx.Recv()
		req.Reply("first")
		defer func() {
			if recover() == nil {
				t.Error("expected panic on second reply")
			}
		}()
		req.Reply("second")
	}()

	out, err := tx.Send(context.Background(), "in")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out != "first" {
		t.Fatalf("expected first reply, got %q", out)
	}
	time.Sleep(10 * time.Millisecond)
}

func TestSendFailsWhenContextCanceledBeforeReply(t *testing.T) {
	ch := New[string, string](1)
	_, tx := Split[string, string](ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tx.Send(ctx, "x"); err == nil {
		t.Fatal("expected error sending on a canceled context")
	}
}

func TestFailReturnsErrorToSender(t *testing.T) {
	ch := New[string, string](1)
	rx, tx := Split[string, string](ch)

	go func() {
		req, _ := rx.Recv()
		req.Fail(errFailTest)
	}()

	if _, err := tx.Send(context.Background(), "x"); err != errFailTest {
		t.Fatalf("expected errFailTest, got %v", err)
	}
}

func TestRecvFalseAfterClose(t *testing.T) {
	ch := New[string, string](1)
	rx, _ := Split[string, string](ch)
	rx.Close()

	if _, ok := rx.Recv(); ok {
		t.Fatal("expected ok=false after Close")
	}
}

package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kestrelsched/remote/internal/job"
	"github.com/kestrelsched/remote/internal/node"
	"github.com/kestrelsched/remote/internal/taskchan"
)

func newFakeWorker(t *testing.T, handle func(j job.Job) job.ComputationResult) (addr string, close func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var j job.Job
		if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(handle(j))
	}))
	return strings.TrimPrefix(srv.URL, "http://"), srv.Close
}

func newTestScheduler(t *testing.T, nodes []node.Node) (*Scheduler, taskchan.Sender[job.Job, job.ComputationResult], taskchan.Sender[job.Molecule, job.Computed], chan job.Control) {
	t.Helper()
	pool := node.New(nodes)
	jobsCh := taskchan.New[job.Job, job.ComputationResult](1)
	jobsRx, jobsTx := taskchan.Split(jobsCh)
	molsCh := taskchan.New[job.Molecule, job.Computed](1)
	molsRx, molsTx := taskchan.Split(molsCh)
	control := make(chan job.Control, 1)

	s := New(pool, jobsRx, molsRx, control, nil, Config{ShutdownGrace: time.Second})
	return s, jobsTx, molsTx, control
}

func TestDispatchesJobAndReturnsResult(t *testing.T) {
	addr, closeSrv := newFakeWorker(t, func(j job.Job) job.ComputationResult {
		return job.Completed("ok: " + j.Script)
	})
	defer closeSrv()

	s, jobsTx, _, control := newTestScheduler(t, []node.Node{node.Node(addr)})

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(context.Background()) }()

	result, err := jobsTx.Send(context.Background(), job.New("do-work"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.IsFailed() {
		t.Fatalf("expected success, got failed result: %s", result.String())
	}
	if !strings.Contains(result.String(), "do-work") {
		t.Fatalf("unexpected result: %q", result.String())
	}

	control <- job.NewAbort()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Abort")
	}
}

func TestWorkerFailureBecomesJobFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, jobsTx, _, control := newTestScheduler(t, []node.Node{node.Node(strings.TrimPrefix(srv.URL, "http://"))})

	go s.Run(context.Background())

	result, err := jobsTx.Send(context.Background(), job.New("bad"))
	if err != nil {
		t.Fatalf("send should not error: %v", err)
	}
	if !result.IsFailed() {
		t.Fatal("expected a JobFailed result from a worker-side failure")
	}

	control <- job.NewAbort()
}

func TestAddNodeControlMessageGrowsPool(t *testing.T) {
	addr, closeSrv := newFakeWorker(t, func(j job.Job) job.ComputationResult {
		return job.Completed("done")
	})
	defer closeSrv()

	s, jobsTx, _, control := newTestScheduler(t, nil)
	go s.Run(context.Background())

	control <- job.NewAddNode(addr)
	time.Sleep(20 * time.Millisecond)

	if _, err := jobsTx.Send(context.Background(), job.New("x")); err != nil {
		t.Fatalf("send: %v", err)
	}

	control <- job.NewAbort()
}

func TestAbortTerminatesWithEmptyPool(t *testing.T) {
	s, _, _, control := newTestScheduler(t, nil)

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(context.Background()) }()

	control <- job.NewAbort()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Run must terminate on Abort even with an empty pool")
	}
}

func TestConcurrentJobsFanOutAcrossTwoNodes(t *testing.T) {
	var mu sync.Mutex
	var maxConcurrent, current int
	block := make(chan struct{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		current++
		if current > maxConcurrent {
			maxConcurrent = current
		}
		mu.Unlock()

		<-block

		mu.Lock()
		current--
		mu.Unlock()

		var j job.Job
		json.NewDecoder(r.Body).Decode(&j)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(job.Completed("done"))
	})
	srv1 := httptest.NewServer(handler)
	defer srv1.Close()
	srv2 := httptest.NewServer(handler)
	defer srv2.Close()

	s, jobsTx, _, control := newTestScheduler(t, []node.Node{
		node.Node(strings.TrimPrefix(srv1.URL, "http://")),
		node.Node(strings.TrimPrefix(srv2.URL, "http://")),
	})
	go s.Run(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobsTx.Send(context.Background(), job.New("x"))
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(block)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxConcurrent < 2 {
		t.Fatalf("expected both nodes to be used concurrently, max was %d", maxConcurrent)
	}

	control <- job.NewAbort()
}

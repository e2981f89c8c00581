package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type testJob struct {
	id      int
	counter *atomic.Int64
}

type testResult struct {
	id  int
	err error
}

func (r *testResult) GetError() error { return r.err }

func (j *testJob) Execute(ctx context.Context) Result {
	j.counter.Add(1)
	return &testResult{id: j.id}
}

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(4)
	pool.Start()

	var counter atomic.Int64
	const jobs = 100
	for i := 0; i < jobs; i++ {
		pool.Submit(&testJob{id: i, counter: &counter})
	}
	results := pool.Wait()

	if counter.Load() != jobs {
		t.Errorf("Expected %d executions, got %d", jobs, counter.Load())
	}
	if len(results) != jobs {
		t.Errorf("Expected %d results, got %d", jobs, len(results))
	}

	seen := make(map[int]bool)
	for _, r := range results {
		seen[r.(*testResult).id] = true
	}
	if len(seen) != jobs {
		t.Errorf("Expected %d distinct results, got %d", jobs, len(seen))
	}
}

func TestPool_ZeroWorkersDefaultsToOne(t *testing.T) {
	pool := NewPool(0)
	pool.Start()

	var counter atomic.Int64
	pool.Submit(&testJob{counter: &counter})
	results := pool.Wait()

	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

func TestPool_ShutdownStopsWorkers(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var counter atomic.Int64
	pool.Submit(&testJob{counter: &counter})
	pool.Shutdown()

	// Submitting after shutdown is a no-op rather than a panic
	pool.Submit(&testJob{counter: &counter})
}

type slowJob struct{}

func (slowJob) Execute(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return &testResult{err: ctx.Err()}
	case <-time.After(10 * time.Millisecond):
		return &testResult{}
	}
}

func TestPool_MoreJobsThanBuffer(t *testing.T) {
	// Submitting far more jobs than the queue buffer must not deadlock
	pool := NewPool(2)
	pool.Start()
	for i := 0; i < 50; i++ {
		pool.Submit(slowJob{})
	}
	results := pool.Wait()
	if len(results) != 50 {
		t.Errorf("Expected 50 results, got %d", len(results))
	}
}

func TestLimiter_AllowRespectsBurst(t *testing.T) {
	l := NewLimiter(1, 2)

	if !l.Allow("chat") {
		t.Error("First request should be allowed")
	}
	if !l.Allow("chat") {
		t.Error("Second request within burst should be allowed")
	}
	if l.Allow("chat") {
		t.Error("Third request should exceed burst")
	}
	// Endpoints are limited independently
	if !l.Allow("embeddings") {
		t.Error("Separate endpoint should have its own budget")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	if err := l.Wait(context.Background(), "chat"); err != nil {
		t.Fatalf("First wait should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "chat"); err == nil {
		t.Error("Expected context deadline error on exhausted limiter")
	}
}

func TestLimiter_SetEndpointRate(t *testing.T) {
	l := NewLimiter(1, 1)
	l.SetEndpointRate("chat", 1000, 100)

	allowed := 0
	for i := 0; i < 50; i++ {
		if l.Allow("chat") {
			allowed++
		}
	}
	if allowed != 50 {
		t.Errorf("Expected raised limit to allow all 50, got %d", allowed)
	}
}

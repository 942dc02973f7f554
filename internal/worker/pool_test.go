package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_RunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(4, 16, testLogger())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	var (
		wg    sync.WaitGroup
		count atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if !p.Submit(func(context.Context) {
			count.Add(1)
			wg.Done()
		}) {
			wg.Done()
			t.Fatal("Submit rejected job with free queue")
		}
	}
	wg.Wait()
	if count.Load() != 10 {
		t.Fatalf("count = %d", count.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPool_SubmitWhenFull(t *testing.T) {
	// Воркеры не запущены: очередь на 1 место
	p := NewPool(1, 1, testLogger())

	if !p.Submit(func(context.Context) {}) {
		t.Fatal("first Submit should fit into the queue")
	}
	if p.Submit(func(context.Context) {}) {
		t.Fatal("second Submit should be rejected")
	}
}

func TestPool_SurvivesPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPool(1, 4, testLogger())
	go p.Run(ctx)

	p.Submit(func(context.Context) { panic("boom") })

	ran := make(chan struct{})
	p.Submit(func(context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}
}

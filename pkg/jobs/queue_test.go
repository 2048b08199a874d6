package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	done := make(chan struct{}, 4)

	q := NewExportQueue(func(_ context.Context, job ExportJob) error {
		mu.Lock()
		seen[job.Domain]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(ExportJob{Domain: "participants", Trigger: "create"}))
	require.NoError(t, q.Enqueue(ExportJob{Domain: "attendance", Trigger: "record"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen["participants"])
	assert.Equal(t, 1, seen["attendance"])
}

func TestExportQueueCoalescesPendingDomain(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	runs := 0

	q := NewExportQueue(func(_ context.Context, _ ExportJob) error {
		<-release
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	// First job is picked up by the worker and blocks; the next two are
	// queued while "enrollments" is still pending, so one survives and
	// one coalesces.
	require.NoError(t, q.Enqueue(ExportJob{Domain: "enrollments"}))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Enqueue(ExportJob{Domain: "enrollments"}))
	require.NoError(t, q.Enqueue(ExportJob{Domain: "enrollments"}))

	close(release)
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, runs, 2)
	assert.GreaterOrEqual(t, runs, 1)
}

func TestExportQueueRejectsWhenNotStarted(t *testing.T) {
	q := NewExportQueue(func(context.Context, ExportJob) error { return nil }, QueueConfig{})
	err := q.Enqueue(ExportJob{Domain: "participants"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestExportQueueRetriesFailedJob(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	q := NewExportQueue(func(_ context.Context, job ExportJob) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			return assert.AnError
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, RetryDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(ExportJob{Domain: "attendance", Trigger: "record"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

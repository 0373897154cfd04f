package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 2)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	_, err := q.Enqueue(Job{ID: "early"})
	assert.ErrorIs(t, err, ErrNotStarted)

	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b"} {
		queued, err := q.Enqueue(Job{ID: id})
		require.NoError(t, err)
		assert.True(t, queued)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&handled))
}

func TestQueueCoalescesKeyedJobs(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		started <- job.ID
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	_, err := q.Enqueue(Job{ID: "busy", Key: "other"})
	require.NoError(t, err)
	require.Equal(t, "busy", <-started)

	queued, err := q.Enqueue(Job{ID: "first", Key: "course:c1"})
	require.NoError(t, err)
	assert.True(t, queued)

	queued, err = q.Enqueue(Job{ID: "second", Key: "course:c1"})
	require.NoError(t, err)
	assert.False(t, queued)
	assert.Equal(t, 1, q.Pending())
}

func TestQueueRetriesUntilPermanent(t *testing.T) {
	var attempts int32
	finished := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		n := atomic.AddInt32(&attempts, 1)
		if n == 2 {
			close(finished)
			return errors.Join(ErrPermanent, errors.New("gone"))
		}
		return errors.New("transient")
	}, QueueConfig{RetryDelay: time.Millisecond, MaxRetries: 5})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "j"})
	require.NoError(t, err)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

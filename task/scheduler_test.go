package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ResultStore for tests.
type memStore struct {
	mu      sync.Mutex
	results map[string]string
	err     error
}

func (m *memStore) SaveTaskResult(id, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.results == nil {
		m.results = make(map[string]string)
	}
	m.results[id] = result
	return nil
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	require.NotNil(t, h)
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish in time")
	}
}

func newTestScheduler(reg *Registry, store ResultStore) *Scheduler {
	return NewScheduler(context.Background(), reg, 2, store)
}

func TestScheduler_Dispatch(t *testing.T) {
	t.Run("successful processing", func(t *testing.T) {
		reg := NewRegistry()
		store := &memStore{}
		sched := newTestScheduler(reg, store)
		id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

		h := sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
			progress(50)
			return "<h2>Summary</h2>", nil
		})
		waitDone(t, h)

		got, found := reg.Get(id)
		require.True(t, found)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.Equal(t, 100, got.Progress)
		assert.Equal(t, "<h2>Summary</h2>", got.Result)
		assert.Empty(t, got.Error)
		assert.Equal(t, "<h2>Summary</h2>", store.results[id])
	})

	t.Run("failed processing keeps last progress", func(t *testing.T) {
		reg := NewRegistry()
		sched := newTestScheduler(reg, nil)
		id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

		h := sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
			progress(40)
			return "", errors.New("transcript unavailable")
		})
		waitDone(t, h)

		got, _ := reg.Get(id)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, 40, got.Progress)
		assert.Equal(t, "transcript unavailable", got.Error)
		assert.Empty(t, got.Result)
	})

	t.Run("failure at start leaves progress at zero", func(t *testing.T) {
		reg := NewRegistry()
		sched := newTestScheduler(reg, nil)
		id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

		waitDone(t, sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
			return "", errors.New("boom")
		}))

		got, _ := reg.Get(id)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, 0, got.Progress)
	})

	t.Run("panics become failures", func(t *testing.T) {
		reg := NewRegistry()
		sched := newTestScheduler(reg, nil)
		id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

		h := sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
			panic("nil map")
		})
		waitDone(t, h)

		got, _ := reg.Get(id)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Contains(t, got.Error, "nil map")
	})

	t.Run("marks processing before returning", func(t *testing.T) {
		reg := NewRegistry()
		sched := newTestScheduler(reg, nil)
		id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

		release := make(chan struct{})
		h := sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
			<-release
			return "ok", nil
		})
		require.NotNil(t, h)

		got, _ := reg.Get(id)
		assert.Equal(t, StatusProcessing, got.Status)
		assert.Equal(t, 0, got.Progress)

		close(release)
		waitDone(t, h)
	})

	t.Run("re-dispatch is a no-op", func(t *testing.T) {
		reg := NewRegistry()
		sched := newTestScheduler(reg, nil)
		id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

		var runs atomic.Int32
		release := make(chan struct{})
		work := func(ctx context.Context, progress ProgressFunc) (string, error) {
			runs.Add(1)
			<-release
			return "ok", nil
		}
		h := sched.Dispatch(id, work)
		assert.Nil(t, sched.Dispatch(id, work))

		close(release)
		waitDone(t, h)
		assert.Nil(t, sched.Dispatch(id, work))
		assert.Equal(t, int32(1), runs.Load())
	})

	t.Run("unknown task", func(t *testing.T) {
		sched := newTestScheduler(NewRegistry(), nil)
		assert.Nil(t, sched.Dispatch("nonexistent", func(ctx context.Context, progress ProgressFunc) (string, error) {
			return "", nil
		}))
	})

	t.Run("store failure does not change status", func(t *testing.T) {
		reg := NewRegistry()
		sched := newTestScheduler(reg, &memStore{err: errors.New("disk full")})
		id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

		waitDone(t, sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
			return "ok", nil
		}))

		got, _ := reg.Get(id)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.Equal(t, "ok", got.Result)
	})
}

func TestScheduler_NoSecondExecutionAfterRewind(t *testing.T) {
	reg := NewRegistry()
	sched := newTestScheduler(reg, nil)
	id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

	var runs atomic.Int32
	release := make(chan struct{})
	work := func(ctx context.Context, progress ProgressFunc) (string, error) {
		runs.Add(1)
		<-release
		return "ok", nil
	}
	h := sched.Dispatch(id, work)
	require.NotNil(t, h)

	assert.ErrorIs(t, reg.Update(id, Update{Status: StatusPending}), ErrInvalidTransition)
	assert.Nil(t, sched.Dispatch(id, work))

	close(release)
	waitDone(t, h)
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_EmptyResultFails(t *testing.T) {
	reg := NewRegistry()
	sched := newTestScheduler(reg, nil)
	id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

	waitDone(t, sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
		return "", nil
	}))

	got, _ := reg.Get(id)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "task produced an empty result", got.Error)
}

func TestScheduler_ConcurrencyLimit(t *testing.T) {
	reg := NewRegistry()
	sched := NewScheduler(context.Background(), reg, 1, nil)

	var running, peak atomic.Int32
	work := func(ctx context.Context, progress ProgressFunc) (string, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return "ok", nil
	}

	for _, key := range []string{"a", "b", "c"} {
		id, _ := reg.FindOrCreate(KindVideoAnalysis, key, nil)
		require.NotNil(t, sched.Dispatch(id, work))
	}
	sched.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 3, reg.Count()[StatusCompleted])
}

func TestScheduler_WaitContext(t *testing.T) {
	reg := NewRegistry()
	sched := newTestScheduler(reg, nil)
	id, _ := reg.FindOrCreate(KindVideoAnalysis, "k", nil)

	release := make(chan struct{})
	h := sched.Dispatch(id, func(ctx context.Context, progress ProgressFunc) (string, error) {
		<-release
		return "ok", nil
	})
	require.NotNil(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sched.WaitContext(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, sched.WaitContext(context.Background()))
	got, _ := reg.Get(id)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestScheduler_DedupBeforeCompletion(t *testing.T) {
	reg := NewRegistry()
	sched := newTestScheduler(reg, nil)
	key := "https://youtu.be/abcdefghijk"

	release := make(chan struct{})
	first, _ := reg.FindOrCreate(KindVideoAnalysis, key, nil)
	h := sched.Dispatch(first, func(ctx context.Context, progress ProgressFunc) (string, error) {
		<-release
		return "", errors.New("boom")
	})

	second, created := reg.FindOrCreate(KindVideoAnalysis, key, nil)
	assert.False(t, created)
	assert.Equal(t, first, second)

	close(release)
	waitDone(t, h)

	third, created := reg.FindOrCreate(KindVideoAnalysis, key, nil)
	assert.True(t, created)
	assert.NotEqual(t, first, third)
}

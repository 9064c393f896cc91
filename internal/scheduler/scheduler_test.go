package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) ExpireStale(context.Context) (int, int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, 0, f.err
	}
	return 2, 1, nil
}

func TestStart_SweepsUntilCancelled(t *testing.T) {
	sw := &fakeSweeper{}
	s := New(sw, 5*time.Millisecond, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestTick_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	s := New(&fakeSweeper{err: errors.New("db down")}, time.Second, slog.New(slog.NewTextHandler(&buf, nil)))

	s.tick(context.Background())

	assert.Contains(t, buf.String(), "lock sweep failed")
	assert.Contains(t, buf.String(), "db down")
}

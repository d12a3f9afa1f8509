package task_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

func TestName(t *testing.T) {
	assert.Equal(t, task.Main, task.Name(context.Background()))
	assert.Equal(t, "Creator", task.Name(task.WithName(context.Background(), "Creator")))
	assert.Equal(t, task.Main, task.Name(task.WithName(context.Background(), "")))
}

func TestNotificationOverwrite(t *testing.T) {
	n := task.NewNotification()
	assert.False(t, n.Pending())

	n.Notify(1)
	n.Notify(7)
	assert.True(t, n.Pending())

	v, err := n.Wait(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v, "newer value overwrites the pending one")
	assert.False(t, n.Pending())
}

func TestNotificationTimeout(t *testing.T) {
	n := task.NewNotification()

	start := time.Now()
	_, err := n.Wait(context.Background(), 20*time.Millisecond)
	require.ErrorIs(t, err, task.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestNotificationContextDone(t *testing.T) {
	n := task.NewNotification()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Wait(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotificationCrossTask(t *testing.T) {
	n := task.NewNotification()
	shared := 0

	go func() {
		shared = 42
		n.Notify(1)
	}()

	v, err := n.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)
	assert.Equal(t, 42, shared)
}

func TestSchedulerSpawn(t *testing.T) {
	rec := trace.NewRecorder()
	s, err := task.NewScheduler(1, task.WithTrace(trace.NewEmitter(rec, "run")))
	require.NoError(t, err)

	var got string
	h, err := s.Spawn(context.Background(), task.Spec{Name: "Creator", Priority: 3}, func(ctx context.Context, arg any) {
		got = task.Name(ctx) + ":" + arg.(string)
	}, "arg")
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not finish")
	}
	assert.Equal(t, "Creator:arg", got)
	assert.Equal(t, task.DefaultStackSize, h.Spec().StackSize)
	require.NoError(t, s.Release(time.Second))

	transitions := rec.Transitions(trace.ResourceTask)
	require.Len(t, transitions, 2)
	assert.Equal(t, trace.StateRunning, transitions[0].NewState)
	assert.Equal(t, trace.StateAbsent, transitions[1].NewState)
}

func TestSchedulerCapacity(t *testing.T) {
	s, err := task.NewScheduler(1)
	require.NoError(t, err)

	h, err := s.Spawn(context.Background(), task.Spec{Name: "first"}, func(ctx context.Context, _ any) {
		<-ctx.Done()
	}, nil)
	require.NoError(t, err)

	_, err = s.Spawn(context.Background(), task.Spec{Name: "second"}, func(context.Context, any) {}, nil)
	assert.ErrorIs(t, err, task.ErrSpawnFailed)

	h.Cancel()
	<-h.Done()
	require.NoError(t, s.Release(time.Second))
}

func TestSchedulerSlotFreeOnceDone(t *testing.T) {
	s, err := task.NewScheduler(1)
	require.NoError(t, err)
	defer s.Release(time.Second)
	assert.Equal(t, 1, s.Cap())

	park := func(ctx context.Context, _ any) { <-ctx.Done() }
	for i := 0; i < 50; i++ {
		h, err := s.Spawn(context.Background(), task.Spec{Name: "Creator"}, park, nil)
		require.NoError(t, err, "spawn %d", i)
		assert.Equal(t, 1, s.Running())

		h.Cancel()
		<-h.Done()
		assert.Zero(t, s.Running())
	}
}

func TestNewSchedulerRejectsZeroCapacity(t *testing.T) {
	_, err := task.NewScheduler(0)
	assert.ErrorIs(t, err, task.ErrSpawnFailed)
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s, err := task.NewScheduler(1)
	require.NoError(t, err)
	defer s.Release(time.Second)

	_, err = s.Spawn(context.Background(), task.Spec{}, func(context.Context, any) {}, nil)
	assert.ErrorIs(t, err, task.ErrInvalidSpec)

	_, err = s.Spawn(context.Background(), task.Spec{Name: "x", StackSize: -1}, func(context.Context, any) {}, nil)
	assert.ErrorIs(t, err, task.ErrInvalidSpec)
}

func TestSchedulerParentCancel(t *testing.T) {
	s, err := task.NewScheduler(2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	_, err = s.Spawn(ctx, task.Spec{Name: "parked"}, func(ctx context.Context, _ any) {
		defer wg.Done()
		<-ctx.Done()
	}, nil)
	require.NoError(t, err)

	cancel()
	wg.Wait()
	require.NoError(t, s.Release(time.Second))
}

func TestSchedulerReleaseTimeout(t *testing.T) {
	s, err := task.NewScheduler(1)
	require.NoError(t, err)

	block := make(chan struct{})
	defer close(block)
	_, err = s.Spawn(context.Background(), task.Spec{Name: "stuck"}, func(context.Context, any) {
		<-block
	}, nil)
	require.NoError(t, err)

	err = s.Release(10 * time.Millisecond)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, task.ErrSpawnFailed))
}

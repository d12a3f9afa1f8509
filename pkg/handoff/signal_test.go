package handoff_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlshandoff/handoff-go/pkg/handoff"
	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

func TestSignalRaiseThenAwait(t *testing.T) {
	rec := trace.NewRecorder()
	sig := handoff.NewSignal(50*time.Millisecond, trace.NewEmitter(rec, "run"))

	sig.Raise(task.WithName(context.Background(), "Creator"), handoff.ValueCreated)
	v, err := sig.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, handoff.ValueCreated, v)

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, trace.SignalRaised, events[0].Signal.Kind)
	assert.Equal(t, "Creator", events[0].Task)
	assert.Equal(t, trace.SignalWaiting, events[1].Signal.Kind)
	assert.Equal(t, 50*time.Millisecond, events[1].Signal.Timeout)
	assert.Equal(t, trace.SignalReceived, events[2].Signal.Kind)
	assert.Equal(t, task.Main, events[2].Task)
}

func TestSignalTimeout(t *testing.T) {
	sig := handoff.NewSignal(10*time.Millisecond, nil)
	_, err := sig.Await(context.Background())
	require.ErrorIs(t, err, handoff.ErrHandoffTimeout)
	assert.Equal(t, 10*time.Millisecond, sig.Timeout())

	// A late raise is still observable by a later wait.
	sig.Raise(context.Background(), handoff.ValueCreated)
	v, err := sig.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, handoff.ValueCreated, v)
}

package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_FiltersByRun(t *testing.T) {
	m := NewManager(zerolog.Nop())
	ch, unsubscribe := m.Subscribe(ForRun("a"), 10)
	defer unsubscribe()

	m.Emit(RunStarted, "simulation", "b", nil)
	m.Emit(RunStarted, "simulation", "a", map[string]interface{}{"symbols": 3})

	require.Len(t, ch, 1)
	event := <-ch
	assert.Equal(t, RunStarted, event.Type)
	assert.Equal(t, "a", event.RunID)
	assert.Equal(t, 3, event.Data["symbols"])
	assert.False(t, event.Timestamp.IsZero())
}

func TestSubscribe_DropsWhenFull(t *testing.T) {
	m := NewManager(zerolog.Nop())
	ch, unsubscribe := m.Subscribe(nil, 1)
	defer unsubscribe()

	m.Emit(FrameSimulated, "simulation", "a", nil)
	m.Emit(FrameSimulated, "simulation", "a", nil)

	assert.Len(t, ch, 1)
}

func TestSubscribe_TerminalEventEvictsOldest(t *testing.T) {
	m := NewManager(zerolog.Nop())
	ch, unsubscribe := m.Subscribe(ForRun("a"), 2)
	defer unsubscribe()

	m.Emit(FrameSimulated, "simulation", "a", map[string]interface{}{"frame": 1})
	m.Emit(FrameSimulated, "simulation", "a", map[string]interface{}{"frame": 2})
	m.Emit(FrameSimulated, "simulation", "a", map[string]interface{}{"frame": 3})
	m.Emit(RunCompleted, "simulation", "a", nil)

	require.Len(t, ch, 2)
	first := <-ch
	assert.Equal(t, FrameSimulated, first.Type)
	assert.Equal(t, 2, first.Data["frame"])
	last := <-ch
	assert.Equal(t, RunCompleted, last.Type)
}

func TestUnsubscribe_ClosesAndIsIdempotent(t *testing.T) {
	m := NewManager(zerolog.Nop())
	ch, unsubscribe := m.Subscribe(nil, 1)
	assert.Equal(t, 1, m.Subscribers())

	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, m.Subscribers())

	// emitting with no subscribers is fine
	m.Emit(RunCompleted, "simulation", "a", nil)
}

func TestEmitError(t *testing.T) {
	m := NewManager(zerolog.Nop())
	ch, unsubscribe := m.Subscribe(nil, 1)
	defer unsubscribe()

	m.EmitError("simulation", "r1", errors.New("boom"), map[string]interface{}{"frame": 30})

	event := <-ch
	assert.Equal(t, ErrorOccurred, event.Type)
	assert.Equal(t, "boom", event.Data["error"])
	assert.Equal(t, 30, event.Data["frame"])
}

func TestTerminal(t *testing.T) {
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunFailed.Terminal())
	assert.False(t, FrameSimulated.Terminal())
}

package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-vinput/internal/uapi"
)

func TestEventsFIFOOrder(t *testing.T) {
	q := NewEvents(8)

	for i := int32(0); i < 5; i++ {
		require.NoError(t, q.Push(uapi.InputEvent{Type: uapi.EvRel, Code: uapi.RelX, Value: i}))
	}
	assert.Equal(t, 5, q.Len())

	for i := int32(0); i < 5; i++ {
		ev, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, ev.Value)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestEventsDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewEvents(0).Cap())
	assert.Equal(t, DefaultCapacity, NewEvents(-1).Cap())
	assert.Equal(t, 16, NewEvents(16).Cap())
}

func TestEventsSaturationRejectsWithoutRecording(t *testing.T) {
	q := NewEvents(2)

	require.NoError(t, q.Push(uapi.Key(30, true)))
	require.NoError(t, q.Push(uapi.SynReport()))

	err := q.Push(uapi.Key(31, true))
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, q.Len())

	// The rejected event left no trace: draining yields only the two
	// accepted events.
	ev, _ := q.Pop()
	assert.Equal(t, uint16(30), ev.Code)
	ev, _ = q.Pop()
	assert.Equal(t, uint16(uapi.SynReportCode), ev.Code)
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestEventsRetryAfterDrain(t *testing.T) {
	q := NewEvents(1)

	require.NoError(t, q.Push(uapi.Key(30, true)))
	require.ErrorIs(t, q.Push(uapi.Key(31, true)), ErrFull)

	q.Pop()
	require.NoError(t, q.Push(uapi.Key(31, true)))
}

func TestPushBatchAtomic(t *testing.T) {
	q := NewEvents(4)

	require.NoError(t, q.PushBatch(uapi.Key(30, true), uapi.SynReport()))
	require.NoError(t, q.Push(uapi.Key(31, true)))
	assert.Equal(t, 3, q.Len())

	// Two more events do not fit; the batch must be rejected whole even
	// though one slot remains.
	err := q.PushBatch(uapi.Key(32, true), uapi.SynReport())
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 3, q.Len())

	require.NoError(t, q.PushBatch(uapi.SynReport()))
	assert.Equal(t, 4, q.Len())
}

func TestPushBatchEmpty(t *testing.T) {
	q := NewEvents(1)
	require.NoError(t, q.PushBatch())
	assert.Equal(t, 0, q.Len())
}

func TestPeekDoesNotConsume(t *testing.T) {
	q := NewEvents(4)
	require.NoError(t, q.Push(uapi.Key(30, true)))

	for i := 0; i < 3; i++ {
		ev, ok := q.Peek()
		require.True(t, ok)
		assert.Equal(t, uint16(30), ev.Code)
	}
	assert.Equal(t, 1, q.Len())
}

func TestClear(t *testing.T) {
	q := NewEvents(4)
	require.NoError(t, q.PushBatch(uapi.Key(30, true), uapi.SynReport()))

	q.Clear()
	assert.Equal(t, 0, q.Len())
	_, ok := q.Peek()
	assert.False(t, ok)

	// Queue remains usable after clearing.
	require.NoError(t, q.Push(uapi.SynReport()))
	assert.Equal(t, 1, q.Len())
}

func TestEventsConcurrentProducers(t *testing.T) {
	q := NewEvents(1024)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 64; i++ {
				assert.NoError(t, q.PushBatch(uapi.Key(30, true), uapi.SynReport()))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*64*2, q.Len())

	// Batches interleave but never split: scanning the queue, every key
	// event is followed by its sync terminator.
	for q.Len() > 0 {
		ev, _ := q.Pop()
		require.Equal(t, uint16(uapi.EvKey), ev.Type)
		ev, _ = q.Pop()
		require.Equal(t, uint16(uapi.EvSyn), ev.Type)
	}
}

package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "coopaml/pkg/domain"
	audit "coopaml/pkg/platform/audit"
	"coopaml/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	coopID := id.CooperativeID(uuid.New())
	event := audit.Event{
		CooperativeID: coopID,
		Action:        string(audit.EventFlagCreated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), coopID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventFlagCreated), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category, "category derived from action")
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp filled in")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	coopID := id.CooperativeID(uuid.New())
	event := audit.Event{
		CooperativeID: coopID,
		Action:        string(audit.EventCaseClosed),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), coopID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCaseClosed), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	coopID := id.CooperativeID(uuid.New())

	for range 10 {
		event := audit.Event{
			CooperativeID: coopID,
			Action:        string(audit.EventTTRRejected),
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all buffered events
	pub.Close()

	events, err := store.ListByCooperative(context.Background(), coopID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	coopID := id.CooperativeID(uuid.New())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := audit.Event{
				CooperativeID: coopID,
				Action:        string(audit.EventFlagCreated),
			}
			_ = pub.Emit(context.Background(), event)
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListByCooperative(context.Background(), coopID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(events), 50)
	assert.Equal(t, int64(50-len(events)), pub.Dropped(), "drops are counted")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventFlagCreated)})
	assert.NoError(t, err, "emit after close is a no-op, not a panic")
}

func TestPublisher_EmitRacingClose(t *testing.T) {
	// Emitters keep running while Close fires; none of them may hit the
	// closed inbox.
	for range 20 {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store, WithAsyncBuffer(4))

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 25 {
					_ = pub.Emit(context.Background(), audit.Event{
						Action: string(audit.EventFlagCreated),
					})
				}
			}()
		}
		pub.Close()
		wg.Wait()
	}
}

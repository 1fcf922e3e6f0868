package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitStampsMissingTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), Event{
		Actor:  "42",
		Action: ActionRecordSubmitted,
	}))

	events, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestEmitKeepsExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	at := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), Event{
		Actor:     "42",
		Action:    ActionRecordDeleted,
		Timestamp: at,
	}))

	events, err := store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, at.Equal(events[0].Timestamp))
}

func TestListByActorFilters(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	ctx := context.Background()
	require.NoError(t, pub.Emit(ctx, Event{Actor: "42", Action: ActionRecordSubmitted, RecordID: 1}))
	require.NoError(t, pub.Emit(ctx, Event{Actor: "unverified", Action: ActionProofRejected}))
	require.NoError(t, pub.Emit(ctx, Event{Actor: "42", Action: ActionRecordSubmitted, RecordID: 2}))

	events, err := pub.ListByActor(ctx, "42")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].RecordID)
	assert.Equal(t, int64(2), events[1].RecordID)
}

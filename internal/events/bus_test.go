package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToTypedSubscriber(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsub := Subscribe[PassCompleted](b, 1)
	defer unsub()

	evt := PassCompleted{PassID: "p1", Succeeded: true, Documents: 7}
	require.NoError(t, b.Publish(context.Background(), evt))

	got := <-ch
	require.Equal(t, "p1", got.PassID)
	require.Equal(t, 7, got.Documents)
}

func TestBus_PublishIgnoresOtherEventTypes(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsub := Subscribe[PassCompleted](b, 1)
	defer unsub()

	require.NoError(t, b.Publish(context.Background(), ChangeDetected{Path: "a.md"}))

	select {
	case <-ch:
		t.Fatal("subscriber received event of wrong type")
	default:
	}
}

func TestBus_UnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsub := Subscribe[ChangeDetected](b, 1)
	require.Equal(t, 1, SubscriberCount[ChangeDetected](b))

	unsub()
	require.Equal(t, 0, SubscriberCount[ChangeDetected](b))

	_, open := <-ch
	require.False(t, open)
}

func TestBus_PublishBlockedOnFullBufferHonorsContext(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsub := Subscribe[ChangeDetected](b, 0)
	defer unsub()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, ChangeDetected{Path: "a.md"})
	require.Error(t, err)
}

func TestBus_CloseClosesSubscriptionChannels(t *testing.T) {
	b := NewBus()
	ch, _ := Subscribe[PassCompleted](b, 1)

	b.Close()

	_, open := <-ch
	require.False(t, open)

	require.Error(t, b.Publish(context.Background(), PassCompleted{}))
}

func TestBus_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := NewBus()
	b.Close()

	ch, unsub := Subscribe[PassCompleted](b, 1)
	unsub()

	_, open := <-ch
	require.False(t, open)
}

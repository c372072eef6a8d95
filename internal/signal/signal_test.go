package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, TopicWorkspace)
	require.NoError(t, err)

	want := Event{Kind: KindProgress, ProjectID: "p1", Progress: 42}
	require.NoError(t, bus.Publish(TopicWorkspace, want))

	assert.Equal(t, want, recv(t, events))
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workspace, err := bus.Subscribe(ctx, TopicWorkspace)
	require.NoError(t, err)
	statusCh, err := bus.Subscribe(ctx, TopicStatus)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(TopicStatus, Event{Kind: KindStatus, Message: "hi"}))

	assert.Equal(t, "hi", recv(t, statusCh).Message)
	select {
	case ev := <-workspace:
		t.Fatalf("workspace topic received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEverySubscriberGetsTheEvent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := bus.Subscribe(ctx, TopicWorkspace)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, TopicWorkspace)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(TopicWorkspace, Event{Kind: KindLocked}))

	assert.Equal(t, KindLocked, recv(t, a).Kind)
	assert.Equal(t, KindLocked, recv(t, b).Kind)
}

func TestSubscribeChannelClosesOnCancel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx, TopicWorkspace)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}
}

func TestOrderPreservedPerTopic(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, TopicWorkspace)
	require.NoError(t, err)

	kinds := []Kind{KindLocked, KindProgress, KindProgress, KindCompleted}
	for _, k := range kinds {
		require.NoError(t, bus.Publish(TopicWorkspace, Event{Kind: k}))
	}
	for _, k := range kinds {
		assert.Equal(t, k, recv(t, events).Kind)
	}
}

func TestRapidLockUnlockPairsStayOrdered(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, TopicWorkspace)
	require.NoError(t, err)

	// A failed embedding run emits locked then unlocked back to back. An
	// inversion would leave every panel disabled with no task running.
	go func() {
		for i := 0; i < 50; i++ {
			bus.Publish(TopicWorkspace, Event{Kind: KindLocked})
			bus.Publish(TopicWorkspace, Event{Kind: KindUnlocked})
		}
	}()
	for i := 0; i < 50; i++ {
		require.Equal(t, KindLocked, recv(t, events).Kind, "pair %d", i)
		require.Equal(t, KindUnlocked, recv(t, events).Kind, "pair %d", i)
	}
}

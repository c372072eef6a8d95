package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/internal/signal"
)

func TestReportPublishesStatusEvent(t *testing.T) {
	bus := signal.NewBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, signal.TopicStatus)
	require.NoError(t, err)

	NewReporter(bus, nil).Report("Saved.", false)

	select {
	case ev := <-events:
		assert.Equal(t, signal.KindStatus, ev.Kind)
		assert.Equal(t, "Saved.", ev.Message)
		assert.False(t, ev.IsError)
		assert.Equal(t, int(DefaultDuration/time.Millisecond), ev.DurationMs)
	case <-time.After(2 * time.Second):
		t.Fatal("no status event")
	}
}

func TestReportForOverridesDuration(t *testing.T) {
	bus := signal.NewBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, signal.TopicStatus)
	require.NoError(t, err)

	NewReporter(bus, nil).ReportFor("Slow down.", true, 10*time.Second)

	select {
	case ev := <-events:
		assert.True(t, ev.IsError)
		assert.Equal(t, 10000, ev.DurationMs)
	case <-time.After(2 * time.Second):
		t.Fatal("no status event")
	}
}

func TestFormattedHelpers(t *testing.T) {
	bus := signal.NewBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Subscribe(ctx, signal.TopicStatus)
	require.NoError(t, err)

	r := NewReporter(bus, nil)
	r.Successf("Uploaded %d files", 3)
	r.Errorf("Failed to delete %q", "a.pdf")

	first := <-events
	assert.Equal(t, "Uploaded 3 files", first.Message)
	assert.False(t, first.IsError)
	second := <-events
	assert.Equal(t, `Failed to delete "a.pdf"`, second.Message)
	assert.True(t, second.IsError)
}

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/socratic/core"
)

func collect(t *testing.T, ch <-chan TaggedEvent, n int) []TaggedEvent {
	t.Helper()
	out := make([]TaggedEvent, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for %d events, got %d", n, len(out))
		}
	}
	return out
}

func TestPublishAssignsMonotonicIDs(t *testing.T) {
	b := NewInMemory()

	id1, err := b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "a"})
	require.NoError(t, err)
	id2, err := b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "b"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	// Ids are per run, not global.
	other, err := b.Publish("run-2", core.StreamEvent{Kind: core.StreamToken, Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestSubscribeReplaysHistory(t *testing.T) {
	b := NewInMemory()
	_, err := b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "early"})
	require.NoError(t, err)

	ch, err := b.Subscribe(context.Background(), "run-1", 0)
	require.NoError(t, err)

	events := collect(t, ch, 1)
	assert.Equal(t, "early", events[0].Event.Text)
	assert.Equal(t, int64(1), events[0].ID)
}

func TestSubscribeResumeSkipsSeenEvents(t *testing.T) {
	b := NewInMemory()
	for _, text := range []string{"one", "two", "three"} {
		_, err := b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: text})
		require.NoError(t, err)
	}

	ch, err := b.Subscribe(context.Background(), "run-1", 2)
	require.NoError(t, err)

	events := collect(t, ch, 1)
	assert.Equal(t, "three", events[0].Event.Text)
	assert.Equal(t, int64(3), events[0].ID)
}

func TestSubscribeTerminatesOnAssessmentComplete(t *testing.T) {
	b := NewInMemory()
	ch, err := b.Subscribe(context.Background(), "run-1", 0)
	require.NoError(t, err)

	_, err = b.Publish("run-1", core.StreamEvent{Kind: core.StreamMessageDone, Text: "bye"})
	require.NoError(t, err)
	_, err = b.Publish("run-1", core.StreamEvent{Kind: core.StreamAssessmentComplete})
	require.NoError(t, err)

	events := collect(t, ch, 2)
	assert.Equal(t, core.StreamAssessmentComplete, events[1].Event.Kind)

	// Channel closes after the terminal event.
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after assessment_complete")
	}
}

func TestCloseReleasesSubscribersAndRejectsPublish(t *testing.T) {
	b := NewInMemory()
	ch, err := b.Subscribe(context.Background(), "run-1", 0)
	require.NoError(t, err)

	require.NoError(t, b.Close("run-1"))

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after Close")
	}

	_, err = b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscribeContextCancel(t *testing.T) {
	b := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "run-1", 0)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close after cancel")
	}
}

func TestSubscribeResumePastEndOfClosedStream(t *testing.T) {
	b := NewInMemory()
	_, err := b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "only"})
	require.NoError(t, err)
	require.NoError(t, b.Close("run-1"))

	ch, err := b.Subscribe(context.Background(), "run-1", 5)
	require.NoError(t, err)

	// Nothing to replay; the channel just closes.
	select {
	case ev, ok := <-ch:
		assert.False(t, ok, "unexpected event %+v", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close for out-of-range resume")
	}
}

func TestSubscribeResumePastEndOfOpenStream(t *testing.T) {
	b := NewInMemory()
	_, err := b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "old"})
	require.NoError(t, err)

	ch, err := b.Subscribe(context.Background(), "run-1", 99)
	require.NoError(t, err)

	// Only events published after the subscription arrive.
	_, err = b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "new"})
	require.NoError(t, err)

	events := collect(t, ch, 1)
	assert.Equal(t, "new", events[0].Event.Text)
	assert.Equal(t, int64(2), events[0].ID)
}

func TestSubscribeNegativeResume(t *testing.T) {
	b := NewInMemory()
	_, err := b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "first"})
	require.NoError(t, err)

	ch, err := b.Subscribe(context.Background(), "run-1", -7)
	require.NoError(t, err)

	events := collect(t, ch, 1)
	assert.Equal(t, "first", events[0].Event.Text)
	assert.Equal(t, int64(1), events[0].ID)
}

func TestSlowSubscriberMissesNothing(t *testing.T) {
	b := NewInMemory()
	ch, err := b.Subscribe(context.Background(), "run-1", 0)
	require.NoError(t, err)

	const n = 50
	go func() {
		for i := 0; i < n; i++ {
			_, _ = b.Publish("run-1", core.StreamEvent{Kind: core.StreamToken, Text: "t"})
		}
		_, _ = b.Publish("run-1", core.StreamEvent{Kind: core.StreamAssessmentComplete})
	}()

	events := collect(t, ch, n+1)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.ID)
	}
}

// Package broker implements the live event stream between a running
// assessment and its consumers. Events are tagged with monotonic per-run ids
// so a dropped consumer can resume from the last id it saw; a subscription
// terminates once the assessment_complete event has been delivered.
package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/socratic/core"
)

// ErrClosed is returned when publishing to a closed run stream.
var ErrClosed = errors.New("broker: stream closed")

// TaggedEvent pairs an event with its per-run sequence id.
type TaggedEvent struct {
	ID    int64
	Event core.StreamEvent
}

// Broker is the stream contract consumed by run drivers and UIs.
type Broker interface {
	// Publish appends an event to the run's stream and returns its id.
	Publish(runID string, event core.StreamEvent) (int64, error)

	// Subscribe returns a channel replaying events with id greater than
	// resumeFrom, then delivering live events. The channel closes when the
	// context is canceled, the stream is closed and drained, or an
	// assessment_complete event has been delivered.
	Subscribe(ctx context.Context, runID string, resumeFrom int64) (<-chan TaggedEvent, error)

	// Close ends the run's stream. Buffered events stay readable until
	// every subscriber drains them.
	Close(runID string) error
}

// InMemory is the process-local Broker. Safe for concurrent use.
type InMemory struct {
	mu      sync.Mutex
	streams map[string]*stream
}

type stream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []TaggedEvent
	closed bool
}

// NewInMemory constructs an empty in-memory broker.
func NewInMemory() *InMemory {
	return &InMemory{streams: make(map[string]*stream)}
}

func (b *InMemory) stream(runID string, create bool) *stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[runID]
	if !ok && create {
		s = &stream{}
		s.cond = sync.NewCond(&s.mu)
		b.streams[runID] = s
	}
	return s
}

// Publish appends the event and wakes waiting subscribers. Ids start at 1 and
// increase by one per event within a run.
func (b *InMemory) Publish(runID string, event core.StreamEvent) (int64, error) {
	s := b.stream(runID, true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	id := int64(len(s.events)) + 1
	s.events = append(s.events, TaggedEvent{ID: id, Event: event})
	s.cond.Broadcast()
	return id, nil
}

// Subscribe replays history after resumeFrom and then follows the live
// stream. An out-of-range offset is clamped: negative resumes from the
// beginning, past-the-end resumes behind the last buffered event.
func (b *InMemory) Subscribe(ctx context.Context, runID string, resumeFrom int64) (<-chan TaggedEvent, error) {
	s := b.stream(runID, true)
	out := make(chan TaggedEvent)

	s.mu.Lock()
	if resumeFrom < 0 {
		resumeFrom = 0
	}
	if n := int64(len(s.events)); resumeFrom > n {
		resumeFrom = n
	}
	s.mu.Unlock()

	// Wake the waiting loop when the context goes away, since cond.Wait
	// cannot observe ctx.Done on its own.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})

	go func() {
		defer close(out)
		defer stop()

		next := resumeFrom
		for {
			s.mu.Lock()
			for int64(len(s.events)) <= next && !s.closed && ctx.Err() == nil {
				s.cond.Wait()
			}
			batch := make([]TaggedEvent, int64(len(s.events))-next)
			copy(batch, s.events[next:])
			closed := s.closed
			s.mu.Unlock()

			for _, ev := range batch {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				next = ev.ID
				if ev.Event.Kind == core.StreamAssessmentComplete {
					return
				}
			}

			if ctx.Err() != nil || (closed && len(batch) == 0) {
				return
			}
		}
	}()

	return out, nil
}

// Close marks the run's stream ended and releases waiting subscribers.
func (b *InMemory) Close(runID string) error {
	s := b.stream(runID, false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}

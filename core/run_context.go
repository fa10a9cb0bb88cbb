package core

import (
	"context"

	"github.com/hupe1980/socratic/logging"
)

// StreamEventKind tags live events emitted while a run executes.
type StreamEventKind string

const (
	// StreamToken is an incremental model output fragment.
	StreamToken StreamEventKind = "token"
	// StreamMessageDone marks the completion of one assistant message.
	StreamMessageDone StreamEventKind = "message_done"
	// StreamAssessmentComplete marks the end of the whole assessment.
	StreamAssessmentComplete StreamEventKind = "assessment_complete"
	// StreamError reports a run failure to subscribers.
	StreamError StreamEventKind = "error"
)

// StreamEvent is the payload fanned out to live subscribers.
type StreamEvent struct {
	Kind StreamEventKind `json:"kind"`
	Text string          `json:"text,omitempty"`
}

// RunContext carries the ambient execution scope for one scheduler run:
// cancellation, correlation identifiers, a structured logger and an optional
// sink for live stream events. It imposes no deadline of its own; timeout and
// retry policy belong to the model-invocation collaborator.
type RunContext struct {
	Context   context.Context
	AttemptID string
	RunID     string
	Logger    logging.Logger
	// Sink receives live stream events. Nil disables streaming.
	Sink func(StreamEvent)
}

// NewRunContext constructs a RunContext. A nil logger defaults to NoOp.
func NewRunContext(ctx context.Context, attemptID, runID string, logger logging.Logger) *RunContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &RunContext{Context: ctx, AttemptID: attemptID, RunID: runID, Logger: logger}
}

// Done returns the cancellation channel of the underlying context.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error of the underlying context, if any.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Emit forwards a stream event to the sink when one is configured.
func (rc *RunContext) Emit(ev StreamEvent) {
	if rc.Sink != nil {
		rc.Sink(ev)
	}
}

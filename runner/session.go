// Package runner drives assessment attempts end to end: it owns the interview
// agent for one attempt, persists the transcript as it grows, bridges live
// events onto the stream broker and, once the attempt completes, hands the
// transcript to the evaluation pipeline.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/socratic/broker"
	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/eval"
	"github.com/hupe1980/socratic/interview"
	"github.com/hupe1980/socratic/logging"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/store"
)

// ErrAttemptOpen is returned by Evaluate while the interview is still running.
var ErrAttemptOpen = errors.New("runner: attempt still open")

// Options configures a Session.
type Options struct {
	// Broker receives live stream events. Defaults to an in-memory broker.
	Broker broker.Broker
	// Attempts, Transcripts and Evaluations default to in-memory stores.
	Attempts    store.AttemptStore
	Transcripts store.TranscriptStore
	Evaluations store.EvaluationStore
	// EvalModel runs the evaluation pipeline. Defaults to the interview
	// model.
	EvalModel model.Model
	// FeedbackModel generates learner feedback. Defaults to EvalModel.
	FeedbackModel model.Model
	// Conviviality sets the farewell tone.
	Conviviality interview.Conviviality
	// MaxModelCalls bounds model invocations per submitted utterance. Zero
	// means unbounded.
	MaxModelCalls int
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Session owns one attempt from first utterance to persisted evaluation. It
// is not safe for concurrent Submits; one learner speaks at a time.
type Session struct {
	attemptID string
	learnerID string
	objective string

	agent    *interview.Agent
	pipeline *eval.Pipeline

	broker      broker.Broker
	attempts    store.AttemptStore
	transcripts store.TranscriptStore
	evaluations store.EvaluationStore
	logger      logging.Logger

	// persisted counts history messages already written to the transcript
	// store, so each Submit appends only the new tail.
	persisted int
}

// NewSession creates the attempt record and wires the interview agent.
func NewSession(ctx context.Context, llm model.Model, attemptID, learnerID, objectiveID string, rubrics store.RubricStore, optFns ...func(o *Options)) (*Session, error) {
	opts := Options{
		Broker:      broker.NewInMemory(),
		Attempts:    store.NewInMemoryAttemptStore(),
		Transcripts: store.NewInMemoryTranscriptStore(),
		Evaluations: store.NewInMemoryEvaluationStore(),
		EvalModel:   llm,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FeedbackModel == nil {
		opts.FeedbackModel = opts.EvalModel
	}

	obj, rub, err := rubrics.Get(ctx, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("load rubric for %s: %w", objectiveID, err)
	}

	state := interview.NewState(obj, rub)
	agent, err := interview.NewAgent(llm, state, func(o *interview.AgentOptions) {
		o.FarewellModel = opts.FeedbackModel
		o.Conviviality = opts.Conviviality
		o.EnableStreaming = true
		o.MaxModelCalls = opts.MaxModelCalls
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := eval.New(opts.EvalModel, func(o *eval.Options) {
		o.FeedbackModel = opts.FeedbackModel
	})
	if err != nil {
		return nil, err
	}

	if err := opts.Attempts.Create(ctx, &store.Attempt{
		ID:          attemptID,
		LearnerID:   learnerID,
		ObjectiveID: objectiveID,
		Status:      store.AttemptInProgress,
		StartedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	return &Session{
		attemptID:   attemptID,
		learnerID:   learnerID,
		objective:   objectiveID,
		agent:       agent,
		pipeline:    pipeline,
		broker:      opts.Broker,
		attempts:    opts.Attempts,
		transcripts: opts.Transcripts,
		evaluations: opts.Evaluations,
		logger:      opts.Logger,
	}, nil
}

// Broker exposes the session's event stream for subscribers.
func (s *Session) Broker() broker.Broker { return s.broker }

// Agent exposes the underlying interview agent.
func (s *Session) Agent() *interview.Agent { return s.agent }

// Open reports whether the attempt still accepts utterances.
func (s *Session) Open() bool { return s.agent.Open() }

// Submit feeds one learner utterance through the scheduler. Tokens and
// message completions are published live; a turn ending without the
// termination tool leaves the attempt open for the next Submit. Run failures
// are published as error events and returned.
func (s *Session) Submit(ctx context.Context, learnerText string) error {
	if !s.agent.Open() {
		return fmt.Errorf("runner: attempt %s already complete", s.attemptID)
	}

	rc := core.NewRunContext(ctx, s.attemptID, core.NewID(), s.logger)
	rc.Sink = func(ev core.StreamEvent) {
		if _, err := s.broker.Publish(s.attemptID, ev); err != nil {
			s.logger.Warn("runner.publish_failed", "attempt", s.attemptID, "kind", string(ev.Kind))
		}
	}

	runErr := s.agent.Step(rc, learnerText)

	if err := s.persistNewMessages(ctx); err != nil {
		s.logger.Error("runner.persist_failed", "attempt", s.attemptID, "error", err.Error())
	}

	if runErr != nil {
		rc.Emit(core.StreamEvent{Kind: core.StreamError, Text: runErr.Error()})
		return runErr
	}

	if !s.agent.Open() {
		if err := s.markCompleted(ctx); err != nil {
			return err
		}
		rc.Emit(core.StreamEvent{Kind: core.StreamAssessmentComplete})
		if err := s.broker.Close(s.attemptID); err != nil {
			s.logger.Warn("runner.close_failed", "attempt", s.attemptID)
		}
	}
	return nil
}

// Evaluate runs the pipeline over the persisted transcript and stores the
// write-once output. The attempt must be complete.
func (s *Session) Evaluate(ctx context.Context) (*eval.Output, error) {
	if s.agent.Open() {
		return nil, ErrAttemptOpen
	}

	segments, err := s.transcripts.List(ctx, s.attemptID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	in := eval.Input{
		Objective: s.agent.State().Objective(),
		Rubric:    s.agent.State().Rubric(),
		Segments:  make([]eval.Segment, 0, len(segments)),
	}
	for _, seg := range segments {
		in.Segments = append(in.Segments, eval.Segment{ID: seg.ID, Role: seg.Role, Text: seg.Text})
	}

	rc := core.NewRunContext(ctx, s.attemptID, core.NewID(), s.logger)
	output, err := s.pipeline.Evaluate(rc, in)
	if err != nil {
		return nil, err
	}

	if err := s.evaluations.Put(ctx, s.attemptID, output); err != nil {
		return nil, fmt.Errorf("persist evaluation: %w", err)
	}

	attempt, err := s.attempts.Get(ctx, s.attemptID)
	if err == nil {
		attempt.Status = store.AttemptEvaluated
		if err := s.attempts.Update(ctx, attempt); err != nil {
			s.logger.Warn("runner.attempt_update_failed", "attempt", s.attemptID)
		}
	}

	return output, nil
}

// persistNewMessages appends the history tail produced by the last Step to
// the transcript store. Tool traffic stays out of the transcript; only what
// was actually said is evaluated.
func (s *Session) persistNewMessages(ctx context.Context) error {
	messages := s.agent.State().History().Messages()
	for ; s.persisted < len(messages); s.persisted++ {
		msg := messages[s.persisted]
		if msg.Role != core.RoleUser && msg.Role != core.RoleAssistant {
			continue
		}
		if msg.Text == "" {
			continue
		}
		if err := s.transcripts.Append(ctx, store.Segment{
			ID:        msg.ID,
			AttemptID: s.attemptID,
			Role:      msg.Role,
			Text:      msg.Text,
			CreatedAt: msg.Timestamp,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) markCompleted(ctx context.Context) error {
	attempt, err := s.attempts.Get(ctx, s.attemptID)
	if err != nil {
		return fmt.Errorf("load attempt: %w", err)
	}
	now := time.Now().UTC()
	attempt.Status = store.AttemptCompleted
	attempt.CompletedAt = &now
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	return nil
}

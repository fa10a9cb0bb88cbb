// Package socratic provides a high-level façade over the interview agent,
// the evaluation pipeline and the service abstractions (stores, broker &
// logging) for running AI-led oral assessments. Most applications interact
// with this package by:
//  1. Creating a Socratic via New() (optionally overriding default in-memory services)
//  2. Registering objectives with their rubrics
//  3. Starting a Session per attempt, feeding it learner utterances and
//     evaluating once the interview ends
//
// The façade delegates turn scheduling to engine.Engine and grading to
// eval.Pipeline while keeping setup and usage ergonomics concise. All
// defaults are safe for local development and testing; production deployments
// typically supply durable store implementations and a structured logger.
package socratic

import (
	"context"

	"github.com/hupe1980/socratic/broker"
	"github.com/hupe1980/socratic/interview"
	"github.com/hupe1980/socratic/logging"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/rubric"
	"github.com/hupe1980/socratic/runner"
	"github.com/hupe1980/socratic/store"
)

// Options configures the Socratic instance.
type Options struct {
	// EvalModel runs the evaluation pipeline. Defaults to the interview model.
	EvalModel model.Model
	// FeedbackModel generates learner feedback and farewells. Defaults to
	// EvalModel.
	FeedbackModel model.Model

	// Conviviality sets the farewell tone for all sessions.
	Conviviality interview.Conviviality

	// MaxModelCalls bounds model invocations per submitted utterance.
	// Zero means unbounded.
	MaxModelCalls int

	// Stores and broker (default to in-memory implementations if not provided)
	Broker      broker.Broker
	Attempts    store.AttemptStore
	Rubrics     *store.InMemoryRubricStore
	Transcripts store.TranscriptStore
	Evaluations store.EvaluationStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Socratic is the high-level façade aggregating the models and services.
type Socratic struct {
	llm  model.Model
	opts Options
}

// New creates a Socratic instance around an interview model with optional
// overrides. Any unset service is initialized with an in-memory
// implementation.
func New(llm model.Model, optFns ...func(o *Options)) *Socratic {
	opts := Options{
		Broker:      broker.NewInMemory(),
		Attempts:    store.NewInMemoryAttemptStore(),
		Rubrics:     store.NewInMemoryRubricStore(),
		Transcripts: store.NewInMemoryTranscriptStore(),
		Evaluations: store.NewInMemoryEvaluationStore(),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.EvalModel == nil {
		opts.EvalModel = llm
	}
	if opts.FeedbackModel == nil {
		opts.FeedbackModel = opts.EvalModel
	}

	return &Socratic{llm: llm, opts: opts}
}

// RegisterObjective adds an objective with its rubric to the rubric store.
func (s *Socratic) RegisterObjective(objectiveID string, obj rubric.Objective, rub rubric.Rubric) {
	s.opts.Rubrics.Register(objectiveID, obj, rub)
}

// StartSession creates an attempt and its interview session.
func (s *Socratic) StartSession(ctx context.Context, attemptID, learnerID, objectiveID string) (*runner.Session, error) {
	return runner.NewSession(ctx, s.llm, attemptID, learnerID, objectiveID, s.opts.Rubrics, func(o *runner.Options) {
		o.Broker = s.opts.Broker
		o.Attempts = s.opts.Attempts
		o.Transcripts = s.opts.Transcripts
		o.Evaluations = s.opts.Evaluations
		o.EvalModel = s.opts.EvalModel
		o.FeedbackModel = s.opts.FeedbackModel
		o.Conviviality = s.opts.Conviviality
		o.MaxModelCalls = s.opts.MaxModelCalls
		o.Logger = s.opts.Logger
	})
}

// Broker exposes the shared event stream for subscribers.
func (s *Socratic) Broker() broker.Broker { return s.opts.Broker }

// Evaluations exposes the evaluation store for result retrieval.
func (s *Socratic) Evaluations() store.EvaluationStore { return s.opts.Evaluations }

package interview

import (
	"errors"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/engine"
	"github.com/hupe1980/socratic/logging"
	"github.com/hupe1980/socratic/model"
)

// AgentOptions configures the interview agent.
type AgentOptions struct {
	// FarewellModel composes the closing message. Defaults to the
	// interviewer's model; a cheaper one is usually sufficient.
	FarewellModel model.Model
	// Conviviality sets the farewell tone.
	Conviviality Conviviality
	// EnableStreaming forwards model tokens to the run context sink.
	EnableStreaming bool
	// MaxModelCalls bounds model invocations per activation. Zero means
	// unbounded.
	MaxModelCalls int
	// Logger receives the sub-agent's structured logs.
	Logger logging.Logger
}

// Agent is the Socratic interviewer. One Agent serves one attempt; it owns the
// attempt's State and the scheduler configured with the interview hooks and
// the single termination tool.
type Agent struct {
	state  *State
	engine *engine.Engine
}

// NewAgent wires the interviewer around a model and an attempt state.
func NewAgent(llm model.Model, state *State, optFns ...func(o *AgentOptions)) (*Agent, error) {
	if state == nil {
		return nil, errors.New("interview: state is required")
	}

	opts := AgentOptions{
		FarewellModel: llm,
		Conviviality:  Professional,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	farewell, err := NewFarewell(opts.FarewellModel, func(o *FarewellOptions) {
		o.Conviviality = opts.Conviviality
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	hooks := engine.Hooks{
		SystemPrompt: SystemPrompt,
		UpdateStatus: UpdateStatus,
		Exit: func(s core.AgentState) bool {
			return s.Completed()
		},
		BeforeWork: func(s core.AgentState) (*core.StateDelta, error) {
			if is, ok := s.(*State); ok {
				is.Start()
			}
			return nil, nil
		},
	}

	eng, err := engine.New(llm, hooks, func(o *engine.Options) {
		o.Tools = append(o.Tools, NewEndAssessmentTool(farewell))
		o.EnableStreaming = opts.EnableStreaming
		o.MaxModelCalls = opts.MaxModelCalls
	})
	if err != nil {
		return nil, err
	}

	return &Agent{state: state, engine: eng}, nil
}

// State returns the agent's attempt state.
func (a *Agent) State() *State { return a.state }

// Step runs one activation: the learner utterance is appended to the history
// and the scheduler executes until its end node. When the activation ends
// without the termination tool firing the attempt simply stays open for the
// next Step.
func (a *Agent) Step(rc *core.RunContext, learnerText string) error {
	a.state.History().Append(core.NewUserMessage(learnerText))
	return a.engine.Run(rc, a.state)
}

// Open is the inverse of AssessmentComplete, convenient for run drivers.
func (a *Agent) Open() bool { return !a.state.AssessmentComplete() }

package interview

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/engine"
	"github.com/hupe1980/socratic/internal/util"
	"github.com/hupe1980/socratic/logging"
	"github.com/hupe1980/socratic/model"
)

// Conviviality selects the tone of the closing message.
type Conviviality int

const (
	// Formal keeps the farewell strictly businesslike.
	Formal Conviviality = iota
	// Professional is courteous but impersonal. This is the default.
	Professional
	// Conversational is relaxed and friendly.
	Conversational
	// Collegial is warm, as between peers.
	Collegial
)

// toneSentence maps each conviviality setting to a fixed tone instruction.
func (c Conviviality) toneSentence() string {
	switch c {
	case Formal:
		return "Use a formal, respectful register without warmth or familiarity."
	case Conversational:
		return "Use a relaxed, friendly register, as if chatting after class."
	case Collegial:
		return "Use a warm, collegial register, as between trusted peers."
	default:
		return "Use a courteous, professional register."
	}
}

const farewellPromptTemplate = `You write the single closing message of an assessment interview that has just ended.

The assessment topic was: {{ .Title }}

{{ .Tone }}

Constraints:
- Write one to two sentences only.
- Thank the learner and close the conversation.
- Ask no questions and introduce no new topics.`

// Farewell is the single-turn sub-agent that composes the closing message.
// It carries no tools, so its graph necessarily takes the model-to-end edge
// on its first and only pass: start, status, model, end.
type Farewell struct {
	engine       *engine.Engine
	conviviality Conviviality
	logger       logging.Logger
}

// FarewellOptions configures the farewell sub-agent.
type FarewellOptions struct {
	Conviviality Conviviality
	Logger       logging.Logger
}

// NewFarewell builds the sub-agent around a (typically cheaper) model.
func NewFarewell(llm model.Model, optFns ...func(o *FarewellOptions)) (*Farewell, error) {
	opts := FarewellOptions{Conviviality: Professional, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	f := &Farewell{conviviality: opts.Conviviality, logger: opts.Logger}

	eng, err := engine.New(llm, engine.Hooks{SystemPrompt: f.systemPrompt})
	if err != nil {
		return nil, err
	}
	f.engine = eng
	return f, nil
}

// farewellState is the throwaway state for one composition pass.
type farewellState struct {
	*core.BaseState
	objectiveTitle string
}

func (f *Farewell) systemPrompt(state core.AgentState) (string, error) {
	fs, ok := state.(*farewellState)
	if !ok {
		return "", fmt.Errorf("interview: unexpected farewell state type %T", state)
	}
	return util.RenderTemplate(farewellPromptTemplate, map[string]any{
		"Title": fs.objectiveTitle,
		"Tone":  f.conviviality.toneSentence(),
	})
}

// Compose runs the sub-agent synchronously and returns the closing message.
func (f *Farewell) Compose(ctx context.Context, objectiveTitle string) (core.Message, error) {
	state := &farewellState{BaseState: core.NewBaseState(), objectiveTitle: objectiveTitle}
	state.History().Append(core.NewUserMessage("The assessment has just concluded. Write the closing message now."))

	rc := core.NewRunContext(ctx, "", core.NewID(), f.logger)
	if err := f.engine.Run(rc, state); err != nil {
		return core.Message{}, err
	}

	closing, ok := state.History().LastAssistant()
	if !ok {
		return core.Message{}, errors.New("interview: farewell produced no message")
	}
	return closing, nil
}

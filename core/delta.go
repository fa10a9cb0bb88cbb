package core

// StateDelta is a typed mutation record. Tools and lifecycle hooks return a
// delta instead of reaching into state directly; the scheduler applies it
// centrally, which keeps mutation auditable and testable in isolation.
type StateDelta struct {
	// Completed, when non-nil, sets the run's completion flag.
	Completed *bool
	// Append lists messages to add to the history, in order.
	Append []Message
	// Fields carries agent-specific mutations (e.g. criterion coverage)
	// interpreted by the concrete state's Apply implementation. Unknown
	// keys are ignored.
	Fields map[string]any
}

// Bool is a small helper for optional boolean delta fields.
func Bool(b bool) *bool { return &b }

// IsEmpty reports whether applying the delta would be a no-op.
func (d *StateDelta) IsEmpty() bool {
	return d == nil || (d.Completed == nil && len(d.Append) == 0 && len(d.Fields) == 0)
}

// AgentState is the contract the turn scheduler requires from any agent
// state. Concrete agents embed BaseState and extend Apply to interpret their
// own delta fields.
type AgentState interface {
	// History returns the durable conversation record.
	History() *History
	// Turn returns the transient per-turn status slot.
	Turn() *TurnContext
	// Completed reports whether the run's exit condition has been set.
	Completed() bool
	// Apply merges a state delta into the state.
	Apply(delta *StateDelta) error
}

// BaseState is a minimal AgentState implementation handling the completion
// flag and message appends. Embed it and override Apply for agent-specific
// delta fields, delegating back for the base behavior.
type BaseState struct {
	hist      *History
	turn      *TurnContext
	completed bool
}

// NewBaseState creates an empty base state.
func NewBaseState() *BaseState {
	return &BaseState{hist: NewHistory(), turn: NewTurnContext()}
}

// History implements AgentState.
func (s *BaseState) History() *History { return s.hist }

// Turn implements AgentState.
func (s *BaseState) Turn() *TurnContext { return s.turn }

// Completed implements AgentState.
func (s *BaseState) Completed() bool { return s.completed }

// Apply implements AgentState for the base fields. Setting Completed to true
// when it is already true is a no-op.
func (s *BaseState) Apply(delta *StateDelta) error {
	if delta.IsEmpty() {
		return nil
	}
	if delta.Completed != nil {
		s.completed = *delta.Completed
	}
	if len(delta.Append) > 0 {
		s.hist.Append(delta.Append...)
	}
	return nil
}

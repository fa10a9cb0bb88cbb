// Package interview implements the Socratic interview agent and its farewell
// sub-agent on top of the turn scheduler. The interviewer is driven by a
// single static system prompt plus a per-turn status summary, deliberately
// not a hard-coded phase machine: pacing and termination decisions are
// delegated to the model, constrained only by the rendered status and the
// presence of exactly one termination tool.
package interview

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/rubric"
)

// CoverageLevel describes how thoroughly a criterion has been explored.
type CoverageLevel int

const (
	// CoverageNotStarted means the criterion has not been touched.
	CoverageNotStarted CoverageLevel = iota
	// CoveragePartial means the criterion has been probed but not exhausted.
	CoveragePartial
	// CoverageFull means the criterion has been fully explored.
	CoverageFull
)

// String returns the human-readable coverage label.
func (l CoverageLevel) String() string {
	switch l {
	case CoveragePartial:
		return "Partial"
	case CoverageFull:
		return "Full"
	default:
		return "Not Started"
	}
}

// CriterionCoverage records exploration progress for one rubric criterion.
type CriterionCoverage struct {
	CriterionID string        `json:"criterion_id"`
	Name        string        `json:"name"`
	Level       CoverageLevel `json:"level"`
	Evidence    []string      `json:"evidence,omitempty"`
}

// Delta field keys interpreted by State.Apply.
const (
	// FieldCoverage carries a []CriterionCoverage merged by criterion id.
	FieldCoverage = "coverage"
	// FieldSeedPromptUsed carries a seed prompt string to mark consumed.
	FieldSeedPromptUsed = "seed_prompt_used"
)

// StateOptions configures a new interview State.
type StateOptions struct {
	SeedPrompts       []string
	TimeBudgetMinutes float64
	StartTime         *time.Time
}

// State is the interview agent's conversation state. Context fields
// (objective, rubric, seed prompts, time budget) are set once and immutable
// for the run's lifetime; coverage and the completion flag mutate only
// through applied state deltas.
type State struct {
	*core.BaseState

	objective rubric.Objective
	rubric    rubric.Rubric

	mu          sync.RWMutex
	allSeeds    []string // full list, immutable after construction
	seedPrompts []string // remaining, in original order
	budget      float64  // minutes; 0 means no budget
	startTime   *time.Time
	coverage    map[string]CriterionCoverage
}

// NewState creates an interview state for one attempt.
func NewState(obj rubric.Objective, rub rubric.Rubric, optFns ...func(o *StateOptions)) *State {
	opts := StateOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &State{
		BaseState: core.NewBaseState(),
		objective: obj,
		rubric:    rub,
		budget:    opts.TimeBudgetMinutes,
		startTime: opts.StartTime,
		coverage:  map[string]CriterionCoverage{},
	}
	s.allSeeds = append(s.allSeeds, opts.SeedPrompts...)
	s.seedPrompts = append(s.seedPrompts, opts.SeedPrompts...)
	return s
}

// WithSeedPrompts supplies conversation starters surfaced in the status.
func WithSeedPrompts(prompts ...string) func(o *StateOptions) {
	return func(o *StateOptions) { o.SeedPrompts = prompts }
}

// WithTimeBudget sets the soft interview budget in minutes.
func WithTimeBudget(minutes float64) func(o *StateOptions) {
	return func(o *StateOptions) { o.TimeBudgetMinutes = minutes }
}

// WithStartTime records when the interview began. Without it elapsed time is
// undefined and omitted from the status.
func WithStartTime(t time.Time) func(o *StateOptions) {
	return func(o *StateOptions) { o.StartTime = &t }
}

// Objective returns the immutable objective context.
func (s *State) Objective() rubric.Objective { return s.objective }

// Rubric returns the immutable rubric context.
func (s *State) Rubric() rubric.Rubric { return s.rubric }

// TimeBudgetMinutes returns the configured budget, 0 when none is set.
func (s *State) TimeBudgetMinutes() float64 { return s.budget }

// Start records the interview start timestamp if not already set.
func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime == nil {
		now := time.Now().UTC()
		s.startTime = &now
	}
}

// StartTime returns the recorded start timestamp, if any.
func (s *State) StartTime() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime == nil {
		return time.Time{}, false
	}
	return *s.startTime, true
}

// ElapsedMinutes returns minutes since the start timestamp. The second
// return is false when no start time was recorded. Timestamps are normalized
// to UTC so wall-clock location never skews the duration.
func (s *State) ElapsedMinutes() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime == nil {
		return 0, false
	}
	return time.Now().UTC().Sub(s.startTime.UTC()).Minutes(), true
}

// TurnCount returns the number of learner messages so far.
func (s *State) TurnCount() int { return s.History().TurnCount() }

// AssessmentComplete reports whether the ending tool has fired. This flag is
// the only admissible termination signal; it is never inferred from model
// text.
func (s *State) AssessmentComplete() bool { return s.Completed() }

// SeedPrompts returns the full configured seed prompt list.
func (s *State) SeedPrompts() []string {
	out := make([]string, len(s.allSeeds))
	copy(out, s.allSeeds)
	return out
}

// RemainingSeedPrompts returns the seed prompts not yet marked used.
func (s *State) RemainingSeedPrompts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.seedPrompts))
	copy(out, s.seedPrompts)
	return out
}

// MarkSeedPromptUsed removes a seed prompt from the remaining set.
func (s *State) MarkSeedPromptUsed(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.seedPrompts {
		if p == prompt {
			s.seedPrompts = append(s.seedPrompts[:i], s.seedPrompts[i+1:]...)
			return
		}
	}
}

// Coverage returns a copy of all recorded coverage entries, unordered.
func (s *State) Coverage() []CriterionCoverage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CriterionCoverage, 0, len(s.coverage))
	for _, cc := range s.coverage {
		out = append(out, cc)
	}
	return out
}

// CoverageFor returns the coverage entry for a criterion, if recorded.
func (s *State) CoverageFor(criterionID string) (CriterionCoverage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cc, ok := s.coverage[criterionID]
	return cc, ok
}

// SetCoverage records or replaces a coverage entry. Exposed for run drivers
// that assess coverage outside the tool path.
func (s *State) SetCoverage(cc CriterionCoverage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coverage[cc.CriterionID] = cc
}

// Apply extends the base delta application with the interview-specific
// fields. Unknown field keys are ignored.
func (s *State) Apply(delta *core.StateDelta) error {
	if delta.IsEmpty() {
		return nil
	}

	for key, value := range delta.Fields {
		switch key {
		case FieldCoverage:
			entries, ok := value.([]CriterionCoverage)
			if !ok {
				return fmt.Errorf("interview: %s delta must be []CriterionCoverage, got %T", FieldCoverage, value)
			}
			for _, cc := range entries {
				s.SetCoverage(cc)
			}
		case FieldSeedPromptUsed:
			prompt, ok := value.(string)
			if !ok {
				return fmt.Errorf("interview: %s delta must be string, got %T", FieldSeedPromptUsed, value)
			}
			s.MarkSeedPromptUsed(prompt)
		}
	}

	return s.BaseState.Apply(delta)
}

package interview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/rubric"
)

func testRubric() rubric.Rubric {
	return rubric.Rubric{
		Criteria: []rubric.Criterion{
			{ID: "c1", Name: "Alpha", Description: "first"},
			{ID: "c2", Name: "Zebra", Description: "second"},
		},
	}
}

func testObjective() rubric.Objective {
	return rubric.Objective{Title: "Explain recursion", Description: "Base cases and self-reference."}
}

func TestElapsedMinutesUnsetStart(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	_, ok := s.ElapsedMinutes()
	assert.False(t, ok)
}

func TestElapsedMinutesWithStart(t *testing.T) {
	start := time.Now().UTC().Add(-10 * time.Minute)
	s := NewState(testObjective(), testRubric(), WithStartTime(start))

	elapsed, ok := s.ElapsedMinutes()
	require.True(t, ok)
	assert.InDelta(t, 10.0, elapsed, 0.3)
}

func TestStartIsIdempotent(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	s.Start()
	first, ok := s.StartTime()
	require.True(t, ok)

	s.Start()
	second, _ := s.StartTime()
	assert.Equal(t, first, second)
}

func TestTurnCountCountsLearnerMessages(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	s.History().Append(
		core.NewUserMessage("hi"),
		core.NewAssistantMessage("welcome"),
		core.NewUserMessage("ready"),
	)
	assert.Equal(t, 2, s.TurnCount())
}

func TestApplyCoverageDelta(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	require.NoError(t, s.Apply(&core.StateDelta{
		Fields: map[string]any{
			FieldCoverage: []CriterionCoverage{
				{CriterionID: "c1", Name: "Alpha", Level: CoveragePartial, Evidence: []string{"mentioned base cases"}},
			},
		},
	}))

	cc, ok := s.CoverageFor("c1")
	require.True(t, ok)
	assert.Equal(t, CoveragePartial, cc.Level)
	assert.Len(t, cc.Evidence, 1)

	// Replacement, not merge, per criterion.
	require.NoError(t, s.Apply(&core.StateDelta{
		Fields: map[string]any{
			FieldCoverage: []CriterionCoverage{
				{CriterionID: "c1", Name: "Alpha", Level: CoverageFull},
			},
		},
	}))
	cc, _ = s.CoverageFor("c1")
	assert.Equal(t, CoverageFull, cc.Level)
	assert.Empty(t, cc.Evidence)
}

func TestApplyCoverageDeltaWrongType(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	err := s.Apply(&core.StateDelta{Fields: map[string]any{FieldCoverage: "bogus"}})
	assert.Error(t, err)
}

func TestSeedPromptConsumption(t *testing.T) {
	s := NewState(testObjective(), testRubric(), WithSeedPrompts("What is recursion?", "Why base cases?"))

	require.NoError(t, s.Apply(&core.StateDelta{
		Fields: map[string]any{FieldSeedPromptUsed: "What is recursion?"},
	}))

	assert.Equal(t, []string{"Why base cases?"}, s.RemainingSeedPrompts())
	// The full list stays intact for prompt rendering.
	assert.Equal(t, []string{"What is recursion?", "Why base cases?"}, s.SeedPrompts())
}

func TestCompletionFlagViaDelta(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	assert.False(t, s.AssessmentComplete())

	require.NoError(t, s.Apply(&core.StateDelta{Completed: core.Bool(true)}))
	assert.True(t, s.AssessmentComplete())
}

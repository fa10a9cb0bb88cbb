package interview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/socratic/core"
)

func TestRenderStatusEmptyNotices(t *testing.T) {
	s := NewState(testObjective(), testRubric())

	out, err := RenderStatus(s)
	require.NoError(t, err)

	assert.Contains(t, out, "No coverage recorded yet.")
	assert.Contains(t, out, "All prompts used.")
	assert.Contains(t, out, "Learner turns so far: 0")
	assert.NotContains(t, out, "Time:")
}

func TestRenderStatusCoverageOrdering(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	s.SetCoverage(CriterionCoverage{CriterionID: "c2", Name: "Zebra", Level: CoverageNotStarted})
	s.SetCoverage(CriterionCoverage{CriterionID: "c1", Name: "Alpha", Level: CoverageNotStarted})

	out, err := RenderStatus(s)
	require.NoError(t, err)

	// Same level sorts alphabetically by name.
	assert.Less(t, strings.Index(out, "Alpha"), strings.Index(out, "Zebra"))
}

func TestRenderStatusLeastCoveredFirst(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	s.SetCoverage(CriterionCoverage{CriterionID: "c1", Name: "Alpha", Level: CoverageFull})
	s.SetCoverage(CriterionCoverage{CriterionID: "c2", Name: "Zebra", Level: CoveragePartial})

	out, err := RenderStatus(s)
	require.NoError(t, err)

	assert.Less(t, strings.Index(out, "Zebra: Partial"), strings.Index(out, "Alpha: Full"))
}

func TestRenderStatusEvidenceQuoted(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	s.SetCoverage(CriterionCoverage{
		CriterionID: "c1", Name: "Alpha", Level: CoveragePartial,
		Evidence: []string{"recursion calls itself"},
	})

	out, err := RenderStatus(s)
	require.NoError(t, err)
	assert.Contains(t, out, `"recursion calls itself"`)
}

func TestRenderStatusTimeBlocks(t *testing.T) {
	start := time.Now().UTC().Add(-5 * time.Minute)

	withBudget := NewState(testObjective(), testRubric(), WithStartTime(start), WithTimeBudget(20))
	out, err := RenderStatus(withBudget)
	require.NoError(t, err)
	assert.Contains(t, out, "/ 20 min")

	noBudget := NewState(testObjective(), testRubric(), WithStartTime(start))
	out, err = RenderStatus(noBudget)
	require.NoError(t, err)
	assert.Contains(t, out, "min elapsed")
}

func TestUpdateStatusHook(t *testing.T) {
	s := NewState(testObjective(), testRubric())
	msg, err := UpdateStatus(s)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, core.RoleSystem, msg.Role)
	assert.Contains(t, msg.Text, "Current assessment status.")
}

func TestUpdateStatusRejectsForeignState(t *testing.T) {
	_, err := UpdateStatus(core.NewBaseState())
	assert.Error(t, err)
}

func TestSystemPromptContainsContext(t *testing.T) {
	s := NewState(testObjective(), testRubric(),
		WithSeedPrompts("What is recursion?"),
		WithTimeBudget(15),
	)

	out, err := SystemPrompt(s)
	require.NoError(t, err)

	assert.Contains(t, out, "Explain recursion")
	assert.Contains(t, out, "Alpha (c1)")
	assert.Contains(t, out, "What is recursion?")
	assert.Contains(t, out, "15 minutes")
	assert.Contains(t, out, "end_assessment")
}

func TestSystemPromptStableAcrossSeedConsumption(t *testing.T) {
	s := NewState(testObjective(), testRubric(), WithSeedPrompts("One", "Two"))

	before, err := SystemPrompt(s)
	require.NoError(t, err)

	s.MarkSeedPromptUsed("One")
	after, err := SystemPrompt(s)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

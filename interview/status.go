package interview

import (
	"fmt"
	"sort"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/util"
)

// statusTemplate is rendered fresh before every model call. It exists only to
// give the next call situational awareness and is never persisted as
// conversation history.
const statusTemplate = `Current assessment status.

Criterion coverage:
{{ .CoverageBlock }}
Seed prompts:
{{ .SeedBlock }}
Learner turns so far: {{ .TurnCount }}
{{- if .TimeBlock }}
Time: {{ .TimeBlock }}
{{- end }}`

// RenderStatus produces the deterministic per-turn status text.
//
// Coverage entries are sorted least-covered first (Not Started < Partial <
// Full, alphabetical by name within each level) so the model is nudged toward
// unexplored ground. Empty sections render explicit notices instead of
// silently disappearing.
func RenderStatus(s *State) (string, error) {
	data := map[string]any{
		"CoverageBlock": coverageBlock(s.Coverage()),
		"SeedBlock":     seedBlock(s.RemainingSeedPrompts()),
		"TurnCount":     s.TurnCount(),
		"TimeBlock":     timeBlock(s),
	}
	return util.RenderTemplate(statusTemplate, data)
}

// UpdateStatus is the scheduler hook wrapping RenderStatus into a status
// message for the turn context slot.
func UpdateStatus(state core.AgentState) (*core.Message, error) {
	s, ok := state.(*State)
	if !ok {
		return nil, fmt.Errorf("interview: unexpected state type %T", state)
	}
	text, err := RenderStatus(s)
	if err != nil {
		return nil, err
	}
	msg := core.NewSystemMessage(text)
	return &msg, nil
}

// sortCoverage orders entries by (level rank, name). Not Started sorts first
// by construction of the CoverageLevel constants.
func sortCoverage(entries []CriterionCoverage) []CriterionCoverage {
	sorted := make([]CriterionCoverage, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Level != sorted[j].Level {
			return sorted[i].Level < sorted[j].Level
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func coverageBlock(entries []CriterionCoverage) string {
	if len(entries) == 0 {
		return "No coverage recorded yet.\n"
	}
	var out string
	for _, cc := range sortCoverage(entries) {
		out += fmt.Sprintf("- %s: %s", cc.Name, cc.Level)
		for _, ev := range cc.Evidence {
			out += fmt.Sprintf("\n  * %q", ev)
		}
		out += "\n"
	}
	return out
}

func seedBlock(remaining []string) string {
	if len(remaining) == 0 {
		return "All prompts used.\n"
	}
	var out string
	for _, p := range remaining {
		out += "- " + p + "\n"
	}
	return out
}

// timeBlock renders "elapsed / budget min" when both start time and budget
// are set, elapsed alone when only the start time is, and nothing otherwise.
func timeBlock(s *State) string {
	elapsed, ok := s.ElapsedMinutes()
	if !ok {
		return ""
	}
	if budget := s.TimeBudgetMinutes(); budget > 0 {
		return fmt.Sprintf("%.1f / %.0f min", elapsed, budget)
	}
	return fmt.Sprintf("%.1f min elapsed", elapsed)
}

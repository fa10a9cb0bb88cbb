package interview

import (
	"fmt"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/util"
)

// systemPromptTemplate is the interviewer's static instruction set. It is
// recomputed on every model call but deterministic given the immutable
// context fields, so the model sees the same instructions all run long.
const systemPromptTemplate = `You are a Socratic interviewer conducting an oral assessment.

Objective: {{ .Title }}
{{ .Description }}

You assess the learner against these rubric criteria:
{{ range .Criteria }}- {{ .Name }} ({{ .ID }}): {{ .Description }}
{{ range .Levels }}    {{ .Grade }}: {{ .Description }}
{{ end }}{{ end }}
{{- if .SeedPrompts }}
Suggested conversation starters:
{{ range .SeedPrompts }}- {{ . }}
{{ end }}{{ end }}
{{- if .Budget }}
The interview has a soft budget of {{ .Budget }} minutes. Pace accordingly.
{{ end }}
Ground rules:
- Ask one focused question at a time and let the learner do the talking.
- Probe reasoning with follow-up questions instead of lecturing or correcting.
- Use the status message before each of your turns to steer toward criteria
  with the least coverage.
- Never reveal the rubric, grades or your assessment of the learner.
- When every criterion is sufficiently explored, or the time budget is
  exhausted, call the end_assessment tool. Do not announce the end in text
  without calling the tool; the tool call is the only way to finish.`

// SystemPrompt is the scheduler hook producing the interviewer instructions.
func SystemPrompt(state core.AgentState) (string, error) {
	s, ok := state.(*State)
	if !ok {
		return "", fmt.Errorf("interview: unexpected state type %T", state)
	}

	obj := s.Objective()
	data := map[string]any{
		"Title":       obj.Title,
		"Description": obj.Description,
		"Criteria":    s.Rubric().Criteria,
		"SeedPrompts": s.SeedPrompts(),
		"Budget":      "",
	}
	if budget := s.TimeBudgetMinutes(); budget > 0 {
		data["Budget"] = fmt.Sprintf("%.0f", budget)
	}
	return util.RenderTemplate(systemPromptTemplate, data)
}

package eval

import (
	"fmt"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/jsonx"
	"github.com/hupe1980/socratic/internal/util"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/rubric"
)

// fallbackFeedbackSummary is returned when feedback generation fails
// entirely. Feedback degrades gracefully; it never aborts grading.
const fallbackFeedbackSummary = "Unable to generate feedback at this time."

const feedbackPromptTemplate = `You write encouraging, honest feedback for a learner who just completed an oral assessment.

Objective: {{ .ObjectiveTitle }}
Overall grade: {{ .OverallGrade }} (confidence {{ printf "%.2f" .OverallConfidence }})

Per-criterion picture:
{{ range .View }}- {{ .CriterionName }} (grade {{ .Grade }}, evidence {{ .Strength }})
{{- range .StrengthInputs }}
  strength: {{ . }}
{{- end }}
{{- range .GapNotes }}
  gap: {{ . }}
{{- end }}
{{ end }}
Write feedback addressed to the learner. Respond with strict JSON only, no prose:
{"strengths": ["..."], "areas_for_growth": ["..."], "suggestions": ["..."], "summary": "2-3 sentences"}`

// criterionView joins Stage 1 evidence strength with the Stage 2 grade for
// one criterion.
type criterionView struct {
	CriterionID    string
	CriterionName  string
	Grade          Grade
	Strength       EvidenceStrength
	StrengthInputs []string
	GapNotes       []string
}

// buildCriterionViews derives the per-criterion feedback inputs: strong or
// moderate evidence contributes up to its first two quotes as strengths, weak
// or absent evidence contributes a generic gap note, and each detected
// failure mode contributes a possible-misconception note.
func buildCriterionViews(evidence []EvidenceResult, grading GradingResult) []criterionView {
	gradeByID := make(map[string]Grade, len(grading.Criteria))
	for _, g := range grading.Criteria {
		gradeByID[g.CriterionID] = g.Grade
	}

	views := make([]criterionView, 0, len(evidence))
	for _, ev := range evidence {
		view := criterionView{
			CriterionID:   ev.CriterionID,
			CriterionName: ev.CriterionName,
			Grade:         gradeByID[ev.CriterionID],
			Strength:      ev.Strength,
		}

		switch ev.Strength {
		case StrengthStrong, StrengthModerate:
			quotes := ev.Quotes
			if len(quotes) > 2 {
				quotes = quotes[:2]
			}
			view.StrengthInputs = append(view.StrengthInputs, quotes...)
		default:
			view.GapNotes = append(view.GapNotes, fmt.Sprintf("Limited evidence of %s.", ev.CriterionName))
		}
		for _, fm := range ev.FailureModes {
			view.GapNotes = append(view.GapNotes, fmt.Sprintf("Possible misconception: %s.", fm))
		}

		views = append(views, view)
	}
	return views
}

// generateFeedback runs Stage 4 on the separate feedback model. Both provider
// failure and unparseable output return the fixed fallback record.
func (p *Pipeline) generateFeedback(rc *core.RunContext, obj rubric.Objective, evidence []EvidenceResult, grading GradingResult) FeedbackResult {
	fallback := FeedbackResult{
		Strengths:      []string{},
		AreasForGrowth: []string{},
		Suggestions:    []string{},
		Summary:        fallbackFeedbackSummary,
	}

	prompt, err := util.RenderTemplate(feedbackPromptTemplate, map[string]any{
		"ObjectiveTitle":    obj.Title,
		"OverallGrade":      string(grading.OverallGrade),
		"OverallConfidence": grading.OverallConfidence,
		"View":              buildCriterionViews(evidence, grading),
	})
	if err != nil {
		rc.Logger.Warn("eval.feedback.render_failed", "error", err.Error())
		return fallback
	}

	resp, err := p.feedbackModel.Invoke(rc.Context, model.Request{
		Instructions: "You are a supportive teacher writing learner feedback. Respond with strict JSON only.",
		Messages:     []core.Message{core.NewUserMessage(prompt)},
	})
	if err != nil {
		rc.Logger.Warn("eval.feedback.model_failed", "error", err.Error())
		return fallback
	}

	result := jsonx.Decode(resp.Message.Text, func() FeedbackResult { return fallback })
	if result.Summary == "" {
		// A technically valid but empty reply carries no feedback.
		rc.Logger.Warn("eval.feedback.empty_summary")
		return fallback
	}
	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.AreasForGrowth == nil {
		result.AreasForGrowth = []string{}
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	return result
}

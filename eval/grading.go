package eval

import (
	"fmt"
	"strings"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/jsonx"
	"github.com/hupe1980/socratic/internal/util"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/rubric"
)

const gradingPromptTemplate = `You grade one assessment criterion from extracted evidence.

Criterion: {{ .CriterionName }}
{{ .CriterionDescription }}
Proficiency levels:
{{ range .Levels }}- {{ .Grade }}: {{ .Description }}
{{ end }}
Evidence strength: {{ .Strength }}
Quotes:
{{ .Quotes }}
{{- if .FailureModes }}
Detected failure modes: {{ join ", " .FailureModes }}
{{- end }}
Evaluator reasoning: {{ .Reasoning }}

Assign the proficiency level best supported by the evidence. Respond with strict JSON only, no prose:
{"grade": "S|A|C|F", "confidence": 0.0, "reasoning": "one paragraph"}`

type gradingPayload struct {
	Grade      string  `json:"grade"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// gradeCriteria runs Stage 2: one grading call per criterion that has an
// evidence record. Criteria missing from the evidence set are skipped, not
// defaulted. Unparseable model output degrades to grade F at confidence 0.5.
func (p *Pipeline) gradeCriteria(rc *core.RunContext, rub rubric.Rubric, evidence []EvidenceResult) (GradingResult, error) {
	byID := make(map[string]EvidenceResult, len(evidence))
	for _, ev := range evidence {
		byID[ev.CriterionID] = ev
	}

	var graded []CriterionGradeResult
	for _, criterion := range rub.Criteria {
		ev, ok := byID[criterion.ID]
		if !ok {
			continue
		}

		prompt, err := util.RenderTemplate(gradingPromptTemplate, map[string]any{
			"CriterionName":        criterion.Name,
			"CriterionDescription": criterion.Description,
			"Levels":               criterion.Levels,
			"Strength":             string(ev.Strength),
			"Quotes":               quoteList(ev.Quotes),
			"FailureModes":         ev.FailureModes,
			"Reasoning":            ev.Reasoning,
		})
		if err != nil {
			return GradingResult{}, fmt.Errorf("render grading prompt for %s: %w", criterion.ID, err)
		}

		temp := p.temperature
		resp, err := p.evalModel.Invoke(rc.Context, model.Request{
			Instructions: "You are a fair, consistent grader. Respond with strict JSON only.",
			Messages:     []core.Message{core.NewUserMessage(prompt)},
			Temperature:  &temp,
		})
		if err != nil {
			return GradingResult{}, fmt.Errorf("grading for %s: %w", criterion.ID, err)
		}

		graded = append(graded, decodeGrade(criterion, resp.Message.Text))
	}

	overall, confidence := AggregateGrades(graded, rub)
	return GradingResult{
		Criteria:          graded,
		OverallGrade:      overall,
		OverallConfidence: confidence,
		Summary:           gradeSummary(graded, overall),
	}, nil
}

// decodeGrade normalizes a grading payload. A payload with an off-scale grade
// letter is treated the same as an unparseable one.
func decodeGrade(criterion rubric.Criterion, raw string) CriterionGradeResult {
	payload := jsonx.Decode(raw, func() gradingPayload {
		return gradingPayload{Grade: string(GradeF), Confidence: 0.5, Reasoning: "Model output could not be parsed."}
	})

	grade, ok := ParseGrade(payload.Grade)
	confidence := clamp01(payload.Confidence)
	if !ok {
		grade = GradeF
		confidence = 0.5
	}

	return CriterionGradeResult{
		CriterionID:   criterion.ID,
		CriterionName: criterion.Name,
		Grade:         grade,
		Confidence:    confidence,
		Reasoning:     payload.Reasoning,
	}
}

// AggregateGrades computes the overall grade and confidence from the graded
// criteria. The grade is the weight-weighted average of the numeric grade
// values thresholded down an ordered table; the confidence is the minimum
// per-criterion confidence scaled by the fraction of rubric criteria that
// received a grade. Zero graded criteria yields {F, 0.0}, never an error.
func AggregateGrades(graded []CriterionGradeResult, rub rubric.Rubric) (Grade, float64) {
	if len(graded) == 0 || len(rub.Criteria) == 0 {
		return GradeF, 0.0
	}

	var weightedSum, totalWeight float64
	minConfidence := 1.0
	for _, g := range graded {
		w := rub.WeightFor(g.CriterionID)
		weightedSum += g.Grade.Value() * w
		totalWeight += w
		if g.Confidence < minConfidence {
			minConfidence = g.Confidence
		}
	}
	if totalWeight == 0 {
		return GradeF, 0.0
	}

	avg := weightedSum / totalWeight
	fraction := float64(len(graded)) / float64(len(rub.Criteria))

	return thresholdGrade(avg), minConfidence * fraction
}

// thresholdGrade maps a weighted average down the ordered threshold table,
// first match wins.
func thresholdGrade(avg float64) Grade {
	switch {
	case avg >= 2.5:
		return GradeS
	case avg >= 1.5:
		return GradeA
	case avg >= 0.5:
		return GradeC
	default:
		return GradeF
	}
}

func gradeSummary(graded []CriterionGradeResult, overall Grade) string {
	parts := make([]string, 0, len(graded))
	for _, g := range graded {
		parts = append(parts, fmt.Sprintf("%s: %s", g.CriterionName, g.Grade))
	}
	if len(parts) == 0 {
		return "No criteria were graded."
	}
	return fmt.Sprintf("Overall %s (%s).", overall, strings.Join(parts, ", "))
}

func quoteList(quotes []string) string {
	if len(quotes) == 0 {
		return "(no quotes)"
	}
	var b strings.Builder
	for _, q := range quotes {
		fmt.Fprintf(&b, "- %q\n", q)
	}
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

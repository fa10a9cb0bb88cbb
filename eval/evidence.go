package eval

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/jsonx"
	"github.com/hupe1980/socratic/internal/util"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/rubric"
)

const evidencePromptTemplate = `You extract evidence from an assessment interview transcript.

Objective: {{ .ObjectiveTitle }}
{{ .ObjectiveDescription }}

Criterion under review: {{ .CriterionName }}
{{ .CriterionDescription }}
Proficiency levels:
{{ range .Levels }}- {{ .Grade }}: {{ .Description }}
{{ end }}
Transcript:
{{ .Transcript }}

Find every place the learner demonstrates, or fails to demonstrate, this criterion. Quote the learner verbatim. Respond with strict JSON only, no prose:
{"found": bool, "quotes": ["verbatim learner quote"], "strength": "strong|moderate|weak|none", "failure_modes": ["named misconception"], "reasoning": "one paragraph"}`

// evidencePayload is the wire shape Stage 1 expects back from the model.
type evidencePayload struct {
	Found        bool     `json:"found"`
	Quotes       []string `json:"quotes"`
	Strength     string   `json:"strength"`
	FailureModes []string `json:"failure_modes"`
	Reasoning    string   `json:"reasoning"`
}

// extractEvidence fans out one low-temperature model call per criterion and
// collects results in input criterion order regardless of completion order.
// Unparseable model output degrades to a "no evidence, unparseable" record;
// provider failures propagate and cancel the remaining calls.
func (p *Pipeline) extractEvidence(rc *core.RunContext, obj rubric.Objective, rub rubric.Rubric, transcript string) ([]EvidenceResult, error) {
	results := make([]EvidenceResult, len(rub.Criteria))

	g, ctx := errgroup.WithContext(rc.Context)
	for i, criterion := range rub.Criteria {
		g.Go(func() error {
			prompt, err := util.RenderTemplate(evidencePromptTemplate, map[string]any{
				"ObjectiveTitle":       obj.Title,
				"ObjectiveDescription": obj.Description,
				"CriterionName":        criterion.Name,
				"CriterionDescription": criterion.Description,
				"Levels":               criterion.Levels,
				"Transcript":           transcript,
			})
			if err != nil {
				return fmt.Errorf("render evidence prompt for %s: %w", criterion.ID, err)
			}

			temp := p.temperature
			resp, err := p.evalModel.Invoke(ctx, model.Request{
				Instructions: "You are a meticulous assessment evaluator. Respond with strict JSON only.",
				Messages:     []core.Message{core.NewUserMessage(prompt)},
				Temperature:  &temp,
			})
			if err != nil {
				return fmt.Errorf("evidence extraction for %s: %w", criterion.ID, err)
			}

			results[i] = decodeEvidence(criterion, resp.Message.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// decodeEvidence applies the layered parse and normalizes the payload into an
// EvidenceResult for the given criterion.
func decodeEvidence(criterion rubric.Criterion, raw string) EvidenceResult {
	payload := jsonx.Decode(raw, func() evidencePayload {
		return evidencePayload{
			Strength:  string(StrengthNone),
			Reasoning: "Model output could not be parsed.",
		}
	})

	return EvidenceResult{
		CriterionID:   criterion.ID,
		CriterionName: criterion.Name,
		Found:         payload.Found,
		Quotes:        payload.Quotes,
		Strength:      ParseStrength(payload.Strength),
		FailureModes:  payload.FailureModes,
		Reasoning:     payload.Reasoning,
	}
}

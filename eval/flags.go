package eval

import (
	"fmt"
	"strings"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/jsonx"
	"github.com/hupe1980/socratic/internal/util"
	"github.com/hupe1980/socratic/model"
)

// modelFlagThreshold is the minimum confidence a model-detected flag needs to
// be admitted.
const modelFlagThreshold = 0.7

const (
	lowConfidenceThreshold = 0.6
	fluencyWordThreshold   = 500
	fluencyQuoteThreshold  = 3
	lowConfidenceFlagScore = 1.0
	highFluencyFlagScore   = 0.75
)

const flagPromptTemplate = `You review an assessment interview for risk signals.

Transcript:
{{ .Transcript }}

Evidence strength per criterion:
{{ range .Evidence }}- {{ .CriterionName }}: {{ .Strength }} ({{ len .Quotes }} quotes)
{{ end }}
Known flag types: high_fluency_low_substance, repeated_evasion, possible_gaming, low_confidence.

Report only signals you are confident about. Respond with strict JSON only, no prose:
{"flags": [{"type": "flag_type", "confidence": 0.0, "evidence": "supporting observation", "reasoning": "why"}], "assessment": "one paragraph overall"}`

type flagPayload struct {
	Flags []struct {
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
		Evidence   string  `json:"evidence"`
		Reasoning  string  `json:"reasoning"`
	} `json:"flags"`
	Assessment string `json:"assessment"`
}

// detectFlags runs Stage 3: one model call for judgment-based flags plus the
// deterministic heuristics, merged model-first and deduplicated by type.
func (p *Pipeline) detectFlags(rc *core.RunContext, segments []Segment, evidence []EvidenceResult, overallConfidence float64) (FlagResult, error) {
	prompt, err := util.RenderTemplate(flagPromptTemplate, map[string]any{
		"Transcript": renderTranscript(segments),
		"Evidence":   evidence,
	})
	if err != nil {
		return FlagResult{}, fmt.Errorf("render flag prompt: %w", err)
	}

	temp := p.temperature
	resp, err := p.evalModel.Invoke(rc.Context, model.Request{
		Instructions: "You are a vigilant assessment reviewer. Respond with strict JSON only.",
		Messages:     []core.Message{core.NewUserMessage(prompt)},
		Temperature:  &temp,
	})
	if err != nil {
		return FlagResult{}, fmt.Errorf("flag detection: %w", err)
	}

	payload := jsonx.Decode(resp.Message.Text, func() flagPayload { return flagPayload{} })

	var modelFlags []FlagDetail
	for _, f := range payload.Flags {
		flagType, ok := ParseFlagType(f.Type)
		if !ok {
			// Unknown flag types from the model are dropped, not errors.
			rc.Logger.Debug("eval.flags.unknown_type", "type", f.Type)
			continue
		}
		if f.Confidence < modelFlagThreshold {
			continue
		}
		modelFlags = append(modelFlags, FlagDetail{
			Type:       flagType,
			Confidence: clamp01(f.Confidence),
			Evidence:   f.Evidence,
			Reasoning:  f.Reasoning,
		})
	}

	heuristics := HeuristicFlags(overallConfidence, LearnerWordCount(segments), totalQuotes(evidence))

	return FlagResult{
		Details:    MergeFlags(modelFlags, heuristics),
		Assessment: payload.Assessment,
	}, nil
}

// HeuristicFlags computes the deterministic flags that need no model call.
func HeuristicFlags(overallConfidence float64, learnerWords, quoteCount int) []FlagDetail {
	var flags []FlagDetail
	if overallConfidence < lowConfidenceThreshold {
		flags = append(flags, FlagDetail{
			Type:       FlagLowConfidence,
			Confidence: lowConfidenceFlagScore,
			Reasoning:  fmt.Sprintf("Overall grading confidence %.2f is below %.1f.", overallConfidence, lowConfidenceThreshold),
		})
	}
	if learnerWords > fluencyWordThreshold && quoteCount < fluencyQuoteThreshold {
		flags = append(flags, FlagDetail{
			Type:       FlagHighFluencyLowSubstance,
			Confidence: highFluencyFlagScore,
			Reasoning:  fmt.Sprintf("Learner produced %d words but only %d evidence quotes were extracted.", learnerWords, quoteCount),
		})
	}
	return flags
}

// MergeFlags concatenates model-detected and heuristic flags in that order and
// deduplicates by type, first occurrence wins.
func MergeFlags(modelFlags, heuristicFlags []FlagDetail) []FlagDetail {
	seen := map[FlagType]bool{}
	var merged []FlagDetail
	for _, f := range append(append([]FlagDetail{}, modelFlags...), heuristicFlags...) {
		if seen[f.Type] {
			continue
		}
		seen[f.Type] = true
		merged = append(merged, f)
	}
	return merged
}

// LearnerWordCount counts whitespace-separated words across learner segments.
func LearnerWordCount(segments []Segment) int {
	count := 0
	for _, s := range segments {
		if s.Role == core.RoleUser {
			count += len(strings.Fields(s.Text))
		}
	}
	return count
}

func totalQuotes(evidence []EvidenceResult) int {
	count := 0
	for _, ev := range evidence {
		count += len(ev.Quotes)
	}
	return count
}

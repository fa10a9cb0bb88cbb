package eval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/rubric"
)

// Options configures a Pipeline.
type Options struct {
	// FeedbackModel generates Stage 4 output. Defaults to the evaluation
	// model; a smaller one is usually sufficient.
	FeedbackModel model.Model
	// Temperature for the evidence, grading and flag calls. Low by default
	// so repeated evaluations of the same transcript stay close.
	Temperature float64
}

// Pipeline is the four-stage evaluator. It holds no mutable state across
// calls; one Pipeline may evaluate many attempts concurrently.
type Pipeline struct {
	evalModel     model.Model
	feedbackModel model.Model
	temperature   float64
}

// New constructs a pipeline around an evaluation model.
func New(evalModel model.Model, optFns ...func(o *Options)) (*Pipeline, error) {
	if evalModel == nil {
		return nil, errors.New("eval: model is required")
	}

	opts := Options{FeedbackModel: evalModel, Temperature: 0.1}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Pipeline{
		evalModel:     evalModel,
		feedbackModel: opts.FeedbackModel,
		temperature:   opts.Temperature,
	}, nil
}

// Input is one evaluation request.
type Input struct {
	Objective rubric.Objective
	Rubric    rubric.Rubric
	Segments  []Segment
}

// Evaluate runs the four stages in order and assembles the final output.
// Stage 2 never begins before Stage 1 has completed for every criterion,
// Stage 3 consumes Stage 2's overall confidence and Stage 4 consumes the
// overall grade, so the stages run sequentially.
func (p *Pipeline) Evaluate(rc *core.RunContext, in Input) (*Output, error) {
	if len(in.Rubric.Criteria) == 0 {
		return nil, errors.New("eval: rubric has no criteria")
	}

	transcript := renderTranscript(in.Segments)

	evidence, err := p.extractEvidence(rc, in.Objective, in.Rubric, transcript)
	if err != nil {
		return nil, fmt.Errorf("stage 1: %w", err)
	}
	rc.Logger.Info("eval.evidence.done", "criteria", len(evidence))

	grading, err := p.gradeCriteria(rc, in.Rubric, evidence)
	if err != nil {
		return nil, fmt.Errorf("stage 2: %w", err)
	}
	rc.Logger.Info("eval.grading.done", "grade", string(grading.OverallGrade), "confidence", grading.OverallConfidence)

	flags, err := p.detectFlags(rc, in.Segments, evidence, grading.OverallConfidence)
	if err != nil {
		return nil, fmt.Errorf("stage 3: %w", err)
	}
	rc.Logger.Info("eval.flags.done", "count", len(flags.Details))

	feedback := p.generateFeedback(rc, in.Objective, evidence, grading)

	strengths, gaps := mergeObservations(feedback, evidence)

	return &Output{
		Evidence:            evidence,
		Grading:             grading,
		Flags:               flags,
		Feedback:            feedback,
		SegmentsByCriterion: MapEvidenceToSegments(evidence, in.Segments),
		Strengths:           strengths,
		Gaps:                gaps,
	}, nil
}

// MapEvidenceToSegments associates each extracted quote with every transcript
// segment whose content contains it, case-insensitive and best-effort rather
// than exact span alignment. Segment id lists are deduplicated per criterion.
func MapEvidenceToSegments(evidence []EvidenceResult, segments []Segment) map[string][]string {
	out := map[string][]string{}
	for _, ev := range evidence {
		seen := map[string]bool{}
		for _, quote := range ev.Quotes {
			needle := strings.ToLower(quote)
			if needle == "" {
				continue
			}
			for _, seg := range segments {
				if !strings.Contains(strings.ToLower(seg.Text), needle) || seen[seg.ID] {
					continue
				}
				seen[seg.ID] = true
				out[ev.CriterionID] = append(out[ev.CriterionID], seg.ID)
			}
		}
	}
	return out
}

// mergeObservations takes the feedback lists as primary and supplements them
// with evidence-derived observations, deduplicating while preserving
// first-seen order.
func mergeObservations(feedback FeedbackResult, evidence []EvidenceResult) (strengths, gaps []string) {
	strengths = append(strengths, feedback.Strengths...)
	gaps = append(gaps, feedback.AreasForGrowth...)

	for _, ev := range evidence {
		if ev.Strength == StrengthStrong {
			strengths = append(strengths, fmt.Sprintf("Strong understanding of %s", ev.CriterionName))
		}
		for _, fm := range ev.FailureModes {
			gaps = append(gaps, fmt.Sprintf("Misconception detected: %s", fm))
		}
	}

	return dedupe(strengths), dedupe(gaps)
}

func dedupe(items []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// renderTranscript flattens segments into prompt text with speaker labels.
func renderTranscript(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		label := "Interviewer"
		if s.Role == core.RoleUser {
			label = "Learner"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, s.Text)
	}
	return b.String()
}

package eval

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/rubric"
)

// routedModel answers each request from a routing function keyed on its
// content, which keeps concurrent Stage 1 calls deterministic.
type routedModel struct {
	route func(req model.Request) string
}

func (m *routedModel) Invoke(_ context.Context, req model.Request) (*model.Response, error) {
	return &model.Response{Message: core.NewAssistantMessage(m.route(req)), FinishReason: "stop"}, nil
}

func (m *routedModel) Stream(ctx context.Context, req model.Request) (<-chan model.Chunk, <-chan error) {
	out := make(chan model.Chunk, 1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		resp, err := m.Invoke(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		out <- model.Chunk{Final: resp}
	}()
	return out, errCh
}

func (m *routedModel) Info() model.Info {
	return model.Info{Name: "routed", Provider: "test", SupportsTools: true}
}

func promptText(req model.Request) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Text
}

func pipelineInput() Input {
	return Input{
		Objective: rubric.Objective{Title: "Explain photosynthesis"},
		Rubric: rubric.Rubric{
			Criteria: []rubric.Criterion{
				{ID: "c1", Name: "Inputs", Description: "Names the inputs."},
				{ID: "c2", Name: "Mechanism", Description: "Explains the mechanism."},
			},
		},
		Segments: []Segment{
			{ID: "s1", Role: core.RoleAssistant, Text: "What does a plant need?"},
			{ID: "s2", Role: core.RoleUser, Text: "Plants need water and sunlight to make glucose."},
			{ID: "s3", Role: core.RoleAssistant, Text: "How does that work?"},
			{ID: "s4", Role: core.RoleUser, Text: "Light splits water molecules inside the chloroplast."},
		},
	}
}

func happyPathRoute(req model.Request) string {
	prompt := promptText(req)
	switch {
	case strings.Contains(req.Instructions, "evaluator"):
		if strings.Contains(prompt, "Criterion under review: Inputs") {
			return `{"found": true, "quotes": ["water and sunlight"], "strength": "strong", "failure_modes": [], "reasoning": "named both inputs"}`
		}
		return `{"found": true, "quotes": ["splits water molecules"], "strength": "moderate", "failure_modes": ["conflates light and heat"], "reasoning": "partial mechanism"}`
	case strings.Contains(req.Instructions, "grader"):
		if strings.Contains(prompt, "Criterion: Inputs") {
			return `{"grade": "S", "confidence": 0.9, "reasoning": "complete"}`
		}
		return `{"grade": "A", "confidence": 0.8, "reasoning": "mostly there"}`
	case strings.Contains(req.Instructions, "reviewer"):
		return `{"flags": [
			{"type": "repeated_evasion", "confidence": 0.9, "evidence": "dodged twice", "reasoning": "avoided the follow-up"},
			{"type": "possible_gaming", "confidence": 0.5, "reasoning": "below threshold"},
			{"type": "suspiciously_eloquent", "confidence": 0.95, "reasoning": "unknown type"}
		], "assessment": "minor evasion observed"}`
	default:
		return `{"strengths": ["Clear grasp of inputs"], "areas_for_growth": ["Mechanism details"], "suggestions": ["Review the light reactions"], "summary": "Good work overall."}`
	}
}

func evalRunContext() *core.RunContext {
	return core.NewRunContext(context.Background(), "attempt", "run", nil)
}

func TestPipelineEvaluateHappyPath(t *testing.T) {
	pipeline, err := New(&routedModel{route: happyPathRoute})
	require.NoError(t, err)

	out, err := pipeline.Evaluate(evalRunContext(), pipelineInput())
	require.NoError(t, err)

	// Evidence preserves input criterion order.
	require.Len(t, out.Evidence, 2)
	assert.Equal(t, "c1", out.Evidence[0].CriterionID)
	assert.Equal(t, StrengthStrong, out.Evidence[0].Strength)
	assert.Equal(t, "c2", out.Evidence[1].CriterionID)

	// (3 + 2) / 2 = 2.5, right on the S threshold; min confidence 0.8,
	// full coverage.
	assert.Equal(t, GradeS, out.Grading.OverallGrade)
	assert.InDelta(t, 0.8, out.Grading.OverallConfidence, 1e-9)

	// Sub-threshold and unknown model flags are dropped; confidence is
	// high enough that no heuristic fires.
	require.Len(t, out.Flags.Details, 1)
	assert.Equal(t, FlagRepeatedEvasion, out.Flags.Details[0].Type)
	assert.Equal(t, "minor evasion observed", out.Flags.Assessment)

	assert.Equal(t, "Good work overall.", out.Feedback.Summary)

	// Quotes map onto the learner segments containing them.
	assert.Equal(t, []string{"s2"}, out.SegmentsByCriterion["c1"])
	assert.Equal(t, []string{"s4"}, out.SegmentsByCriterion["c2"])

	// Feedback lists lead, evidence-derived observations follow.
	assert.Equal(t, []string{"Clear grasp of inputs", "Strong understanding of Inputs"}, out.Strengths)
	assert.Equal(t, []string{"Mechanism details", "Misconception detected: conflates light and heat"}, out.Gaps)
}

func TestPipelineEvidenceUnparseableDegrades(t *testing.T) {
	route := func(req model.Request) string {
		switch {
		case strings.Contains(req.Instructions, "evaluator"):
			return "I could not find anything relevant, sorry!"
		case strings.Contains(req.Instructions, "grader"):
			return `{"grade": "F", "confidence": 0.6, "reasoning": "no evidence"}`
		case strings.Contains(req.Instructions, "reviewer"):
			return `{"flags": [], "assessment": "nothing notable"}`
		default:
			return `{"strengths": [], "areas_for_growth": [], "suggestions": [], "summary": "Keep practicing."}`
		}
	}

	pipeline, err := New(&routedModel{route: route})
	require.NoError(t, err)

	out, err := pipeline.Evaluate(evalRunContext(), pipelineInput())
	require.NoError(t, err)

	for _, ev := range out.Evidence {
		assert.False(t, ev.Found)
		assert.Equal(t, StrengthNone, ev.Strength)
		assert.Empty(t, ev.Quotes)
	}

	// Overall confidence 0.6 × 1.0 sits exactly at the heuristic
	// threshold, so no low-confidence flag.
	assert.Equal(t, GradeF, out.Grading.OverallGrade)
	assert.Empty(t, out.Flags.Details)
}

func TestPipelineLowConfidenceFlag(t *testing.T) {
	route := func(req model.Request) string {
		switch {
		case strings.Contains(req.Instructions, "evaluator"):
			return `{"found": true, "quotes": ["water"], "strength": "weak", "failure_modes": [], "reasoning": "thin"}`
		case strings.Contains(req.Instructions, "grader"):
			return `{"grade": "C", "confidence": 0.4, "reasoning": "unsure"}`
		case strings.Contains(req.Instructions, "reviewer"):
			return `{"flags": [], "assessment": ""}`
		default:
			return `{"strengths": [], "areas_for_growth": [], "suggestions": [], "summary": "ok"}`
		}
	}

	pipeline, err := New(&routedModel{route: route})
	require.NoError(t, err)

	out, err := pipeline.Evaluate(evalRunContext(), pipelineInput())
	require.NoError(t, err)

	require.Len(t, out.Flags.Details, 1)
	assert.Equal(t, FlagLowConfidence, out.Flags.Details[0].Type)
	assert.Equal(t, 1.0, out.Flags.Details[0].Confidence)
}

func TestPipelineFeedbackFallback(t *testing.T) {
	route := func(req model.Request) string {
		switch {
		case strings.Contains(req.Instructions, "evaluator"):
			return `{"found": false, "quotes": [], "strength": "none", "failure_modes": [], "reasoning": "nothing"}`
		case strings.Contains(req.Instructions, "grader"):
			return `{"grade": "F", "confidence": 0.9, "reasoning": "absent"}`
		case strings.Contains(req.Instructions, "reviewer"):
			return `{"flags": [], "assessment": ""}`
		default:
			return "I refuse to answer in JSON today."
		}
	}

	pipeline, err := New(&routedModel{route: route})
	require.NoError(t, err)

	out, err := pipeline.Evaluate(evalRunContext(), pipelineInput())
	require.NoError(t, err)

	assert.Equal(t, "Unable to generate feedback at this time.", out.Feedback.Summary)
	assert.Empty(t, out.Feedback.Strengths)
	assert.Empty(t, out.Feedback.Suggestions)
}

func TestPipelineFeedbackEmptyReplyFallsBack(t *testing.T) {
	route := func(req model.Request) string {
		switch {
		case strings.Contains(req.Instructions, "evaluator"):
			return `{"found": false, "quotes": [], "strength": "none", "failure_modes": [], "reasoning": "nothing"}`
		case strings.Contains(req.Instructions, "grader"):
			return `{"grade": "F", "confidence": 0.9, "reasoning": "absent"}`
		case strings.Contains(req.Instructions, "reviewer"):
			return `{"flags": [], "assessment": ""}`
		default:
			// Valid JSON, but it says nothing.
			return `{}`
		}
	}

	pipeline, err := New(&routedModel{route: route})
	require.NoError(t, err)

	out, err := pipeline.Evaluate(evalRunContext(), pipelineInput())
	require.NoError(t, err)

	assert.Equal(t, "Unable to generate feedback at this time.", out.Feedback.Summary)
	assert.NotNil(t, out.Feedback.Strengths)
	assert.NotNil(t, out.Feedback.AreasForGrowth)
	assert.NotNil(t, out.Feedback.Suggestions)
	assert.Empty(t, out.Feedback.Strengths)
}

func TestPipelineFeedbackNilListsNormalized(t *testing.T) {
	route := func(req model.Request) string {
		switch {
		case strings.Contains(req.Instructions, "evaluator"):
			return `{"found": false, "quotes": [], "strength": "none", "failure_modes": [], "reasoning": ""}`
		case strings.Contains(req.Instructions, "grader"):
			return `{"grade": "C", "confidence": 0.8, "reasoning": ""}`
		case strings.Contains(req.Instructions, "reviewer"):
			return `{"flags": [], "assessment": ""}`
		default:
			return `{"summary": "Decent effort."}`
		}
	}

	pipeline, err := New(&routedModel{route: route})
	require.NoError(t, err)

	out, err := pipeline.Evaluate(evalRunContext(), pipelineInput())
	require.NoError(t, err)

	assert.Equal(t, "Decent effort.", out.Feedback.Summary)
	assert.NotNil(t, out.Feedback.Strengths)
	assert.NotNil(t, out.Feedback.AreasForGrowth)
	assert.NotNil(t, out.Feedback.Suggestions)
}

func TestPipelineEmptyRubricRejected(t *testing.T) {
	pipeline, err := New(model.NewMock())
	require.NoError(t, err)

	_, err = pipeline.Evaluate(evalRunContext(), Input{})
	assert.Error(t, err)
}

func TestMapEvidenceToSegmentsCaseInsensitiveDedupe(t *testing.T) {
	evidence := []EvidenceResult{
		{CriterionID: "c1", Quotes: []string{"Water And Sunlight", "water and sunlight"}},
	}
	segments := []Segment{
		{ID: "s1", Role: core.RoleUser, Text: "plants need WATER AND SUNLIGHT to live"},
		{ID: "s2", Role: core.RoleUser, Text: "unrelated"},
	}

	got := MapEvidenceToSegments(evidence, segments)
	assert.Equal(t, []string{"s1"}, got["c1"])
}

func TestSeparateFeedbackModelIsUsed(t *testing.T) {
	var evalCalls atomic.Int32
	evalModel := &routedModel{route: func(req model.Request) string {
		evalCalls.Add(1)
		switch {
		case strings.Contains(req.Instructions, "evaluator"):
			return `{"found": false, "quotes": [], "strength": "none", "failure_modes": [], "reasoning": ""}`
		case strings.Contains(req.Instructions, "grader"):
			return `{"grade": "C", "confidence": 0.8, "reasoning": ""}`
		default:
			return `{"flags": [], "assessment": ""}`
		}
	}}
	feedbackModel := model.NewMock().EnqueueText(`{"strengths": [], "areas_for_growth": [], "suggestions": [], "summary": "From the cheap model."}`)

	pipeline, err := New(evalModel, func(o *Options) { o.FeedbackModel = feedbackModel })
	require.NoError(t, err)

	out, err := pipeline.Evaluate(evalRunContext(), pipelineInput())
	require.NoError(t, err)

	assert.Equal(t, "From the cheap model.", out.Feedback.Summary)
	assert.Len(t, feedbackModel.Requests(), 1)
	// 2 evidence + 2 grading + 1 flags on the evaluation model.
	assert.Equal(t, int32(5), evalCalls.Load())
}

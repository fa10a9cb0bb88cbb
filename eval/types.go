// Package eval implements the four-stage evaluation pipeline that converts a
// finalized interview transcript into a defensible grade with traceable
// evidence: evidence extraction, criterion grading, flag detection and
// feedback generation. Stages run strictly in order because each consumes the
// prior stage's output; each evaluation invocation is independent and safe to
// run concurrently for different attempts.
package eval

import (
	"strings"

	"github.com/hupe1980/socratic/core"
)

// EvidenceStrength is the qualitative confidence in extracted quotes.
type EvidenceStrength string

const (
	StrengthStrong   EvidenceStrength = "strong"
	StrengthModerate EvidenceStrength = "moderate"
	StrengthWeak     EvidenceStrength = "weak"
	StrengthNone     EvidenceStrength = "none"
)

// ParseStrength normalizes a model-produced strength label. Unknown labels
// map to StrengthNone.
func ParseStrength(s string) EvidenceStrength {
	switch EvidenceStrength(strings.ToLower(strings.TrimSpace(s))) {
	case StrengthStrong:
		return StrengthStrong
	case StrengthModerate:
		return StrengthModerate
	case StrengthWeak:
		return StrengthWeak
	default:
		return StrengthNone
	}
}

// EvidenceResult is Stage 1's output for a single criterion.
type EvidenceResult struct {
	CriterionID   string           `json:"criterion_id"`
	CriterionName string           `json:"criterion_name"`
	Found         bool             `json:"found"`
	Quotes        []string         `json:"quotes,omitempty"`
	Strength      EvidenceStrength `json:"strength"`
	FailureModes  []string         `json:"failure_modes,omitempty"`
	Reasoning     string           `json:"reasoning,omitempty"`
}

// Grade is the letter scale applied per criterion and overall.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeC Grade = "C"
	GradeF Grade = "F"
)

// ParseGrade normalizes a model-produced grade letter. The second return is
// false for anything outside the scale.
func ParseGrade(s string) (Grade, bool) {
	switch Grade(strings.ToUpper(strings.TrimSpace(s))) {
	case GradeS:
		return GradeS, true
	case GradeA:
		return GradeA, true
	case GradeC:
		return GradeC, true
	case GradeF:
		return GradeF, true
	default:
		return "", false
	}
}

// Value maps the letter onto the numeric aggregation scale.
func (g Grade) Value() float64 {
	switch g {
	case GradeS:
		return 3
	case GradeA:
		return 2
	case GradeC:
		return 1
	default:
		return 0
	}
}

// CriterionGradeResult is Stage 2's output for a single criterion.
type CriterionGradeResult struct {
	CriterionID   string  `json:"criterion_id"`
	CriterionName string  `json:"criterion_name"`
	Grade         Grade   `json:"grade"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning,omitempty"`
}

// GradingResult is Stage 2's aggregate output.
type GradingResult struct {
	Criteria          []CriterionGradeResult `json:"criteria"`
	OverallGrade      Grade                  `json:"overall_grade"`
	OverallConfidence float64                `json:"overall_confidence"`
	Summary           string                 `json:"summary,omitempty"`
}

// FlagType names a risk or anomaly signal raised about an attempt.
type FlagType string

const (
	FlagHighFluencyLowSubstance FlagType = "high_fluency_low_substance"
	FlagRepeatedEvasion         FlagType = "repeated_evasion"
	FlagLowConfidence           FlagType = "low_confidence"
	FlagPossibleGaming          FlagType = "possible_gaming"
)

// ParseFlagType normalizes a model-produced flag-type string, tolerating
// camel case and separator variations. The second return is false for
// unknown types; callers drop those silently.
func ParseFlagType(s string) (FlagType, bool) {
	key := strings.ToLower(s)
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "highfluencylowsubstance":
		return FlagHighFluencyLowSubstance, true
	case "repeatedevasion":
		return FlagRepeatedEvasion, true
	case "lowconfidence":
		return FlagLowConfidence, true
	case "possiblegaming":
		return FlagPossibleGaming, true
	default:
		return "", false
	}
}

// FlagDetail carries one raised flag with its supporting context.
type FlagDetail struct {
	Type       FlagType `json:"type"`
	Confidence float64  `json:"confidence"`
	Evidence   string   `json:"evidence,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// FlagResult is Stage 3's output: the deduplicated flag set plus an overall
// narrative assessment.
type FlagResult struct {
	Details    []FlagDetail `json:"details"`
	Assessment string       `json:"assessment,omitempty"`
}

// Types returns the flag types in detail order.
func (r FlagResult) Types() []FlagType {
	out := make([]FlagType, 0, len(r.Details))
	for _, d := range r.Details {
		out = append(out, d.Type)
	}
	return out
}

// Has reports whether a flag of the given type was raised.
func (r FlagResult) Has(t FlagType) bool {
	for _, d := range r.Details {
		if d.Type == t {
			return true
		}
	}
	return false
}

// FeedbackResult is Stage 4's learner-facing output.
type FeedbackResult struct {
	Strengths      []string `json:"strengths"`
	AreasForGrowth []string `json:"areas_for_growth"`
	Suggestions    []string `json:"suggestions"`
	Summary        string   `json:"summary"`
}

// Segment is one transcript unit fed into the pipeline. Role distinguishes
// the learner (user) from the interviewer (assistant).
type Segment struct {
	ID   string    `json:"id"`
	Role core.Role `json:"role"`
	Text string    `json:"text"`
}

// Output is the pipeline's immutable final record.
type Output struct {
	Evidence []EvidenceResult `json:"evidence"`
	Grading  GradingResult    `json:"grading"`
	Flags    FlagResult       `json:"flags"`
	Feedback FeedbackResult   `json:"feedback"`

	// SegmentsByCriterion maps each criterion id to the transcript segment
	// ids its quotes were matched against, deduplicated.
	SegmentsByCriterion map[string][]string `json:"segments_by_criterion,omitempty"`

	// Strengths and Gaps merge the feedback lists with evidence-derived
	// observations, first occurrence wins.
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

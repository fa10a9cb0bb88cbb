// Package rubric defines the read-only assessment inputs shared by the
// interview agent and the evaluation pipeline: the learning objective and the
// weighted rubric criteria with their proficiency levels.
package rubric

// Objective names what the learner is being assessed on.
type Objective struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProficiencyLevel describes what a given grade looks like for a criterion.
type ProficiencyLevel struct {
	Grade       string `json:"grade"` // S, A, C or F
	Description string `json:"description"`
}

// Criterion is a named dimension of assessment.
type Criterion struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Levels      []ProficiencyLevel `json:"levels,omitempty"`
}

// Rubric is the full criteria set for one objective, with optional
// per-criterion weights used by grade aggregation.
type Rubric struct {
	Criteria []Criterion        `json:"criteria"`
	Weights  map[string]float64 `json:"weights,omitempty"`
}

// WeightFor returns the configured weight for a criterion, defaulting to 1.0
// when no weight is set. The silent default is deliberate: unweighted rubrics
// grade every criterion equally.
func (r Rubric) WeightFor(criterionID string) float64 {
	if w, ok := r.Weights[criterionID]; ok {
		return w
	}
	return 1.0
}

// Criterion returns the criterion with the given id, if present.
func (r Rubric) Criterion(id string) (Criterion, bool) {
	for _, c := range r.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

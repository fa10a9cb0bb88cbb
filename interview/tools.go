package interview

import (
	"fmt"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/tool"
)

// EndAssessmentToolName is the name of the interviewer's only domain tool.
const EndAssessmentToolName = "end_assessment"

type endAssessmentArgs struct {
	Summary string `json:"summary,omitempty" description:"Optional one-sentence summary of the assessment"`
}

// NewEndAssessmentTool builds the termination tool. Calling it is the only
// admissible way to finish an assessment; the returned delta sets the
// completion flag and carries both the tool result and the farewell message so
// the scheduler applies everything in one step. The tool is idempotent: a
// second call on a completed state returns only the tool result.
func NewEndAssessmentTool(farewell *Farewell) *tool.FunctionTool {
	return tool.NewFunctionToolFromStruct(
		EndAssessmentToolName,
		"End the assessment once every criterion is sufficiently explored or the time budget is exhausted. Optionally include a one-sentence summary.",
		endAssessmentArgs{},
		func(toolCtx *tool.Context, args map[string]any) (*core.StateDelta, error) {
			summary, _ := args["summary"].(string)

			result := "Assessment ended."
			if summary != "" {
				result = "Assessment ended. Summary: " + summary
			}

			delta := &core.StateDelta{
				Completed: core.Bool(true),
				Append:    []core.Message{core.NewToolResultMessage(toolCtx.FunctionCallID(), result)},
			}

			state, ok := toolCtx.State().(*State)
			if !ok {
				return nil, fmt.Errorf("unexpected state type %T", toolCtx.State())
			}
			if state.AssessmentComplete() {
				// Already finished; do not compose a second farewell.
				return delta, nil
			}

			if farewell != nil {
				closing, err := farewell.Compose(toolCtx.Context(), state.Objective().Title)
				if err != nil {
					return nil, fmt.Errorf("compose farewell: %w", err)
				}
				delta.Append = append(delta.Append, closing)
			}

			return delta, nil
		},
	)
}

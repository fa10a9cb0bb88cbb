// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema-validated arguments. Tools never
// mutate agent state directly: each call returns a typed core.StateDelta that
// the scheduler applies centrally, keeping mutation auditable.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/util"
	"github.com/hupe1980/socratic/logging"
)

// Context carries the execution scope for a single tool call: the ambient
// context, the originating function call id, a logger and read access to the
// agent state. Tools must treat the state as read-only and express mutation
// through the returned delta.
type Context struct {
	ctx    context.Context
	callID string
	logger logging.Logger
	state  core.AgentState
}

// NewContext constructs a tool call context.
func NewContext(ctx context.Context, callID string, logger logging.Logger, state core.AgentState) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{ctx: ctx, callID: callID, logger: logger, state: state}
}

// Context returns the ambient cancellation context.
func (c *Context) Context() context.Context { return c.ctx }

// FunctionCallID returns the id of the originating model tool call.
func (c *Context) FunctionCallID() string { return c.callID }

// Logger returns the structured logger for this call.
func (c *Context) Logger() logging.Logger { return c.logger }

// State returns read access to the agent state.
func (c *Context) State() core.AgentState { return c.state }

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a proper JSON schema for parameters
//   - Return a *core.StateDelta describing the intended mutations
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description is provided to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments are parsed from JSON and validated
	// against the tool's schema before invocation.
	Call(toolCtx *Context, args map[string]any) (*core.StateDelta, error)
}

// ValidationError represents parameter validation failures.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

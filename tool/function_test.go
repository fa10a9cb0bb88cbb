package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/socratic/core"
)

type echoArgs struct {
	Text string `json:"text"`
}

func newToolContext() *Context {
	return NewContext(context.Background(), "call-1", nil, core.NewBaseState())
}

func TestFunctionToolCallSuccess(t *testing.T) {
	ft := NewFunctionToolFromStruct("echo", "repeats text", echoArgs{},
		func(toolCtx *Context, args map[string]any) (*core.StateDelta, error) {
			text, _ := args["text"].(string)
			return &core.StateDelta{
				Append: []core.Message{core.NewToolResultMessage(toolCtx.FunctionCallID(), text)},
			}, nil
		})

	assert.Equal(t, "echo", ft.Name())

	delta, err := ft.Call(newToolContext(), map[string]any{"text": "hello"})
	require.NoError(t, err)
	require.Len(t, delta.Append, 1)
	assert.Equal(t, "hello", delta.Append[0].Text)
	assert.Equal(t, "call-1", delta.Append[0].ToolCallID)
}

func TestFunctionToolValidationError(t *testing.T) {
	ft := NewFunctionToolFromStruct("echo", "repeats text", echoArgs{},
		func(*Context, map[string]any) (*core.StateDelta, error) { return nil, nil })

	_, err := ft.Call(newToolContext(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionToolExecutionError(t *testing.T) {
	ft := NewFunctionToolFromStruct("echo", "repeats text", echoArgs{},
		func(*Context, map[string]any) (*core.StateDelta, error) {
			return nil, errors.New("backend unavailable")
		})

	_, err := ft.Call(newToolContext(), map[string]any{"text": "x"})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
}

func TestFunctionToolPreservesCustomToolError(t *testing.T) {
	custom := NewToolError("echo", "quota exceeded", "QUOTA")
	ft := NewFunctionToolFromStruct("echo", "repeats text", echoArgs{},
		func(*Context, map[string]any) (*core.StateDelta, error) { return nil, custom })

	_, err := ft.Call(newToolContext(), map[string]any{"text": "x"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "QUOTA", toolErr.Code)
}

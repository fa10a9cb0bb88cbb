// Package model defines the provider-neutral language model contract used by
// the turn scheduler and the evaluation pipeline, plus a deterministic mock
// for tests. Concrete adapters live in the openai and anthropic subpackages.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/socratic/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input assembled by the scheduler:
// static instructions, the full message history and the current status
// message (already appended by the caller), plus the bound tool set.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	// Temperature overrides the adapter default when non-nil. The
	// evaluation pipeline uses this for its low-temperature calls.
	Temperature *float64 `json:"temperature,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the complete reply to one model invocation.
type Response struct {
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Chunk is one element of a streaming reply: either an incremental text
// delta or the final accumulated response.
type Chunk struct {
	Delta string    `json:"delta,omitempty"`
	Final *Response `json:"final,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Both methods
// must wrap transport and provider failures in *ProviderError so callers can
// distinguish them from local errors. Neither the scheduler nor the pipeline
// retries; retry and backoff policy belongs to implementations or callers.
type Model interface {
	// Invoke performs a single blocking generation.
	Invoke(ctx context.Context, req Request) (*Response, error)

	// Stream performs a generation emitting incremental chunks. The chunk
	// channel closes after the final chunk; a terminal error is delivered
	// on the error channel instead.
	Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ProviderError marks transport or provider-side failures (timeouts, quota,
// API errors) so run drivers can apply retry policy.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

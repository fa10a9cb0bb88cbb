package model

import (
	"context"
	"sync"

	"github.com/hupe1980/socratic/core"
)

// Mock is a scripted in-memory Model useful for tests and examples. Responses
// are consumed in FIFO order; when the script is exhausted it falls back to a
// fixed echo reply so loops terminate.
type Mock struct {
	mu       sync.Mutex
	info     Info
	queue    []Response
	calls    []Request
	FailWith error // when set, every call returns this wrapped in ProviderError
}

// NewMock constructs a Mock with tool support enabled.
func NewMock() *Mock {
	return &Mock{info: Info{Name: "mock", Provider: "mock", SupportsTools: true}}
}

// EnqueueText scripts a plain assistant reply.
func (m *Mock) EnqueueText(text string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, Response{
		Message:      core.NewAssistantMessage(text),
		FinishReason: "stop",
	})
	return m
}

// EnqueueToolCall scripts an assistant reply requesting a tool invocation.
func (m *Mock) EnqueueToolCall(name, args string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, Response{
		Message: core.NewAssistantToolCallMessage("", core.ToolCall{
			ID:        core.NewID(),
			Name:      name,
			Arguments: args,
		}),
		FinishReason: "tool_calls",
	})
	return m
}

// Requests returns the requests seen so far, in order.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Invoke implements Model.
func (m *Mock) Invoke(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.FailWith != nil {
		return nil, &ProviderError{Provider: "mock", Err: m.FailWith}
	}
	if len(m.queue) == 0 {
		return &Response{Message: core.NewAssistantMessage("mock reply"), FinishReason: "stop"}, nil
	}
	resp := m.queue[0]
	m.queue = m.queue[1:]
	return &resp, nil
}

// Stream implements Model by emitting the scripted reply as rune chunks
// followed by the final response.
func (m *Mock) Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := m.Invoke(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		for _, r := range resp.Message.Text {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- Chunk{Delta: string(r)}:
			}
		}
		out <- Chunk{Final: resp}
	}()

	return out, errCh
}

// Info implements Model.
func (m *Mock) Info() Info { return m.info }

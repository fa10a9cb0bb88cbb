package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author category of a message.
type Role string

const (
	// RoleSystem marks instruction messages that are never part of the
	// persisted conversation history.
	RoleSystem Role = "system"
	// RoleUser marks learner-authored messages.
	RoleUser Role = "user"
	// RoleAssistant marks model-authored messages.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool result messages.
	RoleTool Role = "tool"
)

// ToolCall describes a tool invocation requested by an assistant message.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // serialized JSON payload
}

// Message is a single conversation record. After construction it should be
// treated as immutable; mutation happens by appending new messages to the
// history, never by editing existing ones.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool result messages
	Timestamp  time.Time  `json:"timestamp"`
}

// NewID generates a unique identifier for messages, events and attempts.
func NewID() string { return uuid.NewString() }

func newMessage(role Role, text string) Message {
	return Message{ID: NewID(), Role: role, Text: text, Timestamp: time.Now().UTC()}
}

// NewSystemMessage creates an instruction message.
func NewSystemMessage(text string) Message { return newMessage(RoleSystem, text) }

// NewUserMessage creates a learner-authored message.
func NewUserMessage(text string) Message { return newMessage(RoleUser, text) }

// NewAssistantMessage creates a model-authored text message.
func NewAssistantMessage(text string) Message { return newMessage(RoleAssistant, text) }

// NewAssistantToolCallMessage creates a model-authored message carrying one or
// more tool invocation requests.
func NewAssistantToolCallMessage(text string, calls ...ToolCall) Message {
	m := newMessage(RoleAssistant, text)
	m.ToolCalls = calls
	return m
}

// NewToolResultMessage records the outcome of a previously requested tool call.
func NewToolResultMessage(callID, text string) Message {
	m := newMessage(RoleTool, text)
	m.ToolCallID = callID
	return m
}

// HasToolCalls reports whether this message requests any tool invocations.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

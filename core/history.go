package core

import "sync"

// History is the durable, append-only conversation record owned by a single
// run. It is safe for concurrent access, although a run mutates it from one
// logical flow of control only.
//
// Contract:
//   - Messages are appended, never edited or removed
//   - Messages returns a defensive copy
//   - TurnCount counts learner (user) messages only, independent of how many
//     assistant/tool messages are interleaved among them
type History struct {
	mu   sync.RWMutex
	msgs []Message
}

// NewHistory creates an empty history, optionally seeded with messages.
func NewHistory(msgs ...Message) *History {
	h := &History{}
	h.msgs = append(h.msgs, msgs...)
	return h
}

// Append adds messages to the end of the history.
func (h *History) Append(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msgs...)
}

// Messages returns a copy of the full message sequence.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len returns the number of messages in the history.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.msgs)
}

// TurnCount returns the number of user-authored messages.
func (h *History) TurnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.msgs {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// LastAssistant returns the most recent assistant message, if any.
func (h *History) LastAssistant() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.msgs) - 1; i >= 0; i-- {
		if h.msgs[i].Role == RoleAssistant {
			return h.msgs[i], true
		}
	}
	return Message{}, false
}

// Last returns the final message in the history, if any.
func (h *History) Last() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.msgs) == 0 {
		return Message{}, false
	}
	return h.msgs[len(h.msgs)-1], true
}

// TurnContext holds the transient per-turn status slot. It is owned by the
// scheduler's status step, fully replaced before every model call and never
// serialized alongside the history. Keeping it out of History means there is
// no field that must be remembered to exclude from persistence.
type TurnContext struct {
	mu     sync.Mutex
	status *Message
}

// NewTurnContext creates an empty turn context.
func NewTurnContext() *TurnContext { return &TurnContext{} }

// SetStatus replaces the status slot. A nil message clears it.
func (t *TurnContext) SetStatus(m *Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = m
}

// Status returns the current status message, or false if the slot is empty.
func (t *TurnContext) Status() (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == nil {
		return Message{}, false
	}
	return *t.status, true
}

// Clear empties the status slot.
func (t *TurnContext) Clear() { t.SetStatus(nil) }

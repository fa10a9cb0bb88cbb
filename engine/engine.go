// Package engine implements the fixed-topology turn scheduler that drives a
// conversational agent through one activation:
//
//	start → status → model → (tool calls?) → tool → (exit?) → status  [loop]
//	                     ↓ no tool calls          ↓ exit true
//	                    end                      end
//
// The topology is compiled into the engine and cannot be altered by agents;
// agent variants plug in through the Hooks extension points only. The engine
// performs no internal retry: model invocation and tool execution failures
// propagate uncaught to the run driver.
package engine

import (
	"errors"
	"fmt"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/internal/jsonx"
	"github.com/hupe1980/socratic/model"
	"github.com/hupe1980/socratic/tool"
)

// Node identifies one state of the execution graph.
type Node int

const (
	// NodeStart runs the BeforeWork hook.
	NodeStart Node = iota
	// NodeStatus recomputes the transient status slot.
	NodeStatus
	// NodeModel invokes the language model and appends its reply.
	NodeModel
	// NodeTool executes the pending tool calls of the last reply.
	NodeTool
	// NodeEnd runs the AfterWork hook and terminates the activation.
	NodeEnd
)

// String returns the node name.
func (n Node) String() string {
	switch n {
	case NodeStart:
		return "start"
	case NodeStatus:
		return "status"
	case NodeModel:
		return "model"
	case NodeTool:
		return "tool"
	case NodeEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ErrModelCallLimit is returned when the optional model call cap is exceeded.
// The base engine ships with no cap; run drivers opt in via WithMaxModelCalls.
var ErrModelCallLimit = errors.New("model call limit exceeded")

// Hooks are the extension points an agent supplies. They are pure functions
// over state; none of them can alter the graph topology.
type Hooks struct {
	// SystemPrompt produces the static instructions for every model call.
	// Required.
	SystemPrompt func(state core.AgentState) (string, error)

	// UpdateStatus renders the per-turn status message. A nil result
	// clears the slot. Default: no-op (slot stays empty).
	UpdateStatus func(state core.AgentState) (*core.Message, error)

	// Exit decides whether the tool node transitions to end instead of
	// looping back to status. Default: state.Completed().
	Exit func(state core.AgentState) bool

	// BeforeWork runs once at start and may return an initial state patch.
	BeforeWork func(state core.AgentState) (*core.StateDelta, error)

	// AfterWork runs once at end.
	AfterWork func(state core.AgentState) error

	// ToolList selects the tools bound to the next model call. Default:
	// the engine's static tool set.
	ToolList func(state core.AgentState) []tool.Tool
}

// Options configures an Engine.
type Options struct {
	// Tools is the agent's static tool set.
	Tools []tool.Tool
	// EnableStreaming streams model tokens to the run context sink when
	// one is configured.
	EnableStreaming bool
	// MaxModelCalls bounds model invocations per activation. Zero means
	// unbounded, which preserves the documented liveness risk: an agent
	// whose model always requests tools and never trips the exit
	// predicate loops indefinitely.
	MaxModelCalls int
}

// Engine executes the fixed graph for one agent configuration. A single
// Engine may be reused across runs; all per-run state lives in the
// RunContext and the AgentState.
type Engine struct {
	llm   model.Model
	hooks Hooks
	opts  Options
}

// New compiles an engine from a model and hooks. SystemPrompt is required.
func New(llm model.Model, hooks Hooks, optFns ...func(o *Options)) (*Engine, error) {
	if llm == nil {
		return nil, errors.New("engine: model is required")
	}
	if hooks.SystemPrompt == nil {
		return nil, errors.New("engine: SystemPrompt hook is required")
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{llm: llm, hooks: hooks, opts: opts}, nil
}

// Run executes one activation of the graph, from start to end. The history
// grows by the model replies and tool results produced along the way; the
// caller owns appending the triggering user message beforehand.
func (e *Engine) Run(rc *core.RunContext, state core.AgentState) error {
	modelCalls := 0
	node := NodeStart

	for node != NodeEnd {
		rc.Logger.Debug("engine.node", "node", node.String(), "run", rc.RunID)

		switch node {
		case NodeStart:
			if e.hooks.BeforeWork != nil {
				delta, err := e.hooks.BeforeWork(state)
				if err != nil {
					return fmt.Errorf("before_work hook: %w", err)
				}
				if err := state.Apply(delta); err != nil {
					return fmt.Errorf("apply before_work delta: %w", err)
				}
			}

		case NodeStatus:
			var status *core.Message
			if e.hooks.UpdateStatus != nil {
				msg, err := e.hooks.UpdateStatus(state)
				if err != nil {
					return fmt.Errorf("update_status hook: %w", err)
				}
				status = msg
			}
			// Full replacement every turn; a prior turn's status is
			// never read back.
			state.Turn().SetStatus(status)

		case NodeModel:
			if e.opts.MaxModelCalls > 0 && modelCalls >= e.opts.MaxModelCalls {
				return fmt.Errorf("%w (%d)", ErrModelCallLimit, e.opts.MaxModelCalls)
			}
			modelCalls++
			if err := e.runModel(rc, state); err != nil {
				return err
			}

		case NodeTool:
			if err := e.runTools(rc, state); err != nil {
				return err
			}
		}

		node = e.transition(node, state)
	}

	state.Turn().Clear()

	if e.hooks.AfterWork != nil {
		if err := e.hooks.AfterWork(state); err != nil {
			return fmt.Errorf("after_work hook: %w", err)
		}
	}
	return nil
}

// transition is the graph's edge function. It consults state only at the two
// conditional edges; everything else is fixed.
func (e *Engine) transition(n Node, state core.AgentState) Node {
	switch n {
	case NodeStart:
		return NodeStatus
	case NodeStatus:
		return NodeModel
	case NodeModel:
		if last, ok := state.History().LastAssistant(); ok && last.HasToolCalls() {
			return NodeTool
		}
		return NodeEnd
	case NodeTool:
		if e.exit(state) {
			return NodeEnd
		}
		return NodeStatus
	default:
		return NodeEnd
	}
}

func (e *Engine) exit(state core.AgentState) bool {
	if e.hooks.Exit != nil {
		return e.hooks.Exit(state)
	}
	return state.Completed()
}

func (e *Engine) activeTools(state core.AgentState) []tool.Tool {
	if e.hooks.ToolList != nil {
		return e.hooks.ToolList(state)
	}
	return e.opts.Tools
}

// runModel assembles the model input (instructions + full history + current
// status message, if any), invokes the model and appends the reply.
func (e *Engine) runModel(rc *core.RunContext, state core.AgentState) error {
	instructions, err := e.hooks.SystemPrompt(state)
	if err != nil {
		return fmt.Errorf("system_prompt hook: %w", err)
	}

	messages := state.History().Messages()
	if status, ok := state.Turn().Status(); ok {
		messages = append(messages, status)
	}

	req := model.Request{Instructions: instructions, Messages: messages}
	for _, t := range e.activeTools(state) {
		req.Tools = append(req.Tools, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	var resp *model.Response
	if e.opts.EnableStreaming && rc.Sink != nil {
		resp, err = e.streamModel(rc, req)
	} else {
		resp, err = e.llm.Invoke(rc.Context, req)
	}
	if err != nil {
		// No internal retry; provider failures belong to the driver.
		return err
	}

	state.History().Append(resp.Message)
	rc.Emit(core.StreamEvent{Kind: core.StreamMessageDone, Text: resp.Message.Text})
	rc.Logger.Debug("engine.model.reply", "run", rc.RunID, "tool_calls", len(resp.Message.ToolCalls))
	return nil
}

// streamModel drains the streaming variant, forwarding token deltas to the
// sink and returning the final accumulated response.
func (e *Engine) streamModel(rc *core.RunContext, req model.Request) (*model.Response, error) {
	chunks, errCh := e.llm.Stream(rc.Context, req)

	var final *model.Response
	for chunk := range chunks {
		if chunk.Delta != "" {
			rc.Emit(core.StreamEvent{Kind: core.StreamToken, Text: chunk.Delta})
		}
		if chunk.Final != nil {
			final = chunk.Final
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if final == nil {
		return nil, &model.ProviderError{Provider: e.llm.Info().Provider, Err: errors.New("stream ended without final response")}
	}
	return final, nil
}

// runTools executes every pending tool call of the last assistant message in
// order, applying each returned delta centrally. A failing tool aborts the
// run: tool calls mutate state, and partial or duplicate mutation would be
// worse than failing loudly.
func (e *Engine) runTools(rc *core.RunContext, state core.AgentState) error {
	last, ok := state.History().LastAssistant()
	if !ok {
		return nil
	}

	byName := map[string]tool.Tool{}
	for _, t := range e.activeTools(state) {
		byName[t.Name()] = t
	}

	for _, call := range last.ToolCalls {
		t, ok := byName[call.Name]
		if !ok {
			return fmt.Errorf("tool %q not found", call.Name)
		}

		args := map[string]any{}
		if call.Arguments != "" {
			// Model-produced argument payloads get the same resilient
			// treatment as pipeline output.
			if err := jsonx.Unmarshal(call.Arguments, &args); err != nil {
				return fmt.Errorf("tool %q arguments: %w", call.Name, err)
			}
		}

		toolCtx := tool.NewContext(rc.Context, call.ID, rc.Logger, state)
		delta, err := t.Call(toolCtx, args)
		if err != nil {
			return fmt.Errorf("tool %q: %w", call.Name, err)
		}

		if !deltaAnswersCall(delta, call.ID) {
			if delta == nil {
				delta = &core.StateDelta{}
			}
			delta.Append = append(delta.Append, core.NewToolResultMessage(call.ID, "ok"))
		}
		if err := state.Apply(delta); err != nil {
			return fmt.Errorf("apply tool %q delta: %w", call.Name, err)
		}
	}
	return nil
}

// deltaAnswersCall reports whether the delta already appends a tool result
// message for the given call id. Every tool call must be answered for the
// conversation to stay well-formed at the provider layer.
func deltaAnswersCall(delta *core.StateDelta, callID string) bool {
	if delta == nil {
		return false
	}
	for _, m := range delta.Append {
		if m.Role == core.RoleTool && m.ToolCallID == callID {
			return true
		}
	}
	return false
}

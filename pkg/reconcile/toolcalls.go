package reconcile

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/specchio/pkg/chat"
)

type ToolCallStatus string

const (
	ToolCallPending     ToolCallStatus = "pending"
	ToolCallCompleted   ToolCallStatus = "completed"
	ToolCallError       ToolCallStatus = "error"
	ToolCallInterrupted ToolCallStatus = "interrupted"
)

// ToolCall is one tool invocation issued by an agent message, tracked against
// the tool_result message that eventually answers it. Status only ever moves
// forward (pending/interrupted -> completed), never back.
type ToolCall struct {
	ID     string
	Name   string
	Args   map[string]any
	Result string
	Status ToolCallStatus
}

// ToolCallIndex holds the correlated tool calls for one message list, keyed
// by the id of the agent message that issued them. Entries keep issue order.
type ToolCallIndex struct {
	byMessage map[string][]*ToolCall
	// all tool calls in stream order, for "first open match" result lookup
	ordered []*ToolCall
}

func (idx *ToolCallIndex) ForMessage(messageID string) []*ToolCall {
	if idx == nil {
		return nil
	}
	return idx.byMessage[messageID]
}

// All returns every derived tool call in stream order.
func (idx *ToolCallIndex) All() []*ToolCall {
	if idx == nil {
		return nil
	}
	return idx.ordered
}

// toolCallShape normalizes one of the legacy tool-call wire shapes into
// ToolCall values. detect and extract are split so shape selection stays a
// priority-ordered predicate list.
type toolCallShape struct {
	name    string
	detect  func(*chat.Message) bool
	extract func(*chat.Message) []chat.ToolCallSpec
}

var toolCallShapes = []toolCallShape{
	{
		name:   "additional_kwargs",
		detect: func(m *chat.Message) bool { return len(m.AdditionalKwargs.ToolCalls) > 0 },
		extract: func(m *chat.Message) []chat.ToolCallSpec {
			return m.AdditionalKwargs.ToolCalls
		},
	},
	{
		name:   "tool_calls",
		detect: func(m *chat.Message) bool { return len(m.ToolCalls) > 0 },
		extract: func(m *chat.Message) []chat.ToolCallSpec {
			return m.ToolCalls
		},
	},
	{
		name:   "content_blocks",
		detect: func(m *chat.Message) bool { return len(inlineInvocations(m)) > 0 },
		extract: inlineInvocations,
	},
}

func inlineInvocations(m *chat.Message) []chat.ToolCallSpec {
	var specs []chat.ToolCallSpec
	for _, b := range m.Content.Blocks() {
		if b.Kind != chat.BlockKindToolInvocation {
			continue
		}
		specs = append(specs, chat.ToolCallSpec{
			ID:    b.ID,
			Type:  string(b.Kind),
			Name:  b.Name,
			Input: b.Input,
		})
	}
	return specs
}

// resolveName picks the tool name from a spec: explicit function name, then
// bare name, then the type tag, then "unknown".
func resolveName(spec chat.ToolCallSpec) string {
	if spec.Function != nil && spec.Function.Name != "" {
		return spec.Function.Name
	}
	if spec.Name != "" {
		return spec.Name
	}
	if spec.Type != "" {
		return spec.Type
	}
	return "unknown"
}

// resolveArgs picks the argument structure: function arguments, then the raw
// arguments field, then args, then input, defaulting to an empty map. String
// and raw-JSON encodings are decoded best effort.
func resolveArgs(spec chat.ToolCallSpec) map[string]any {
	if spec.Function != nil && len(spec.Function.Arguments) > 0 {
		if args := decodeArgs(spec.Function.Arguments); args != nil {
			return args
		}
	}
	if len(spec.Arguments) > 0 {
		if args := decodeArgs(spec.Arguments); args != nil {
			return args
		}
	}
	if spec.Args != nil {
		return spec.Args
	}
	if spec.Input != nil {
		return spec.Input
	}
	return map[string]any{}
}

func decodeArgs(raw json.RawMessage) map[string]any {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		// Some providers double-encode arguments as a JSON string.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(s), &args); err != nil {
			return nil
		}
	}
	return args
}

// CorrelateToolCalls scans the message list once, in order, deriving the tool
// calls each agent message issued and completing them from later tool_result
// messages. interrupted forces the initial status of newly derived calls when
// an approval interrupt is currently open.
//
// The scan is idempotent: running it again over the same list yields the same
// statuses, because results only ever advance a call to completed.
func CorrelateToolCalls(msgs chat.Conversation, interrupted bool) *ToolCallIndex {
	idx := &ToolCallIndex{
		byMessage: make(map[string][]*ToolCall),
	}

	initial := ToolCallPending
	if interrupted {
		initial = ToolCallInterrupted
	}

	for _, m := range msgs {
		if m == nil {
			continue
		}
		switch m.Role {
		case chat.RoleAgent:
			specs := extractSpecs(m)
			if len(specs) == 0 {
				continue
			}
			calls := make([]*ToolCall, 0, len(specs))
			for _, spec := range specs {
				call := &ToolCall{
					ID:     spec.ID,
					Name:   resolveName(spec),
					Args:   resolveArgs(spec),
					Status: initial,
				}
				calls = append(calls, call)
				idx.ordered = append(idx.ordered, call)
			}
			idx.byMessage[m.ID] = calls
		case chat.RoleToolResult:
			if m.ToolResultRef == "" {
				continue
			}
			call := idx.firstOpen(m.ToolResultRef)
			if call == nil {
				// Late or duplicate result. Not an error.
				log.Trace().
					Str("tool_call_id", m.ToolResultRef).
					Str("message_id", m.ID).
					Msg("tool result without open tool call, ignoring")
				continue
			}
			call.Result = m.PlainText()
			call.Status = ToolCallCompleted
		}
	}

	return idx
}

func extractSpecs(m *chat.Message) []chat.ToolCallSpec {
	for _, shape := range toolCallShapes {
		if shape.detect(m) {
			return shape.extract(m)
		}
	}
	return nil
}

// firstOpen returns the earliest derived tool call with the given id that has
// not completed yet.
func (idx *ToolCallIndex) firstOpen(id string) *ToolCall {
	for _, call := range idx.ordered {
		if call.ID == id && call.Status != ToolCallCompleted {
			return call
		}
	}
	return nil
}

package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleHuman      Role = "human"
	RoleAgent      Role = "agent"
	RoleToolResult Role = "tool_result"
)

type BlockKind string

const (
	BlockKindText           BlockKind = "text"
	BlockKindToolInvocation BlockKind = "tool_invocation"
)

// ContentBlock is one typed element of a structured message body. Text blocks
// carry display text, tool_invocation blocks carry an inline tool call. Blocks
// of unknown kinds round-trip through JSON but contribute nothing to the
// plain-text projection.
type ContentBlock struct {
	Kind  BlockKind      `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// Content holds a message body in either of the two wire representations:
// a bare string, or an ordered array of typed blocks.
type Content struct {
	text       string
	blocks     []ContentBlock
	structured bool
}

func NewTextContent(text string) Content {
	return Content{text: text}
}

func NewBlockContent(blocks ...ContentBlock) Content {
	return Content{blocks: blocks, structured: true}
}

// Blocks returns the block list, or nil for plain-string content.
func (c Content) Blocks() []ContentBlock {
	if !c.structured {
		return nil
	}
	return c.blocks
}

func (c Content) IsStructured() bool {
	return c.structured
}

// PlainText projects the content onto a single string. Plain-string content
// is returned unchanged; block content concatenates text blocks in order.
// Never panics; anything it cannot interpret becomes "".
func (c Content) PlainText() string {
	if !c.structured {
		return c.text
	}
	var sb strings.Builder
	for _, b := range c.blocks {
		if b.Kind == BlockKindText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.structured {
		return json.Marshal(c.blocks)
	}
	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Content{text: s}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		*c = Content{blocks: blocks, structured: true}
		return nil
	}
	// Unknown shape. Normalize to empty rather than failing the whole
	// transcript decode.
	*c = Content{}
	return nil
}

// FunctionSpec is the nested function object used by the structured
// tool-call wire shape.
type FunctionSpec struct {
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallSpec is the wire shape of one entry in a message's tool-call
// arrays. Older transcripts populate Function, newer ones the bare
// Name/Args fields, and some only carry Input.
type ToolCallSpec struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	Name      string          `json:"name,omitempty"`
	Function  *FunctionSpec   `json:"function,omitempty"`
	Args      map[string]any  `json:"args,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
}

// AdditionalKwargs carries provider-specific extras attached to a message.
// Only the embedded tool-call array is interpreted here.
type AdditionalKwargs struct {
	ToolCalls []ToolCallSpec `json:"tool_calls,omitempty"`
}

// Message is one event in the conversation stream. The list it belongs to is
// the authoritative temporal order and is replaced wholesale on update, never
// patched in place.
type Message struct {
	ID      string  `json:"id"`
	Role    Role    `json:"role"`
	Content Content `json:"content"`

	// Legacy tool-call shapes. At most one is expected to be populated.
	AdditionalKwargs AdditionalKwargs `json:"additional_kwargs,omitempty"`
	ToolCalls        []ToolCallSpec   `json:"tool_calls,omitempty"`

	// ToolResultRef identifies the tool invocation a tool_result message
	// answers. Empty on other roles.
	ToolResultRef string `json:"tool_call_id,omitempty"`
}

// PlainText is the single-string projection of the message body.
func (m *Message) PlainText() string {
	if m == nil {
		return ""
	}
	return m.Content.PlainText()
}

type MessageOption func(*Message)

func WithID(id string) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithToolCalls(specs ...ToolCallSpec) MessageOption {
	return func(m *Message) {
		m.ToolCalls = specs
	}
}

func WithAdditionalToolCalls(specs ...ToolCallSpec) MessageOption {
	return func(m *Message) {
		m.AdditionalKwargs.ToolCalls = specs
	}
}

func NewMessage(role Role, content Content, options ...MessageOption) *Message {
	ret := &Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func NewChatMessage(role Role, text string, options ...MessageOption) *Message {
	return NewMessage(role, NewTextContent(text), options...)
}

func NewToolResultMessage(ref string, text string, options ...MessageOption) *Message {
	ret := NewMessage(RoleToolResult, NewTextContent(text), options...)
	ret.ToolResultRef = ref
	return ret
}

// Conversation is the ordered message list for one conversation.
type Conversation []*Message

// LastAgentMessageID returns the id of the most recent agent message, or ""
// when the conversation has none.
func (c Conversation) LastAgentMessageID() string {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i] != nil && c[i].Role == RoleAgent {
			return c[i].ID
		}
	}
	return ""
}

// Render flattens the conversation into a labeled transcript, one message per
// line block. Tool results are included so downstream prompts see what the
// agent observed.
func (c Conversation) Render() string {
	var sb strings.Builder
	for _, m := range c {
		if m == nil {
			continue
		}
		text := m.PlainText()
		if text == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s]: %s\n", m.Role, strings.TrimRight(text, "\n")))
	}
	return sb.String()
}

package events

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/go-go-golems/specchio/pkg/chat"
)

type EventType string

const (
	// EventTypeConversationReplaced carries a wholesale replacement of the
	// message list; the view is recomputed from scratch, never patched.
	EventTypeConversationReplaced EventType = "conversation-replaced"
	// EventTypeLoadingChanged tracks the external "agent is producing
	// output" flag.
	EventTypeLoadingChanged EventType = "loading-changed"
	// EventTypeSuggestionsGenerated announces a freshly cached set.
	EventTypeSuggestionsGenerated EventType = "suggestions-generated"
)

type Event interface {
	Type() EventType
}

type EventImpl struct {
	Type_ EventType `json:"type"`
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

// EventConversationReplaced is published by the transport layer whenever it
// rebuilds the message list for a conversation.
type EventConversationReplaced struct {
	EventImpl
	ConversationID string            `json:"conversation_id"`
	Messages       chat.Conversation `json:"messages"`
}

func NewConversationReplaced(conversationID string, msgs chat.Conversation) *EventConversationReplaced {
	return &EventConversationReplaced{
		EventImpl:      EventImpl{Type_: EventTypeConversationReplaced},
		ConversationID: conversationID,
		Messages:       msgs,
	}
}

type EventLoadingChanged struct {
	EventImpl
	ConversationID string            `json:"conversation_id"`
	Loading        bool              `json:"loading"`
	Messages       chat.Conversation `json:"messages"`
}

func NewLoadingChanged(conversationID string, loading bool, msgs chat.Conversation) *EventLoadingChanged {
	return &EventLoadingChanged{
		EventImpl:      EventImpl{Type_: EventTypeLoadingChanged},
		ConversationID: conversationID,
		Loading:        loading,
		Messages:       msgs,
	}
}

type EventSuggestionsGenerated struct {
	EventImpl
	ConversationID string          `json:"conversation_id"`
	CacheKey       string          `json:"cache_key"`
	Payload        json.RawMessage `json:"suggestions"`
}

// NewEventFromJson decodes a serialized event into its concrete type based
// on the embedded type tag.
func NewEventFromJson(b []byte) (Event, error) {
	var peek EventImpl
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, errors.Wrap(err, "could not peek event type")
	}

	switch peek.Type_ {
	case EventTypeConversationReplaced:
		var ev EventConversationReplaced
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, errors.Wrap(err, "could not decode conversation-replaced event")
		}
		return &ev, nil
	case EventTypeLoadingChanged:
		var ev EventLoadingChanged
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, errors.Wrap(err, "could not decode loading-changed event")
		}
		return &ev, nil
	case EventTypeSuggestionsGenerated:
		var ev EventSuggestionsGenerated
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, errors.Wrap(err, "could not decode suggestions-generated event")
		}
		return &ev, nil
	default:
		return nil, errors.Errorf("unknown event type %q", peek.Type_)
	}
}

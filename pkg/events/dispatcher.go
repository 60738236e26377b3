package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/specchio/pkg/helpers"
	"github.com/go-go-golems/specchio/pkg/suggest"
)

// TopicConversation is the topic the transport layer publishes lifecycle
// events on.
const TopicConversation = "specchio.conversation"

// TopicSuggestions is where suggestion results are announced.
const TopicSuggestions = "specchio.suggestions"

// NewSuggestionNotifier builds the manager-side notifier that announces
// freshly cached suggestion sets on the suggestions topic. Subscribers get
// the serialized suggest.GeneratedPayload.
func NewSuggestionNotifier(router *EventRouter) *helpers.SubscriptionManager {
	sm := helpers.NewSubscriptionManager()
	sm.AddPublisher(TopicSuggestions, router.Publisher)
	return sm
}

// RegisterSuggestionHandlers subscribes a suggestion manager to the
// conversation topic, translating lifecycle events into manager calls.
// Malformed events are logged and dropped; they never kill the handler.
func RegisterSuggestionHandlers(router *EventRouter, manager *suggest.Manager) {
	router.AddHandler("suggest-conversation", TopicConversation, func(msg *message.Message) error {
		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed conversation event")
			return nil
		}

		ctx := msg.Context()
		switch ev := e.(type) {
		case *EventConversationReplaced:
			manager.SetConversation(ctx, ev.ConversationID, ev.Messages)
		case *EventLoadingChanged:
			manager.SetLoading(ctx, ev.Messages, ev.Loading)
		default:
			log.Debug().Str("type", string(e.Type())).Msg("ignoring conversation event")
		}
		return nil
	})
}

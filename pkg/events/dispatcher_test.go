package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/specchio/pkg/chat"
	"github.com/go-go-golems/specchio/pkg/suggest"
)

type stubGenerator struct {
	set suggest.SuggestionSet
}

func (s *stubGenerator) Generate(_ context.Context, _ chat.Conversation) (suggest.SuggestionSet, error) {
	return s.set, nil
}

func startRouter(t *testing.T) *EventRouter {
	t.Helper()
	router, err := NewEventRouter()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = router.Close()
	})
	return router
}

func runRouter(t *testing.T, router *EventRouter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = router.Run(ctx)
	}()
	select {
	case <-router.Running():
	case <-time.After(time.Second):
		t.Fatal("router did not start")
	}
}

func publish(t *testing.T, router *EventRouter, topic string, ev Event) {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	msg := message.NewMessage("test-"+time.Now().Format("150405.000000"), b)
	require.NoError(t, router.Publisher.Publish(topic, msg))
}

func TestEventsDeliveredInPublishOrder(t *testing.T) {
	router := startRouter(t)

	var mu sync.Mutex
	var received []string
	router.AddHandler("ordered-delivery", "test.order", func(msg *message.Message) error {
		mu.Lock()
		received = append(received, string(msg.Payload))
		mu.Unlock()
		return nil
	})
	runRouter(t, router)

	var published []string
	for i := 0; i < 10; i++ {
		payload := fmt.Sprintf("event-%d", i)
		published = append(published, payload)
		msg := message.NewMessage(payload, []byte(payload))
		require.NoError(t, router.Publisher.Publish("test.order", msg))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == len(published)
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, published, received, "consecutive publishes must keep their order")
}

func TestConversationReplacedDrivesManager(t *testing.T) {
	set := suggest.SuggestionSet{{
		Short: "inspect",
		Full:  "walk through every message in the transcript and describe what each tool invocation contributed to the final answer",
	}}
	manager := suggest.NewManager(&stubGenerator{set: set})

	router := startRouter(t)
	RegisterSuggestionHandlers(router, manager)
	runRouter(t, router)

	conv := chat.Conversation{
		chat.NewChatMessage(chat.RoleHuman, "hi", chat.WithID("h1")),
		chat.NewChatMessage(chat.RoleAgent, "hello", chat.WithID("a1")),
	}
	publish(t, router, TopicConversation, NewConversationReplaced("c1", conv))

	require.Eventually(t, func() bool {
		cur := manager.Current()
		return len(cur) == 1 && cur[0].Short == "inspect"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadingTransitionDrivesManager(t *testing.T) {
	set := suggest.SuggestionSet{{
		Short: "continue",
		Full:  "pick up where the previous answer stopped and expand on the remaining open points until nothing is left unexplained",
	}}
	manager := suggest.NewManager(&stubGenerator{set: set})

	router := startRouter(t)
	RegisterSuggestionHandlers(router, manager)
	runRouter(t, router)

	conv := chat.Conversation{
		chat.NewChatMessage(chat.RoleHuman, "hi", chat.WithID("h1")),
		chat.NewChatMessage(chat.RoleAgent, "hello", chat.WithID("a1")),
	}
	publish(t, router, TopicConversation, NewLoadingChanged("c1", true, nil))
	publish(t, router, TopicConversation, NewLoadingChanged("c1", false, conv))

	require.Eventually(t, func() bool {
		cur := manager.Current()
		return len(cur) == 1 && cur[0].Short == "continue"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGenerationResultAnnouncedOnSuggestionsTopic(t *testing.T) {
	set := suggest.SuggestionSet{{
		Short: "summarize",
		Full:  "write a short summary of everything decided in this conversation so far and list any questions that remain open",
	}}

	router := startRouter(t)
	manager := suggest.NewManager(&stubGenerator{set: set},
		suggest.WithNotifier(NewSuggestionNotifier(router)))
	RegisterSuggestionHandlers(router, manager)
	runRouter(t, router)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	announced, err := router.Subscriber.Subscribe(ctx, TopicSuggestions)
	require.NoError(t, err)

	conv := chat.Conversation{
		chat.NewChatMessage(chat.RoleAgent, "hello", chat.WithID("a1")),
	}
	publish(t, router, TopicConversation, NewConversationReplaced("c1", conv))

	select {
	case msg := <-announced:
		var payload suggest.GeneratedPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		msg.Ack()
		assert.Equal(t, "c1", payload.ConversationID)
		assert.Equal(t, suggest.CacheKey("c1", "a1"), payload.CacheKey)
		assert.Equal(t, set, payload.Suggestions)
	case <-time.After(2 * time.Second):
		t.Fatal("no announcement on suggestions topic")
	}
}

func TestMalformedEventDoesNotKillHandler(t *testing.T) {
	set := suggest.SuggestionSet{{
		Short: "retry",
		Full:  "run the last command again with verbose output enabled so the intermediate state is visible in the log lines",
	}}
	manager := suggest.NewManager(&stubGenerator{set: set})

	router := startRouter(t)
	RegisterSuggestionHandlers(router, manager)
	runRouter(t, router)

	msg := message.NewMessage("bad", []byte(`{"type":`))
	require.NoError(t, router.Publisher.Publish(TopicConversation, msg))

	conv := chat.Conversation{
		chat.NewChatMessage(chat.RoleAgent, "hello", chat.WithID("a1")),
	}
	publish(t, router, TopicConversation, NewConversationReplaced("c1", conv))

	require.Eventually(t, func() bool {
		cur := manager.Current()
		return len(cur) == 1 && cur[0].Short == "retry"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, set, manager.Current())
}

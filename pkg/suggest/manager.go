package suggest

import (
	"context"
	"sync"

	"github.com/lithammer/shortuuid/v3"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/specchio/pkg/chat"
)

// Notifier receives a fire-and-forget payload when a generation lands.
// helpers.SubscriptionManager satisfies it.
type Notifier interface {
	PublishBlind(payload interface{})
}

// GeneratedPayload is what the manager publishes after a successful
// generation is written to the cache.
type GeneratedPayload struct {
	ConversationID string        `json:"conversation_id"`
	CacheKey       string        `json:"cache_key"`
	Suggestions    SuggestionSet `json:"suggestions"`
}

// Manager supplies the suggestion set for the current conversation position,
// preferring a backend-pushed set, then the cache, then a fresh generation,
// then the fixed defaults. At most one generation is in flight per manager;
// a stale generation's result is dropped by token comparison rather than
// cancellation.
type Manager struct {
	mu       sync.Mutex
	cache    *Cache
	gen      Generator
	defaults SuggestionSet
	notifier Notifier

	conversationID string
	// lastAgentID is the last observed agent message id. It is advanced
	// optimistically before a generation starts so a second trigger for
	// the same turn is suppressed.
	lastAgentID string
	loading     bool
	// genToken is non-empty while a generation is in flight. A completed
	// call applies its result only when its captured token still matches.
	genToken string
	pushed   SuggestionSet
}

type ManagerOption func(*Manager)

func WithCache(cache *Cache) ManagerOption {
	return func(m *Manager) {
		m.cache = cache
	}
}

func WithCacheSize(size int) ManagerOption {
	return func(m *Manager) {
		m.cache = NewCache(size)
	}
}

func WithDefaults(set SuggestionSet) ManagerOption {
	return func(m *Manager) {
		m.defaults = set
	}
}

func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = n
	}
}

// NewManager creates a suggestion manager. gen may be nil (for example when
// the backend provider is unsupported); the manager then serves cached sets
// and defaults only.
func NewManager(gen Generator, options ...ManagerOption) *Manager {
	ret := &Manager{
		gen:      gen,
		cache:    NewCache(50),
		defaults: DefaultSuggestions(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// SetConversation switches the manager to a (re)loaded conversation and
// triggers a generation when the current cache key is missing. Any in-flight
// generation for the previous conversation becomes stale.
func (m *Manager) SetConversation(ctx context.Context, conversationID string, conv chat.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversationID = conversationID
	m.pushed = nil
	m.genToken = ""
	m.lastAgentID = conv.LastAgentMessageID()

	if m.lastAgentID == "" {
		return
	}
	key := CacheKey(m.conversationID, m.lastAgentID)
	if _, ok := m.cache.Get(key); ok {
		return
	}
	m.startGenerationLocked(ctx, conv, key)
}

// SetLoading feeds the external "agent is producing output" flag. The
// true->false transition ends a turn: when it produced a new, uncached agent
// message, a generation is triggered.
func (m *Manager) SetLoading(ctx context.Context, conv chat.Conversation, loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasLoading := m.loading
	m.loading = loading

	if loading {
		if !wasLoading {
			// a new turn invalidates the backend-pushed set
			m.pushed = nil
		}
		return
	}
	if !wasLoading {
		return
	}

	last := conv.LastAgentMessageID()
	if last == "" || last == m.lastAgentID {
		return
	}
	key := CacheKey(m.conversationID, last)
	if _, ok := m.cache.Get(key); ok {
		m.lastAgentID = last
		return
	}
	m.lastAgentID = last
	m.startGenerationLocked(ctx, conv, key)
}

// Push installs a backend-provided set for the current turn, which takes
// precedence over everything else until the next turn starts.
func (m *Manager) Push(set SuggestionSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = set
}

// Current returns the best available set for the current conversation
// position, falling back to the defaults. It never fails and never blocks.
func (m *Manager) Current() SuggestionSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pushed) > 0 {
		return m.pushed
	}
	if m.lastAgentID != "" {
		key := CacheKey(m.conversationID, m.lastAgentID)
		if set, ok := m.cache.Get(key); ok {
			return set
		}
	}
	return m.defaults
}

// Generating reports whether a generation is currently in flight.
func (m *Manager) Generating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.genToken != ""
}

// startGenerationLocked kicks off an asynchronous generation unless one is
// already in flight. Callers must hold m.mu.
func (m *Manager) startGenerationLocked(ctx context.Context, conv chat.Conversation, key string) {
	if m.gen == nil {
		return
	}
	if m.genToken != "" {
		log.Debug().Str("cache_key", key).Msg("suggestion generation already in flight, skipping")
		return
	}
	token := shortuuid.New()
	m.genToken = token
	conversationID := m.conversationID

	go func() {
		set, err := m.gen.Generate(ctx, conv)

		m.mu.Lock()
		defer m.mu.Unlock()

		if m.genToken != token {
			// Superseded while running; drop the result on the floor.
			log.Debug().Str("cache_key", key).Msg("discarding superseded suggestion result")
			return
		}
		m.genToken = ""

		if err != nil {
			// Failed generations leave the key empty so the next trigger
			// retries; callers keep getting the defaults meanwhile.
			log.Warn().Err(err).Str("cache_key", key).Msg("suggestion generation failed, serving defaults")
			return
		}

		m.cache.Put(key, set)
		log.Debug().Str("cache_key", key).Int("count", len(set)).Msg("cached generated suggestions")

		if m.notifier != nil {
			m.notifier.PublishBlind(GeneratedPayload{
				ConversationID: conversationID,
				CacheKey:       key,
				Suggestions:    set,
			})
		}
	}()
}

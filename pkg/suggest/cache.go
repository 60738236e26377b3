package suggest

import (
	"container/list"
	"sync"
)

// CacheKey identifies a point in a conversation for suggestion caching:
// the conversation id (or "new" before one exists) plus the id of the last
// agent message.
func CacheKey(conversationID, lastAgentMessageID string) string {
	if conversationID == "" {
		conversationID = "new"
	}
	return conversationID + "_" + lastAgentMessageID
}

type cacheEntry struct {
	set     SuggestionSet
	element *list.Element
}

// Cache is an LRU store of suggestion sets keyed by conversation position.
// Entries are written once per key and read-only afterwards, except for
// eviction of the oldest entries past capacity.
type Cache struct {
	entries map[string]cacheEntry
	lruList *list.List
	maxSize int
	mu      sync.RWMutex
}

// NewCache creates a suggestion cache holding at most maxSize sets.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 50
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached set for key, marking it recently used.
func (c *Cache) Get(key string) (SuggestionSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.lruList.MoveToFront(entry.element)
	return entry.set, true
}

// Put stores a set under key, evicting the least recently used entry once
// the cache is at capacity.
func (c *Cache) Put(key string, set SuggestionSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.set = set
		c.entries[key] = entry
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		oldest := c.lruList.Back()
		if oldest != nil {
			delete(c.entries, oldest.Value.(string))
			c.lruList.Remove(oldest)
		}
	}

	element := c.lruList.PushFront(key)
	c.entries[key] = cacheEntry{set: set, element: element}
}

// Size returns the current number of cached sets.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lruList.Len()
}

func (c *Cache) MaxSize() int {
	return c.maxSize
}

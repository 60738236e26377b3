package suggest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyDefaultsConversationToNew(t *testing.T) {
	assert.Equal(t, "new_a1", CacheKey("", "a1"))
	assert.Equal(t, "c1_a1", CacheKey("c1", "a1"))
}

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(10)
	set := SuggestionSet{{Short: "s", Full: "f"}}

	c.Put("k1", set)
	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, set, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheEvictsOldestAtCapacity(t *testing.T) {
	c := NewCache(3)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), SuggestionSet{{Short: fmt.Sprintf("s%d", i), Full: "f"}})
	}

	// touch k0 so k1 becomes the eviction candidate
	_, ok := c.Get("k0")
	require.True(t, ok)

	c.Put("k3", SuggestionSet{{Short: "s3", Full: "f"}})

	_, ok = c.Get("k1")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("k0")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Size())
}

func TestCachePutSameKeyReplaces(t *testing.T) {
	c := NewCache(2)
	c.Put("k1", SuggestionSet{{Short: "old", Full: "f"}})
	c.Put("k1", SuggestionSet{{Short: "new", Full: "f"}})

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "new", got[0].Short)
	assert.Equal(t, 1, c.Size())
}

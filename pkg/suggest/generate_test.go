package suggest

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/specchio/pkg/chat"
)

const longFull = "this is a deliberately padded follow up message with more than fifteen separate words so validation accepts it"

func testGenerator(t *testing.T) *OpenAIGenerator {
	t.Helper()
	g, err := NewOpenAIGenerator("test-key")
	require.NoError(t, err)
	return g
}

func validBatch(n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		b, _ := json.Marshal(Suggestion{Short: fmt.Sprintf("option %d", i), Full: longFull})
		items = append(items, string(b))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestGeneratorDefaults(t *testing.T) {
	g := testGenerator(t)
	assert.Equal(t, "gpt-4o-mini", g.model)
	assert.Equal(t, 4000, g.maxPromptTokens)
}

func TestGeneratorOptions(t *testing.T) {
	g, err := NewOpenAIGenerator("test-key", WithModel("gpt-4o"), WithMaxPromptTokens(100))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", g.model)
	assert.Equal(t, 100, g.maxPromptTokens)
}

func TestParseSuggestionsAcceptsValidBatch(t *testing.T) {
	g := testGenerator(t)
	set, err := g.parseSuggestions(validBatch(5))
	require.NoError(t, err)
	assert.Len(t, set, 5)
}

func TestParseSuggestionsDropsItemsMissingFull(t *testing.T) {
	g := testGenerator(t)
	_, err := g.parseSuggestions(`[{"short":"ok"}]`)
	require.Error(t, err, "batch with fewer than 3 valid items is rejected")
}

func TestParseSuggestionsDropsShortFullText(t *testing.T) {
	g := testGenerator(t)
	raw := fmt.Sprintf(`[
		{"short": "a", "full": "too few words"},
		{"short": "b", "full": %q},
		{"short": "c", "full": %q},
		{"short": "d", "full": %q}
	]`, longFull, longFull, longFull)

	set, err := g.parseSuggestions(raw)
	require.NoError(t, err)
	assert.Len(t, set, 3)
	for _, s := range set {
		assert.NotEqual(t, "a", s.Short)
	}
}

func TestParseSuggestionsRejectsNonArray(t *testing.T) {
	g := testGenerator(t)
	_, err := g.parseSuggestions(`{"short":"x","full":"y"}`)
	require.Error(t, err)

	_, err = g.parseSuggestions(`not json at all`)
	require.Error(t, err)
}

func TestParseSuggestionsStripsCodeFences(t *testing.T) {
	g := testGenerator(t)
	raw := "```json\n" + validBatch(3) + "\n```"
	set, err := g.parseSuggestions(raw)
	require.NoError(t, err)
	assert.Len(t, set, 3)
}

func TestParseSuggestionsDropsWrongTypes(t *testing.T) {
	g := testGenerator(t)
	raw := fmt.Sprintf(`[
		{"short": 42, "full": %q},
		{"short": "b", "full": %q},
		{"short": "c", "full": %q},
		{"short": "d", "full": %q}
	]`, longFull, longFull, longFull, longFull)

	set, err := g.parseSuggestions(raw)
	require.NoError(t, err)
	assert.Len(t, set, 3)
}

func TestBoundedTranscriptKeepsMostRecent(t *testing.T) {
	g := testGenerator(t)
	g.maxPromptTokens = 30

	conv := chat.Conversation{
		chat.NewChatMessage(chat.RoleHuman, strings.Repeat("old words here ", 50), chat.WithID("h1")),
		chat.NewChatMessage(chat.RoleAgent, "recent answer", chat.WithID("a1")),
	}

	transcript := g.boundedTranscript(conv)
	assert.Contains(t, transcript, "recent answer")
	assert.NotContains(t, transcript, "old words")
}

func TestBoundedTranscriptPreservesOrder(t *testing.T) {
	g := testGenerator(t)
	conv := chat.Conversation{
		chat.NewChatMessage(chat.RoleHuman, "first", chat.WithID("h1")),
		chat.NewChatMessage(chat.RoleAgent, "second", chat.WithID("a1")),
	}

	transcript := g.boundedTranscript(conv)
	first := strings.Index(transcript, "first")
	second := strings.Index(transcript, "second")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestNewGeneratorRejectsUnsupportedProvider(t *testing.T) {
	_, err := NewGenerator("anthropic", "key")
	require.Error(t, err)

	_, err = NewGenerator("openai", "")
	require.Error(t, err)
}

func TestDefaultSuggestionsAreValid(t *testing.T) {
	defaults := DefaultSuggestions()
	require.Len(t, defaults, 20)
	for i, s := range defaults {
		assert.True(t, s.Valid(), "default %d (%s) must pass validation", i, s.Short)
	}
}

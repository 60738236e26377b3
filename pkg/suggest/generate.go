package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/tiktoken-go/tokenizer"
	"github.com/xeipuuv/gojsonschema"

	"github.com/go-go-golems/specchio/pkg/chat"
)

// Generator produces a fresh suggestion set for the current conversation.
// Errors are recoverable by design: the manager falls back to defaults and
// never surfaces them to the caller.
type Generator interface {
	Generate(ctx context.Context, conv chat.Conversation) (SuggestionSet, error)
}

// suggestionCount is how many {short, full} pairs a generation requests.
const suggestionCount = 20

// minValidSuggestions is the smallest batch worth keeping; below it the
// whole response is discarded in favor of the defaults.
const minValidSuggestions = 3

const suggestionSystemPrompt = `You suggest follow-up messages a user could send next in a conversation with an analysis agent.
Given the transcript, reply with a JSON array of exactly %d objects, each {"short": ..., "full": ...}.
"short" is a 2-5 word button label. "full" is the complete message to send, at least 20 words, written in the user's voice.
Reply with the JSON array only, no prose and no code fences.`

// suggestionItemSchema validates one response item. Validation is per item
// so a single malformed entry does not discard its siblings.
const suggestionItemSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["short", "full"],
	"properties": {
		"short": {"type": "string", "minLength": 1},
		"full": {"type": "string", "minLength": 1}
	}
}`

// OpenAIGenerator calls the OpenAI chat completion API to synthesize
// suggestions from a token-bounded transcript.
type OpenAIGenerator struct {
	client          *go_openai.Client
	model           string
	maxPromptTokens int
	codec           tokenizer.Codec
	schema          *gojsonschema.Schema
}

type GeneratorOption func(*OpenAIGenerator)

func WithModel(model string) GeneratorOption {
	return func(g *OpenAIGenerator) {
		g.model = model
	}
}

func WithMaxPromptTokens(n int) GeneratorOption {
	return func(g *OpenAIGenerator) {
		g.maxPromptTokens = n
	}
}

func NewOpenAIGenerator(apiKey string, options ...GeneratorOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("no API key provided")
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "could not load tokenizer codec")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(suggestionItemSchema))
	if err != nil {
		return nil, errors.Wrap(err, "could not compile suggestion schema")
	}

	ret := &OpenAIGenerator{
		client:          go_openai.NewClient(apiKey),
		model:           "gpt-4o-mini",
		maxPromptTokens: 4000,
		codec:           codec,
		schema:          schema,
	}
	for _, option := range options {
		option(ret)
	}
	return ret, nil
}

// NewGenerator builds a generator for the configured backend provider.
// Only openai is supported; anything else is an error, which the manager
// treats as "use defaults".
func NewGenerator(provider string, apiKey string, options ...GeneratorOption) (Generator, error) {
	switch strings.ToLower(provider) {
	case "", "openai":
		g, err := NewOpenAIGenerator(apiKey, options...)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, errors.Errorf("unsupported suggestion provider %q", provider)
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, conv chat.Conversation) (SuggestionSet, error) {
	transcript := g.boundedTranscript(conv)
	if transcript == "" {
		return nil, errors.New("empty transcript")
	}

	resp, err := g.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []go_openai.ChatCompletionMessage{
			{
				Role:    go_openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(suggestionSystemPrompt, suggestionCount),
			},
			{
				Role:    go_openai.ChatMessageRoleUser,
				Content: transcript,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "suggestion completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("suggestion completion returned no choices")
	}

	set, err := g.parseSuggestions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// boundedTranscript renders the conversation keeping the most recent
// messages that fit inside the prompt token budget.
func (g *OpenAIGenerator) boundedTranscript(conv chat.Conversation) string {
	var kept []string
	budget := g.maxPromptTokens
	for i := len(conv) - 1; i >= 0; i-- {
		m := conv[i]
		if m == nil {
			continue
		}
		text := m.PlainText()
		if text == "" {
			continue
		}
		line := fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(text, "\n"))
		ids, _, err := g.codec.Encode(line)
		if err != nil {
			// Conservative fallback when the codec chokes on the input.
			ids = make([]uint, len(line)/3)
		}
		if len(ids) > budget {
			break
		}
		budget -= len(ids)
		kept = append(kept, line)
	}
	// kept is newest-first, restore stream order
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

// parseSuggestions decodes and validates a model response. Invalid items are
// dropped; a batch with fewer than minValidSuggestions survivors is rejected
// wholesale.
func (g *OpenAIGenerator) parseSuggestions(raw string) (SuggestionSet, error) {
	raw = stripCodeFences(raw)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, errors.Wrap(err, "suggestion response is not a JSON array")
	}

	var set SuggestionSet
	for _, item := range items {
		result, err := g.schema.Validate(gojsonschema.NewBytesLoader(item))
		if err != nil || !result.Valid() {
			log.Debug().Str("item", string(item)).Msg("dropping schema-invalid suggestion")
			continue
		}
		var s Suggestion
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if !s.Valid() {
			log.Debug().Str("short", s.Short).Msg("dropping short suggestion")
			continue
		}
		set = append(set, s)
	}

	if len(set) < minValidSuggestions {
		return nil, errors.Errorf("only %d valid suggestions in batch", len(set))
	}
	return set, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package intelligence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/intelligence"
	"github.com/agenticmem/agenticmem-go/pkg/llm"
)

// fakeLLM returns scripted responses in order and records the prompts
// it saw.
type fakeLLM struct {
	responses []string
	calls     int
	err       error

	lastPrompt   string
	lastMessages []llm.Message
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	f.lastPrompt = prompt
	return f.next()
}

func (f *fakeLLM) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	f.lastMessages = messages
	return f.next()
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) next() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.calls >= len(f.responses) {
		return "", errors.New("fake llm: no response scripted")
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func TestExtractFacts(t *testing.T) {
	provider := &fakeLLM{responses: []string{
		`{"facts": ["User is vegetarian", "User moved to Berlin for a fintech job"]}`,
	}}

	extractor := intelligence.NewFactExtractor(provider)
	result, err := extractor.ExtractFacts(context.Background(), "I'm vegetarian and just moved to Berlin for a fintech job")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"User is vegetarian",
		"User moved to Berlin for a fintech job",
	}, result.Facts)
	assert.Empty(t, result.Discarded)
}

func TestExtractFactsDiscardsTruisms(t *testing.T) {
	provider := &fakeLLM{responses: []string{
		`{"facts": ["User is vegetarian", "User values efficiency"]}`,
	}}

	extractor := intelligence.NewFactExtractor(provider)
	result, err := extractor.ExtractFacts(context.Background(), "some input")

	require.NoError(t, err)
	assert.Equal(t, []string{"User is vegetarian"}, result.Facts)
	assert.Equal(t, []string{"User values efficiency"}, result.Discarded)
}

func TestExtractFactsStripsCodeFences(t *testing.T) {
	provider := &fakeLLM{responses: []string{
		"```json\n{\"facts\": [\"User plays tennis on Saturdays\"]}\n```",
	}}

	extractor := intelligence.NewFactExtractor(provider)
	result, err := extractor.ExtractFacts(context.Background(), "input")

	require.NoError(t, err)
	assert.Equal(t, []string{"User plays tennis on Saturdays"}, result.Facts)
}

func TestExtractFactsEmptyResult(t *testing.T) {
	provider := &fakeLLM{responses: []string{`{"facts": []}`}}

	extractor := intelligence.NewFactExtractor(provider)
	result, err := extractor.ExtractFacts(context.Background(), "Hello! How are you?")

	require.NoError(t, err)
	assert.Empty(t, result.Facts)
	assert.Empty(t, result.Discarded)
}

func TestExtractFactsInvalidJSON(t *testing.T) {
	provider := &fakeLLM{responses: []string{`not json at all`}}

	extractor := intelligence.NewFactExtractor(provider)
	_, err := extractor.ExtractFacts(context.Background(), "input")

	assert.Error(t, err)
}

func TestExtractFactsLLMError(t *testing.T) {
	provider := &fakeLLM{err: errors.New("rate limited")}

	extractor := intelligence.NewFactExtractor(provider)
	_, err := extractor.ExtractFacts(context.Background(), "input")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestExtractFactsMessageFormats(t *testing.T) {
	provider := &fakeLLM{responses: []string{
		`{"facts": ["User is named Alice"]}`,
	}}

	extractor := intelligence.NewFactExtractor(provider)
	messages := []map[string]interface{}{
		{"role": "system", "content": "You are helpful"},
		{"role": "user", "content": "I'm Alice"},
		{"role": "assistant", "content": "Hi Alice!"},
	}

	result, err := extractor.ExtractFacts(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, []string{"User is named Alice"}, result.Facts)

	// System turns stay out of the transcript handed to the model.
	require.Len(t, provider.lastMessages, 2)
	assert.NotContains(t, provider.lastMessages[1].Content, "You are helpful")
	assert.Contains(t, provider.lastMessages[1].Content, "user: I'm Alice")
}

func TestCustomPromptOverride(t *testing.T) {
	provider := &fakeLLM{responses: []string{`{"facts": []}`}}

	extractor := intelligence.NewFactExtractorWithPrompt(provider, "Extract only food preferences.")
	_, err := extractor.ExtractFacts(context.Background(), "input")

	require.NoError(t, err)
	require.NotEmpty(t, provider.lastMessages)
	assert.Equal(t, "Extract only food preferences.", provider.lastMessages[0].Content)
}

func TestExtractionPromptForbidsTruisms(t *testing.T) {
	assert.Contains(t, intelligence.ExtractionPrompt, "ANTI-PATTERN")
	assert.Contains(t, intelligence.ExtractionPrompt, "truisms")
}

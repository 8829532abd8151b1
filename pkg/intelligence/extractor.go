// Package intelligence implements the memory extraction pipeline:
// fact extraction, truism filtering, action decisions, deduplication,
// retention scoring, and importance evaluation.
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenticmem/agenticmem-go/pkg/llm"
)

// ExtractionResult holds the outcome of one extraction run.
type ExtractionResult struct {
	// Facts are the user-specific facts that passed the truism filter.
	Facts []string

	// Discarded are facts the truism filter rejected. They are kept
	// around for logging and metrics, never stored.
	Discarded []string
}

// FactExtractor extracts user-specific facts from conversations.
//
// Extraction happens in two stages: the LLM call with a prompt that
// forbids generic statements, then a heuristic truism filter over the
// returned facts.
//
// Example usage:
//
//	extractor := NewFactExtractor(provider)
//	result, err := extractor.ExtractFacts(ctx, messages)
//	// result.Facts holds storable facts, result.Discarded the rejects
type FactExtractor struct {
	llm    llm.Provider
	filter *TruismFilter

	// customPrompt overrides the default extraction prompt when set.
	customPrompt string
}

// NewFactExtractor creates a fact extractor with the default prompt.
func NewFactExtractor(provider llm.Provider) *FactExtractor {
	return &FactExtractor{
		llm:    provider,
		filter: NewTruismFilter(),
	}
}

// NewFactExtractorWithPrompt creates a fact extractor with a custom
// system prompt. The truism filter still applies to the output.
func NewFactExtractorWithPrompt(provider llm.Provider, customPrompt string) *FactExtractor {
	return &FactExtractor{
		llm:          provider,
		filter:       NewTruismFilter(),
		customPrompt: customPrompt,
	}
}

// ExtractFacts extracts facts from messages.
//
// Parameters:
//   - ctx: Context for cancellation
//   - messages: A string, []map[string]interface{}, or single map
//
// Returns the filtered facts along with anything the filter discarded.
func (e *FactExtractor) ExtractFacts(ctx context.Context, messages interface{}) (*ExtractionResult, error) {
	conversation := e.parseMessages(messages)

	systemPrompt := e.customPrompt
	if systemPrompt == "" {
		systemPrompt = extractionSystemPrompt()
	}

	llmMessages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Input:\n%s", conversation)},
	}

	response, err := e.llm.GenerateWithMessages(ctx, llmMessages, llm.WithJSONResponse())
	if err != nil {
		return nil, fmt.Errorf("extract facts: %w", err)
	}

	facts, err := e.parseFactsResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parse facts response: %w", err)
	}

	kept, discarded := e.filter.Filter(facts)
	return &ExtractionResult{Facts: kept, Discarded: discarded}, nil
}

// parseMessages renders messages into a conversation transcript.
func (e *FactExtractor) parseMessages(messages interface{}) string {
	switch v := messages.(type) {
	case string:
		return v
	case []map[string]interface{}:
		var parts []string
		for _, msg := range v {
			role, _ := msg["role"].(string)
			content, _ := msg["content"].(string)
			if role != "" && content != "" && role != "system" {
				parts = append(parts, fmt.Sprintf("%s: %s", role, content))
			}
		}
		return strings.Join(parts, "\n")
	case []llm.Message:
		var parts []string
		for _, msg := range v {
			if msg.Role != "system" && msg.Content != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
			}
		}
		return strings.Join(parts, "\n")
	case map[string]interface{}:
		role, _ := v["role"].(string)
		content, _ := v["content"].(string)
		if role != "" && content != "" {
			return fmt.Sprintf("%s: %s", role, content)
		}
		return ""
	default:
		return fmt.Sprintf("%v", messages)
	}
}

// parseFactsResponse pulls the facts array out of the LLM response.
func (e *FactExtractor) parseFactsResponse(response string) ([]string, error) {
	response = removeCodeBlocks(response)

	var result struct {
		Facts []string `json:"facts"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	facts := make([]string, 0, len(result.Facts))
	for _, fact := range result.Facts {
		if fact != "" {
			facts = append(facts, fact)
		}
	}
	return facts, nil
}

// removeCodeBlocks strips markdown code fences from a response. Models
// sometimes wrap JSON in them despite the response format request.
func removeCodeBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

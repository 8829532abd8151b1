package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agenticmem/agenticmem-go/pkg/llm"
)

// ImportanceEvaluator scores how important a memory is, between 0 and
// 1. With an LLM it asks the model directly, otherwise it falls back
// to keyword heuristics. The LLM path also falls back on error.
type ImportanceEvaluator struct {
	llm llm.Provider
}

// NewImportanceEvaluator creates an evaluator. A nil provider means
// rule-based scoring only.
func NewImportanceEvaluator(provider llm.Provider) *ImportanceEvaluator {
	return &ImportanceEvaluator{llm: provider}
}

// EvaluateImportance scores content importance between 0.0 and 1.0.
func (e *ImportanceEvaluator) EvaluateImportance(ctx context.Context, content string, metadata map[string]interface{}) float64 {
	if e.llm != nil {
		if score, err := e.evaluateWithLLM(ctx, content); err == nil {
			return score
		}
	}
	return e.evaluateWithRules(content, metadata)
}

func (e *ImportanceEvaluator) evaluateWithLLM(ctx context.Context, content string) (float64, error) {
	systemPrompt := `You are an importance evaluator for memory content.
Evaluate the importance of the given content on a scale from 0.0 to 1.0.
Consider relevance, novelty, emotional impact, actionability, and personal significance.
Return a JSON object with an "importance_score" field.`

	userPrompt := fmt.Sprintf("Content: %s\n\nEvaluate the importance and return JSON: {\"importance_score\": 0.0-1.0}", content)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
	response, err := e.llm.GenerateWithMessages(ctx, messages, llm.WithJSONResponse())
	if err != nil {
		return 0.5, err
	}
	return e.parseImportanceResponse(response)
}

var scoreRe = regexp.MustCompile(`importance_score"?\s*[:=]\s*([0-9.]+)`)

// parseImportanceResponse reads the score from the response, falling
// back to a regex scan when the JSON does not parse cleanly.
func (e *ImportanceEvaluator) parseImportanceResponse(response string) (float64, error) {
	response = removeCodeBlocks(response)

	var result struct {
		ImportanceScore float64 `json:"importance_score"`
	}
	if err := json.Unmarshal([]byte(response), &result); err == nil {
		return clampScore(result.ImportanceScore), nil
	}

	if m := scoreRe.FindStringSubmatch(response); len(m) == 2 {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			return clampScore(score), nil
		}
	}
	return 0.5, fmt.Errorf("no importance score in response")
}

// evaluateWithRules scores content with keyword heuristics.
func (e *ImportanceEvaluator) evaluateWithRules(content string, metadata map[string]interface{}) float64 {
	score := 0.0
	contentLower := strings.ToLower(content)

	if len(content) > 100 {
		score += 0.1
	} else if len(content) > 50 {
		score += 0.05
	}

	importantKeywords := []string{
		"important", "critical", "urgent", "remember", "note",
		"preference", "like", "dislike", "hate", "love",
		"deadline", "birthday", "appointment", "allergic",
	}
	for _, keyword := range importantKeywords {
		if strings.Contains(contentLower, keyword) {
			score += 0.1
		}
	}

	if strings.Contains(content, "?") {
		score += 0.05
	}
	if strings.Contains(content, "!") {
		score += 0.05
	}

	if metadata != nil {
		if priority, ok := metadata["priority"].(string); ok {
			switch priority {
			case "high":
				score += 0.2
			case "medium":
				score += 0.1
			}
		}
	}

	// Baseline so ordinary facts are not scored as noise.
	score += 0.2
	return clampScore(score)
}

func clampScore(score float64) float64 {
	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}

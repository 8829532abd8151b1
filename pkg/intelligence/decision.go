package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenticmem/agenticmem-go/pkg/llm"
)

// Memory action events returned by the decision prompt.
const (
	EventAdd    = "ADD"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventNone   = "NONE"
)

// MemoryAction is one memory operation decided by the model.
type MemoryAction struct {
	// ID is the existing memory ID for UPDATE and DELETE.
	ID string `json:"id"`

	// Text is the memory content.
	Text string `json:"text"`

	// Event is ADD, UPDATE, DELETE, or NONE.
	Event string `json:"event"`

	// OldMemory is the previous content for UPDATE.
	OldMemory string `json:"old_memory,omitempty"`
}

// ExistingMemory is a candidate memory presented to the decision
// prompt. IDs are positional, the caller maps them back to real IDs.
type ExistingMemory struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DecisionMaker reconciles newly extracted facts against existing
// memories, deciding per fact whether to add, update, delete, or skip.
type DecisionMaker struct {
	llm          llm.Provider
	customPrompt string
}

// NewDecisionMaker creates a decision maker with the default prompt.
func NewDecisionMaker(provider llm.Provider) *DecisionMaker {
	return &DecisionMaker{llm: provider}
}

// NewDecisionMakerWithPrompt creates a decision maker with a custom
// prompt. The prompt must produce the same JSON output shape.
func NewDecisionMakerWithPrompt(provider llm.Provider, customPrompt string) *DecisionMaker {
	return &DecisionMaker{llm: provider, customPrompt: customPrompt}
}

// DecideActions asks the model what to do with each new fact.
//
// Parameters:
//   - ctx: Context for cancellation
//   - newFacts: Newly extracted facts
//   - existingMemories: Similar memories already stored
//
// Returns one MemoryAction per decision.
func (d *DecisionMaker) DecideActions(ctx context.Context, newFacts []string, existingMemories []ExistingMemory) ([]MemoryAction, error) {
	if len(newFacts) == 0 {
		return []MemoryAction{}, nil
	}

	prompt := d.customPrompt
	if prompt == "" {
		existingJSON, _ := json.Marshal(existingMemories)
		factsJSON, _ := json.Marshal(newFacts)
		prompt = fmt.Sprintf(decisionPromptTemplate, string(existingJSON), string(factsJSON))
	}

	response, err := d.llm.Generate(ctx, prompt, llm.WithJSONResponse())
	if err != nil {
		return nil, fmt.Errorf("decide actions: %w", err)
	}

	actions, err := d.parseActionsResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parse decision response: %w", err)
	}
	return actions, nil
}

// parseActionsResponse pulls the memory action array out of the LLM
// response, tolerating the "memory" field alias some models emit for
// the text.
func (d *DecisionMaker) parseActionsResponse(response string) ([]MemoryAction, error) {
	response = removeCodeBlocks(response)

	var result struct {
		Memory []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			Memory    string `json:"memory"`
			Event     string `json:"event"`
			OldMemory string `json:"old_memory"`
		} `json:"memory"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	actions := make([]MemoryAction, 0, len(result.Memory))
	for _, item := range result.Memory {
		text := item.Text
		if text == "" {
			text = item.Memory
		}
		actions = append(actions, MemoryAction{
			ID:        item.ID,
			Text:      text,
			Event:     strings.ToUpper(item.Event),
			OldMemory: item.OldMemory,
		})
	}
	return actions, nil
}

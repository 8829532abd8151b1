package intelligence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/intelligence"
)

func TestDecideActions(t *testing.T) {
	provider := &fakeLLM{responses: []string{`{
		"memory": [
			{"id": "", "text": "User is vegetarian", "event": "ADD"},
			{"id": "0", "text": "User lives in Berlin", "event": "UPDATE", "old_memory": "User lives in Hamburg"},
			{"id": "1", "text": "", "event": "NONE"}
		]
	}`}}

	maker := intelligence.NewDecisionMaker(provider)
	actions, err := maker.DecideActions(context.Background(),
		[]string{"User is vegetarian", "User lives in Berlin"},
		[]intelligence.ExistingMemory{
			{ID: "0", Text: "User lives in Hamburg"},
			{ID: "1", Text: "User is vegetarian"},
		},
	)

	require.NoError(t, err)
	require.Len(t, actions, 3)

	assert.Equal(t, intelligence.EventAdd, actions[0].Event)
	assert.Equal(t, "User is vegetarian", actions[0].Text)

	assert.Equal(t, intelligence.EventUpdate, actions[1].Event)
	assert.Equal(t, "0", actions[1].ID)
	assert.Equal(t, "User lives in Hamburg", actions[1].OldMemory)

	assert.Equal(t, intelligence.EventNone, actions[2].Event)
}

func TestDecideActionsNoFacts(t *testing.T) {
	provider := &fakeLLM{}

	maker := intelligence.NewDecisionMaker(provider)
	actions, err := maker.DecideActions(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.Zero(t, provider.calls, "no facts should mean no LLM call")
}

func TestDecideActionsMemoryAlias(t *testing.T) {
	// Some models emit the content under "memory" instead of "text".
	provider := &fakeLLM{responses: []string{`{
		"memory": [{"memory": "User has a cat named Miso", "event": "add"}]
	}`}}

	maker := intelligence.NewDecisionMaker(provider)
	actions, err := maker.DecideActions(context.Background(),
		[]string{"User has a cat named Miso"}, nil)

	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "User has a cat named Miso", actions[0].Text)
	assert.Equal(t, intelligence.EventAdd, actions[0].Event, "event should be uppercased")
}

func TestDecideActionsPromptContainsInputs(t *testing.T) {
	provider := &fakeLLM{responses: []string{`{"memory": []}`}}

	maker := intelligence.NewDecisionMaker(provider)
	_, err := maker.DecideActions(context.Background(),
		[]string{"User plays violin"},
		[]intelligence.ExistingMemory{{ID: "0", Text: "User plays piano"}},
	)

	require.NoError(t, err)
	assert.Contains(t, provider.lastPrompt, "User plays violin")
	assert.Contains(t, provider.lastPrompt, "User plays piano")
}

func TestDecideActionsInvalidJSON(t *testing.T) {
	provider := &fakeLLM{responses: []string{`oops`}}

	maker := intelligence.NewDecisionMaker(provider)
	_, err := maker.DecideActions(context.Background(), []string{"fact"}, nil)

	assert.Error(t, err)
}

package intelligence

import (
	"fmt"
	"time"
)

// ExtractionPrompt is the system prompt for fact extraction. It asks
// for specific, attributable facts and explicitly forbids truisms,
// which are generic statements that would be true of almost any user.
const ExtractionPrompt = `You are a Personal Information Organizer. Extract relevant facts, memories, preferences, intentions, and needs from conversations into distinct, manageable facts.

Information Types: Personal preferences, details (names, relationships, dates), plans, intentions, needs, requests, activities, health/wellness, professional, miscellaneous.

CRITICAL Rules:
1. TEMPORAL: ALWAYS extract time info (dates, relative refs like "yesterday", "last week"). Include it in the fact (e.g., "Went to Hawaii in May 2023", not just "Went to Hawaii").
2. COMPLETE: Extract self-contained facts with who/what/when/where when available.
3. SEPARATE: Extract distinct facts separately, especially when they have different time periods.
4. INTENTIONS & NEEDS: ALWAYS extract user intentions, needs, and requests even without time information.
5. SPECIFIC: Every fact must be specific to THIS user. It must name a concrete person, place, date, tool, decision, or preference that distinguishes this user from others.

ANTI-PATTERN, never extract truisms. A truism is a statement that would be true of almost anyone and carries no retrievable information. Do NOT extract facts like:
- "User values efficiency"
- "User wants their code to work"
- "User appreciates clear communication"
- "User is interested in technology"
- "User prefers helpful answers"
If a statement only restates common human preferences, omit it entirely. An empty list is better than a generic fact.

Examples:
Input: Hi.
Output: {"facts": []}

Input: Yesterday, I met John at 3pm. We discussed the project.
Output: {"facts": ["Met John at 3pm yesterday", "Discussed project with John yesterday"]}

Input: I'm Maria, a data engineer at Flixbus. I hate writing YAML.
Output: {"facts": ["Name is Maria", "Maria is a data engineer at Flixbus", "Maria hates writing YAML"]}

Input: I really care about quality and want things done right.
Output: {"facts": []}

Input: I want to book an appointment with a cardiologist.
Output: {"facts": ["Want to book an appointment with a cardiologist"]}

Rules:
- Today: %s
- Return JSON: {"facts": ["fact1", "fact2"]}
- Extract from user/assistant messages only
- If no relevant facts, return empty list
- Preserve input language

Extract facts from the conversation below:`

// extractionSystemPrompt renders ExtractionPrompt with today's date.
func extractionSystemPrompt() string {
	return fmt.Sprintf(ExtractionPrompt, time.Now().Format("2006-01-02"))
}

// decisionPromptTemplate is the prompt for reconciling new facts
// against existing memories. The model returns one action per fact.
const decisionPromptTemplate = `You are a Personal Information Organizer, specialized in managing and organizing personal information. You create, update, or delete memories based on new information and existing memories.

# Existing Memories
%s

# New Facts
%s

# Task
Analyze the new facts against existing memories and decide the appropriate action for each:

## Actions:
- **ADD**: Create a new memory if the fact is novel and doesn't overlap with existing memories
- **UPDATE**: Update an existing memory if the new fact provides additional or corrected information. Merge and consolidate, keeping the updated memory self-contained.
- **DELETE**: Remove a memory if it's outdated, incorrect, or contradicted by new information
- **NONE**: Skip if the fact is already captured or not worth storing

## Important Guidelines:
1. Mark facts as NONE if they duplicate existing memories
2. When updating, merge information to create complete, self-contained memories
3. Always preserve time references (dates, "yesterday", "last week", etc.)
4. When UPDATE/DELETE, use the exact ID from existing memories

## Output Format (JSON):
{
  "memory": [
    {"id": "0", "text": "Updated memory text", "event": "UPDATE", "old_memory": "Previous memory text"},
    {"text": "New memory text", "event": "ADD"},
    {"id": "2", "event": "DELETE"},
    {"text": "Duplicate fact", "event": "NONE"}
  ]
}

Now analyze the facts and provide your decision:`

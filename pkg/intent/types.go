// Package intent implements scheduled intents: deferred actions that
// run against a user's memories on a cron schedule or at a fixed time,
// guarded by gates and conditions.
package intent

import "time"

// Status is the lifecycle state of a scheduled intent.
type Status string

const (
	// StatusPending means the intent exists but has nothing scheduled,
	// it only runs when triggered explicitly.
	StatusPending Status = "pending"

	// StatusActive means the intent is scheduled and eligible to run.
	StatusActive Status = "active"

	// StatusPaused means runs are suspended until the intent resumes.
	StatusPaused Status = "paused"

	// StatusCompleted means the intent finished: one-shot fired, or
	// the execution budget ran out.
	StatusCompleted Status = "completed"

	// StatusCancelled means the intent was cancelled by the user.
	StatusCancelled Status = "cancelled"
)

// Action is what an intent does when it runs.
type Action string

const (
	// ActionRecall searches memories with the payload query and
	// surfaces the results.
	ActionRecall Action = "recall"

	// ActionExtract runs the extraction pipeline over payload
	// messages.
	ActionExtract Action = "extract"

	// ActionNotify emits a notification with the payload message.
	ActionNotify Action = "notify"
)

// ExecutionStatus is the outcome of one intent run.
type ExecutionStatus string

const (
	// ExecSuccess means the action ran and succeeded.
	ExecSuccess ExecutionStatus = "success"

	// ExecFailed means the action ran and returned an error.
	ExecFailed ExecutionStatus = "failed"

	// ExecSkipped means the run was skipped before evaluation, for
	// example because the intent was paused between claim and run.
	ExecSkipped ExecutionStatus = "skipped"

	// ExecGateBlocked means a gate stopped the run. The intent stays
	// scheduled and retries at its next slot.
	ExecGateBlocked ExecutionStatus = "gate_blocked"

	// ExecConditionNotMet means the intent's condition evaluated
	// false, so the action did not run.
	ExecConditionNotMet ExecutionStatus = "condition_not_met"
)

// ScheduledIntent is a deferred action bound to a user's memories.
//
// Scheduling comes in two forms: Schedule holds a standard five-field
// cron expression for recurring intents, TriggerAt a fixed time for
// one-shot intents. Exactly one of them should be set for the intent
// to run on its own.
type ScheduledIntent struct {
	// ID is a snowflake identifier.
	ID int64 `json:"id"`

	// UserID owns the intent. Required.
	UserID string `json:"user_id"`

	// AgentID optionally scopes the intent to one agent.
	AgentID string `json:"agent_id,omitempty"`

	// Description says what the intent is for, in the user's words.
	Description string `json:"description"`

	// Action selects the behavior when the intent fires.
	Action Action `json:"action"`

	// Payload carries action parameters: the query for recall, the
	// messages for extract, the message for notify.
	Payload map[string]interface{} `json:"payload,omitempty"`

	// Schedule is a cron expression for recurring intents.
	Schedule string `json:"schedule,omitempty"`

	// TriggerAt is the fire time for one-shot intents.
	TriggerAt *time.Time `json:"trigger_at,omitempty"`

	// Condition optionally guards the action, e.g.
	// "min_matches:3:coffee preferences".
	Condition string `json:"condition,omitempty"`

	// Gate optionally blocks runs, e.g. "quiet_hours:22-07" or
	// "rate_limit:5/24h".
	Gate string `json:"gate,omitempty"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// MaxExecutions caps runs that invoke the action. Failures count
	// against it, gate-blocked and unmet-condition runs do not. Zero
	// means unlimited.
	MaxExecutions int `json:"max_executions,omitempty"`

	// ExecutionCount is the number of counted runs so far.
	ExecutionCount int `json:"execution_count"`

	// NextRunAt is when the scheduler will next consider the intent.
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// LastRunAt is when the intent last ran.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IntentExecution is the record of one intent run. Executions belong
// to their intent and are deleted with it.
type IntentExecution struct {
	// ID is assigned by the store on insert.
	ID int64 `json:"id"`

	// IntentID references the owning intent.
	IntentID int64 `json:"intent_id"`

	// RunID is a UUID correlating the execution with log lines.
	RunID string `json:"run_id"`

	// Status is the run outcome.
	Status ExecutionStatus `json:"status"`

	// Detail carries outcome context: a result summary for successes,
	// the gate or condition reason for blocked runs.
	Detail string `json:"detail,omitempty"`

	// Error is the error text for failed runs.
	Error string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ValidStatus reports whether s is a known intent status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidAction reports whether a is a known action.
func ValidAction(a Action) bool {
	switch a {
	case ActionRecall, ActionExtract, ActionNotify:
		return true
	}
	return false
}

// ValidExecutionStatus reports whether s is a known execution status.
func ValidExecutionStatus(s ExecutionStatus) bool {
	switch s {
	case ExecSuccess, ExecFailed, ExecSkipped, ExecGateBlocked, ExecConditionNotMet:
		return true
	}
	return false
}

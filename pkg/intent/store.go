package intent

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an intent does not exist or the caller
// is not allowed to see it.
var ErrNotFound = errors.New("intent not found")

// ListOptions filters intent listings.
type ListOptions struct {
	// UserID restricts results to one user.
	UserID string

	// AgentID restricts results to one agent.
	AgentID string

	// Status restricts results to one lifecycle state.
	Status Status

	// Limit caps the result count, Offset skips ahead.
	Limit  int
	Offset int
}

// Store persists scheduled intents and their execution history.
//
// Executions reference intents with a cascading foreign key: deleting
// an intent removes its execution history in the same statement.
type Store interface {
	// CreateIntent stores a new intent.
	CreateIntent(ctx context.Context, intent *ScheduledIntent) error

	// GetIntent returns an intent by ID. The userID narrows access
	// when non-empty.
	GetIntent(ctx context.Context, id int64, userID string) (*ScheduledIntent, error)

	// ListIntents returns intents ordered by creation time descending.
	ListIntents(ctx context.Context, opts *ListOptions) ([]*ScheduledIntent, error)

	// UpdateIntentStatus moves an intent to a new lifecycle state.
	UpdateIntentStatus(ctx context.Context, id int64, userID string, status Status) error

	// DeleteIntent removes an intent and, through the cascade, its
	// executions.
	DeleteIntent(ctx context.Context, id int64, userID string) error

	// ClaimDue atomically takes up to limit active intents whose
	// next_run_at has passed, clearing next_run_at so a later tick
	// cannot claim them again. FinishRun must follow for every
	// claimed intent.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*ScheduledIntent, error)

	// FinishRun records the scheduling outcome of a claimed run:
	// last run time, the next slot (nil for none), the new status,
	// and whether the execution counter advances.
	FinishRun(ctx context.Context, id int64, lastRunAt time.Time, nextRunAt *time.Time, status Status, countRun bool) error

	// SetNextRun replaces an intent's next_run_at. Resuming a paused
	// intent uses this to put it back on the schedule.
	SetNextRun(ctx context.Context, id int64, nextRunAt *time.Time) error

	// RecordExecution appends one execution record.
	RecordExecution(ctx context.Context, exec *IntentExecution) error

	// ListExecutions returns an intent's executions, newest first.
	ListExecutions(ctx context.Context, intentID int64, limit int) ([]*IntentExecution, error)

	// CountExecutionsSince counts executions with the given status
	// recorded after the cutoff. Rate limit gates use this.
	CountExecutionsSince(ctx context.Context, intentID int64, status ExecutionStatus, since time.Time) (int, error)

	// Close releases the underlying database.
	Close() error
}

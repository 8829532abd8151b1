package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	detail string
	err    error
	calls  int
}

func (f *fakeExecutor) Execute(ctx context.Context, intent *ScheduledIntent) (string, error) {
	f.calls++
	return f.detail, f.err
}

func newTestScheduler(store *fakeIntentStore, executor Executor, vectorStore *fakeVectorStore) *Scheduler {
	conditions := NewConditionChecker(vectorStore, &fakeEmbedder{vector: []float64{1}})
	return NewScheduler(store, executor, conditions, zap.NewNop(), nil, &SchedulerConfig{
		Interval:  time.Minute,
		BatchSize: 10,
	})
}

func TestComputeNextRunCron(t *testing.T) {
	from := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	next, err := ComputeNextRun(&ScheduledIntent{Schedule: "0 9 * * *"}, from)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC), *next,
		"10:00 is past today's 09:00 slot, next fire is tomorrow")
}

func TestComputeNextRunBadCron(t *testing.T) {
	_, err := ComputeNextRun(&ScheduledIntent{Schedule: "not a schedule"}, time.Now())
	assert.Error(t, err)
}

func TestComputeNextRunFutureTrigger(t *testing.T) {
	from := time.Now().UTC()
	trigger := from.Add(time.Hour)
	next, err := ComputeNextRun(&ScheduledIntent{TriggerAt: &trigger}, from)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, trigger, *next)
}

func TestComputeNextRunPastTriggerFiresNow(t *testing.T) {
	from := time.Now().UTC()
	trigger := from.Add(-time.Hour)
	next, err := ComputeNextRun(&ScheduledIntent{TriggerAt: &trigger}, from)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, from, *next, "past trigger times fire immediately")
}

func TestComputeNextRunNothingScheduled(t *testing.T) {
	next, err := ComputeNextRun(&ScheduledIntent{}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestTickExecutesDueIntent(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{
		ID:     1,
		UserID: "alice",
		Action: ActionNotify,
		Status: StatusActive,
	}
	store.intents[1] = intent
	store.due = []*ScheduledIntent{intent}
	executor := &fakeExecutor{detail: "notified"}

	s := newTestScheduler(store, executor, &fakeVectorStore{})
	s.tick(context.Background())

	assert.Equal(t, 1, executor.calls)
	require.Len(t, store.executions, 1)
	assert.Equal(t, ExecSuccess, store.executions[0].Status)
	assert.Equal(t, "notified", store.executions[0].Detail)
	assert.NotEmpty(t, store.executions[0].RunID)

	require.Len(t, store.finishes, 1)
	assert.True(t, store.finishes[0].countRun)
	assert.Equal(t, StatusCompleted, store.finishes[0].status, "one-shot intents complete after firing")
	assert.Nil(t, store.finishes[0].nextRunAt)
}

func TestTickReschedulesCronIntent(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{
		ID:       2,
		UserID:   "alice",
		Action:   ActionNotify,
		Schedule: "*/5 * * * *",
		Status:   StatusActive,
	}
	store.intents[2] = intent
	store.due = []*ScheduledIntent{intent}

	s := newTestScheduler(store, &fakeExecutor{detail: "ok"}, &fakeVectorStore{})
	s.tick(context.Background())

	require.Len(t, store.finishes, 1)
	assert.Equal(t, StatusActive, store.finishes[0].status)
	require.NotNil(t, store.finishes[0].nextRunAt, "recurring intents advance to the next slot")
	assert.True(t, store.finishes[0].nextRunAt.After(time.Now().UTC().Add(-time.Second)))
}

func TestTickCompletesAtMaxExecutions(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{
		ID:             3,
		Action:         ActionNotify,
		Schedule:       "* * * * *",
		Status:         StatusActive,
		MaxExecutions:  3,
		ExecutionCount: 2,
	}
	store.intents[3] = intent
	store.due = []*ScheduledIntent{intent}

	s := newTestScheduler(store, &fakeExecutor{detail: "ok"}, &fakeVectorStore{})
	s.tick(context.Background())

	require.Len(t, store.finishes, 1)
	assert.Equal(t, StatusCompleted, store.finishes[0].status, "third run exhausts the budget")
	assert.Nil(t, store.finishes[0].nextRunAt)
}

func TestTickConditionNotMetDoesNotCountRun(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{
		ID:        4,
		Action:    ActionRecall,
		Payload:   map[string]interface{}{"query": "coffee"},
		Condition: "min_matches:2:coffee",
		Schedule:  "*/5 * * * *",
		Status:    StatusActive,
	}
	store.intents[4] = intent
	store.due = []*ScheduledIntent{intent}
	executor := &fakeExecutor{detail: "ok"}

	// Empty vector store, the condition finds nothing.
	s := newTestScheduler(store, executor, &fakeVectorStore{})
	s.tick(context.Background())

	assert.Zero(t, executor.calls, "action must not run when the condition fails")
	require.Len(t, store.executions, 1)
	assert.Equal(t, ExecConditionNotMet, store.executions[0].Status)

	require.Len(t, store.finishes, 1)
	assert.False(t, store.finishes[0].countRun, "blocked runs do not consume the execution budget")
	assert.NotNil(t, store.finishes[0].nextRunAt, "the intent stays on its schedule")
}

func TestTickGateBlockedDoesNotCountRun(t *testing.T) {
	store := newFakeIntentStore()
	store.successCount = 10
	intent := &ScheduledIntent{
		ID:       5,
		Action:   ActionNotify,
		Gate:     "rate_limit:1/24h",
		Schedule: "*/5 * * * *",
		Status:   StatusActive,
	}
	store.intents[5] = intent
	store.due = []*ScheduledIntent{intent}
	executor := &fakeExecutor{detail: "ok"}

	s := newTestScheduler(store, executor, &fakeVectorStore{})
	s.tick(context.Background())

	assert.Zero(t, executor.calls)
	require.Len(t, store.executions, 1)
	assert.Equal(t, ExecGateBlocked, store.executions[0].Status)
	require.Len(t, store.finishes, 1)
	assert.False(t, store.finishes[0].countRun)
}

func TestTickRecordsFailure(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{ID: 6, Action: ActionNotify, Status: StatusActive}
	store.intents[6] = intent
	store.due = []*ScheduledIntent{intent}

	s := newTestScheduler(store, &fakeExecutor{err: errors.New("downstream unavailable")}, &fakeVectorStore{})
	s.tick(context.Background())

	require.Len(t, store.executions, 1)
	assert.Equal(t, ExecFailed, store.executions[0].Status)
	assert.Contains(t, store.executions[0].Error, "downstream unavailable")
	assert.Empty(t, store.executions[0].Detail)
	require.Len(t, store.finishes, 1)
	assert.True(t, store.finishes[0].countRun, "failed runs still consume the budget")
}

func TestTickGateBlockedOneShotStaysScheduled(t *testing.T) {
	store := newFakeIntentStore()
	store.successCount = 10
	trigger := time.Now().UTC().Add(-time.Minute)
	intent := &ScheduledIntent{
		ID:        7,
		UserID:    "alice",
		Action:    ActionNotify,
		Gate:      "rate_limit:1/24h",
		TriggerAt: &trigger,
		Status:    StatusActive,
	}
	store.intents[7] = intent
	store.due = []*ScheduledIntent{intent}
	executor := &fakeExecutor{detail: "ok"}

	s := newTestScheduler(store, executor, &fakeVectorStore{})
	s.tick(context.Background())

	assert.Zero(t, executor.calls)
	require.Len(t, store.executions, 1)
	assert.Equal(t, ExecGateBlocked, store.executions[0].Status)

	require.Len(t, store.finishes, 1)
	assert.Equal(t, StatusActive, store.finishes[0].status, "a blocked one-shot must not complete")
	require.NotNil(t, store.finishes[0].nextRunAt, "a blocked one-shot retries on a later tick")
	assert.False(t, store.finishes[0].countRun)
}

func TestTickConditionNotMetOneShotStaysScheduled(t *testing.T) {
	store := newFakeIntentStore()
	trigger := time.Now().UTC().Add(-time.Minute)
	intent := &ScheduledIntent{
		ID:        8,
		UserID:    "alice",
		Action:    ActionRecall,
		Payload:   map[string]interface{}{"query": "coffee"},
		Condition: "min_matches:2:coffee",
		TriggerAt: &trigger,
		Status:    StatusActive,
	}
	store.intents[8] = intent
	store.due = []*ScheduledIntent{intent}
	executor := &fakeExecutor{detail: "ok"}

	// Empty vector store, the condition finds nothing.
	s := newTestScheduler(store, executor, &fakeVectorStore{})
	s.tick(context.Background())

	assert.Zero(t, executor.calls)
	require.Len(t, store.finishes, 1)
	assert.Equal(t, StatusActive, store.finishes[0].status)
	require.NotNil(t, store.finishes[0].nextRunAt)
}

func TestTickSkipsIntentPausedAfterClaim(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{
		ID:     9,
		UserID: "alice",
		Action: ActionNotify,
		Status: StatusPaused,
	}
	store.intents[9] = intent
	store.due = []*ScheduledIntent{intent}
	executor := &fakeExecutor{detail: "ok"}

	s := newTestScheduler(store, executor, &fakeVectorStore{})
	s.tick(context.Background())

	assert.Zero(t, executor.calls, "a paused intent must not run")
	require.Len(t, store.executions, 1)
	assert.Equal(t, ExecSkipped, store.executions[0].Status)
	assert.Contains(t, store.executions[0].Detail, "paused")
	assert.Empty(t, store.finishes, "skipped runs leave the intent's state alone")
}

func TestTickIgnoresIntentDeletedAfterClaim(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{ID: 10, UserID: "alice", Action: ActionNotify, Status: StatusActive}
	store.due = []*ScheduledIntent{intent}
	executor := &fakeExecutor{detail: "ok"}

	s := newTestScheduler(store, executor, &fakeVectorStore{})
	s.tick(context.Background())

	assert.Zero(t, executor.calls)
	assert.Empty(t, store.executions)
	assert.Empty(t, store.finishes)
}

func TestSchedulerStartStop(t *testing.T) {
	store := newFakeIntentStore()
	s := newTestScheduler(store, &fakeExecutor{}, &fakeVectorStore{})
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIntentStore is an in-memory Store for scheduler and gate tests.
type fakeIntentStore struct {
	intents      map[int64]*ScheduledIntent
	executions   []*IntentExecution
	due          []*ScheduledIntent
	successCount int

	finishes []finishCall
}

type finishCall struct {
	id        int64
	nextRunAt *time.Time
	status    Status
	countRun  bool
}

func newFakeIntentStore() *fakeIntentStore {
	return &fakeIntentStore{intents: map[int64]*ScheduledIntent{}}
}

func (s *fakeIntentStore) CreateIntent(ctx context.Context, intent *ScheduledIntent) error {
	s.intents[intent.ID] = intent
	return nil
}

func (s *fakeIntentStore) GetIntent(ctx context.Context, id int64, userID string) (*ScheduledIntent, error) {
	intent, ok := s.intents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return intent, nil
}

func (s *fakeIntentStore) ListIntents(ctx context.Context, opts *ListOptions) ([]*ScheduledIntent, error) {
	var out []*ScheduledIntent
	for _, intent := range s.intents {
		out = append(out, intent)
	}
	return out, nil
}

func (s *fakeIntentStore) UpdateIntentStatus(ctx context.Context, id int64, userID string, status Status) error {
	intent, ok := s.intents[id]
	if !ok {
		return ErrNotFound
	}
	intent.Status = status
	return nil
}

func (s *fakeIntentStore) DeleteIntent(ctx context.Context, id int64, userID string) error {
	delete(s.intents, id)
	return nil
}

func (s *fakeIntentStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*ScheduledIntent, error) {
	claimed := s.due
	if len(claimed) > limit {
		claimed = claimed[:limit]
	}
	s.due = nil
	return claimed, nil
}

func (s *fakeIntentStore) FinishRun(ctx context.Context, id int64, lastRunAt time.Time, nextRunAt *time.Time, status Status, countRun bool) error {
	s.finishes = append(s.finishes, finishCall{id: id, nextRunAt: nextRunAt, status: status, countRun: countRun})
	if intent, ok := s.intents[id]; ok {
		intent.Status = status
		intent.NextRunAt = nextRunAt
		if countRun {
			intent.ExecutionCount++
		}
	}
	return nil
}

func (s *fakeIntentStore) SetNextRun(ctx context.Context, id int64, nextRunAt *time.Time) error {
	if intent, ok := s.intents[id]; ok {
		intent.NextRunAt = nextRunAt
	}
	return nil
}

func (s *fakeIntentStore) RecordExecution(ctx context.Context, exec *IntentExecution) error {
	s.executions = append(s.executions, exec)
	return nil
}

func (s *fakeIntentStore) ListExecutions(ctx context.Context, intentID int64, limit int) ([]*IntentExecution, error) {
	return s.executions, nil
}

func (s *fakeIntentStore) CountExecutionsSince(ctx context.Context, intentID int64, status ExecutionStatus, since time.Time) (int, error) {
	return s.successCount, nil
}

func (s *fakeIntentStore) Close() error { return nil }

func gateAt(t *testing.T, store Store, hour int) *GateKeeper {
	t.Helper()
	g := NewGateKeeper(store)
	g.now = func() time.Time {
		return time.Date(2026, 3, 14, hour, 30, 0, 0, time.Local)
	}
	return g
}

func TestGateEmptyNeverBlocks(t *testing.T) {
	g := NewGateKeeper(newFakeIntentStore())
	blocked, reason, err := g.Evaluate(context.Background(), &ScheduledIntent{})
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.Empty(t, reason)
}

func TestGateQuietHours(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{Gate: "quiet_hours:09-17"}

	blocked, reason, err := gateAt(t, store, 12).Evaluate(context.Background(), intent)
	require.NoError(t, err)
	assert.True(t, blocked, "noon falls inside 09-17")
	assert.Contains(t, reason, "quiet hours")

	blocked, _, err = gateAt(t, store, 18).Evaluate(context.Background(), intent)
	require.NoError(t, err)
	assert.False(t, blocked, "18:30 is outside 09-17")
}

func TestGateQuietHoursWrapsMidnight(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{Gate: "quiet_hours:22-07"}

	for _, hour := range []int{22, 23, 0, 3, 6} {
		blocked, _, err := gateAt(t, store, hour).Evaluate(context.Background(), intent)
		require.NoError(t, err)
		assert.True(t, blocked, "hour %d should be inside the 22-07 window", hour)
	}
	for _, hour := range []int{7, 12, 21} {
		blocked, _, err := gateAt(t, store, hour).Evaluate(context.Background(), intent)
		require.NoError(t, err)
		assert.False(t, blocked, "hour %d should be outside the 22-07 window", hour)
	}
}

func TestGateRateLimit(t *testing.T) {
	store := newFakeIntentStore()
	intent := &ScheduledIntent{ID: 1, Gate: "rate_limit:5/24h"}
	g := NewGateKeeper(store)

	store.successCount = 4
	blocked, _, err := g.Evaluate(context.Background(), intent)
	require.NoError(t, err)
	assert.False(t, blocked, "4 of 5 runs used, should pass")

	store.successCount = 5
	blocked, reason, err := g.Evaluate(context.Background(), intent)
	require.NoError(t, err)
	assert.True(t, blocked, "budget exhausted, should block")
	assert.Contains(t, reason, "rate limit")
}

func TestGateMalformed(t *testing.T) {
	g := NewGateKeeper(newFakeIntentStore())
	for _, gate := range []string{
		"quiet_hours",
		"quiet_hours:25-07",
		"quiet_hours:22",
		"rate_limit:0/24h",
		"rate_limit:5/bogus",
		"unknown:thing",
	} {
		_, _, err := g.Evaluate(context.Background(), &ScheduledIntent{Gate: gate})
		assert.Error(t, err, "gate %q should be rejected", gate)
	}
}

package intent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/agenticmem/agenticmem-go/pkg/telemetry"
)

// Scheduler drives scheduled intents: it claims due intents on a
// fixed tick, evaluates their gates and conditions, executes the
// action, and records the outcome.
type Scheduler struct {
	store      Store
	executor   Executor
	gates      *GateKeeper
	conditions *ConditionChecker
	logger     *zap.Logger
	metrics    *telemetry.Metrics

	interval  time.Duration
	batchSize int

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// SchedulerConfig configures the scheduler loop.
type SchedulerConfig struct {
	// Interval is the tick period. Defaults to 30 seconds.
	Interval time.Duration

	// BatchSize caps intents claimed per tick. Defaults to 50.
	BatchSize int
}

// NewScheduler creates a scheduler. It does not start ticking until
// Start is called.
func NewScheduler(
	store Store,
	executor Executor,
	conditions *ConditionChecker,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
	cfg *SchedulerConfig,
) *Scheduler {
	if cfg == nil {
		cfg = &SchedulerConfig{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		store:      store,
		executor:   executor,
		gates:      NewGateKeeper(store),
		conditions: conditions,
		logger:     logger,
		metrics:    metrics,
		interval:   interval,
		batchSize:  batchSize,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins the tick loop in a background goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop ends the loop and waits for the in-flight tick to drain, or
// for the context to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("intent scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)
	for {
		select {
		case <-s.stop:
			s.logger.Info("intent scheduler stopped")
			return
		case <-ticker.C:
			s.tick(context.Background())
		}
	}
}

// tick claims and runs one batch of due intents.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()
	claimed, err := s.store.ClaimDue(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("claim due intents", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.IntentsDue.Observe(float64(len(claimed)))
	}
	if len(claimed) == 0 {
		return
	}

	for _, intent := range claimed {
		s.runOne(ctx, intent, now)
	}
}

// runOne evaluates and executes a single claimed intent.
func (s *Scheduler) runOne(ctx context.Context, intent *ScheduledIntent, now time.Time) {
	runID := uuid.NewString()
	started := time.Now().UTC()
	logger := s.logger.With(
		zap.Int64("intent_id", intent.ID),
		zap.String("user_id", intent.UserID),
		zap.String("run_id", runID),
		zap.String("action", string(intent.Action)),
	)

	// A pause, cancel, or delete may have landed between claim and run.
	current, err := s.store.GetIntent(ctx, intent.ID, "")
	if errors.Is(err, ErrNotFound) {
		logger.Info("intent deleted after claim")
		return
	}
	if err != nil {
		logger.Warn("reload intent before run", zap.Error(err))
	} else if current.Status != StatusActive {
		detail := fmt.Sprintf("intent is %s, no longer active", current.Status)
		s.record(ctx, intent, runID, ExecSkipped, detail, "", started, time.Now().UTC())
		logger.Info("intent run skipped", zap.String("detail", detail))
		if s.metrics != nil {
			s.metrics.IntentExecutions.WithLabelValues(string(ExecSkipped)).Inc()
		}
		return
	}

	status := ExecSuccess
	detail := ""
	errText := ""
	countRun := true

	blocked, reason, err := s.gates.Evaluate(ctx, intent)
	switch {
	case err != nil:
		status, errText = ExecFailed, fmt.Sprintf("gate evaluation: %v", err)
	case blocked:
		status, detail, countRun = ExecGateBlocked, reason, false
		logger.Info("intent gate blocked", zap.String("reason", reason))
	default:
		met, reason, err := s.conditions.Evaluate(ctx, intent)
		switch {
		case err != nil:
			status, errText = ExecFailed, fmt.Sprintf("condition evaluation: %v", err)
		case !met:
			status, detail, countRun = ExecConditionNotMet, reason, false
			logger.Info("intent condition not met", zap.String("reason", reason))
		default:
			detail, err = s.executor.Execute(ctx, intent)
			if err != nil {
				status, errText = ExecFailed, err.Error()
				logger.Error("intent execution failed", zap.Error(err))
			} else {
				logger.Info("intent executed", zap.String("detail", detail))
			}
		}
	}

	finished := time.Now().UTC()
	s.record(ctx, intent, runID, status, detail, errText, started, finished)
	s.reschedule(ctx, intent, now, countRun, logger)

	if s.metrics != nil {
		s.metrics.IntentExecutions.WithLabelValues(string(status)).Inc()
	}
}

func (s *Scheduler) record(ctx context.Context, intent *ScheduledIntent, runID string, status ExecutionStatus, detail, errText string, started, finished time.Time) {
	exec := &IntentExecution{
		IntentID:   intent.ID,
		RunID:      runID,
		Status:     status,
		Detail:     detail,
		Error:      errText,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := s.store.RecordExecution(ctx, exec); err != nil {
		s.logger.Error("record intent execution",
			zap.Int64("intent_id", intent.ID),
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

// reschedule computes the intent's next slot and final status after a
// run. Runs that never invoked the action keep the intent scheduled
// for a retry. Otherwise one-shot intents complete, recurring intents
// advance to the next cron slot, and intents that exhaust their
// execution budget complete.
func (s *Scheduler) reschedule(ctx context.Context, intent *ScheduledIntent, now time.Time, countRun bool, logger *zap.Logger) {
	newCount := intent.ExecutionCount
	if countRun {
		newCount++
	}

	status := StatusActive
	var nextRun *time.Time

	switch {
	case !countRun:
		// Gate-blocked and unmet-condition runs retry: recurring
		// intents at their next cron slot, one-shots on the next tick.
		next, err := ComputeNextRun(intent, now)
		if err != nil {
			logger.Error("compute retry slot", zap.Error(err))
			status = StatusCompleted
		} else if next != nil {
			nextRun = next
		} else {
			retry := now
			nextRun = &retry
		}
	case intent.MaxExecutions > 0 && newCount >= intent.MaxExecutions:
		status = StatusCompleted
	case intent.Schedule != "":
		next, err := ComputeNextRun(intent, now)
		if err != nil {
			logger.Error("compute next run", zap.Error(err))
			status = StatusCompleted
		} else {
			nextRun = next
		}
	default:
		// One-shot intent fired, nothing left to schedule.
		status = StatusCompleted
	}

	if err := s.store.FinishRun(ctx, intent.ID, now, nextRun, status, countRun); err != nil {
		logger.Error("finish intent run", zap.Error(err))
	}
}

// ComputeNextRun returns an intent's next fire time after from. Cron
// schedules use the standard five-field format, one-shot intents
// return their trigger time when it is still ahead.
func ComputeNextRun(intent *ScheduledIntent, from time.Time) (*time.Time, error) {
	if intent.Schedule != "" {
		schedule, err := cron.ParseStandard(intent.Schedule)
		if err != nil {
			return nil, fmt.Errorf("parse schedule %q: %w", intent.Schedule, err)
		}
		next := schedule.Next(from)
		return &next, nil
	}
	if intent.TriggerAt != nil && intent.TriggerAt.After(from) {
		t := *intent.TriggerAt
		return &t, nil
	}
	if intent.TriggerAt != nil {
		// Past trigger times fire on the next tick.
		t := from
		return &t, nil
	}
	return nil, nil
}

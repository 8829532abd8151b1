// Package sqlite provides the SQLite intent store, used for local
// development and embedded deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agenticmem/agenticmem-go/pkg/intent"
)

// Store implements intent.Store on SQLite.
type Store struct {
	db   *sql.DB
	node *snowflake.Node
}

// Config contains SQLite intent store settings.
type Config struct {
	// Path is the database file path.
	Path string

	// Node generates intent IDs.
	Node *snowflake.Node
}

// NewStore opens the database and ensures the schema exists. Foreign
// keys are enabled so execution rows cascade with their intent.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.Node == nil {
		return nil, fmt.Errorf("sqlite: snowflake node is required")
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Store{db: db, node: cfg.Node}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scheduled_intents (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			agent_id TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL,
			action TEXT NOT NULL CHECK (action IN ('recall', 'extract', 'notify')),
			payload TEXT,
			schedule TEXT NOT NULL DEFAULT '',
			trigger_at TIMESTAMP,
			condition_expr TEXT NOT NULL DEFAULT '',
			gate_expr TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'active', 'paused', 'completed', 'cancelled')),
			max_executions INTEGER NOT NULL DEFAULT 0,
			execution_count INTEGER NOT NULL DEFAULT 0,
			next_run_at TIMESTAMP,
			last_run_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intents_user ON scheduled_intents(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_intents_due ON scheduled_intents(status, next_run_at)`,
		`CREATE TABLE IF NOT EXISTS intent_executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			intent_id INTEGER NOT NULL REFERENCES scheduled_intents(id) ON DELETE CASCADE,
			run_id TEXT NOT NULL,
			status TEXT NOT NULL
				CHECK (status IN ('success', 'failed', 'skipped', 'gate_blocked', 'condition_not_met')),
			detail TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_intent ON intent_executions(intent_id, started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: init schema: %w", err)
		}
	}
	return nil
}

// CreateIntent stores a new intent, assigning an ID when unset.
func (s *Store) CreateIntent(ctx context.Context, it *intent.ScheduledIntent) error {
	if it.ID == 0 {
		it.ID = s.node.Generate().Int64()
	}
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now

	payloadJSON, err := json.Marshal(it.Payload)
	if err != nil {
		return fmt.Errorf("sqlite: create intent: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_intents
		(id, user_id, agent_id, description, action, payload, schedule, trigger_at,
		 condition_expr, gate_expr, status, max_executions, execution_count,
		 next_run_at, last_run_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		it.ID, it.UserID, it.AgentID, it.Description, string(it.Action), string(payloadJSON),
		it.Schedule, it.TriggerAt, it.Condition, it.Gate, string(it.Status),
		it.MaxExecutions, it.ExecutionCount, it.NextRunAt, it.LastRunAt,
		it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create intent: %w", err)
	}
	return nil
}

// GetIntent returns an intent by ID, scoped to userID when non-empty.
func (s *Store) GetIntent(ctx context.Context, id int64, userID string) (*intent.ScheduledIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM scheduled_intents WHERE id = ?`
	args := []interface{}{id}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	it, err := scanIntent(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, intent.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get intent: %w", err)
	}
	return it, nil
}

// ListIntents returns intents newest first.
func (s *Store) ListIntents(ctx context.Context, opts *intent.ListOptions) ([]*intent.ScheduledIntent, error) {
	if opts == nil {
		opts = &intent.ListOptions{}
	}

	var conditions []string
	var args []interface{}
	if opts.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		conditions = append(conditions, "agent_id = ?")
		args = append(args, opts.AgentID)
	}
	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(opts.Status))
	}

	query := `SELECT ` + intentColumns + ` FROM scheduled_intents`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list intents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var intents []*intent.ScheduledIntent
	for rows.Next() {
		it, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list intents: %w", err)
		}
		intents = append(intents, it)
	}
	return intents, rows.Err()
}

// UpdateIntentStatus moves an intent to a new state.
func (s *Store) UpdateIntentStatus(ctx context.Context, id int64, userID string, status intent.Status) error {
	query := `UPDATE scheduled_intents SET status = ?, updated_at = ? WHERE id = ?`
	args := []interface{}{string(status), time.Now().UTC(), id}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: update intent status: %w", err)
	}
	return requireAffected(result, "update intent status")
}

// DeleteIntent removes an intent; executions cascade.
func (s *Store) DeleteIntent(ctx context.Context, id int64, userID string) error {
	query := `DELETE FROM scheduled_intents WHERE id = ?`
	args := []interface{}{id}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: delete intent: %w", err)
	}
	return requireAffected(result, "delete intent")
}

// ClaimDue takes due active intents inside a transaction, clearing
// next_run_at so the next tick cannot claim them again.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*intent.ScheduledIntent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: claim due: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+intentColumns+`
		FROM scheduled_intents
		WHERE status = 'active' AND next_run_at IS NOT NULL AND next_run_at <= ?
		ORDER BY next_run_at
		LIMIT ?
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: claim due: %w", err)
	}

	var claimed []*intent.ScheduledIntent
	for rows.Next() {
		it, err := scanIntent(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("sqlite: claim due: %w", err)
		}
		claimed = append(claimed, it)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("sqlite: claim due: %w", err)
	}
	_ = rows.Close()

	for _, it := range claimed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE scheduled_intents SET next_run_at = NULL, updated_at = ? WHERE id = ?`,
			now, it.ID,
		); err != nil {
			return nil, fmt.Errorf("sqlite: claim due: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: claim due: %w", err)
	}
	return claimed, nil
}

// FinishRun records the scheduling outcome of a claimed run.
func (s *Store) FinishRun(ctx context.Context, id int64, lastRunAt time.Time, nextRunAt *time.Time, status intent.Status, countRun bool) error {
	increment := 0
	if countRun {
		increment = 1
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_intents
		SET last_run_at = ?, next_run_at = ?, status = ?,
		    execution_count = execution_count + ?, updated_at = ?
		WHERE id = ?
	`, lastRunAt, nextRunAt, string(status), increment, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: finish run: %w", err)
	}
	return requireAffected(result, "finish run")
}

// SetNextRun replaces an intent's next_run_at.
func (s *Store) SetNextRun(ctx context.Context, id int64, nextRunAt *time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_intents SET next_run_at = ?, updated_at = ? WHERE id = ?`,
		nextRunAt, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: set next run: %w", err)
	}
	return requireAffected(result, "set next run")
}

// RecordExecution appends one execution record, filling in the
// autoincrement ID.
func (s *Store) RecordExecution(ctx context.Context, exec *intent.IntentExecution) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO intent_executions (intent_id, run_id, status, detail, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, exec.IntentID, exec.RunID, string(exec.Status), exec.Detail, exec.Error, exec.StartedAt, exec.FinishedAt)
	if err != nil {
		return fmt.Errorf("sqlite: record execution: %w", err)
	}
	exec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: record execution: %w", err)
	}
	return nil
}

// ListExecutions returns an intent's executions, newest first.
func (s *Store) ListExecutions(ctx context.Context, intentID int64, limit int) ([]*intent.IntentExecution, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent_id, run_id, status, detail, error, started_at, finished_at
		FROM intent_executions
		WHERE intent_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, intentID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var executions []*intent.IntentExecution
	for rows.Next() {
		exec := &intent.IntentExecution{}
		var status string
		if err := rows.Scan(&exec.ID, &exec.IntentID, &exec.RunID, &status, &exec.Detail, &exec.Error, &exec.StartedAt, &exec.FinishedAt); err != nil {
			return nil, fmt.Errorf("sqlite: list executions: %w", err)
		}
		exec.Status = intent.ExecutionStatus(status)
		executions = append(executions, exec)
	}
	return executions, rows.Err()
}

// CountExecutionsSince counts executions with the given status after
// the cutoff.
func (s *Store) CountExecutionsSince(ctx context.Context, intentID int64, status intent.ExecutionStatus, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM intent_executions
		WHERE intent_id = ? AND status = ? AND started_at >= ?
	`, intentID, string(status), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count executions: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const intentColumns = `id, user_id, agent_id, description, action, payload, schedule, trigger_at,
	condition_expr, gate_expr, status, max_executions, execution_count,
	next_run_at, last_run_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntent(row rowScanner) (*intent.ScheduledIntent, error) {
	var (
		it          intent.ScheduledIntent
		action      string
		status      string
		payloadJSON sql.NullString
		triggerAt   sql.NullTime
		nextRunAt   sql.NullTime
		lastRunAt   sql.NullTime
	)

	err := row.Scan(
		&it.ID, &it.UserID, &it.AgentID, &it.Description, &action, &payloadJSON,
		&it.Schedule, &triggerAt, &it.Condition, &it.Gate, &status,
		&it.MaxExecutions, &it.ExecutionCount, &nextRunAt, &lastRunAt,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.Action = intent.Action(action)
	it.Status = intent.Status(status)
	if payloadJSON.Valid && payloadJSON.String != "" && payloadJSON.String != "null" {
		if err := json.Unmarshal([]byte(payloadJSON.String), &it.Payload); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}
	}
	if triggerAt.Valid {
		t := triggerAt.Time
		it.TriggerAt = &t
	}
	if nextRunAt.Valid {
		t := nextRunAt.Time
		it.NextRunAt = &t
	}
	if lastRunAt.Valid {
		t := lastRunAt.Time
		it.LastRunAt = &t
	}
	return &it, nil
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
	if affected == 0 {
		return intent.ErrNotFound
	}
	return nil
}

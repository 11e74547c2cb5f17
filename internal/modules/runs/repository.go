// Package runs persists simulation runs and executes them in the background.
package runs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradepath/internal/database"
	"github.com/aristath/tradepath/internal/domain"
	"github.com/aristath/tradepath/internal/modules/simulation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status is the lifecycle state of a run
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is a stored simulation run
type Run struct {
	CreatedAt  time.Time          `json:"created_at"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	FinalValue *float64           `json:"final_value,omitempty"`
	Result     *simulation.Result `json:"result,omitempty"`
	ID         string             `json:"id"`
	Status     Status             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Request    simulation.Request `json:"request"`
}

// Repository handles run storage in runs.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Create stores a pending run for req
func (r *Repository) Create(req simulation.Request) (*Run, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	run := &Run{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		Request:   req,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err = r.db.Exec(`
		INSERT INTO runs (id, status, request, created_at)
		VALUES (?, ?, ?, ?)
	`,
		run.ID,
		string(run.Status),
		string(payload),
		run.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// MarkRunning moves a pending run to running
func (r *Repository) MarkRunning(id string) error {
	return r.update(id, `UPDATE runs SET status = ?, started_at = ? WHERE id = ?`,
		string(StatusRunning), time.Now().Unix(), id)
}

// Complete stores the result and its action log
func (r *Repository) Complete(id string, result *simulation.Result) error {
	// actions live in run_actions
	summary := *result
	summary.Actions = nil
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE runs SET status = ?, result = ?, final_value = ?, finished_at = ?
			WHERE id = ?
		`,
			string(StatusCompleted),
			string(payload),
			result.FinalValue,
			time.Now().Unix(),
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update run: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO run_actions (run_id, seq, symbol, action, value, frame)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare action insert: %w", err)
		}
		defer stmt.Close()

		for i, a := range result.Actions {
			if _, err := stmt.Exec(id, i, a.Symbol, string(a.Action), a.Value, a.Frame); err != nil {
				return fmt.Errorf("failed to insert action %d: %w", i, err)
			}
		}
		return nil
	})
}

// Fail marks a run as failed with cause
func (r *Repository) Fail(id string, cause error) error {
	return r.update(id, `UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(StatusFailed), cause.Error(), time.Now().Unix(), id)
}

func (r *Repository) update(id, query string, args ...interface{}) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

const runColumns = `id, status, request, result, error, final_value, created_at, started_at, finished_at`

// Get returns the run with id
func (r *Repository) Get(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs first
func (r *Repository) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Actions returns the ordered action log of a run
func (r *Repository) Actions(id string) ([]domain.LogEntry, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		SELECT symbol, action, value, frame FROM run_actions
		WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	out := []domain.LogEntry{}
	for rows.Next() {
		var (
			e      domain.LogEntry
			action string
		)
		if err := rows.Scan(&e.Symbol, &action, &e.Value, &e.Frame); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		e.Action = domain.Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecoverInterrupted fails runs left pending or running by a previous process
func (r *Repository) RecoverInterrupted() (int64, error) {
	res, err := r.db.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_at = ?
		WHERE status IN (?, ?)
	`,
		string(StatusFailed),
		"interrupted by shutdown",
		time.Now().Unix(),
		string(StatusPending),
		string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to recover interrupted runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Warn().Int64("runs", n).Msg("Marked interrupted runs as failed")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                   Run
		status, request       string
		result, errText       sql.NullString
		finalValue            sql.NullFloat64
		createdAt             int64
		startedAt, finishedAt sql.NullInt64
	)

	if err := row.Scan(&run.ID, &status, &request, &result, &errText, &finalValue,
		&createdAt, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	run.Status = Status(status)
	run.Error = errText.String
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0).UTC()
		run.StartedAt = &t
	}
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	if finalValue.Valid {
		v := finalValue.Float64
		run.FinalValue = &v
	}

	if err := json.Unmarshal([]byte(request), &run.Request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if result.Valid && result.String != "" {
		run.Result = &simulation.Result{}
		if err := json.Unmarshal([]byte(result.String), run.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	return &run, nil
}

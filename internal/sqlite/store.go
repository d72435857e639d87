package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clipcast/clipcast-api/internal/job"
	"github.com/clipcast/clipcast-api/internal/user"
)

// Store implements job.Repository and user.Ledger on one SQLite handle.
type Store struct {
	db *sql.DB
}

// Compile-time checks for the implemented ports.
var (
	_ job.Repository = (*Store)(nil)
	_ user.Ledger    = (*Store)(nil)
)

// NewStore creates a Store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a new job.
func (s *Store) Create(ctx context.Context, j *job.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, storage_key, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.UserID, j.StorageKey, string(j.Status), j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func scanJob(row *sql.Row) (*job.Job, error) {
	var j job.Job
	var status string
	err := row.Scan(&j.ID, &j.UserID, &j.StorageKey, &status, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, job.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	j.Status = job.Status(status)
	return &j, nil
}

// FindByID retrieves a job by its ID.
func (s *Store) FindByID(ctx context.Context, id string) (*job.Job, error) {
	return scanJob(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, storage_key, status, created_at, updated_at FROM jobs WHERE id = ?`, id))
}

// SetStatus moves a job through its state machine. The read and the
// write share a transaction so a concurrent writer cannot slip between
// the transition check and the update.
func (s *Store) SetStatus(ctx context.Context, id string, status job.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return job.ErrJobNotFound
	}
	if err != nil {
		return err
	}

	from := job.Status(current)
	if !job.CanTransition(from, status) {
		return fmt.Errorf("%w: %s -> %s", job.ErrInvalidTransition, from, status)
	}
	if from == status {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return tx.Commit()
}

// List returns all jobs, newest first.
func (s *Store) List(ctx context.Context) ([]*job.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, storage_key, status, created_at, updated_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*job.Job
	for rows.Next() {
		var j job.Job
		var status string
		if err := rows.Scan(&j.ID, &j.UserID, &j.StorageKey, &status, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Status = job.Status(status)
		result = append(result, &j)
	}
	return result, rows.Err()
}

// CreateClips bulk-inserts clips in one transaction and returns how many
// rows were actually inserted. Rows whose (job, storage key) pair already
// exists are ignored and excluded from the count, keeping the call safe
// under re-invocation.
func (s *Store) CreateClips(ctx context.Context, clips []job.Clip) (int, error) {
	if len(clips) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, c := range clips {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO clips (id, job_id, user_id, storage_key, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.JobID, c.UserID, c.StorageKey, c.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("insert clip: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(affected)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListClipsByJob returns the clips created for a job, oldest first.
func (s *Store) ListClipsByJob(ctx context.Context, jobID string) ([]job.Clip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, user_id, storage_key, created_at FROM clips WHERE job_id = ? ORDER BY created_at, id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]job.Clip, 0)
	for rows.Next() {
		var c job.Clip
		if err := rows.Scan(&c.ID, &c.JobID, &c.UserID, &c.StorageKey, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Credits returns the current balance for a user.
func (s *Store) Credits(ctx context.Context, userID string) (int, error) {
	var credits int
	err := s.db.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, user.ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}

// Debit decreases the balance by amount. The guard in the WHERE clause
// keeps the balance non-negative even if callers misbehave.
func (s *Store) Debit(ctx context.Context, userID string, amount int) error {
	if amount < 0 {
		return user.ErrNegativeAmount
	}
	if amount == 0 {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET credits = credits - ? WHERE id = ? AND credits >= ?`,
		amount, userID, amount)
	if err != nil {
		return fmt.Errorf("debit credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.Credits(ctx, userID); err != nil {
			return err
		}
		return user.ErrInsufficientCredits
	}
	return nil
}

// Grant increases the balance by amount, creating the account if needed.
func (s *Store) Grant(ctx context.Context, userID string, amount int) error {
	if amount < 0 {
		return user.ErrNegativeAmount
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, credits, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET credits = credits + excluded.credits`,
		userID, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/runclub/internal/capacity"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
)

const signupColumns = `id, user_id, run_id, signed_up_at, attended`

// SignUpRepository handles persistence for sign-ups.
type SignUpRepository struct {
	db *pgxpool.Pool
}

// NewSignUpRepository constructs a SignUpRepository.
func NewSignUpRepository(db *pgxpool.Pool) *SignUpRepository {
	return &SignUpRepository{db: db}
}

var _ SignUpLedger = (*SignUpRepository)(nil)

func scanSignUp(row pgx.Row) (*model.SignUp, error) {
	var s model.SignUp
	if err := row.Scan(&s.ID, &s.UserID, &s.RunID, &s.SignedUpAt, &s.Attended); err != nil {
		return nil, err
	}
	s.SignedUpAt = s.SignedUpAt.UTC()
	return &s, nil
}

// Admit performs a concurrency-safe registration inside one transaction.
//
// A read-then-insert outside a transaction lets two callers both see the
// last free place and both insert. Here the run row is locked with
// SELECT ... FOR UPDATE first, so admissions for the same run queue behind
// each other; the count is re-read under that lock and handed to the
// capacity rule right before the insert. The unique (user_id, run_id)
// constraint backs the duplicate check.
func (r *SignUpRepository) Admit(ctx context.Context, runID, userID string, at time.Time) (*model.SignUp, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", classify(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := setLockTimeout(ctx, tx); err != nil {
		return nil, err
	}

	o, err := lockOccupancy(ctx, tx, runID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM signups WHERE run_id = $1 AND user_id = $2)`,
		runID, userID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", classify(err))
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	if !capacity.Admits(o) {
		return nil, ErrRunFull
	}

	signup := &model.SignUp{
		ID:         uuid.New().String(),
		UserID:     userID,
		RunID:      runID,
		SignedUpAt: at.UTC(),
		Attended:   false,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO signups (id, user_id, run_id, signed_up_at, attended)
		 VALUES ($1, $2, $3, $4, $5)`,
		signup.ID, signup.UserID, signup.RunID, signup.SignedUpAt, signup.Attended,
	)
	if err != nil {
		return nil, fmt.Errorf("insert signup: %w", classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", classify(err))
	}
	return signup, nil
}

// Remove deletes the pair's sign-up.
func (r *SignUpRepository) Remove(ctx context.Context, runID, userID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`DELETE FROM signups WHERE run_id = $1 AND user_id = $2`,
		runID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete signup: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotRegistered
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}

// Get returns the pair's sign-up or ErrNotRegistered.
func (r *SignUpRepository) Get(ctx context.Context, runID, userID string) (*model.SignUp, error) {
	s, err := scanSignUp(r.db.QueryRow(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE run_id = $1 AND user_id = $2`,
		runID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("get signup: %w", err)
	}
	return s, nil
}

// ListByRun returns all sign-ups for a run, first come first.
func (r *SignUpRepository) ListByRun(ctx context.Context, runID string) ([]model.SignUp, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+signupColumns+`
		 FROM signups
		 WHERE run_id = $1
		 ORDER BY signed_up_at ASC, id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	defer rows.Close()

	var signups []model.SignUp
	for rows.Next() {
		s, err := scanSignUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		signups = append(signups, *s)
	}
	return signups, rows.Err()
}

// SetAttended flips the attendance flag. Capacity is not involved.
func (r *SignUpRepository) SetAttended(ctx context.Context, runID, userID string, attended bool) (*model.SignUp, error) {
	s, err := scanSignUp(r.db.QueryRow(ctx,
		`UPDATE signups SET attended = $3
		 WHERE run_id = $1 AND user_id = $2
		 RETURNING `+signupColumns,
		runID, userID, attended,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("set attended: %w", classify(err))
	}
	return s, nil
}

func requireRun(ctx context.Context, tx pgx.Tx, runID string) error {
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM runs WHERE id = $1)`, runID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check run: %w", classify(err))
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

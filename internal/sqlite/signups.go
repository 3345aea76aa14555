package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"

	"github.com/Shivanand-hulikatti/runclub/internal/capacity"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
)

const signupColumns = `id, user_id, run_id, signed_up_at, attended`

// SignUpRepository implements repository.SignUpLedger using SQLite.
type SignUpRepository struct {
	db *sql.DB
}

var _ repository.SignUpLedger = (*SignUpRepository)(nil)

func scanSignUp(row scanner) (*model.SignUp, error) {
	var (
		s          model.SignUp
		signedUpAt int64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.RunID, &signedUpAt, &s.Attended); err != nil {
		return nil, err
	}
	s.SignedUpAt = time.Unix(0, signedUpAt).UTC()
	return &s, nil
}

// Admit checks and inserts a sign-up in one immediate transaction. The
// occupancy read happens after the write lock is taken, so no other
// admission can commit between the capacity decision and the insert.
func (r *SignUpRepository) Admit(ctx context.Context, runID, userID string, at time.Time) (*model.SignUp, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() { _ = tx.Rollback() }()

	o, err := readOccupancy(ctx, tx, runID)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM signups WHERE run_id = ? AND user_id = ?)`,
		runID, userID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate: %w", classify(err))
	}
	if exists {
		return nil, repository.ErrAlreadyRegistered
	}

	if !capacity.Admits(o) {
		return nil, repository.ErrRunFull
	}

	signup := &model.SignUp{
		ID:         uuid.New().String(),
		UserID:     userID,
		RunID:      runID,
		SignedUpAt: at.UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO signups (`+signupColumns+`) VALUES (?, ?, ?, ?, ?)`,
		signup.ID, signup.UserID, signup.RunID, signup.SignedUpAt.UnixNano(), signup.Attended,
	)
	if err != nil {
		// The run was verified above under the write lock, so a foreign
		// key failure can only be the user reference.
		if errors.Is(err, sqlite3.CONSTRAINT_FOREIGNKEY) {
			return nil, repository.ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to insert signup: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return signup, nil
}

// Remove deletes the pair's sign-up.
func (r *SignUpRepository) Remove(ctx context.Context, runID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := readOccupancy(ctx, tx, runID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx,
		`DELETE FROM signups WHERE run_id = ? AND user_id = ?`,
		runID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete signup: %w", classify(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotRegistered
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// Get returns the pair's sign-up or repository.ErrNotRegistered.
func (r *SignUpRepository) Get(ctx context.Context, runID, userID string) (*model.SignUp, error) {
	s, err := scanSignUp(r.db.QueryRowContext(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE run_id = ? AND user_id = ?`,
		runID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signup: %w", err)
	}
	return s, nil
}

// ListByRun returns the run's sign-ups, first come first.
func (r *SignUpRepository) ListByRun(ctx context.Context, runID string) ([]model.SignUp, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE run_id = ? ORDER BY signed_up_at, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups: %w", err)
	}
	defer rows.Close()

	var signups []model.SignUp
	for rows.Next() {
		s, err := scanSignUp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, *s)
	}
	return signups, rows.Err()
}

// SetAttended flips the attendance flag of an existing sign-up.
func (r *SignUpRepository) SetAttended(ctx context.Context, runID, userID string, attended bool) (*model.SignUp, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE signups SET attended = ? WHERE run_id = ? AND user_id = ?`,
		attended, runID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set attended: %w", classify(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, repository.ErrNotRegistered
	}
	return r.Get(ctx, runID, userID)
}

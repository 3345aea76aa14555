package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/runclub/internal/capacity"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
)

const runColumns = `id, run_date, start_time, meeting_place, venue, length_km_x100, max_capacity`

// RunRepository implements repository.RunStore using SQLite.
type RunRepository struct {
	db *sql.DB
}

var _ repository.RunStore = (*RunRepository)(nil)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface{ Scan(...any) error }

func scanRun(row scanner, extra ...any) (*model.Run, error) {
	var (
		run    model.Run
		date   string
		clock  string
		length int64
	)
	dest := append([]any{&run.ID, &date, &clock, &run.MeetingPlace, &run.Venue, &length, &run.MaxCapacity}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	run.Date = model.Date(date)
	run.Time = model.Clock(clock)
	run.LengthKM = model.Kilometers(length)
	return &run, nil
}

// Create inserts a new run.
func (r *RunRepository) Create(ctx context.Context, spec model.RunSpec) (*model.Run, error) {
	run := &model.Run{
		ID:           uuid.New().String(),
		Date:         spec.Date,
		Time:         spec.Time,
		MeetingPlace: spec.MeetingPlace,
		Venue:        spec.Venue,
		LengthKM:     spec.LengthKM,
		MaxCapacity:  spec.MaxCapacity,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Date), string(run.Time), run.MeetingPlace, run.Venue,
		int64(run.LengthKM), run.MaxCapacity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", classify(err))
	}
	return run, nil
}

// GetByID returns a single run or repository.ErrNotFound.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*model.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns all runs ordered by date and time.
func (r *RunRepository) List(ctx context.Context) ([]model.Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY run_date, start_time, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListWithStatus returns every run with its count and the viewer's membership
// from a single statement.
func (r *RunRepository) ListWithStatus(ctx context.Context, viewerID string) ([]model.RunStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+`,
		        (SELECT COUNT(*) FROM signups s WHERE s.run_id = runs.id),
		        EXISTS (SELECT 1 FROM signups s WHERE s.run_id = runs.id AND s.user_id = ?)
		 FROM runs
		 ORDER BY run_date, start_time, id`,
		viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs with status: %w", err)
	}
	defer rows.Close()

	var out []model.RunStatus
	for rows.Next() {
		var (
			count      int
			registered bool
		)
		run, err := scanRun(rows, &count, &registered)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run status: %w", err)
		}
		out = append(out, capacity.Status(*run, count, registered))
	}
	return out, rows.Err()
}

// Update replaces a run's attributes inside an immediate transaction.
func (r *RunRepository) Update(ctx context.Context, id string, spec model.RunSpec) (*model.Run, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() { _ = tx.Rollback() }()

	o, err := readOccupancy(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if spec.MaxCapacity < o.SignupCount {
		return nil, repository.ErrCapacityBelowSignups
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs
		 SET run_date = ?, start_time = ?, meeting_place = ?, venue = ?, length_km_x100 = ?, max_capacity = ?
		 WHERE id = ?`,
		string(spec.Date), string(spec.Time), spec.MeetingPlace, spec.Venue,
		int64(spec.LengthKM), spec.MaxCapacity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update run: %w", classify(err))
	}
	run, err := scanRun(tx.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to reload run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return run, nil
}

// Delete removes a run and, by cascade, its sign-ups.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", classify(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Occupancy returns the run's capacity and current sign-up count.
func (r *RunRepository) Occupancy(ctx context.Context, id string) (model.Occupancy, error) {
	return readOccupancy(ctx, r.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readOccupancy reads capacity and count in one statement. Inside an
// immediate transaction the write lock is already held, so the result stays
// valid until commit.
func readOccupancy(ctx context.Context, q querier, runID string) (model.Occupancy, error) {
	o := model.Occupancy{RunID: runID}
	err := q.QueryRowContext(ctx,
		`SELECT r.max_capacity, (SELECT COUNT(*) FROM signups s WHERE s.run_id = r.id)
		 FROM runs r WHERE r.id = ?`,
		runID,
	).Scan(&o.MaxCapacity, &o.SignupCount)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Occupancy{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Occupancy{}, fmt.Errorf("failed to read occupancy: %w", classify(err))
	}
	return o, nil
}

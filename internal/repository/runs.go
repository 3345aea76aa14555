package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/runclub/internal/capacity"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
)

// runColumns renders DATE/TIME/NUMERIC as text so they map onto the model's
// string-backed types without loss.
const runColumns = `id, to_char(run_date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'),
	meeting_place, venue, length_km::text, max_capacity`

// RunRepository handles persistence for runs.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository constructs a RunRepository.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

var _ RunStore = (*RunRepository)(nil)

func scanRun(row pgx.Row, extra ...any) (*model.Run, error) {
	var (
		run    model.Run
		date   string
		clock  string
		length string
	)
	dest := append([]any{&run.ID, &date, &clock, &run.MeetingPlace, &run.Venue, &length, &run.MaxCapacity}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	run.Date = model.Date(date)
	run.Time = model.Clock(clock)
	km, err := model.ParseKilometers(length)
	if err != nil {
		return nil, fmt.Errorf("decode length_km: %w", err)
	}
	run.LengthKM = km
	return &run, nil
}

// Create inserts a new run and returns it with a generated UUID.
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

	_, err := r.db.Exec(ctx,
		`INSERT INTO runs (id, run_date, start_time, meeting_place, venue, length_km, max_capacity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Date.String(), run.Time.String(), run.MeetingPlace, run.Venue,
		run.LengthKM.String(), run.MaxCapacity,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", classify(err))
	}
	return run, nil
}

// GetByID returns a single run or ErrNotFound.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*model.Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns all runs ordered by date and time.
func (r *RunRepository) List(ctx context.Context) ([]model.Run, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY run_date, start_time, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListWithStatus returns every run with its count and the viewer's membership.
// A single statement reads one snapshot, so counts and membership agree.
func (r *RunRepository) ListWithStatus(ctx context.Context, viewerID string) ([]model.RunStatus, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+`,
		        (SELECT COUNT(*) FROM signups s WHERE s.run_id = runs.id),
		        EXISTS (SELECT 1 FROM signups s WHERE s.run_id = runs.id AND s.user_id = $1)
		 FROM runs
		 ORDER BY run_date, start_time, id`,
		viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs with status: %w", err)
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
			return nil, fmt.Errorf("scan run status: %w", err)
		}
		out = append(out, capacity.Status(*run, count, registered))
	}
	return out, rows.Err()
}

// Update replaces a run's attributes. The run row is locked FOR UPDATE, the
// same lock Admit takes, so a concurrent admission cannot slip in between the
// count and the capacity change.
func (r *RunRepository) Update(ctx context.Context, id string, spec model.RunSpec) (*model.Run, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := setLockTimeout(ctx, tx); err != nil {
		return nil, err
	}

	o, err := lockOccupancy(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if spec.MaxCapacity < o.SignupCount {
		return nil, ErrCapacityBelowSignups
	}

	run, err := scanRun(tx.QueryRow(ctx,
		`UPDATE runs
		 SET run_date = $2, start_time = $3, meeting_place = $4, venue = $5, length_km = $6, max_capacity = $7
		 WHERE id = $1
		 RETURNING `+runColumns,
		id, spec.Date.String(), spec.Time.String(), spec.MeetingPlace, spec.Venue,
		spec.LengthKM.String(), spec.MaxCapacity,
	))
	if err != nil {
		return nil, fmt.Errorf("update run: %w", classify(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", classify(err))
	}
	return run, nil
}

// Delete removes a run; its sign-ups go with it (ON DELETE CASCADE).
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Occupancy returns the run's capacity and its current persisted count.
func (r *RunRepository) Occupancy(ctx context.Context, id string) (model.Occupancy, error) {
	o := model.Occupancy{RunID: id}
	err := r.db.QueryRow(ctx,
		`SELECT r.max_capacity, (SELECT COUNT(*) FROM signups s WHERE s.run_id = r.id)
		 FROM runs r WHERE r.id = $1`,
		id,
	).Scan(&o.MaxCapacity, &o.SignupCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Occupancy{}, ErrNotFound
		}
		return model.Occupancy{}, fmt.Errorf("read occupancy: %w", err)
	}
	return o, nil
}

// lockOccupancy takes a row-level exclusive lock on the run and re-reads its
// sign-up count inside tx. Every writer that can change a run's occupancy
// goes through here first.
func lockOccupancy(ctx context.Context, tx pgx.Tx, runID string) (model.Occupancy, error) {
	o := model.Occupancy{RunID: runID}
	err := tx.QueryRow(ctx,
		`SELECT max_capacity FROM runs WHERE id = $1 FOR UPDATE`,
		runID,
	).Scan(&o.MaxCapacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, ErrNotFound
		}
		return o, fmt.Errorf("lock run row: %w", classify(err))
	}
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM signups WHERE run_id = $1`,
		runID,
	).Scan(&o.SignupCount)
	if err != nil {
		return o, fmt.Errorf("count signups: %w", classify(err))
	}
	return o, nil
}

// Package capacity holds the admission rule for runs: a run admits a new
// sign-up only while its persisted sign-up count is below max_capacity.
//
// The pure functions (Admits, Spots) are what storage backends evaluate inside
// their admission transaction, after the run row is locked and the count is
// re-read. Guard answers the same questions for read paths by loading a fresh
// Occupancy from the store on every call; it never caches counts.
package capacity

import (
	"context"

	"github.com/Shivanand-hulikatti/runclub/internal/model"
)

// Admits reports whether one more sign-up fits.
func Admits(o model.Occupancy) bool {
	return o.SignupCount < o.MaxCapacity
}

// Spots returns the number of free places, never negative.
func Spots(o model.Occupancy) int {
	return max(0, o.MaxCapacity-o.SignupCount)
}

// Full reports whether the run admits nobody else.
func Full(o model.Occupancy) bool {
	return !Admits(o)
}

// Status builds the viewer-facing status of a run from its occupancy.
func Status(run model.Run, signupCount int, registered bool) model.RunStatus {
	o := model.Occupancy{RunID: run.ID, MaxCapacity: run.MaxCapacity, SignupCount: signupCount}
	return model.RunStatus{
		Run:            run,
		SignupCount:    signupCount,
		AvailableSpots: Spots(o),
		IsFull:         Full(o),
		Registered:     registered,
	}
}

// OccupancyReader loads the current persisted occupancy of a run.
type OccupancyReader interface {
	Occupancy(ctx context.Context, runID string) (model.Occupancy, error)
}

// Guard evaluates the admission rule against the live store.
type Guard struct {
	store OccupancyReader
}

// NewGuard constructs a Guard.
func NewGuard(store OccupancyReader) *Guard {
	return &Guard{store: store}
}

// CanAdmit reports whether the run currently has a free place.
// The answer is advisory: admission is re-checked when the sign-up commits.
func (g *Guard) CanAdmit(ctx context.Context, runID string) (bool, error) {
	o, err := g.store.Occupancy(ctx, runID)
	if err != nil {
		return false, err
	}
	return Admits(o), nil
}

// IsFull reports whether the run has reached max_capacity.
func (g *Guard) IsFull(ctx context.Context, runID string) (bool, error) {
	ok, err := g.CanAdmit(ctx, runID)
	return !ok, err
}

// AvailableSpots returns max(0, max_capacity - signup_count).
func (g *Guard) AvailableSpots(ctx context.Context, runID string) (int, error) {
	o, err := g.store.Occupancy(ctx, runID)
	if err != nil {
		return 0, err
	}
	return Spots(o), nil
}

// SignupCount returns the persisted number of sign-ups for the run.
func (g *Guard) SignupCount(ctx context.Context, runID string) (int, error) {
	o, err := g.store.Occupancy(ctx, runID)
	if err != nil {
		return 0, err
	}
	return o.SignupCount, nil
}

// RunStatus reads the run's occupancy once and builds its status. The stored
// capacity takes precedence over run.MaxCapacity, which may come from a cache.
func (g *Guard) RunStatus(ctx context.Context, run model.Run, registered bool) (model.RunStatus, error) {
	o, err := g.store.Occupancy(ctx, run.ID)
	if err != nil {
		return model.RunStatus{}, err
	}
	run.MaxCapacity = o.MaxCapacity
	return Status(run, o.SignupCount, registered), nil
}

// Package repository defines the persistence contracts of the run sign-up
// system and implements them on PostgreSQL with pgx directly (no ORM).
//
// Three stores exist: the event store (runs), the registration ledger
// (signups) and the user store. The ledger is the only writer of the signups
// table; its Admit method is where the capacity and uniqueness invariants are
// enforced atomically.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/runclub/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrRunFull is returned when a run has no remaining capacity at commit time.
var ErrRunFull = errors.New("run is full")

// ErrAlreadyRegistered is returned when the same user signs up for a run twice.
var ErrAlreadyRegistered = errors.New("user already signed up for this run")

// ErrNotRegistered is returned when cancelling or marking a sign-up that does not exist.
var ErrNotRegistered = errors.New("user is not signed up for this run")

// ErrConstraintRace is returned when a concurrent commit conflicted with this
// one (serialization failure, deadlock, lock timeout, busy database). The
// operation left no trace and may be retried.
var ErrConstraintRace = errors.New("concurrent registration conflict")

// ErrCapacityBelowSignups is returned when a run's capacity would drop below
// the number of people already signed up.
var ErrCapacityBelowSignups = errors.New("max_capacity is below the current number of sign-ups")

// ErrUnknownUser is returned when a sign-up references a user that does not exist.
var ErrUnknownUser = errors.New("unknown user")

// ErrUserExists is returned when an account's username or email is taken.
var ErrUserExists = errors.New("a user with this username or email already exists")

// RunStore is the event store: durable Run records and their derived counts.
type RunStore interface {
	Create(ctx context.Context, spec model.RunSpec) (*model.Run, error)
	GetByID(ctx context.Context, id string) (*model.Run, error)
	// List returns all runs ordered by (date, time).
	List(ctx context.Context) ([]model.Run, error)
	// ListWithStatus returns every run with its sign-up count and whether
	// viewerID is signed up, read from one snapshot. An empty viewerID is
	// an anonymous viewer.
	ListWithStatus(ctx context.Context, viewerID string) ([]model.RunStatus, error)
	// Update replaces the run's attributes under the same lock admission uses.
	Update(ctx context.Context, id string, spec model.RunSpec) (*model.Run, error)
	// Delete removes the run and, by cascade, its sign-ups.
	Delete(ctx context.Context, id string) error
	// Occupancy returns the run's capacity and persisted sign-up count.
	Occupancy(ctx context.Context, id string) (model.Occupancy, error)
}

// SignUpLedger is the registration ledger.
type SignUpLedger interface {
	// Admit atomically checks uniqueness and capacity for the pair and
	// inserts the sign-up. It returns ErrNotFound, ErrAlreadyRegistered,
	// ErrRunFull, ErrUnknownUser or ErrConstraintRace without writing
	// anything on failure.
	Admit(ctx context.Context, runID, userID string, at time.Time) (*model.SignUp, error)
	// Remove deletes the pair's sign-up: ErrNotFound if the run is missing,
	// ErrNotRegistered if the pair has no sign-up.
	Remove(ctx context.Context, runID, userID string) error
	Get(ctx context.Context, runID, userID string) (*model.SignUp, error)
	// ListByRun returns the run's sign-ups ordered by signed_up_at.
	ListByRun(ctx context.Context, runID string) ([]model.SignUp, error)
	SetAttended(ctx context.Context, runID, userID string, attended bool) (*model.SignUp, error)
}

// UserStore persists accounts for the authentication provider.
type UserStore interface {
	Create(ctx context.Context, username, email string, passwordHash []byte) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	// FindByLogin returns users whose username or email equals login.
	FindByLogin(ctx context.Context, login string) ([]model.User, error)
}

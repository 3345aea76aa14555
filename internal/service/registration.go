package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/runclub/internal/capacity"
	"github.com/Shivanand-hulikatti/runclub/internal/config"
	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
	"github.com/Shivanand-hulikatti/runclub/internal/tracing"
)

// RegistrationService owns the sign-up lifecycle of runs. It is the only
// caller of the ledger's Admit and Remove.
type RegistrationService struct {
	runs   repository.RunStore
	ledger repository.SignUpLedger
	guard  *capacity.Guard
	tracer trace.Tracer

	maxAttempts  int
	retryBackoff time.Duration
	now          func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	runs repository.RunStore,
	ledger repository.SignUpLedger,
	cfg config.RegistrationConfig,
	tracer trace.Tracer,
) *RegistrationService {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &RegistrationService{
		runs:         runs,
		ledger:       ledger,
		guard:        capacity.NewGuard(runs),
		tracer:       tracer,
		maxAttempts:  attempts,
		retryBackoff: cfg.RetryBackoff,
		now:          time.Now,
	}
}

// expected are the business answers of register and cancel. They are not
// recorded as span failures.
var expected = []error{
	repository.ErrNotFound,
	repository.ErrAlreadyRegistered,
	repository.ErrRunFull,
	repository.ErrNotRegistered,
}

// Register signs userID up for runID. It fails with repository.ErrNotFound,
// ErrAlreadyRegistered or ErrRunFull and writes nothing in that case.
//
// Concurrent-commit conflicts are retried with exponential backoff. When the
// attempts run out the conflict is resolved by re-reading state: the pair
// already exists (ErrAlreadyRegistered) or the run filled up (ErrRunFull).
func (s *RegistrationService) Register(ctx context.Context, userID, runID string) (*model.SignUp, error) {
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}
	if err := requireID("run_id", runID); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanRegister, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.String(tracing.AttrUserID, userID),
	))
	defer span.End()

	signup, err := s.admit(ctx, span, userID, runID)
	span.SetAttributes(attribute.String(tracing.AttrOutcome, string(OutcomeOf(err, model.OutcomeRegistered))))
	tracing.RecordError(span, err, expected...)
	if err != nil {
		if isExpected(err) {
			log.Info(log.CatRegistration, "Registration rejected", "run_id", runID, "user_id", userID, "reason", err.Error())
			return nil, err
		}
		log.ErrorErr(log.CatRegistration, "Registration failed", err, "run_id", runID, "user_id", userID)
		return nil, fmt.Errorf("register for run: %w", err)
	}

	log.Info(log.CatRegistration, "Registered", "run_id", runID, "user_id", userID, "signup_id", signup.ID)
	return signup, nil
}

func (s *RegistrationService) admit(ctx context.Context, span trace.Span, userID, runID string) (*model.SignUp, error) {
	signup, attempts, err := retryConflicts(ctx, s.maxAttempts, s.retryBackoff, func(attempt int) (*model.SignUp, error) {
		su, err := s.ledger.Admit(ctx, runID, userID, s.now())
		if errors.Is(err, repository.ErrConstraintRace) {
			log.Debug(log.CatRegistration, "Admission conflict", "run_id", runID, "user_id", userID, "attempt", attempt)
		}
		return su, err
	})
	span.SetAttributes(attribute.Int(tracing.AttrAttempt, attempts))

	if errors.Is(err, repository.ErrConstraintRace) {
		log.Warn(log.CatRegistration, "Admission conflicts exhausted retries", "run_id", runID, "attempts", attempts)
		return nil, s.resolveRace(ctx, userID, runID, err)
	}
	return signup, err
}

// retryConflicts calls op until it returns something other than
// repository.ErrConstraintRace or maxAttempts calls have been made. It
// reports the number of calls.
func retryConflicts[T any](ctx context.Context, maxAttempts int, initial time.Duration, op func(attempt int) (T, error)) (T, int, error) {
	b := backoff.NewExponentialBackOff()
	if initial > 0 {
		b.InitialInterval = initial
	}

	attempt := 0
	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(attempt)
		if err != nil && !errors.Is(err, repository.ErrConstraintRace) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(maxAttempts)))
	return v, attempt, err
}

// resolveRace turns an unresolved conflict into the answer a later reader
// would see.
func (s *RegistrationService) resolveRace(ctx context.Context, userID, runID string, race error) error {
	_, err := s.ledger.Get(ctx, runID, userID)
	switch {
	case err == nil:
		return repository.ErrAlreadyRegistered
	case !errors.Is(err, repository.ErrNotRegistered):
		return fmt.Errorf("%w (resolving: %v)", race, err)
	}
	if _, err := s.runs.Occupancy(ctx, runID); errors.Is(err, repository.ErrNotFound) {
		return repository.ErrNotFound
	}
	return repository.ErrRunFull
}

// Cancel removes userID's sign-up for runID. It fails with
// repository.ErrNotFound or ErrNotRegistered and changes nothing in that case.
// Concurrent-commit conflicts are retried like those of Register.
func (s *RegistrationService) Cancel(ctx context.Context, userID, runID string) error {
	if err := requireID("user_id", userID); err != nil {
		return err
	}
	if err := requireID("run_id", runID); err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanCancel, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.String(tracing.AttrUserID, userID),
	))
	defer span.End()

	_, attempts, err := retryConflicts(ctx, s.maxAttempts, s.retryBackoff, func(attempt int) (struct{}, error) {
		err := s.ledger.Remove(ctx, runID, userID)
		if errors.Is(err, repository.ErrConstraintRace) {
			log.Debug(log.CatRegistration, "Cancellation conflict", "run_id", runID, "user_id", userID, "attempt", attempt)
		}
		return struct{}{}, err
	})
	span.SetAttributes(attribute.Int(tracing.AttrAttempt, attempts))
	span.SetAttributes(attribute.String(tracing.AttrOutcome, string(OutcomeOf(err, model.OutcomeCancelled))))
	tracing.RecordError(span, err, expected...)
	if err != nil {
		if isExpected(err) {
			log.Info(log.CatRegistration, "Cancellation rejected", "run_id", runID, "user_id", userID, "reason", err.Error())
			return err
		}
		log.ErrorErr(log.CatRegistration, "Cancellation failed", err, "run_id", runID, "attempts", attempts)
		return fmt.Errorf("cancel registration: %w", err)
	}

	log.Info(log.CatRegistration, "Cancelled", "run_id", runID, "user_id", userID)
	return nil
}

// ListRunsWithStatus returns every run with its occupancy and whether viewerID
// is signed up. An empty viewerID lists runs for an anonymous viewer.
func (s *RegistrationService) ListRunsWithStatus(ctx context.Context, viewerID string) ([]model.RunStatus, error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanListRuns)
	defer span.End()

	statuses, err := s.runs.ListWithStatus(ctx, viewerID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return statuses, nil
}

// RunStatus returns a single run as seen by viewerID.
func (s *RegistrationService) RunStatus(ctx context.Context, runID, viewerID string) (model.RunStatus, error) {
	if err := requireID("run_id", runID); err != nil {
		return model.RunStatus{}, err
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return model.RunStatus{}, err
	}

	registered := false
	if viewerID != "" {
		_, err := s.ledger.Get(ctx, runID, viewerID)
		switch {
		case err == nil:
			registered = true
		case !errors.Is(err, repository.ErrNotRegistered):
			return model.RunStatus{}, fmt.Errorf("get signup: %w", err)
		}
	}
	return s.guard.RunStatus(ctx, *run, registered)
}

// Occupancy returns the persisted capacity state of a run.
func (s *RegistrationService) Occupancy(ctx context.Context, runID string) (model.Occupancy, error) {
	if err := requireID("run_id", runID); err != nil {
		return model.Occupancy{}, err
	}
	return s.runs.Occupancy(ctx, runID)
}

// CanRegister reports whether the run currently has a free place. The answer
// is advisory; Register decides at commit time.
func (s *RegistrationService) CanRegister(ctx context.Context, runID string) (bool, error) {
	return s.guard.CanAdmit(ctx, runID)
}

// MarkAttendance records whether a signed-up user turned up. Capacity is not
// affected.
func (s *RegistrationService) MarkAttendance(ctx context.Context, runID, userID string, attended bool) (*model.SignUp, error) {
	if err := requireID("run_id", runID); err != nil {
		return nil, err
	}
	if err := requireID("user_id", userID); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanAttendance, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.String(tracing.AttrUserID, userID),
		attribute.Bool("signup.attended", attended),
	))
	defer span.End()

	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		tracing.RecordError(span, err, expected...)
		return nil, err
	}
	signup, err := s.ledger.SetAttended(ctx, runID, userID, attended)
	tracing.RecordError(span, err, expected...)
	if err != nil {
		if isExpected(err) {
			return nil, err
		}
		return nil, fmt.Errorf("mark attendance: %w", err)
	}
	log.Info(log.CatRegistration, "Attendance marked", "run_id", runID, "user_id", userID, "attended", attended)
	return signup, nil
}

// ListSignUps returns a run's sign-ups in the order they were made.
func (s *RegistrationService) ListSignUps(ctx context.Context, runID string) ([]model.SignUp, error) {
	if err := requireID("run_id", runID); err != nil {
		return nil, err
	}
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.ledger.ListByRun(ctx, runID)
}

func isExpected(err error) bool {
	for _, e := range expected {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
)

// RunService handles organizer operations on runs.
type RunService struct {
	runs repository.RunStore
}

// NewRunService constructs a RunService.
func NewRunService(runs repository.RunStore) *RunService {
	return &RunService{runs: runs}
}

// CreateRun validates the request and stores a new run.
func (s *RunService) CreateRun(ctx context.Context, req model.CreateRunRequest) (*model.Run, error) {
	spec, err := parseRun(req)
	if err != nil {
		return nil, err
	}
	run, err := s.runs.Create(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	log.Info(log.CatRegistration, "Run created", "run_id", run.ID, "run", run.String())
	return run, nil
}

// ListRuns returns all runs ordered by date and time.
func (s *RunService) ListRuns(ctx context.Context) ([]model.Run, error) {
	return s.runs.List(ctx)
}

// UpdateRun replaces a run's attributes. Lowering max_capacity below the
// number of current sign-ups fails with repository.ErrCapacityBelowSignups.
func (s *RunService) UpdateRun(ctx context.Context, id string, req model.UpdateRunRequest) (*model.Run, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	spec, err := parseRun(req)
	if err != nil {
		return nil, err
	}
	run, err := s.runs.Update(ctx, id, spec)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrCapacityBelowSignups) {
			return nil, err
		}
		return nil, fmt.Errorf("update run: %w", err)
	}
	log.Info(log.CatRegistration, "Run updated", "run_id", run.ID, "max_capacity", run.MaxCapacity)
	return run, nil
}

// DeleteRun removes a run together with its sign-ups.
func (s *RunService) DeleteRun(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.runs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete run: %w", err)
	}
	log.Info(log.CatRegistration, "Run deleted", "run_id", id)
	return nil
}

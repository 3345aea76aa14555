// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// OutcomeOf tags the result of a registration operation. success is the
// outcome reported when err is nil.
func OutcomeOf(err error, success model.Outcome) model.Outcome {
	switch {
	case err == nil:
		return success
	case errors.Is(err, repository.ErrAlreadyRegistered):
		return model.OutcomeAlreadyRegistered
	case errors.Is(err, repository.ErrRunFull):
		return model.OutcomeRunFull
	case errors.Is(err, repository.ErrNotFound):
		return model.OutcomeNotFound
	case errors.Is(err, repository.ErrNotRegistered):
		return model.OutcomeNotRegistered
	}
	return model.OutcomeError
}

const maxPlaceLength = 200

// maxCapacity bounds a single run.
const maxCapacity = 100_000

// parseRun validates a create/update request into a RunSpec.
func parseRun(req model.CreateRunRequest) (model.RunSpec, error) {
	var spec model.RunSpec
	var err error

	if spec.Date, err = model.ParseDate(req.Date); err != nil {
		return spec, invalid("date", "%s", err)
	}
	if spec.Time, err = model.ParseClock(req.Time); err != nil {
		return spec, invalid("time", "%s", err)
	}
	spec.LengthKM = req.LengthKM
	if spec.LengthKM <= 0 {
		return spec, invalid("length_km", "must be greater than zero")
	}
	if spec.LengthKM > model.MaxKilometers {
		return spec, invalid("length_km", "cannot exceed %s", model.MaxKilometers)
	}

	spec.Venue = strings.TrimSpace(req.Venue)
	if spec.Venue == "" {
		return spec, invalid("venue", "is required")
	}
	if len(spec.Venue) > maxPlaceLength {
		return spec, invalid("venue", "cannot exceed %d characters", maxPlaceLength)
	}
	spec.MeetingPlace = strings.TrimSpace(req.MeetingPlace)
	if spec.MeetingPlace == "" {
		return spec, invalid("meeting_place", "is required")
	}
	if len(spec.MeetingPlace) > maxPlaceLength {
		return spec, invalid("meeting_place", "cannot exceed %d characters", maxPlaceLength)
	}

	if req.MaxCapacity < 0 {
		return spec, invalid("max_capacity", "cannot be negative")
	}
	if req.MaxCapacity > maxCapacity {
		return spec, invalid("max_capacity", "cannot exceed 100,000")
	}
	spec.MaxCapacity = req.MaxCapacity
	return spec, nil
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid(field, "is required")
	}
	return nil
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ncruces/go-sqlite3"

	"github.com/Shivanand-hulikatti/runclub/internal/repository"
)

// classify translates SQLite failures into repository sentinel errors.
// Anything it does not recognise is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, sqlite3.CONSTRAINT_UNIQUE), errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY):
		switch {
		case strings.Contains(msg, "signups."):
			return repository.ErrAlreadyRegistered
		case strings.Contains(msg, "users"):
			return repository.ErrUserExists
		}
	case errors.Is(err, sqlite3.CONSTRAINT_TRIGGER):
		switch {
		case strings.Contains(msg, "run is full"):
			return repository.ErrRunFull
		case strings.Contains(msg, "max_capacity below signups"):
			return repository.ErrCapacityBelowSignups
		}
	case errors.Is(err, sqlite3.BUSY), errors.Is(err, sqlite3.LOCKED):
		return fmt.Errorf("%w: %s", repository.ErrConstraintRace, msg)
	}
	return err
}

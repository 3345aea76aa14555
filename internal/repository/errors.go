package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repository reacts to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// Constraint names from the migrations.
const (
	constraintSignupPair    = "signups_user_run_key"
	constraintSignupRunFK   = "signups_run_id_fkey"
	constraintSignupUserFK  = "signups_user_id_fkey"
	constraintUsersUsername = "users_username_key"
	constraintUsersEmail    = "users_email_key"
)

// lockTimeout bounds how long a writer waits for a run's row lock before the
// attempt is abandoned as a ConstraintRace.
const lockTimeout = "5s"

// classify translates storage failures into the package's sentinel errors.
// Anything it does not recognise is returned unchanged.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintSignupPair:
			return ErrAlreadyRegistered
		case constraintUsersUsername, constraintUsersEmail:
			return ErrUserExists
		}
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintSignupRunFK:
			return ErrNotFound
		case constraintSignupUserFK:
			return ErrUnknownUser
		}
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %s (%s)", ErrConstraintRace, pgErr.Message, pgErr.Code)
	case codeQueryCanceled:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, pgErr.Message)
	}
	return err
}

func setLockTimeout(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '`+lockTimeout+`'`); err != nil {
		return fmt.Errorf("set lock timeout: %w", classify(err))
	}
	return nil
}

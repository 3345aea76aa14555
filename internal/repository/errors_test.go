package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  *pgconn.PgError
		want error
	}{
		{"duplicate pair", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintSignupPair}, ErrAlreadyRegistered},
		{"duplicate username", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintUsersUsername}, ErrUserExists},
		{"duplicate email", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintUsersEmail}, ErrUserExists},
		{"missing run", &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: constraintSignupRunFK}, ErrNotFound},
		{"missing user", &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: constraintSignupUserFK}, ErrUnknownUser},
		{"serialization", &pgconn.PgError{Code: codeSerializationFailure}, ErrConstraintRace},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, ErrConstraintRace},
		{"lock timeout", &pgconn.PgError{Code: codeLockNotAvailable}, ErrConstraintRace},
		{"statement timeout", &pgconn.PgError{Code: codeQueryCanceled}, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(fmt.Errorf("exec: %w", tt.err))
			require.ErrorIs(t, got, tt.want)
		})
	}
}

func TestClassify_PassesThroughUnknown(t *testing.T) {
	plain := errors.New("boom")
	require.Same(t, plain, classify(plain))

	other := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "something_else"}
	require.ErrorIs(t, classify(other), other)
	require.NotErrorIs(t, classify(other), ErrAlreadyRegistered)
}

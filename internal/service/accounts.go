package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Shivanand-hulikatti/runclub/internal/auth"
	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
)

const (
	maxUsernameLength = 150
	minPasswordLength = 8
)

// AccountService opens accounts.
type AccountService struct {
	users      repository.UserStore
	bcryptCost int
}

// NewAccountService constructs an AccountService.
func NewAccountService(users repository.UserStore, bcryptCost int) *AccountService {
	return &AccountService{users: users, bcryptCost: bcryptCost}
}

// Register validates the request, hashes the password and stores the user.
// A taken username or email fails with repository.ErrUserExists.
func (s *AccountService) Register(ctx context.Context, req model.CreateAccountRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	switch {
	case username == "":
		return nil, invalid("username", "is required")
	case len(username) > maxUsernameLength:
		return nil, invalid("username", "cannot exceed %d characters", maxUsernameLength)
	case strings.IndexFunc(username, unicode.IsSpace) >= 0:
		return nil, invalid("username", "cannot contain spaces")
	}
	if !isValidEmail(email) {
		return nil, invalid("email", "is not a valid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, invalid("password", "must be at least %d characters", minPasswordLength)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, username, email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, repository.ErrUserExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	log.Info(log.CatAuth, "Account created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

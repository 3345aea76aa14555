// Package auth resolves login credentials to users. The registration core
// only ever sees the resulting user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/runclub/internal/log"
	"github.com/Shivanand-hulikatti/runclub/internal/model"
	"github.com/Shivanand-hulikatti/runclub/internal/repository"
)

// ErrInvalidCredentials is returned for any failed login. It does not say
// whether the user exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Scheme selects which identifier a login string is matched against.
type Scheme string

const (
	SchemeUsername Scheme = "username"
	SchemeEmail    Scheme = "email"
	SchemeEither   Scheme = "either"
)

// ParseScheme validates a configured login scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeUsername, SchemeEmail, SchemeEither:
		return Scheme(s), nil
	}
	return "", fmt.Errorf("unknown login scheme %q", s)
}

// Authenticator verifies credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*model.User, error)
}

// PasswordAuthenticator checks bcrypt password hashes held in a UserStore.
type PasswordAuthenticator struct {
	users  repository.UserStore
	scheme Scheme
	cost   int

	dummyOnce sync.Once
	dummy     []byte
}

var _ Authenticator = (*PasswordAuthenticator)(nil)

// NewPasswordAuthenticator constructs a PasswordAuthenticator. cost is the
// bcrypt cost of the hash compared against when no user matches.
func NewPasswordAuthenticator(users repository.UserStore, scheme Scheme, cost int) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users, scheme: scheme, cost: cost}
}

// Authenticate returns the user whose identifier matches login and whose
// password hash matches password.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	candidates, err := a.users.FindByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	user := a.pick(login, candidates)
	if user == nil {
		// Spend the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(a.dummyHash(), []byte(password))
		log.Debug(log.CatAuth, "Login for unknown user", "scheme", string(a.scheme))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		log.Debug(log.CatAuth, "Password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// pick applies the login scheme to the store's candidates. With several
// matches an exact username wins.
func (a *PasswordAuthenticator) pick(login string, candidates []model.User) *model.User {
	var byUsername, byEmail []model.User
	for _, u := range candidates {
		if u.Username == login {
			byUsername = append(byUsername, u)
		}
		if strings.EqualFold(u.Email, login) {
			byEmail = append(byEmail, u)
		}
	}

	switch a.scheme {
	case SchemeUsername:
		if len(byUsername) > 0 {
			return &byUsername[0]
		}
	case SchemeEmail:
		if len(byEmail) == 1 {
			return &byEmail[0]
		}
	default:
		if len(byUsername) > 0 {
			return &byUsername[0]
		}
		if len(byEmail) > 0 {
			return &byEmail[0]
		}
	}
	return nil
}

func (a *PasswordAuthenticator) dummyHash() []byte {
	a.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("runclub-dummy-password"), a.cost)
		if err != nil {
			log.ErrorErr(log.CatAuth, "Failed to build dummy hash", err)
			return
		}
		a.dummy = h
	})
	return a.dummy
}

// HashPassword hashes a password with bcrypt at the given cost.
func HashPassword(password string, cost int) ([]byte, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

// Package services contains server-side business logic. This file implements
// UserService, which handles registration and credential verification on top
// of the users repository.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/penlight/penlight/internal/common"
	"github.com/penlight/penlight/internal/server/auth"
	"github.com/penlight/penlight/internal/server/config"
	"github.com/penlight/penlight/internal/server/models"
	"github.com/penlight/penlight/internal/server/repositories/repomanager"
)

// UserService provides user account operations:
// - Register: create users with hashed passwords
// - Authenticate: verify an email/password pair
// - GetByID: load the account behind a verified token subject
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      auth.NewPasswordHasher(cfg.PasswordHashCost),
	}
}

// Register creates a new user with the given email, display name, and
// password. A duplicate email yields ErrorEmailTaken; any other failure is
// wrapped in ErrorRegistration so callers never see storage details.
func (s *UserService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorRegistration, err)
	}

	user := &models.User{Email: email, Name: name, PasswordHash: hash}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorRegistration, err)
	}
	return u, nil
}

// Authenticate verifies the email/password pair and returns the matching
// user. An unknown email and a wrong password both yield
// ErrorInvalidCredentials so the two are indistinguishable to clients.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, common.ErrorInternal
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, common.ErrorInvalidCredentials
	}
	return user, nil
}

// GetByID loads a user by id.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

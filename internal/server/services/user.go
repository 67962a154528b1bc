// Package services contains server-side business logic. This file implements
// UserService, which handles registration, credential checks, and profile
// management on top of the user repository.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/security"
)

// UserService provides user account operations:
// - Register: hash the password and create the user
// - Authenticate: verify credentials without leaking which part failed
// - Update: change username, email, or password
// - Delete: remove the account (tokens go with it via cascade)
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *security.Hasher
}

// NewUserService constructs a UserService using repositories and a password hasher.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *security.Hasher) *UserService {
	return &UserService{db: db, repomanager: m, hasher: hasher}
}

// Register creates a new user with the given username, email, and password.
// A duplicate username yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Authenticate verifies the provided password against the stored hash.
// Both an unknown username and a wrong password yield common.ErrorUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// GetByUsername returns the user with the given username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	return repo.GetByUsername(ctx, username)
}

// Update applies the non-nil fields of upd to the user. A new password is
// hashed before storage; changing it invalidates the old credentials on the
// next login. A taken username yields common.ErrorAlreadyExists.
func (s *UserService) Update(ctx context.Context, userID string, upd models.UserUpdate) (*models.User, error) {
	patch := models.UserPatch{Username: upd.Username, Email: upd.Email}

	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, common.ErrorInternal
		}
		patch.PasswordHash = &hash
	}

	repo := s.repomanager.Users(s.db)
	return repo.Update(ctx, userID, patch)
}

// Delete removes the user by username. Owned tokens are removed by the
// database cascade. A missing user yields common.ErrorNotFound.
func (s *UserService) Delete(ctx context.Context, username string) error {
	repo := s.repomanager.Users(s.db)
	n, err := repo.DeleteByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

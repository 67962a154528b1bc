package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. A username collision yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Update applies the non-nil fields of patch. A miss yields
	// common.ErrorNotFound, a username collision common.ErrorAlreadyExists.
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	// DeleteByUsername removes the user and, through cascading foreign keys,
	// every token the user owns. It returns the affected-row count; 0 means
	// the user did not exist and is not an error.
	DeleteByUsername(ctx context.Context, username string) (int64, error)
}

package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Save stores the refresh token for userID, overwriting any existing
	// row in a single atomic statement. The user_id primary key is the
	// serialization point for concurrent rotations of the same user.
	Save(ctx context.Context, userID string, token string, validity time.Duration) error
	// FindByUserID returns the user's refresh-token row or
	// common.ErrorNotFound.
	FindByUserID(ctx context.Context, userID string) (*models.RefreshToken, error)
	// DeleteExpired removes every row with expires_at before now and returns
	// the affected-row count. Idempotent.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

package accesstokens

import (
	"context"
	"time"
)

type Repository interface {
	// Create persists an issued access token with an expiry of now+validity.
	// Multiple rows per user may coexist.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	// DeleteExpired removes every row with expires_at before now and returns
	// the affected-row count. Idempotent.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

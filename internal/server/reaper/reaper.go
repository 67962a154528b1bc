// Package reaper removes expired access and refresh tokens from the database
// on a fixed interval.
package reaper

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// Reaper sweeps expired token rows. Each sweep deletes from both token
// tables inside one transaction, so a partial sweep never becomes visible.
// Sweeps are idempotent; running two reapers concurrently is safe.
type Reaper struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	interval    time.Duration
	logger      logging.Logger
}

func New(db *sql.DB, m repomanager.RepositoryManager, interval time.Duration, logger logging.Logger) *Reaper {
	return &Reaper{db: db, repomanager: m, interval: interval, logger: logger}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	now := time.Now()

	var accessDeleted, refreshDeleted int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if accessDeleted, err = r.repomanager.AccessTokens(tx).DeleteExpired(ctx, now); err != nil {
			return err
		}
		refreshDeleted, err = r.repomanager.RefreshTokens(tx).DeleteExpired(ctx, now)
		return err
	})
	if err != nil {
		r.logger.Error(ctx, "expired token sweep failed", "error", err)
		return
	}

	if accessDeleted > 0 || refreshDeleted > 0 {
		r.logger.Info(ctx, "expired tokens removed",
			"access_tokens", accessDeleted, "refresh_tokens", refreshDeleted)
	} else {
		r.logger.Debug(ctx, "no expired tokens found")
	}
}

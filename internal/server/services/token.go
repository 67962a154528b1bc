package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// TokenResult is a minted access token together with its presentation
// metadata for the HTTP response.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
}

// TokenService mints and renews tokens:
// - IssueAccessToken: sign a JWT and persist its row
// - IssueRefreshToken: store an opaque refresh token, one live row per user
// - Renew: exchange a stored refresh token for a fresh access token
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// IssueAccessToken signs a JWT for the user and records it in the
// access_tokens table so the reaper can account for it later.
func (s *TokenService) IssueAccessToken(ctx context.Context, user *models.User) (*TokenResult, error) {
	token, err := auth.GenerateToken(user.Username, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.AccessTokens(s.db)
	if err := repo.Create(ctx, user.ID, token, s.accessTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.accessTokenValidityDuration.Seconds()),
	}, nil
}

// RefreshTokenResult is an issued refresh token with its lifetime in seconds.
type RefreshTokenResult struct {
	RefreshToken string
	ExpiresIn    int64
}

// IssueRefreshToken stores a new opaque refresh token for the user. The
// upsert in Save guarantees at most one live row per user, holding the value
// and expiry of the latest issuance.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID string) (*RefreshTokenResult, error) {
	token := auth.NewRefreshToken()

	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.Save(ctx, userID, token, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &RefreshTokenResult{
		RefreshToken: token,
		ExpiresIn:    int64(s.refreshTokenValidityDuration.Seconds()),
	}, nil
}

// Renew validates the presented refresh token against the user's stored row
// and, on success, mints a new access token. The refresh token itself is not
// rotated. An expired row yields common.ErrRefreshTokenExpired; absence or a
// value mismatch yields common.ErrorUnauthorized.
func (s *TokenService) Renew(ctx context.Context, user *models.User, refreshToken string) (*TokenResult, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	stored, err := repo.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if subtle.ConstantTimeCompare([]byte(stored.Token), []byte(refreshToken)) != 1 {
		return nil, common.ErrorUnauthorized
	}
	if stored.ExpiresAt.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	return s.IssueAccessToken(ctx, user)
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// TokensHandler handles token endpoints: login, refresh-token issuance, and
// access-token renewal.
type TokensHandler struct {
	users    *services.UserService
	tokens   *services.TokenService
	validate *validator.Validate
}

func NewTokensHandler(users *services.UserService, tokens *services.TokenService) *TokensHandler {
	return &TokensHandler{users: users, tokens: tokens, validate: validator.New()}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login handles POST /token: verifies credentials and mints an access token.
func (h *TokensHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		writeServiceErr(w, err)
		return
	}

	res, err := h.tokens.IssueAccessToken(r.Context(), user)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresIn:   res.ExpiresIn,
	})
}

// IssueRefreshToken handles POST /refresh_token: stores and returns a new
// opaque refresh token for the authenticated user, replacing any previous one.
func (h *TokensHandler) IssueRefreshToken(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res, err := h.tokens.IssueRefreshToken(r.Context(), user.ID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"refresh_token": res.RefreshToken,
		"expires_in":    res.ExpiresIn,
	})
}

// Refresh handles POST /refresh: exchanges the stored refresh token for a new
// access token. The refresh token stays valid until its own expiry.
func (h *TokensHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		RefreshToken string `json:"refresh_token" validate:"required,max=1024"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.tokens.Renew(r.Context(), user, body.RefreshToken)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresIn:   res.ExpiresIn,
	})
}

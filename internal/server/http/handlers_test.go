package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	accesstokensrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/accesstokens"
	refreshtokensrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/security"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// --- in-memory repositories ---

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == user.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	m.nextID++
	out := *user
	out.ID = "u" + strconv.Itoa(m.nextID)
	out.CreatedAt = time.Now()
	m.byID[out.ID] = &out
	copied := out
	return &copied, nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if patch.Username != nil {
		for otherID, other := range m.byID {
			if otherID != id && other.Username == *patch.Username {
				return nil, common.ErrorAlreadyExists
			}
		}
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.byID {
		if u.Username == username {
			delete(m.byID, id)
			return 1, nil
		}
	}
	return 0, nil
}

type memAccess struct {
	mu   sync.Mutex
	rows []models.AccessToken
}

func (m *memAccess) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, models.AccessToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(validity),
	})
	return nil
}

func (m *memAccess) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.AccessToken
	var deleted int64
	for _, row := range m.rows {
		if row.ExpiresAt.Before(now) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return deleted, nil
}

type memRefresh struct {
	mu     sync.Mutex
	byUser map[string]*models.RefreshToken
}

func newMemRefresh() *memRefresh {
	return &memRefresh{byUser: map[string]*models.RefreshToken{}}
}

func (m *memRefresh) Save(ctx context.Context, userID string, token string, validity time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[userID] = &models.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(validity),
	}
	return nil
}

func (m *memRefresh) FindByUserID(ctx context.Context, userID string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.byUser[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *memRefresh) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, row := range m.byUser {
		if row.ExpiresAt.Before(now) {
			delete(m.byUser, id)
			deleted++
		}
	}
	return deleted, nil
}

type memManager struct {
	users   *memUsers
	access  *memAccess
	refresh *memRefresh
}

func newMemManager() *memManager {
	return &memManager{users: newMemUsers(), access: &memAccess{}, refresh: newMemRefresh()}
}

func (m *memManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memManager) Users(db dbx.DBTX) usersrepo.Repository { return m.users }
func (m *memManager) AccessTokens(db dbx.DBTX) accesstokensrepo.Repository {
	return m.access
}
func (m *memManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.refresh
}

// --- test server ---

func testHasher() *security.Hasher {
	return security.NewHasher(security.Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

func newTestServer(t *testing.T) (*httptest.Server, *memManager) {
	t.Helper()

	rm := newMemManager()
	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	userSvc := services.NewUserService(nil, rm, testHasher())
	tokenSvc := services.NewTokenService(nil, rm, cfg)

	router := NewRouter(RouterConfig{
		UsersHandler:  NewUsersHandler(userSvc),
		TokensHandler: NewTokensHandler(userSvc, tokenSvc),
		HealthHandler: NewHealthHandler(nil),
		RequireAuth:   RequireAuth(userSvc, []byte(cfg.SecretKey)),
		Logger:        logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, rm
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var parsed map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func register(t *testing.T, srv *httptest.Server, username, email, password string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/users", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %q: status %d body %v", username, resp.StatusCode, body)
	}
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/token", "", map[string]string{
		"username": username, "password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %q: status %d body %v", username, resp.StatusCode, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("login %q: no access_token in %v", username, body)
	}
	return token
}

// --- tests ---

func TestRegister_ValidationAndConflict(t *testing.T) {
	srv, _ := newTestServer(t)

	register(t, srv, "alice", "a@x.com", "password1")

	// duplicate username
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/users", "", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "password1",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", resp.StatusCode)
	}

	// password too short
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/users", "", map[string]string{
		"username": "bob", "email": "b@x.com", "password": "short",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short password: status %d, want 400", resp.StatusCode)
	}

	// broken JSON
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/users", bytes.NewBufferString("{not json"))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("broken json: status %d, want 400", resp2.StatusCode)
	}
}

func TestLogin_WrongCredentialsAreIndistinguishable(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")

	respWrongPw, bodyWrongPw := doJSON(t, http.MethodPost, srv.URL+"/token", "", map[string]string{
		"username": "alice", "password": "wrong-password",
	})
	respNoUser, bodyNoUser := doJSON(t, http.MethodPost, srv.URL+"/token", "", map[string]string{
		"username": "ghost", "password": "wrong-password",
	})

	if respWrongPw.StatusCode != http.StatusUnauthorized || respNoUser.StatusCode != http.StatusUnauthorized {
		t.Fatalf("statuses %d/%d, want 401/401", respWrongPw.StatusCode, respNoUser.StatusCode)
	}
	if bodyWrongPw["error"] != bodyNoUser["error"] {
		t.Fatalf("error bodies differ: %v vs %v", bodyWrongPw, bodyNoUser)
	}
}

func TestLogin_ReturnsBearerToken(t *testing.T) {
	srv, rm := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/token", "", map[string]string{
		"username": "alice", "password": "password1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d body %v", resp.StatusCode, body)
	}
	if body["token_type"] != "bearer" {
		t.Fatalf("token_type = %v, want bearer", body["token_type"])
	}
	if body["expires_in"].(float64) != 3600 {
		t.Fatalf("expires_in = %v, want 3600", body["expires_in"])
	}
	if len(rm.access.rows) != 1 {
		t.Fatalf("access token row not persisted, rows=%d", len(rm.access.rows))
	}
}

func TestMe_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/users/me", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", resp.StatusCode)
	}

	token := login(t, srv, "alice", "password1")
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/users/me", token, nil)
	if resp.StatusCode != http.StatusOK || body["username"] != "alice" {
		t.Fatalf("me: status %d body %v", resp.StatusCode, body)
	}
	if _, ok := body["password_hash"]; ok {
		t.Fatalf("profile leaks password hash: %v", body)
	}
}

func TestUpdate_PasswordChangeInvalidatesOldLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")
	token := login(t, srv, "alice", "password1")

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/users", token, map[string]string{
		"password": "password2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d body %v", resp.StatusCode, body)
	}

	// the already-issued access token stays valid until natural expiry
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/users/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me with pre-change token: status %d body %v", resp.StatusCode, body)
	}

	// old password no longer works
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/token", "", map[string]string{
		"username": "alice", "password": "password1",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password: status %d, want 401", resp.StatusCode)
	}

	// new password does
	login(t, srv, "alice", "password2")
}

func TestUpdate_EmailOnly(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")
	token := login(t, srv, "alice", "password1")

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/users", token, map[string]string{
		"email": "new@x.com",
	})
	if resp.StatusCode != http.StatusOK || body["email"] != "new@x.com" {
		t.Fatalf("update email: status %d body %v", resp.StatusCode, body)
	}

	// old password still works after a profile-only update
	login(t, srv, "alice", "password1")
}

func TestUpdate_DuplicateUsername(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")
	register(t, srv, "bob", "b@x.com", "password1")
	token := login(t, srv, "bob", "password1")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/users", token, map[string]string{
		"username": "alice",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("rename to taken username: status %d, want 409", resp.StatusCode)
	}
}

func TestDelete_AccountAndTokensGone(t *testing.T) {
	srv, rm := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")
	token := login(t, srv, "alice", "password1")

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/users", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d, want 204", resp.StatusCode)
	}

	// the bearer token no longer resolves to a user
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/users/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after delete: status %d, want 401", resp.StatusCode)
	}

	if len(rm.users.byID) != 0 {
		t.Fatalf("user row survived deletion")
	}
}

func TestRefreshTokenFlow(t *testing.T) {
	srv, rm := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")
	token := login(t, srv, "alice", "password1")

	// issue a refresh token
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/refresh_token", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("issue refresh: status %d body %v", resp.StatusCode, body)
	}
	first, _ := body["refresh_token"].(string)
	if first == "" {
		t.Fatalf("no refresh_token in %v", body)
	}

	// issuing again replaces the stored value
	_, body = doJSON(t, http.MethodPost, srv.URL+"/refresh_token", token, nil)
	second, _ := body["refresh_token"].(string)
	if second == "" || second == first {
		t.Fatalf("second issuance did not produce a fresh token: %q vs %q", first, second)
	}
	if len(rm.refresh.byUser) != 1 {
		t.Fatalf("more than one refresh row per user: %d", len(rm.refresh.byUser))
	}

	// the superseded value no longer renews
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/refresh", token, map[string]string{
		"refresh_token": first,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("stale refresh token: status %d, want 401", resp.StatusCode)
	}

	// the current value does
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/refresh", token, map[string]string{
		"refresh_token": second,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status %d body %v", resp.StatusCode, body)
	}
	if body["access_token"] == "" || body["token_type"] != "bearer" {
		t.Fatalf("unexpected refresh response: %v", body)
	}
}

func TestRefresh_WithoutStoredToken(t *testing.T) {
	srv, _ := newTestServer(t)
	register(t, srv, "alice", "a@x.com", "password1")
	token := login(t, srv, "alice", "password1")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/refresh", token, map[string]string{
		"refresh_token": "never-issued",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh without issuance: status %d, want 401", resp.StatusCode)
	}
}

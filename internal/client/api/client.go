// Package api is a thin HTTP client for the auth server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// User is the profile shape returned by the server.
type User struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// Token is the access-token shape returned by /token and /refresh.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Client talks to the auth server. It remembers the access token from the
// last successful Login or Refresh and sends it on authenticated calls.
type Client struct {
	baseURL     string
	http        *http.Client
	accessToken string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// LoggedIn reports whether the client holds an access token.
func (c *Client) LoggedIn() bool {
	return c.accessToken != ""
}

// Logout drops the stored access token.
func (c *Client) Logout() {
	c.accessToken = ""
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized {
			return common.ErrorUnauthorized
		}
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("server: %s", e.Error)
		}
		return fmt.Errorf("server: status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Register creates a new account. The password is wiped by the caller.
func (c *Client) Register(ctx context.Context, username, email string, password []byte) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/users", map[string]string{
		"username": username,
		"email":    email,
		"password": string(password),
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token and stores it.
func (c *Client) Login(ctx context.Context, username string, password []byte) error {
	var token Token
	err := c.do(ctx, http.MethodPost, "/token", map[string]string{
		"username": username,
		"password": string(password),
	}, &token)
	if err != nil {
		return err
	}
	c.accessToken = token.AccessToken
	return nil
}

// Me returns the profile of the logged-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// IssueRefreshToken asks the server for a refresh token, replacing any
// previously issued one.
func (c *Client) IssueRefreshToken(ctx context.Context) (string, error) {
	var out struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/refresh_token", nil, &out); err != nil {
		return "", err
	}
	return out.RefreshToken, nil
}

// Refresh exchanges a refresh token for a new access token and stores it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) error {
	var token Token
	err := c.do(ctx, http.MethodPost, "/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, &token)
	if err != nil {
		return err
	}
	c.accessToken = token.AccessToken
	return nil
}

// DeleteAccount removes the logged-in user's account and drops the token.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/users", nil, nil); err != nil {
		return err
	}
	c.accessToken = ""
	return nil
}

// Package http is the REST boundary of the auth server: a chi router with
// bearer-token middleware in front of the user and token services.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// UsersHandler handles account endpoints: registration, profile, update,
// and deletion.
type UsersHandler struct {
	users    *services.UserService
	validate *validator.Validate
}

func NewUsersHandler(users *services.UserService) *UsersHandler {
	return &UsersHandler{users: users, validate: validator.New()}
}

// userResponse is the JSON shape of a user profile (no password material).
type userResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// Register handles POST /users.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username" validate:"required,min=3,max=64"`
		Email    string `json:"email" validate:"required,email,max=254"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Update handles PUT /users. Only fields present in the body change; a new
// password takes effect on the next login.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Username *string `json:"username" validate:"omitempty,min=3,max=64"`
		Email    *string `json:"email" validate:"omitempty,email,max=254"`
		Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Username == nil && body.Email == nil && body.Password == nil {
		writeErr(w, http.StatusBadRequest, "nothing to update")
		return
	}

	updated, err := h.users.Update(r.Context(), user.ID, models.UserUpdate{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// Delete handles DELETE /users. Owned tokens disappear with the account.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.users.Delete(r.Context(), user.Username); err != nil {
		writeServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

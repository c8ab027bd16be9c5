package http

import (
	"encoding/json"
	"net/http"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/pkg/httpx"
)

// internalUserResponse is the DTO served to sibling services. It never
// includes the password hash.
type internalUserResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Enabled   bool     `json:"enabled"`
	Roles     []string `json:"roles"`
}

func newInternalUserResponse(u domain.User) internalUserResponse {
	return internalUserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Enabled:   u.Enabled,
		Roles:     u.Roles,
	}
}

// InternalGetUser serves a user lookup by id to API-key callers.
//
//	@Summary		Look up a user by id (internal)
//	@Tags			internal
//	@Produce		json
//	@Param			id	path		string	true	"User id"
//	@Success		200	{object}	internalUserResponse
//	@Failure		404	{object}	httpx.APIError
//	@Security		APIKeyAuth
//	@Router			/v1/internal/users/{id} [get]
func (h *Handlers) InternalGetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.auth.GetUser(r.Context(), id)
	if err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newInternalUserResponse(user))
}

// InternalGetUserByUsername serves a user lookup by username.
//
//	@Summary		Look up a user by username (internal)
//	@Tags			internal
//	@Produce		json
//	@Param			username	query		string	true	"Username"
//	@Success		200			{object}	internalUserResponse
//	@Failure		404			{object}	httpx.APIError
//	@Security		APIKeyAuth
//	@Router			/v1/internal/users/by-username [get]
func (h *Handlers) InternalGetUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.auth.GetUserByUsername(r.Context(), username)
	if err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newInternalUserResponse(user))
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// InternalSetUserEnabled flips a user's enabled flag. Disabling also
// revokes the user's refresh tokens.
//
//	@Summary		Enable or disable a user (internal)
//	@Tags			internal
//	@Accept			json
//	@Param			id		path	string				true	"User id"
//	@Param			request	body	setEnabledRequest	true	"Desired state"
//	@Success		204
//	@Failure		404	{object}	httpx.APIError
//	@Security		APIKeyAuth
//	@Router			/v1/internal/users/{id}/enabled [put]
func (h *Handlers) InternalSetUserEnabled(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.auth.SetUserEnabled(r.Context(), id, req.Enabled); err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/edustack/auth/pkg/httpx"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ChangePassword swaps the caller's password.
//
//	@Summary		Change password
//	@Description	Verifies the current password, stores the new one and revokes every refresh token.
//	@Tags			password
//	@Accept			json
//	@Param			request	body	changePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		401	{object}	httpx.APIError
//	@Security		BearerAuth
//	@Router			/v1/auth/password/change [post]
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok || !principal.IsEndUser() {
		httpx.ErrForbidden.WriteError(w)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword starts the reset flow.
//
//	@Summary		Request a password reset
//	@Description	Sends a reset token to the address when an account exists. Responds 202 either way.
//	@Tags			password
//	@Accept			json
//	@Param			request	body	forgotPasswordRequest	true	"Account email"
//	@Success		202
//	@Failure		400	{object}	httpx.APIError
//	@Router			/v1/auth/password/forgot [post]
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ResetPassword completes the reset flow.
//
//	@Summary		Reset password
//	@Description	Consumes a single-use reset token, stores the new password and revokes every refresh token.
//	@Tags			password
//	@Accept			json
//	@Param			request	body	resetPasswordRequest	true	"Reset token and new password"
//	@Success		204
//	@Failure		401	{object}	httpx.APIError
//	@Router			/v1/auth/password/reset [post]
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/internal/auth/service"
	"github.com/edustack/auth/pkg/httpx"
)

// Handlers bundles the HTTP endpoints with their dependencies.
type Handlers struct {
	auth *service.AuthService
}

func NewHandlers(auth *service.AuthService) *Handlers {
	return &Handlers{auth: auth}
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
}

func newTokenResponse(res service.AuthResult) tokenResponse {
	return tokenResponse{
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
		TokenType:    res.Pair.TokenType,
		ExpiresIn:    res.Pair.ExpiresIn,
		UserID:       res.UserID,
		Username:     res.Username,
		Email:        res.Email,
	}
}

// Register handles new account creation.
//
//	@Summary		Register a new account
//	@Description	Creates an enabled account with the default role and returns a token pair.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"Registration details"
//	@Success		201		{object}	tokenResponse
//	@Failure		400		{object}	httpx.APIError
//	@Failure		409		{object}	httpx.APIError
//	@Router			/v1/auth/register [post]
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.auth.Register(r.Context(), service.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, deviceContext(r))
	if err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newTokenResponse(res))
}

// Login exchanges credentials for a token pair.
//
//	@Summary		Log in
//	@Description	Verifies a username-or-email plus password pair and returns a token pair.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	tokenResponse
//	@Failure		401		{object}	httpx.APIError
//	@Failure		403		{object}	httpx.APIError
//	@Router			/v1/auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Identifier, req.Password, deviceContext(r))
	if err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(res))
}

// Refresh rotates a refresh token.
//
//	@Summary		Refresh the session
//	@Description	Rotates the presented refresh token and returns a new token pair. The old token is revoked; reusing it fails.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest	true	"Refresh token"
//	@Success		200		{object}	tokenResponse
//	@Failure		401		{object}	httpx.APIError
//	@Router			/v1/auth/refresh [post]
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.auth.Refresh(r.Context(), req.RefreshToken, deviceContext(r))
	if err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(res))
}

// Logout revokes a single refresh token.
//
//	@Summary		Log out
//	@Description	Revokes the presented refresh token. The access token stays valid until it expires.
//	@Tags			auth
//	@Accept			json
//	@Param			request	body	refreshRequest	true	"Refresh token"
//	@Success		204
//	@Failure		401	{object}	httpx.APIError
//	@Router			/v1/auth/logout [post]
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		serviceError(r.Context(), err).WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func deviceContext(r *http.Request) domain.DeviceContext {
	return domain.DeviceContext{
		UserAgent: r.UserAgent(),
		IPAddress: httpx.IPKeyExtractor(r),
	}
}

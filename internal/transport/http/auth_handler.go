// Copyright 2026 The AuthGrid Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/authgrid/authgrid/internal/fault"
	"github.com/authgrid/authgrid/internal/identity"
)

// decode unmarshals the request body into dst and runs struct validation.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fault.BadRequest("invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return fault.BadRequest(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// authPayload carries a user view plus its freshly issued token pair.
type authPayload struct {
	User         UserView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

func (h *Handler) authPayloadFor(r *http.Request, user *identity.User) (*authPayload, error) {
	pair, err := h.tokenService.IssuePair(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	h.metrics.TokenIssued(r.Context())

	view, err := h.userView(r.Context(), user)
	if err != nil {
		return nil, err
	}
	return &authPayload{
		User:         view,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// RegisterRequest represents self-service registration data
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
}

// Register handles user self-registration
// @Summary Register a new user
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	user, err := h.identityService.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		respondFault(w, err)
		return
	}

	payload, err := h.authPayloadFor(r, user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusCreated, "User registered successfully", payload)
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles credential verification and token issuance
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondFault(w, err)
		return
	}

	payload, err := h.authPayloadFor(r, user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Login successful", payload)
}

// RefreshTokenRequest carries the refresh token to exchange
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// RefreshToken exchanges a valid refresh token for a new pair. The claim
// snapshot is rebuilt from the live authorization graph, so grants revoked
// since the last issuance disappear here.
// @Summary Refresh token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "Refresh Token"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/refresh-token [post]
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	pair, err := h.tokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondFault(w, err)
		return
	}
	h.metrics.TokenIssued(r.Context())
	respondData(w, http.StatusOK, "Token refreshed successfully", pair)
}

// GetProfile returns the authenticated user's own record
// @Summary Get own profile
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.identityService.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.userView(r.Context(), user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Profile retrieved successfully", view)
}

// UpdateProfileRequest is a partial profile update
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
}

// UpdateProfile applies a partial update to the caller's own profile
// @Summary Update own profile
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} map[string]any
// @Router /api/v1/auth/profile [patch]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	user, err := h.identityService.UpdateUser(r.Context(), UserIDFromContext(r.Context()), identity.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.userView(r.Context(), user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Profile updated successfully", view)
}

// ChangePasswordRequest carries the current and replacement passwords
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// ChangePassword rotates the caller's password after re-verifying the
// current one
// @Summary Change own password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	if err := h.identityService.ChangePassword(r.Context(), UserIDFromContext(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Password changed successfully", nil)
}

// Logout acknowledges the logout. Tokens are stateless and stay valid until
// expiry; the client is expected to discard them.
// @Summary Logout
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, "Logout successful. Please remove token from client.", nil)
}

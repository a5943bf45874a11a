package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lockerroom/lockerroom-core/internal/auth"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the response body for successful register and login.
type tokenResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresIn int        `json:"expires_in"`
	User      *auth.User `json:"user,omitempty"`
}

// handleRegister creates a new user account and returns a signed token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "a valid email is required")
		return
	}
	if !auth.IsValidNickname(req.Nickname) {
		writeBadRequest(w, "a nickname of at most 64 characters is required")
		return
	}

	hash, err := auth.HashPassword(req.Password, s.secCfg.BcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyPassword) {
			writeBadRequest(w, "password is required")
			return
		}
		s.logger.Error("password hashing failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		Nickname:     req.Nickname,
		PasswordHash: hash,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("user creation failed", "error", err)
		writeInternalError(w, "failed to create account")
		return
	}

	s.writeToken(w, http.StatusCreated, user)
}

// handleLogin authenticates a user by email and password.
//
// An unknown email and a wrong password are reported distinctly: 404 for
// an account that does not exist, 403 for a bad password on one that does.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("user lookup failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("password verification failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}
	if !match {
		writeForbidden(w, "invalid credentials")
		return
	}

	s.writeToken(w, http.StatusOK, user)
}

// writeToken signs a token for the user and writes the token response.
func (s *Server) writeToken(w http.ResponseWriter, status int, user *auth.User) {
	ttl := time.Duration(s.secCfg.JWT.TokenTTLHours) * time.Hour
	token, err := auth.GenerateToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, status, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(ttl.Seconds()),
		User:      user,
	})
}

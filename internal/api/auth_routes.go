package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stocktrack/backend/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	User      struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, session, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			fmt.Printf("[API] Register error: %v\n", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	resp := sessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt.Format(time.RFC3339)}
	resp.User.ID = user.ID
	resp.User.Email = user.Email
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, session, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		fmt.Printf("[API] Login error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	resp := sessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt.Format(time.RFC3339)}
	resp.User.ID = user.ID
	resp.User.Email = user.Email
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if err := s.deps.Auth.Logout(r.Context(), token); err != nil {
		fmt.Printf("[API] Logout error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"garage/internal/auth"
	"garage/internal/core"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, core.ErrNotFound) {
		// Same response as a wrong password; callers learn nothing
		// about which accounts exist.
		writeErrorMessage(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !auth.CheckPassword(user.HashedPassword, req.Password) {
		writeErrorMessage(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, expiresAt, err := s.tokens.Issue(user.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	username, _ := r.Context().Value(usernameKey).(string)

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"tally/internal/auth"
	applog "tally/internal/log"
	"tally/internal/storage"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		respondError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			respondError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
			return
		}
		slog.ErrorContext(r.Context(), "Password hashing failed", applog.FieldError, err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	id, err := s.repo.CreateUser(r.Context(), name, email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		slog.ErrorContext(r.Context(), "User creation failed", applog.FieldError, err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "email": email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user, err := s.repo.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "User lookup failed", applog.FieldError, err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := s.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Session issue failed", applog.FieldError, err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]any{"name": user.Name})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ string) {
	cookie, err := r.Cookie(sessionCookie)
	if err == nil && cookie.Value != "" {
		if err := s.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "Session revoke failed", applog.FieldError, err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

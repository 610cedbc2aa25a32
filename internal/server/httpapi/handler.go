package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/penlight/penlight/internal/common"
)

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), "response encode error", "error", err.Error())
	}
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {

	s.logger.Info(r.Context(), "Registration request")

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		http.Error(w, "email, name and password are required", http.StatusBadRequest)
		return
	}

	user, err := s.users.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorEmailTaken) {
			http.Error(w, common.ErrorEmailTaken.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.logger.Info(r.Context(), "Registered", "email", user.Email)
	s.writeJSON(w, http.StatusCreated, user.Principal())
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		s.unauthorized(w)
		return
	}

	accessCookie, err := s.sessions.AccessCookie(user.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	rawRefresh, refreshCookie, err := s.sessions.RefreshCookie(user.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.sessions.Rotate(r.Context(), user.ID, rawRefresh); err != nil {
		s.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, accessCookie)
	http.SetCookie(w, refreshCookie)

	s.logger.Info(r.Context(), "Logged in", "email", user.Email)
	w.WriteHeader(http.StatusOK)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		s.unauthorized(w)
		return
	}

	if err := s.sessions.Revoke(r.Context(), user.ID); err != nil {
		s.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	for _, c := range s.sessions.LogoutCookies() {
		http.SetCookie(w, c)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *HTTPServer) handleWhoAmI(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		s.unauthorized(w)
		return
	}

	s.writeJSON(w, http.StatusOK, user.Principal())
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		s.unauthorized(w)
		return
	}

	accessCookie, err := s.sessions.AccessCookie(user.ID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, accessCookie)
	s.writeJSON(w, http.StatusOK, user.Principal())
}

func (s *HTTPServer) handleCreateAvatar(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		s.unauthorized(w)
		return
	}

	key, uploadURL, err := s.avatars.CreateUploadURL(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if _, err := s.avatars.SetAvatar(r.Context(), user, key); err != nil {
		s.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"key":       key,
		"uploadUrl": uploadURL,
	})
}

func (s *HTTPServer) handleGetAvatar(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		s.unauthorized(w)
		return
	}

	url, err := s.avatars.AvatarURL(r.Context(), user)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *HTTPServer) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {

	user, ok := userFromContext(r.Context())
	if !ok {
		s.unauthorized(w)
		return
	}

	if err := s.avatars.DeleteAvatar(r.Context(), user); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.logger.Error(r.Context(), err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

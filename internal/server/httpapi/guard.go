package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/penlight/penlight/internal/common"
	"github.com/penlight/penlight/internal/server/auth"
	"github.com/penlight/penlight/internal/server/models"
)

type ctxKey string

const userKey ctxKey = "user"

// userFromContext returns the user resolved by a guard for this request.
func userFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, u))
}

// requireLocal authenticates the email/password pair carried in the request
// body and attaches the matching user. Used only by the login route.
func (s *HTTPServer) requireLocal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			s.logger.Info(r.Context(), "login rejected", "email", req.Email)
			s.unauthorized(w)
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

// requireAccess validates the Authentication cookie and attaches the user
// behind its subject. Any missing, malformed, expired, or wrong-class token
// is rejected with 401.
func (s *HTTPServer) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		user, ok := s.userFromTokenCookie(w, r, common.AccessTokenCookieName, auth.TokenClassAccess)
		if !ok {
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

// requireRefresh validates the Refresh cookie and additionally matches the
// raw token against the fingerprint stored on the user row, so a revoked or
// superseded token fails even while its signature is still valid.
func (s *HTTPServer) requireRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		user, ok := s.userFromTokenCookie(w, r, common.RefreshTokenCookieName, auth.TokenClassRefresh)
		if !ok {
			return
		}

		cookie, _ := r.Cookie(common.RefreshTokenCookieName)
		if !s.sessions.RefreshTokenMatches(user, cookie.Value) {
			s.unauthorized(w)
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

func (s *HTTPServer) userFromTokenCookie(w http.ResponseWriter, r *http.Request, name string, class auth.TokenClass) (*models.User, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		s.unauthorized(w)
		return nil, false
	}

	userID, err := s.sessions.VerifyToken(cookie.Value, class)
	if err != nil {
		s.unauthorized(w)
		return nil, false
	}

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		s.unauthorized(w)
		return nil, false
	}

	return user, true
}

func (s *HTTPServer) unauthorized(w http.ResponseWriter) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

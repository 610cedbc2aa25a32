package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/penlight/penlight/internal/common"
	"github.com/penlight/penlight/internal/server/auth"
	"github.com/penlight/penlight/internal/server/config"
	"github.com/penlight/penlight/internal/server/models"
	"github.com/penlight/penlight/internal/server/repositories/repomanager"
)

// SessionService mints the cookie-borne token pair and manages the stored
// refresh-token fingerprint that backs session revocation. At most one
// refresh session exists per user: logging in replaces the previous
// fingerprint, logging out clears it.
type SessionService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	codec        *auth.Codec
	cookieDomain string
	cookieSecure bool
}

// NewSessionService constructs a SessionService using repositories and
// server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:           db,
		repomanager:  m,
		codec:        auth.NewCodec(cfg),
		cookieDomain: cfg.CookieDomain,
		cookieSecure: cfg.CookieSecure,
	}
}

// AccessCookie mints a fresh access token for the user and wraps it in the
// Authentication cookie.
func (s *SessionService) AccessCookie(userID string) (*http.Cookie, error) {
	token, err := s.codec.Issue(userID, auth.TokenClassAccess)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return s.newCookie(common.AccessTokenCookieName, token, auth.TokenClassAccess), nil
}

// RefreshCookie mints a fresh refresh token for the user and wraps it in the
// Refresh cookie. The raw token is returned alongside so the caller can
// store its fingerprint via Rotate.
func (s *SessionService) RefreshCookie(userID string) (string, *http.Cookie, error) {
	token, err := s.codec.Issue(userID, auth.TokenClassRefresh)
	if err != nil {
		return "", nil, common.ErrorInternal
	}
	return token, s.newCookie(common.RefreshTokenCookieName, token, auth.TokenClassRefresh), nil
}

// Rotate records the fingerprint of the given raw refresh token as the
// user's single active session, invalidating any previously stored one.
func (s *SessionService) Rotate(ctx context.Context, userID string, rawToken string) error {
	fp := auth.Fingerprint(rawToken)
	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateRefreshTokenHash(ctx, userID, &fp); err != nil {
		return fmt.Errorf("error storing refresh token: %v", err)
	}
	return nil
}

// Revoke clears the stored fingerprint so no refresh token verifies against
// the account anymore. Revoking an account with no active session is a no-op.
func (s *SessionService) Revoke(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		return fmt.Errorf("error clearing refresh token: %v", err)
	}
	return nil
}

// RefreshTokenMatches reports whether the raw refresh token matches the
// user's stored fingerprint. A user with no stored fingerprint matches
// nothing.
func (s *SessionService) RefreshTokenMatches(user *models.User, rawToken string) bool {
	if user.RefreshTokenHash == nil {
		return false
	}
	return auth.FingerprintMatches(*user.RefreshTokenHash, rawToken)
}

// VerifyToken checks the signature, expiry, and class of a raw token and
// returns the subject user id.
func (s *SessionService) VerifyToken(rawToken string, class auth.TokenClass) (string, error) {
	return s.codec.Verify(rawToken, class)
}

// LogoutCookies returns expired replacements for both auth cookies,
// instructing the browser to drop them.
func (s *SessionService) LogoutCookies() []*http.Cookie {
	return []*http.Cookie{
		s.expiredCookie(common.AccessTokenCookieName),
		s.expiredCookie(common.RefreshTokenCookieName),
	}
}

func (s *SessionService) newCookie(name, value string, class auth.TokenClass) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   int(s.codec.Validity(class).Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *SessionService) expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Package httpapi exposes the authentication core over HTTP: registration,
// cookie-based login/logout, token refresh, and avatar management. Routes
// are guarded by per-request strategies (local credentials, access token,
// refresh token) that resolve the requesting user into the context.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/penlight/penlight/internal/logging"
	"github.com/penlight/penlight/internal/server/services"
)

type HTTPServer struct {
	address  string
	logger   logging.Logger
	users    *services.UserService
	sessions *services.SessionService
	avatars  *services.AvatarService
}

func NewHTTPServer(a string, l logging.Logger, us *services.UserService, ss *services.SessionService, as *services.AvatarService) (*HTTPServer, error) {
	return &HTTPServer{
		address:  a,
		logger:   l.With("module", "http_server"),
		users:    us,
		sessions: ss,
		avatars:  as,
	}, nil
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /authentication/register", s.handleRegister)
	mux.Handle("POST /authentication/login", s.requireLocal(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /authentication/logout", s.requireAccess(http.HandlerFunc(s.handleLogout)))
	mux.Handle("GET /authentication", s.requireAccess(http.HandlerFunc(s.handleWhoAmI)))
	mux.Handle("GET /authentication/refresh", s.requireRefresh(http.HandlerFunc(s.handleRefresh)))

	mux.Handle("POST /users/avatar", s.requireAccess(http.HandlerFunc(s.handleCreateAvatar)))
	mux.Handle("GET /users/avatar", s.requireAccess(http.HandlerFunc(s.handleGetAvatar)))
	mux.Handle("DELETE /users/avatar", s.requireAccess(http.HandlerFunc(s.handleDeleteAvatar)))

	mux.HandleFunc("GET /ping", s.handlePing)

	return mux
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

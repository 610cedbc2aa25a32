package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/penlight/penlight/internal/common"
	"github.com/penlight/penlight/internal/dbx"
	"github.com/penlight/penlight/internal/logging"
	"github.com/penlight/penlight/internal/server/config"
	"github.com/penlight/penlight/internal/server/models"
	filesrepo "github.com/penlight/penlight/internal/server/repositories/files"
	usersrepo "github.com/penlight/penlight/internal/server/repositories/users"
	"github.com/penlight/penlight/internal/server/services"
)

// ---- test logger ----

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// ---- in-memory repositories ----

type memUsersRepo struct {
	mu   sync.Mutex
	byID map[string]*models.User
	seq  int
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{byID: map[string]*models.User{}}
}

func (m *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("u%d", m.seq)
	u.CreatedAt = time.Now()
	stored := *u
	m.byID[u.ID] = &stored
	return u, nil
}

func (m *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsersRepo) UpdateRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.RefreshTokenHash = hash
	}
	return nil
}

func (m *memUsersRepo) UpdateAvatarID(ctx context.Context, id string, avatarID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.AvatarID = avatarID
	}
	return nil
}

type memFilesRepo struct {
	mu   sync.Mutex
	byID map[string]*models.PublicFile
	seq  int
}

func newMemFilesRepo() *memFilesRepo {
	return &memFilesRepo{byID: map[string]*models.PublicFile{}}
}

func (m *memFilesRepo) Create(ctx context.Context, f *models.PublicFile) (*models.PublicFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	f.ID = fmt.Sprintf("f%d", m.seq)
	stored := *f
	m.byID[f.ID] = &stored
	return f, nil
}

func (m *memFilesRepo) GetByID(ctx context.Context, id string) (*models.PublicFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFilesRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type memRepoManager struct {
	u *memUsersRepo
	f *memFilesRepo
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *memRepoManager) Files(db dbx.DBTX) filesrepo.Repository       { return m.f }

// ---- server under test ----

type testEnv struct {
	srv   *httptest.Server
	users *memUsersRepo
	cfg   *config.Config
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rm := &memRepoManager{u: newMemUsersRepo(), f: newMemFilesRepo()}

	us := services.NewUserService(db, rm, cfg)
	ss := services.NewSessionService(db, rm, cfg)
	as := services.NewAvatarService(db, rm, cfg)

	hs, err := NewHTTPServer(":0", nopLogger{}, us, ss, as)
	if err != nil {
		t.Fatalf("NewHTTPServer error: %v", err)
	}

	srv := httptest.NewServer(hs.routes())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, users: rm.u, cfg: cfg}
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "ak",
		RefreshTokenSecret:           "rk",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		PasswordHashCost:             4,
	}
}

func (e *testEnv) post(t *testing.T, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	return e.do(t, http.MethodPost, path, body, cookies...)
}

func (e *testEnv) get(t *testing.T, path string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	return e.do(t, http.MethodGet, path, "", cookies...)
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ---- tests ----

func TestRegister(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	resp := e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var p models.Principal
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if p.Email != "a@b.com" || p.ID == "" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	// password hashes never leave the server
	stored, _ := e.users.GetByEmail(context.Background(), "a@b.com")
	if stored.PasswordHash == "" || stored.PasswordHash == "Secur3!" {
		t.Fatalf("password not hashed: %+v", stored)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	body := `{"email":"a@b.com","name":"Alice","password":"Secur3!"}`
	if resp := e.post(t, "/authentication/register", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register failed: %d", resp.StatusCode)
	}
	resp := e.post(t, "/authentication/register", body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	resp := e.post(t, "/authentication/register", `{"email":"a@b.com"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLogin_SetsBothCookies(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)

	resp := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	access := cookieByName(resp, common.AccessTokenCookieName)
	refresh := cookieByName(resp, common.RefreshTokenCookieName)
	if access == nil || refresh == nil {
		t.Fatalf("both cookies expected, got %v", resp.Cookies())
	}
	if !access.HttpOnly || access.Path != "/" {
		t.Errorf("access cookie must be HttpOnly with Path=/: %+v", access)
	}
	if access.MaxAge != int(time.Hour.Seconds()) {
		t.Errorf("unexpected access Max-Age: %d", access.MaxAge)
	}
	if refresh.MaxAge != int((2 * time.Hour).Seconds()) {
		t.Errorf("unexpected refresh Max-Age: %d", refresh.MaxAge)
	}

	// login stores the refresh fingerprint
	u, _ := e.users.GetByEmail(context.Background(), "a@b.com")
	if u.RefreshTokenHash == nil {
		t.Fatal("refresh fingerprint not stored")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)

	resp := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"wrong"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if len(resp.Cookies()) != 0 {
		t.Fatalf("no cookies expected, got %v", resp.Cookies())
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	resp := e.post(t, "/authentication/login", `{"email":"nobody@b.com","password":"x"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWhoAmI(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	login := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	access := cookieByName(login, common.AccessTokenCookieName)

	resp := e.get(t, "/authentication", access)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var p models.Principal
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if p.Email != "a@b.com" || p.Name != "Alice" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	raw, _ := json.Marshal(p)
	if strings.Contains(string(raw), "hash") {
		t.Fatalf("principal leaks secrets: %s", raw)
	}
}

func TestWhoAmI_NoCookie(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	resp := e.get(t, "/authentication")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRefresh_ReissuesAccessOnly(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	login := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	refresh := cookieByName(login, common.RefreshTokenCookieName)

	resp := e.get(t, "/authentication/refresh", refresh)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cookieByName(resp, common.AccessTokenCookieName) == nil {
		t.Fatal("new access cookie expected")
	}
	if cookieByName(resp, common.RefreshTokenCookieName) != nil {
		t.Fatal("refresh cookie must not be reissued")
	}
}

func TestRefresh_ExpiredToken(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.RefreshTokenValidityDuration = -time.Minute
	e := newTestEnv(t, cfg)

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	login := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	refresh := cookieByName(login, common.RefreshTokenCookieName)
	if refresh == nil {
		t.Fatal("refresh cookie expected from login")
	}

	resp := e.get(t, "/authentication/refresh", refresh)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if cookieByName(resp, common.AccessTokenCookieName) != nil {
		t.Fatal("no access cookie may be set on failure")
	}
}

func TestRefresh_AccessCookieRejected(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	login := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	access := cookieByName(login, common.AccessTokenCookieName)

	// access token presented under the refresh cookie name
	resp := e.get(t, "/authentication/refresh", &http.Cookie{
		Name:  common.RefreshTokenCookieName,
		Value: access.Value,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	login := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	access := cookieByName(login, common.AccessTokenCookieName)
	refresh := cookieByName(login, common.RefreshTokenCookieName)

	resp := e.post(t, "/authentication/logout", "", access)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := cookieByName(resp, name)
		if c == nil {
			t.Fatalf("expired %q cookie expected", name)
		}
		if c.Value != "" || c.MaxAge >= 0 {
			t.Fatalf("cookie %q should expire: %+v", name, c)
		}
	}

	// stored hash is gone, the old refresh token no longer verifies
	u, _ := e.users.GetByEmail(context.Background(), "a@b.com")
	if u.RefreshTokenHash != nil {
		t.Fatal("stored fingerprint should be cleared")
	}
	again := e.get(t, "/authentication/refresh", refresh)
	if again.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout should fail, got %d", again.StatusCode)
	}
}

func TestNewLoginSupersedesOldRefreshToken(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)

	first := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	oldRefresh := cookieByName(first, common.RefreshTokenCookieName)

	// a second login overwrites the stored fingerprint
	e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)

	resp := e.get(t, "/authentication/refresh", oldRefresh)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("superseded refresh token should fail, got %d", resp.StatusCode)
	}
}

func TestGetAvatar_NoneSet(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	login := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	access := cookieByName(login, common.AccessTokenCookieName)

	resp := e.get(t, "/users/avatar", access)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteAvatar_NoneSet(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	e.post(t, "/authentication/register",
		`{"email":"a@b.com","name":"Alice","password":"Secur3!"}`)
	login := e.post(t, "/authentication/login", `{"email":"a@b.com","password":"Secur3!"}`)
	access := cookieByName(login, common.AccessTokenCookieName)

	resp := e.do(t, http.MethodDelete, "/users/avatar", "", access)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAvatarRoutes_RequireAccessToken(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodDelete} {
		resp := e.do(t, method, "/users/avatar", "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s /users/avatar: expected 401, got %d", method, resp.StatusCode)
		}
	}
}

func TestPing(t *testing.T) {
	e := newTestEnv(t, defaultTestConfig())

	resp := e.get(t, "/ping")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

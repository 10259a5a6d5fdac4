package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-api/internal/api/handler"
	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/core/service"
	"github.com/99minutos/auth-api/internal/infrastructure/db/gormdb"
	"github.com/99minutos/auth-api/internal/infrastructure/revocation"
)

const testSecret = "router-test-secret-0123456789abcdef"

type testServer struct {
	e     *echo.Echo
	users *gormdb.UserRepository
	auth  *service.AuthService
}

func newTestServer(t *testing.T, ratePerMinute int) *testServer {
	return newTestServerWithProxies(t, ratePerMinute, nil)
}

func newTestServerWithProxies(t *testing.T, ratePerMinute int, trusted []*net.IPNet) *testServer {
	t.Helper()

	db, err := gormdb.Connect(context.Background(), gormdb.Config{Driver: gormdb.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gormdb.Close(db) })

	users := gormdb.NewUserRepository(db)
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: []byte(testSecret)}, revocation.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, err)
	hasher, err := service.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	auth := service.NewAuthService(users, tokens, hasher, nil, zerolog.Nop())

	reg := prometheus.NewRegistry()
	e := NewRouter(RouterConfig{
		APIPrefix:          "/api/v1",
		RateLimitPerMinute: ratePerMinute,
		TrustedProxies:     trusted,
		Registerer:         reg,
		Gatherer:           reg,
	}, auth, handler.NewHealthHandler(users, nil), zerolog.Nop())

	return &testServer{e: e, users: users, auth: auth}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func (s *testServer) postJSON(t *testing.T, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(t, req)
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return s.do(t, req)
}

func (s *testServer) withBearer(t *testing.T, method, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return s.do(t, req)
}

func (s *testServer) register(t *testing.T, username, email string) {
	t.Helper()
	rec, body := s.postJSON(t, "/api/v1/register",
		`{"username":"`+username+`","email":"`+email+`","full_name":"Test User","password":"s3cretpass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, body)
}

func (s *testServer) login(t *testing.T, username, password string) (access, refresh string) {
	t.Helper()
	rec, body := s.postForm(t, "/api/v1/token", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusOK, rec.Code, body)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func jtiOf(t *testing.T, token string) string {
	t.Helper()
	claims := &domain.TokenClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims.ID
}

func TestRouter_RegisterLoginMeLogout(t *testing.T) {
	s := newTestServer(t, 0)

	rec, body := s.postJSON(t, "/api/v1/register",
		`{"username":"alice","email":"alice@example.com","full_name":"Alice","password":"s3cretpass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, body)
	assert.Equal(t, map[string]any{
		"username": "alice", "email": "alice@example.com", "full_name": "Alice", "disabled": false,
	}, body)

	rec, body = s.postForm(t, "/api/v1/token", url.Values{"username": {"alice"}, "password": {"s3cretpass"}})
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, "bearer", body["token_type"])
	assert.Equal(t, float64(1800), body["expires_in"])
	access := body["access_token"].(string)
	require.NotEmpty(t, body["refresh_token"])

	rec, body = s.withBearer(t, http.MethodGet, "/api/v1/users/me", access)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, "alice", body["username"])

	rec, body = s.withBearer(t, http.MethodPost, "/api/v1/logout", access)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, "Successfully logged out", body["message"])

	rec, body = s.withBearer(t, http.MethodGet, "/api/v1/users/me", access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", body["detail"])
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
}

func TestRouter_RegisterDuplicates(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "bob", "bob@example.com")

	rec, body := s.postJSON(t, "/api/v1/register",
		`{"username":"bob","email":"other@example.com","full_name":"Bob","password":"s3cretpass"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already registered", body["detail"])

	rec, body = s.postJSON(t, "/api/v1/register",
		`{"username":"bobby","email":"bob@example.com","full_name":"Bob","password":"s3cretpass"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", body["detail"])
}

func TestRouter_RegisterValidation(t *testing.T) {
	s := newTestServer(t, 0)

	rec, body := s.postJSON(t, "/api/v1/register",
		`{"username":"al","email":"al@example.com","full_name":"Al","password":"s3cretpass"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["detail"], "username")
}

func TestRouter_TokenErrors(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "carol", "carol@example.com")

	rec, body := s.postForm(t, "/api/v1/token", url.Values{"username": {"carol"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])
	assert.Equal(t, "Invalid username or password", body["error_description"])

	rec, body = s.postForm(t, "/api/v1/token", url.Values{"username": {"nobody"}, "password": {"s3cretpass"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])

	rec, body = s.postForm(t, "/api/v1/token", url.Values{"username": {"carol"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", body["error"])
	assert.Equal(t, "Missing required parameter: password", body["error_description"])
}

func TestRouter_RefreshFlow(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "dave", "dave@example.com")
	access, refresh := s.login(t, "dave", "s3cretpass")

	rec, body := s.postJSON(t, "/api/v1/refresh", `{"refresh_token":"`+access+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])
	assert.Equal(t, "Invalid refresh token", body["error_description"])

	rec, body = s.postJSON(t, "/api/v1/refresh", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, body)
	newAccess := body["access_token"].(string)
	assert.NotEqual(t, access, newAccess)
	assert.NotContains(t, body, "refresh_token")

	// Refreshing neither rotates the refresh token nor invalidates the old access token.
	rec, _ = s.withBearer(t, http.MethodGet, "/api/v1/users/me", access)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.withBearer(t, http.MethodGet, "/api/v1/users/me", newAccess)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.postJSON(t, "/api/v1/refresh", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A refresh token is never accepted as a bearer credential.
	rec, _ = s.withBearer(t, http.MethodGet, "/api/v1/users/me", refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.postJSON(t, "/api/v1/refresh", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_LoginsIssueDistinctJTIs(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "erin", "erin@example.com")

	a1, r1 := s.login(t, "erin", "s3cretpass")
	a2, r2 := s.login(t, "erin", "s3cretpass")

	seen := map[string]bool{}
	for _, tok := range []string{a1, r1, a2, r2} {
		jti := jtiOf(t, tok)
		require.NotEmpty(t, jti)
		assert.False(t, seen[jti], "duplicate jti %s", jti)
		seen[jti] = true
	}
	assert.Len(t, seen, 4)
}

func TestRouter_LogoutRevokesOnlyPresentedToken(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "frank", "frank@example.com")

	first, _ := s.login(t, "frank", "s3cretpass")
	second, _ := s.login(t, "frank", "s3cretpass")

	rec, _ := s.withBearer(t, http.MethodPost, "/api/v1/logout", first)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.withBearer(t, http.MethodGet, "/api/v1/users/me", first)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.withBearer(t, http.MethodGet, "/api/v1/users/me", second)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.withBearer(t, http.MethodPost, "/api/v1/logout", first)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_InactiveUser(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "gina", "gina@example.com")
	access, refresh := s.login(t, "gina", "s3cretpass")

	ctx := context.Background()
	u, err := s.users.FindByUsername(ctx, "gina")
	require.NoError(t, err)
	u.Disabled = true
	require.NoError(t, s.users.Update(ctx, u))

	rec, body := s.withBearer(t, http.MethodGet, "/api/v1/users/me", access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Inactive user", body["detail"])

	rec, body = s.postForm(t, "/api/v1/token", url.Values{"username": {"gina"}, "password": {"s3cretpass"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_grant", body["error"])

	rec, _ = s.postJSON(t, "/api/v1/refresh", `{"refresh_token":"`+refresh+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ListUsersRequiresSuperuser(t *testing.T) {
	s := newTestServer(t, 0)
	s.register(t, "henry", "henry@example.com")
	created, err := s.auth.SeedInitialUser(context.Background(), "admin", "adminpass123")
	require.NoError(t, err)
	require.True(t, created)

	userAccess, _ := s.login(t, "henry", "s3cretpass")
	rec, body := s.withBearer(t, http.MethodGet, "/api/v1/users", userAccess)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not enough privileges", body["detail"])

	adminAccess, _ := s.login(t, "admin", "adminpass123")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users?is_superuser=false", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminAccess)
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "henry", users[0]["username"])

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ProbesAndMetrics(t *testing.T) {
	s := newTestServer(t, 0)

	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	s.register(t, "ivan", "ivan@example.com")
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth_http_requests_total")
}

func TestRouter_RateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded: 2 per 1 minute", body["detail"])

	// Probes are never throttled.
	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RateLimitIgnoresForwardedHeadersFromClients(t *testing.T) {
	s := newTestServer(t, 2)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("10.0.1.%d", i))
		rec, _ := s.do(t, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized, http.StatusUnauthorized,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestRouter_RateLimitKeysOnForwardedClientBehindTrustedProxy(t *testing.T) {
	_, proxies, err := net.ParseCIDR("192.0.2.0/24")
	require.NoError(t, err)
	s := newTestServerWithProxies(t, 2, []*net.IPNet{proxies})

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		req.Header.Set(echo.HeaderXForwardedFor, client)
		rec, _ := s.do(t, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
	// A different client behind the same proxy has its own budget.
	assert.Equal(t, http.StatusUnauthorized, send("203.0.113.2"))
}

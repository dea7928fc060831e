package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-backoffice/internal/config"
	"freight-backoffice/internal/handler"
	"freight-backoffice/internal/metrics"
	"freight-backoffice/internal/middleware"
	"freight-backoffice/internal/model"
	"freight-backoffice/internal/session"
)

type stubLoader struct {
	identities map[string]model.Identity
}

func (l stubLoader) Load(ctx context.Context, realm model.Realm, claim model.SessionClaim) (model.Identity, error) {
	identity, ok := l.identities[claim.UserID]
	if !ok {
		return model.Identity{}, model.ErrInvalidSession
	}
	return identity, nil
}

type okDB struct{}

func (okDB) Health(ctx context.Context) error { return nil }

func newTestRouter(t *testing.T) (http.Handler, *session.Codec) {
	t.Helper()

	codec, err := session.NewCodec("router-test-secret-0123456789abcdef", time.Hour, false)
	require.NoError(t, err)

	loader := stubLoader{identities: map[string]model.Identity{
		"admin-1": {ID: "admin-1", Role: model.RoleAdmin, Status: model.StatusActive, Permissions: model.FlatPermissions{"call:create"}},
		"vendor-1": {ID: "vendor-1", Role: model.RoleVendor, Status: model.StatusActive,
			Permissions: model.MatrixPermissions{"loads": {"view": true}}},
	}}

	m := metrics.New()
	am := middleware.NewAuthMiddleware(codec, loader, codec, m)
	cfg := &config.Config{
		AppEnv:           "test",
		RequestTimeout:   5 * time.Second,
		AuthRateLimitRPM: 100,
		MetricsEnabled:   true,
		CORSOrigins:      []string{"http://localhost:3000"},
	}

	return New(cfg, am, Handlers{Health: handler.NewHealthHandler(okDB{})}, m), codec
}

func do(t *testing.T, h http.Handler, method string, target string, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "backoffice_http_requests_total")
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	for _, target := range []string{"/api/admin/loads", "/api/portal/profile", "/api/me/notifications", "/api/auth/me"} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String(), target)
	}

	rec := do(t, h, http.MethodGet, "/api/admin/loads", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleAndCapabilityGates(t *testing.T) {
	t.Parallel()

	h, codec := newTestRouter(t)

	adminToken, err := codec.Issue("admin-1", model.RoleAdmin)
	require.NoError(t, err)
	vendorToken, err := codec.Issue("vendor-1", model.RoleVendor)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		target string
		token  string
	}{
		{"vendor on staff api", http.MethodGet, "/api/admin/loads", vendorToken},
		{"admin without load:view", http.MethodGet, "/api/admin/loads", adminToken},
		{"admin on sudo-only admins", http.MethodGet, "/api/admin/admins", adminToken},
		{"admin on sudo-only audit", http.MethodGet, "/api/admin/audit", adminToken},
		{"call alias does not cover delete", http.MethodDelete, "/api/admin/calls/c1", adminToken},
		{"admin on portal", http.MethodGet, "/api/portal/profile", adminToken},
		{"vendor cannot request loads", http.MethodPost, "/api/portal/loads", vendorToken},
		{"vendor without wallet:view", http.MethodGet, "/api/portal/wallet", vendorToken},
	}

	for _, tc := range cases {
		rec := do(t, h, tc.method, tc.target, tc.token)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.name)
		assert.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String(), tc.name)
	}
}

func TestLoggedOutSessionFromDeletedIdentity(t *testing.T) {
	t.Parallel()

	h, codec := newTestRouter(t)

	token, err := codec.Issue("ghost", model.RoleAdmin)
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/admin/loads", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

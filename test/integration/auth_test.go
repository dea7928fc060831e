//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identityView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func TestSudoLoginMeAndLogout(t *testing.T) {
	env := newTestEnv(t)
	sudo := env.newClient(t)

	resp := sudo.login("sudo", "root", sudoPassword)
	var token struct {
		Token    string       `json:"token"`
		Identity identityView `json:"identity"`
	}
	cookies := resp.Cookies()
	expect(t, resp, http.StatusOK, &token)
	assert.NotEmpty(t, token.Token)
	assert.Equal(t, "sudo", token.Identity.Role)

	require.NotEmpty(t, cookies)
	assert.Equal(t, "sudo_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	var me identityView
	expect(t, sudo.json(http.MethodGet, "/api/auth/me", nil), http.StatusOK, &me)
	assert.Equal(t, "root", me.Username)

	expect(t, sudo.json(http.MethodPost, "/api/auth/logout", nil), http.StatusOK, nil)
	expectError(t, sudo.json(http.MethodGet, "/api/auth/me", nil), http.StatusUnauthorized, "Unauthorized")
}

func TestLoginRejectsWrongRealmAndPassword(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	expectError(t, c.login("sudo", "root", "wrong-password"), http.StatusUnauthorized, "Invalid credentials")
	// sudo credentials are not valid on the admin realm
	expectError(t, c.login("admin", "root", sudoPassword), http.StatusUnauthorized, "Invalid credentials")
	expectError(t, c.login("nobody", "root", sudoPassword), http.StatusNotFound, "")
}

func TestBearerTokenAuthenticates(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	resp := c.login("sudo", "root", sudoPassword)
	var token struct {
		Token string `json:"token"`
	}
	expect(t, resp, http.StatusOK, &token)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token.Token)

	bare, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var me identityView
	expect(t, bare, http.StatusOK, &me)
	assert.Equal(t, "root", me.Username)
}

func TestDeactivatedAdminLosesSession(t *testing.T) {
	env := newTestEnv(t)
	sudo := env.newClient(t)
	sudo.mustLogin("sudo", "root", sudoPassword)

	var admin identityView
	expect(t, sudo.json(http.MethodPost, "/api/admin/admins", map[string]any{
		"username":    "dispatch",
		"email":       "dispatch@example.com",
		"password":    "dispatch-pass",
		"permissions": []string{"load:view"},
	}), http.StatusCreated, &admin)
	assert.Equal(t, "active", admin.Status)

	adminClient := env.newClient(t)
	adminClient.mustLogin("admin", "dispatch", "dispatch-pass")
	expect(t, adminClient.json(http.MethodGet, "/api/admin/loads", nil), http.StatusOK, nil)

	// not granted
	expectError(t, adminClient.json(http.MethodGet, "/api/admin/vendors", nil), http.StatusForbidden, "Forbidden")
	// sudo only
	expectError(t, adminClient.json(http.MethodGet, "/api/admin/admins", nil), http.StatusForbidden, "Forbidden")

	expect(t, sudo.json(http.MethodPut, "/api/admin/admins/"+admin.ID+"/status", map[string]string{"status": "inactive"}), http.StatusOK, nil)

	resp := adminClient.json(http.MethodGet, "/api/admin/loads", nil)
	cleared := false
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "admin_token" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	expectError(t, resp, http.StatusUnauthorized, "Unauthorized")
	assert.True(t, cleared, "expected the admin cookie to be expired")
}

func TestSelfRegisteredVendorStartsInactive(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	var vendor identityView
	expect(t, c.json(http.MethodPost, "/api/auth/vendor/register", map[string]string{
		"username":     "haulers",
		"email":        "ops@haulers.example",
		"password":     "haulers-pass",
		"company_name": "Haulers Ltd",
	}), http.StatusCreated, &vendor)
	assert.Equal(t, "inactive", vendor.Status)

	expectError(t, c.login("vendor", "haulers", "haulers-pass"), http.StatusUnauthorized, "Unauthorized")
	expectError(t, c.json(http.MethodPost, "/api/auth/admin/register", map[string]string{}), http.StatusNotFound, "")
}

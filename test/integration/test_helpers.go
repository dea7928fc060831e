//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"freight-backoffice/internal/app"
	"freight-backoffice/internal/config"
	"freight-backoffice/internal/database"
	"freight-backoffice/internal/event"
	"freight-backoffice/internal/model"
	"freight-backoffice/internal/repository"
	"freight-backoffice/internal/service"
	"freight-backoffice/internal/storage"
)

const sudoPassword = "sudo-password-1"

type testEnv struct {
	server *httptest.Server
	db     *database.DB
}

// newTestEnv needs TEST_DATABASE_URL pointing at a disposable database; every
// table is truncated.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 5, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE sudos, admins, vendors, customers, loads, wallet_transactions, calls, notifications, audit_entries`)
	require.NoError(t, err)

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		AppEnv:           "test",
		RequestTimeout:   10 * time.Second,
		JWTSecret:        "integration-secret-0123456789abcdef",
		SessionTTL:       time.Hour,
		CORSOrigins:      []string{"*"},
		AuthRateLimitRPM: 1000,
		MaxUploadSize:    2 << 20,
		AllowedMIMETypes: []string{"application/pdf", "image/*"},
	}

	bus := event.NewBus()
	handler, subscribers := app.NewHandler(cfg, db, store, bus, nil)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		subscribers.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, db: db}
	env.seedSudo(t)
	return env
}

func (e *testEnv) seedSudo(t *testing.T) {
	t.Helper()

	hash, err := service.HashPassword(sudoPassword)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repository.NewIdentityRepository(e.db.Pool).Create(context.Background(), model.Identity{
		ID:           uuid.NewString(),
		Username:     "root",
		Email:        "root@example.com",
		DisplayName:  "root",
		PasswordHash: hash,
		Role:         model.RoleSudo,
		Status:       model.StatusActive,
		Permissions:  model.FlatPermissions{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

// client is a browser-like client that keeps session cookies.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (e *testEnv) newClient(t *testing.T) *client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: e.server.URL, http: &http.Client{Jar: jar}}
}

func (c *client) login(role string, username string, password string) *http.Response {
	c.t.Helper()
	return c.json(http.MethodPost, "/api/auth/"+role+"/login", map[string]string{"username": username, "password": password})
}

func (c *client) mustLogin(role string, username string, password string) {
	c.t.Helper()

	resp := c.login(role, username, password)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode, readBody(c.t, resp))
}

func (c *client) json(method string, path string, body any) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *client) multipart(method string, path string, fields map[string]string, fileField string, filename string, content []byte) *http.Response {
	c.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(c.t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile(fileField, filename)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, writer.Close())

	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

// expect asserts the status and decodes the data envelope into out.
func expect(t *testing.T, resp *http.Response, status int, out any) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, status, resp.StatusCode, string(body))

	if out == nil {
		return
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func expectError(t *testing.T, resp *http.Response, status int, message string) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, status, resp.StatusCode, string(body))
	if message != "" {
		require.JSONEq(t, `{"error":"`+message+`"}`, string(body))
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// pdfBytes sniffs as application/pdf.
func pdfBytes() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
}

package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bucketpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/bucketpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/bucketpanel/internal/application"
	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

const testPassword = "Str0ngP@ssword!"

// fakeObjectClient is a canned-response object storage client.
type fakeObjectClient struct {
	err error
}

func (f *fakeObjectClient) Probe(_ context.Context) error                  { return f.err }
func (f *fakeObjectClient) ListBuckets(_ context.Context) ([]string, error) { return nil, f.err }

// testServer wires the full stack over a real SQLite database, substituting
// only the object storage client.
type testServer struct {
	handler  http.Handler
	probeErr *error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "bucketpanel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.RunMigrations(db.Writer))

	key := make([]byte, driven.VaultKeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	vault, err := application.NewVault(key)
	require.NoError(t, err)

	digest, err := application.HashPassword(testPassword)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var probeErr error
	provider := application.NewObjectClientProvider(nil, "")
	factory := func(_ model.ConnectionConfig) driven.ObjectStoreClient {
		return &fakeObjectClient{err: probeErr}
	}

	auth := application.NewAuthService(digest, sqlite.NewRateLimitRepo(db), sqlite.NewSessionRepo(db), 2, logger)
	conns := application.NewConnectionService(sqlite.NewConnectionRepo(db), vault, factory, provider, logger)

	h := httphandler.NewHandler(auth, conns, logger)
	return &testServer{
		handler:  httphandler.NewServeMux(h, logger),
		probeErr: &probeErr,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "198.51.100.7:54321"
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// login performs a successful login and returns the session cookie.
func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]any{"password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "bucketpanel_session" {
			require.NotEmpty(t, c.Value)
			return c
		}
	}
	t.Fatal("login response did not set the session cookie")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func connectionBody(name string) map[string]any {
	return map[string]any{
		"name":       name,
		"endpoint":   "https://s3.example.com",
		"access_key": "AKIAEXAMPLE",
		"secret_key": "secret-key-value",
		"region":     "eu-west-1",
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	t.Run("success sets session cookie", func(t *testing.T) {
		c := s.login(t)
		assert.True(t, c.HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", map[string]any{"password": "WrongP@ssword99"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "password is required", decodeBody(t, rec)["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 10; i++ {
		rec := s.do(t, http.MethodPost, "/auth/login", map[string]any{"password": "WrongP@ssword99"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/auth/login", map[string]any{"password": testPassword})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeBody(t, rec)
	assert.InDelta(t, 1800, body["retry_after"], 1)
}

func TestAuthStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/auth/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["authenticated"])
	assert.Nil(t, body["login_time"])

	cookie := s.login(t)
	rec = s.do(t, http.MethodGet, "/auth/status", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.NotEmpty(t, body["login_time"])
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	rec := s.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// The old token no longer authenticates.
	rec = s.do(t, http.MethodGet, "/connections", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConnectionsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/connections"},
		{http.MethodPost, "/connections"},
		{http.MethodPut, "/connections/some-id"},
		{http.MethodDelete, "/connections/some-id"},
		{http.MethodPost, "/connections/some-id/activate"},
		{http.MethodPost, "/connections/disconnect"},
		{http.MethodPost, "/connections/test"},
	}

	for _, p := range paths {
		rec := s.do(t, p.method, p.path, nil)
		assert.Equalf(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}
}

func TestConnectionLifecycle(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	rec := s.do(t, http.MethodPost, "/connections", connectionBody("minio-local"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeBody(t, rec)
	assert.Equal(t, true, created["tested"])
	id, ok := created["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	rec = s.do(t, http.MethodGet, "/connections", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "minio-local", listed[0]["name"])
	assert.Equal(t, false, listed[0]["is_active"])

	// No credential material in the listing, encrypted or not.
	for key := range listed[0] {
		assert.NotContains(t, key, "key")
		assert.NotContains(t, key, "secret")
	}

	rec = s.do(t, http.MethodPost, "/connections/"+id+"/activate", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/connections", nil, cookie)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, true, listed[0]["is_active"])

	rec = s.do(t, http.MethodPost, "/connections/disconnect", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/connections/"+id, nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateConnectionValidation(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	body := connectionBody("incomplete")
	delete(body, "endpoint")

	rec := s.do(t, http.MethodPost, "/connections", body, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "endpoint is required", decodeBody(t, rec)["error"])
}

func TestCreateConnectionNameConflict(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	rec := s.do(t, http.MethodPost, "/connections", connectionBody("prod"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/connections", connectionBody("prod"), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "connection name already exists", decodeBody(t, rec)["error"])
}

func TestCreateConnectionFailedProbePersists(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)
	*s.probeErr = errors.New("connection refused")

	rec := s.do(t, http.MethodPost, "/connections", connectionBody("unreachable"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["tested"])

	rec = s.do(t, http.MethodGet, "/connections", nil, cookie)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestUpdateConnection(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	rec := s.do(t, http.MethodPost, "/connections", connectionBody("staging"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = s.do(t, http.MethodPut, "/connections/"+id, map[string]any{"name": "staging-eu"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["tested"])

	rec = s.do(t, http.MethodGet, "/connections", nil, cookie)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "staging-eu", listed[0]["name"])
}

func TestUpdateUnknownConnection(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	rec := s.do(t, http.MethodPut, "/connections/no-such-id", map[string]any{"name": "x"}, cookie)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "connection profile not found", decodeBody(t, rec)["error"])
}

func TestTestConnection(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	body := map[string]any{
		"endpoint":   "https://s3.example.com",
		"access_key": "AKIAEXAMPLE",
		"secret_key": "secret-key-value",
	}

	rec := s.do(t, http.MethodPost, "/connections/test", body, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	*s.probeErr = errors.New("access denied")
	rec = s.do(t, http.MethodPost, "/connections/test", body, cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Nothing was persisted either way.
	rec = s.do(t, http.MethodGet, "/connections", nil, cookie)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)
}

func TestConnectionCapacity(t *testing.T) {
	s := newTestServer(t)
	cookie := s.login(t)

	for i := 0; i < model.MaxConnectionProfiles; i++ {
		rec := s.do(t, http.MethodPost, "/connections", connectionBody(fmt.Sprintf("conn-%03d", i)), cookie)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/connections", connectionBody("one-too-many"), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "connection limit reached", decodeBody(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

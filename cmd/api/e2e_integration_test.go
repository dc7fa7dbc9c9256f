//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpost/matchpost/internal/config"
	"github.com/matchpost/matchpost/internal/testutil"
)

var (
	testDatabaseURL string
	testRedisURL    string
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	dbURL, stopPostgres, err := testutil.StartPostgres(ctx)
	if err != nil {
		slog.Error("start postgres", "error", err)
		os.Exit(1)
	}
	redisURL, stopRedis, err := testutil.StartRedis(ctx)
	if err != nil {
		stopPostgres()
		slog.Error("start redis", "error", err)
		os.Exit(1)
	}
	testDatabaseURL, testRedisURL = dbURL, redisURL

	code := m.Run()
	stopRedis()
	stopPostgres()
	os.Exit(code)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	// Holds the advisory lock and starts from empty tables.
	testutil.NewPool(t, testDatabaseURL)

	cfg := &config.Config{
		AppEnv:             "test",
		DatabaseURL:        testDatabaseURL,
		RedisURL:           testRedisURL,
		MatchPostCacheTTL:  time.Minute,
		SessionSecret:      "e2e-session-secret",
		SessionTTL:         time.Hour,
		PasswordMinLength:  6,
		MaxRequestBodySize: 1 << 20,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(ctx, cfg, logger)
	require.NoError(t, err)
	require.NoError(t, testutil.FlushRedis(ctx, a.cache.Client()))

	srv := httptest.NewServer(a.handler)
	t.Cleanup(func() {
		srv.Close()
		_ = a.cache.Close()
		a.repo.Close()
	})
	return srv
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type postBody struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	TeamName    string    `json:"team_name"`
	SkillLevel  string    `json:"skill_level"`
	Location    string    `json:"location"`
	FieldName   *string   `json:"field_name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func TestEndToEnd_MatchPostLifecycle(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	// Register and log in.
	var user struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	status := c.do(http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email": "captain@example.com", "password": "secret1", "name": "Captain",
	}, &user)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, user.ID)

	var errBody struct {
		Code string `json:"code"`
	}
	status = c.do(http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email": "captain@example.com", "password": "other12", "name": "Impostor",
	}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "EMAIL_TAKEN", errBody.Code)

	status = c.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email": "captain@example.com", "password": "wrong-password",
	}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, status)

	var login struct {
		Token string `json:"token"`
	}
	status = c.do(http.MethodPost, "/api/v1/auth/login", map[string]any{
		"email": "captain@example.com", "password": "secret1",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.Token)
	c.token = login.Token

	// Create.
	var created postBody
	status = c.do(http.MethodPost, "/api/v1/match-posts", map[string]any{
		"team_name":    "Red Lions",
		"skill_level":  "Advanced",
		"match_date":   "2026-06-01T18:00:00Z",
		"location":     "Hanoi",
		"contact_info": "0900 000 000",
		"description":  "Friendly, 7-a-side",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, user.ID, created.UserID)
	assert.True(t, created.IsActive)

	// Read through the cache twice.
	for range 2 {
		var got postBody
		require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/match-posts/"+itoa(created.ID), nil, &got))
		assert.Equal(t, "Red Lions", got.TeamName)
	}

	// Filter.
	var list struct {
		Data []postBody `json:"data"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet,
		"/api/v1/match-posts?skill_level=Advanced&location=Hanoi&date_from=2026-06-01&date_to=2026-06-01", nil, &list))
	require.Len(t, list.Data, 1)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/match-posts?skill_level=Beginner", nil, &list))
	assert.Empty(t, list.Data)

	// Patch: rename and clear the description.
	var patched postBody
	require.Equal(t, http.StatusOK, c.do(http.MethodPatch, "/api/v1/match-posts/"+itoa(created.ID),
		map[string]any{"team_name": "Blue Tigers", "description": nil}, &patched))
	assert.Equal(t, "Blue Tigers", patched.TeamName)
	assert.Nil(t, patched.Description)
	assert.True(t, patched.UpdatedAt.After(created.UpdatedAt))

	// The cached copy was evicted.
	var reread postBody
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/match-posts/"+itoa(created.ID), nil, &reread))
	assert.Equal(t, "Blue Tigers", reread.TeamName)

	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/v1/users/"+itoa(user.ID)+"/match-posts", nil, &list))
	require.Len(t, list.Data, 1)

	// Delete is idempotent.
	var del struct {
		Success bool `json:"success"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/v1/match-posts/"+itoa(created.ID), nil, &del))
	assert.True(t, del.Success)
	require.Equal(t, http.StatusOK, c.do(http.MethodDelete, "/api/v1/match-posts/"+itoa(created.ID), nil, &del))
	assert.False(t, del.Success)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/v1/match-posts/"+itoa(created.ID), nil, nil))
}

func TestEndToEnd_Readiness(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, base: srv.URL}

	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/readyz", nil, &health))
	assert.Equal(t, "ok", health.Checks["postgres"])
	assert.Equal(t, "ok", health.Checks["redis"])
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventdesk/internal/logging"
	"github.com/iliyamo/eventdesk/internal/utils"
)

const testSecret = "test-secret"

func newAuthServer() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	}, JWTAuth(testSecret))
	return e
}

func TestJWTAuth(t *testing.T) {
	e := newAuthServer()
	good, err := utils.NewAccessToken(testSecret, "user-42", 5)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other-secret", "user-42", 5)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(testSecret, "user-42", -5)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "bearer header", header: "Bearer " + good.Token, status: http.StatusOK, body: "user-42"},
		{name: "query param", query: "?access_token=" + good.Token, status: http.StatusOK, body: "user-42"},
		{name: "missing", status: http.StatusUnauthorized, body: "missing bearer token"},
		{name: "wrong secret", header: "Bearer " + forged.Token, status: http.StatusUnauthorized, body: "invalid token"},
		{name: "expired", header: "Bearer " + expired.Token, status: http.StatusUnauthorized, body: "invalid token"},
		{name: "garbage", header: "Bearer abc.def", status: http.StatusUnauthorized, body: "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })

	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	}, JWTAuth(testSecret))
	e.GET("/missing", func(c echo.Context) error { return echo.ErrNotFound })

	tok, err := utils.NewAccessToken(testSecret, "user-7", 5)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
	line := buf.String()
	assert.Contains(t, line, `"request_id":"req-1"`)
	assert.Contains(t, line, `"user_id":"user-7"`)
	assert.Contains(t, line, `"status":200`)

	buf.Reset()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/oil-price-api/internal/auth"
)

var testKey = []byte("0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ01")

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func runGate(t *testing.T, tokens *auth.TokenService, header string) (*httptest.ResponseRecorder, *auth.Claims) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen *auth.Claims
	router := gin.New()
	router.POST("/protected", RequireToken(tokens), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		seen = claims
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, seen
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestRequireToken(t *testing.T) {
	tokens := auth.NewTokenService(testKey, time.Hour)
	token, err := tokens.Issue("scraper")
	require.NoError(t, err)

	w, claims := runGate(t, tokens, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "scraper", claims.ClientID())
}

func TestRequireToken_MissingCredentials(t *testing.T) {
	tokens := auth.NewTokenService(testKey, time.Hour)

	for _, header := range []string{"", "Token abc", "Bearer "} {
		w, claims := runGate(t, tokens, header)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing credentials", errorOf(t, w))
		assert.Nil(t, claims)
	}
}

func TestRequireToken_InvalidToken(t *testing.T) {
	tokens := auth.NewTokenService(testKey, time.Hour)

	expired, err := auth.NewTokenService(testKey, time.Hour, auth.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	})).Issue("scraper")
	require.NoError(t, err)

	otherKey, err := auth.GenerateKey()
	require.NoError(t, err)
	foreign, err := auth.NewTokenService(otherKey, time.Hour).Issue("scraper")
	require.NoError(t, err)

	for _, token := range []string{"garbage", expired, foreign} {
		w, claims := runGate(t, tokens, "Bearer "+token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid token", errorOf(t, w))
		assert.Nil(t, claims)
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(RequestLogger(zerolog.Nop(), metrics))
	router.GET("/ping/:id", func(c *gin.Context) {
		c.String(http.StatusOK, requestID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 27)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping/2", nil)
	req.Header.Set("X-Request-ID", "from-client")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "from-client", w.Header().Get("X-Request-ID"))

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping/:id", "200"))
	assert.Equal(t, float64(2), count)
}

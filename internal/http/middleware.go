package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/andygrunwald/oil-price-api/internal/auth"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

const (
	claimsKey       = "claims"
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
)

// RequireToken rejects requests without a valid bearer token and stores the
// token claims on the context.
func RequireToken(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, http.StatusBadRequest, service.ErrMissingCredentials.Error())
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, msgInvalidToken)
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// bearerToken extracts the token of a "Bearer <token>" header value.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, auth.TokenType) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFrom returns the claims stored by RequireToken.
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// RequestLogger logs every request and records its metrics. Each request
// gets an id, taken from the X-Request-ID header if present.
func RequestLogger(logger zerolog.Logger, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = ksuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), duration.Seconds())

		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		if claims, ok := ClaimsFrom(c); ok {
			event = event.Str("client_id", claims.ClientID())
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", duration).
			Msg("handled request")
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

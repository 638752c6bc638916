package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andygrunwald/oil-price-api/internal/auth"
	"github.com/andygrunwald/oil-price-api/internal/service"
)

const (
	msgInvalidToken  = "Invalid token"
	msgTokenCreation = "Token creation error"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is the body of successful mutations.
type messageResponse struct {
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message"`
}

// errInvalidRequest marks malformed bodies and path parameters.
type errInvalidRequest struct {
	err error
}

func (e errInvalidRequest) Error() string {
	return fmt.Sprintf("Invalid request: %v", e.err)
}

func (e errInvalidRequest) Unwrap() error {
	return e.err
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// statusOf maps an error to the HTTP status and user facing message.
func statusOf(err error) (int, string) {
	var invalidReq errInvalidRequest
	var re *service.ResourceError

	switch {
	case errors.As(err, &invalidReq):
		return http.StatusBadRequest, invalidReq.Error()
	case errors.Is(err, service.ErrMissingCredentials):
		return http.StatusBadRequest, service.ErrMissingCredentials.Error()
	case errors.Is(err, service.ErrWrongCredentials):
		return http.StatusUnauthorized, service.ErrWrongCredentials.Error()
	case errors.Is(err, service.ErrUserExists):
		return http.StatusBadRequest, service.ErrUserExists.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusBadRequest, msgInvalidToken
	case errors.Is(err, auth.ErrTokenCreation):
		return http.StatusInternalServerError, msgTokenCreation
	case errors.As(err, &re):
		switch re.Kind {
		case service.KindNotFound, service.KindReference:
			return http.StatusNotFound, re.Error()
		case service.KindInvalid:
			return http.StatusBadRequest, re.Error()
		default:
			return http.StatusInternalServerError, re.Error()
		}
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// fail writes err as JSON. Server errors are logged, and their cause is left
// out of the body if internal errors are hidden.
func (h *Handlers) fail(c *gin.Context, err error) {
	status, message := statusOf(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("request_id", requestID(c)).
			Str("route", c.FullPath()).
			Msg("request failed")
		if h.hideInternalErrors && message != msgTokenCreation {
			message = http.StatusText(status)
		}
	}

	abortWithError(c, status, message)
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"NewsDigest/internal/auth"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

const identityKey = "identity"

// authenticate rejects requests without a known bearer token and stores the caller.
func authenticate(authenticator ports.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticator == nil {
			abortWithError(c, domain.Wrap(domain.ErrConfiguration, "http", "authenticate", "no authenticator configured", nil))
			return
		}
		identity, err := authenticator.Authenticate(c.Request.Context(), auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func callerFrom(c *gin.Context) *domain.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(domain.Identity)
	if !ok {
		return nil
	}
	return &identity
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errorStatus(err), gin.H{"success": false, "error": err.Error()})
}

// errorStatus maps error kinds to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoStories):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadySent):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

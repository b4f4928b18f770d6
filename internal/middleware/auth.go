package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/services"
)

const identityKey = "identity"

// Authenticate rejects the request unless it carries a valid bearer token.
func Authenticate(verifier services.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Fail(c, apperr.Unauthorized("MISSING_TOKEN", "Authorization header required"))
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			response.Fail(c, apperr.Unauthorized("UNAUTHORIZED", "Authorization header must use the Bearer scheme"))
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			response.Fail(c, tokenError(err))
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is sent.
// A missing, malformed or rejected token leaves the request anonymous.
func OptionalAuth(verifier services.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if identity, err := verifier.Verify(c.Request.Context(), tokenString); err == nil {
				setIdentity(c, identity)
			}
		}
		c.Next()
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.Fail(c, apperr.Unauthorized("UNAUTHORIZED", "Authentication required"))
			return
		}
		if !identity.HasRole(roles...) {
			response.Fail(c, apperr.Forbidden("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (*services.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*services.Identity)
	return identity, ok && identity != nil
}

func setIdentity(c *gin.Context, identity *services.Identity) {
	c.Set(identityKey, identity)
	c.Set("userID", identity.UID)
	c.Set("userRole", identity.Role)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func tokenError(err error) *apperr.Error {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		return apperr.Unauthorized("TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, services.ErrTokenRevoked):
		return apperr.Unauthorized("TOKEN_REVOKED", "Token has been revoked")
	case errors.Is(err, services.ErrInvalidToken):
		return apperr.Unauthorized("INVALID_TOKEN", "Invalid token")
	default:
		return apperr.Internal("AUTHENTICATION_FAILED", "Could not verify token", err)
	}
}

// internal/middleware/auth.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"beef-back/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// TokenVerifier returns the subject of a valid token.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AuthGate runs once per request, before any handler. It looks up the
// request's access level in the policy and attaches an auth.Identity for a
// valid Bearer token.
type AuthGate struct {
	verifier TokenVerifier
	policy   *Policy
	logger   *zap.Logger
}

func NewAuthGate(verifier TokenVerifier, policy *Policy, logger *zap.Logger) *AuthGate {
	return &AuthGate{verifier: verifier, policy: policy, logger: logger}
}

func (g *AuthGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		access := g.policy.Lookup(c.Request.Method, c.Request.URL.Path)
		if access == AccessPublic {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			// no credentials; the route decides whether that is acceptable
			c.Next()
			return
		}

		subject, err := g.verifier.Verify(token)
		if err != nil {
			if access == AccessOptional {
				g.logger.Debug("Ignoring invalid token on optional route",
					zap.String("path", c.Request.URL.Path),
					zap.String("reason", tokenFailure(err)))
				c.Next()
				return
			}
			g.logger.Info("Rejected token",
				zap.String("path", c.Request.URL.Path),
				zap.String("reason", tokenFailure(err)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid Token or Token Expired",
			})
			return
		}

		c.Set(identityKey, &auth.Identity{Subject: subject, Role: auth.RoleUser})
		c.Next()
	}
}

// RequireIdentity rejects requests the gate left without an identity.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthenticated",
				"message": "Authentication required",
			})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity attached by the gate, or nil.
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*auth.Identity)
	return id
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// tokenFailure names the failure without echoing the token.
func tokenFailure(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}

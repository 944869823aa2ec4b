package handler

import (
	"errors"
	"net/http"
	"strings"

	"roomchat/backend/internal/auth"
	"roomchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// bearerToken reads the token from the Authorization header or, for
// browsers that cannot set headers on a websocket, the token query param.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return c.Query("token")
}

// RequireAuth verifies the bearer token and stores the identity on the context.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := h.Verifier.Verify(c.Request.Context(), bearerToken(c))
		if err != nil {
			abortAuth(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func abortAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrBanned):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User is banned"})
	case errors.Is(err, auth.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify token"})
	}
}

func currentIdentity(c *gin.Context) models.Identity {
	identity, _ := c.MustGet(identityKey).(models.Identity)
	return identity
}

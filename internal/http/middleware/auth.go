// README: Firebase ID-token auth middleware; the verified identity owns trips and wishlist items.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wander/internal/infra"
)

const (
	ctxKeyUID   = "auth.uid"
	ctxKeyOwner = "auth.owner"
)

// Auth rejects requests without a valid "Authorization: Bearer <id token>" header.
// A nil verifier rejects everything.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := verify(c, verifier)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		setCaller(c, token)
		c.Next()
	}
}

func verify(c *gin.Context, verifier infra.TokenVerifier) (*infra.FirebaseToken, bool) {
	if verifier == nil {
		return nil, false
	}
	header := c.GetHeader("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	raw = strings.TrimSpace(raw)
	if !found || raw == "" {
		return nil, false
	}
	token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
	if err != nil || token == nil {
		return nil, false
	}
	return token, true
}

func setCaller(c *gin.Context, token *infra.FirebaseToken) {
	c.Set(ctxKeyUID, token.UID)
	c.Set(ctxKeyOwner, token.Identity())
}

// CallerUID returns the Firebase UID, or "" outside Auth.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxKeyUID)
}

// CallerOwner returns the owner identity (email, else UID), or "" outside Auth.
func CallerOwner(c *gin.Context) string {
	return c.GetString(ctxKeyOwner)
}

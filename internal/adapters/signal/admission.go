package signal

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionTokenKey is the cookie-session key holding the login token.
const SessionTokenKey = "token"

// TokenFromRequest looks for a token in the query string, then the
// Authorization header, then the cookie session.
func TokenFromRequest(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	if h := c.GetHeader("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
	}
	if _, ok := c.Get(sessions.DefaultKey); ok {
		if t, ok := sessions.Default(c).Get(SessionTokenKey).(string); ok {
			return t
		}
	}
	return ""
}

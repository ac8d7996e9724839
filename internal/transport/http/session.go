package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "quiz_session"
	SessionHeader = "X-Quiz-Session"

	sessionContextKey = "session_id"
)

// SessionOptions controls the session cookie. The cookie carries no Max-Age,
// so it ends with the browser session; idle expiry is enforced by the store.
type SessionOptions struct {
	Secure bool
}

// sessionFromRequest reads the session id from the header, then the cookie.
func sessionFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func sessionCookie(sessionID string, opts SessionOptions) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredSessionCookie(opts SessionOptions) *http.Cookie {
	cookie := sessionCookie("", opts)
	cookie.MaxAge = -1
	return cookie
}

// RequireSession rejects requests that carry no session id.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionFromRequest(c.Request)
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
				Message: "session not found",
				Code:    "session_not_found",
			})
			return
		}
		c.Set(sessionContextKey, sessionID)
		c.Next()
	}
}

func currentSession(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}

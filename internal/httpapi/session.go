package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	redisstore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
)

// pauseGate guards the one stateful control endpoint (POST /api/v1/pause)
// behind a Redis-backed session, the same pattern the teacher's
// UserSessionService uses to guard its admin routes.
type pauseGate struct {
	store redisstore.Store
}

func newPauseGate(isDev bool, redisAddr string) (*pauseGate, error) {
	store, err := redisstore.NewStoreWithDB(10, "tcp", redisAddr, "", "", "0",
		[]byte("schedcore-session-signing-key-dev-only"))
	if err != nil {
		return nil, fmt.Errorf("new session store: %w", err)
	}

	store.Options(sessions.Options{
		Path:     "/api/v1",
		MaxAge:   4 * 3600,
		Secure:   !isDev,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return &pauseGate{store: store}, nil
}

func (g *pauseGate) middleware() gin.HandlerFunc {
	return sessions.Sessions("schedcore_sid", g.store)
}

// requirePaused rejects POST /api/v1/pause unless the caller already holds
// an authenticated session; there is no login endpoint in this surface, so
// a session is established out of band (e.g. by an operator's cookie jar)
// and this just enforces its presence.
func requirePaused() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if session.Get("operator") == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "session required"})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pkgredis "giveora.backend/pkg/redis"
)

// RegistrationSessionConfig controls the cookie that identifies a client's
// pending registration session
type RegistrationSessionConfig struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// RegistrationSession makes sure every request carries a session ID.
// A missing or malformed cookie is replaced with a fresh random ID.
func RegistrationSession(cfg RegistrationSessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(sessionID) != nil {
			sessionID = uuid.New().String()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, sessionID, int(cfg.TTL/time.Second), "/", "", cfg.Secure, true)

		c.Request = c.Request.WithContext(pkgredis.WithSessionID(c.Request.Context(), sessionID))
		c.Next()
	}
}

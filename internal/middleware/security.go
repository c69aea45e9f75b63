package middleware

import (
	"context"
	"net/http"

	"opsdash/pkg/logger"

	"github.com/gin-gonic/gin"
)

// UnauthorizedMessage is the fixed body of every rejected Basic Auth request.
const UnauthorizedMessage = "Unauthorized access"

// Realm is advertised in WWW-Authenticate.
const Realm = "opsdash"

// Authenticator decides whether a username/password pair is accepted.
type Authenticator interface {
	Authenticate(user, pass string) bool
}

// AuthFailureRecorder counts rejected requests.
type AuthFailureRecorder interface {
	RecordAuthFailure()
}

// SecurityLogger logs security events.
type SecurityLogger struct {
	log      logger.Logger
	recorder AuthFailureRecorder
}

// NewSecurityLogger creates a security logger; recorder may be nil.
func NewSecurityLogger(log logger.Logger, recorder AuthFailureRecorder) *SecurityLogger {
	return &SecurityLogger{log: log.Named("security"), recorder: recorder}
}

// LogFailedAuth logs a rejected authentication attempt.
func (sl *SecurityLogger) LogFailedAuth(ctx context.Context, ip, route, reason string) {
	sl.log.Warn(ctx, "authentication failed",
		logger.String("ip", ip),
		logger.String("route", route),
		logger.String("reason", reason),
	)
	if sl.recorder != nil {
		sl.recorder.RecordAuthFailure()
	}
}

// BasicAuth guards the wrapped routes with HTTP Basic credentials.
// Missing and wrong credentials get the same 401 body.
func BasicAuth(auth Authenticator, sl *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if ok && auth.Authenticate(user, pass) {
			c.Next()
			return
		}

		reason := "invalid credentials"
		if !ok {
			reason = "missing credentials"
		}
		sl.LogFailedAuth(c.Request.Context(), c.ClientIP(), c.FullPath(), reason)

		c.Header("WWW-Authenticate", `Basic realm="`+Realm+`"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": UnauthorizedMessage})
	}
}

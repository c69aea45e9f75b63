package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"opsdash/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"

	// UnmatchedRoute labels metrics for requests no route matched.
	UnmatchedRoute = "unmatched"

	requestIDKey = "request_id"
)

// RequestRecorder receives one observation per finished request.
type RequestRecorder interface {
	RecordHTTPRequest(route, method, statusCode string, seconds float64)
}

// RequestID reuses an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, if any.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RouteName is the registered route pattern, or the raw path for unmatched requests.
func RouteName(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}

// RequestLogger logs every finished request and feeds the recorder.
func RequestLogger(log logger.Logger, recorder RequestRecorder) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		if recorder != nil {
			label := c.FullPath()
			if label == "" {
				label = UnmatchedRoute
			}
			recorder.RecordHTTPRequest(label, c.Request.Method, strconv.Itoa(status), elapsed.Seconds())
		}
		log.Info(c.Request.Context(), "request",
			logger.String("method", c.Request.Method),
			logger.String("route", RouteName(c)),
			logger.Int("status", status),
			logger.String("latency", elapsed.String()),
			logger.String("ip", c.ClientIP()),
			logger.String(requestIDKey, GetRequestID(c)),
		)
	}
}

// FailureResponder writes the 500 response for a recovered panic.
type FailureResponder func(c *gin.Context, err error)

// Recover turns a handler panic into a logged 500 written by respond.
func Recover(log logger.Logger, respond FailureResponder) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			log.Error(c.Request.Context(), "handler panicked",
				logger.String("route", RouteName(c)),
				logger.String(requestIDKey, GetRequestID(c)),
				logger.Error(err),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond(c, err)
			c.Abort()
		}()
		c.Next()
	}
}

// PlainTextFailure answers with a plain-text 500.
func PlainTextFailure(c *gin.Context, _ error) {
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// JSONFailure answers with {"success": false, "error": ...} and 500.
func JSONFailure(c *gin.Context, _ error) {
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
}

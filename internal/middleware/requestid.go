// requestid.go tags every request with an identifier that ties together the
// request log line, audit entries, and any error responses for that call.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier on the wire.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key holding the identifier for the
	// logger and audit middleware downstream.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware reuses an inbound X-Request-ID (set by a load balancer
// or the calling integration) or mints a UUID v4, stores it under
// RequestIDKey, and echoes it on the response so callers can quote it when
// reporting a failed request. Installed first in the chain so every
// downstream log line carries the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

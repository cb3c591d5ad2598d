package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"recap-mail/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	requestIDHeader = "X-Request-Id"
	// Set by Google's front end on Pub/Sub pushes.
	cloudTraceHeader = "X-Cloud-Trace-Context"
	maxRequestIDLen  = 128
)

// RequestIDMiddleware tags the request context with an id the logger and the
// pipeline observers pick up. A caller supplied id is kept when it is sane.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := incomingRequestID(c)
		if requestID == "" {
			requestID = newRequestID()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

func incomingRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		// "TRACE_ID/SPAN_ID;o=TRACE_TRUE"
		trace := c.GetHeader(cloudTraceHeader)
		if i := strings.IndexAny(trace, "/;"); i >= 0 {
			trace = trace[:i]
		}
		id = trace
	}
	if len(id) > maxRequestIDLen {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}

func newRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

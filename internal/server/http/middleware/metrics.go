package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives per-request outcomes.
type RequestRecorder interface {
	HTTPRequest(route, code string)
}

// RequestMetrics counts served requests by matched route.
func RequestMetrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.HTTPRequest(route, strconv.Itoa(c.Writer.Status()))
	}
}

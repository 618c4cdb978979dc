package middleware

import (
	"time"

	"filerepo/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request at debug level and 5xx responses at warn.
// The warn line omits the query string.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			logger.Warnw("request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", status,
				"user_id", c.GetUint(ContextUserID),
				"latency", time.Since(start),
			)
			return
		}
		if !logger.IsDebugEnabled() {
			return
		}

		target := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		logger.Debugf("%s %s -> %d (%d bytes) in %s from %s user=%d",
			c.Request.Method, target, status, c.Writer.Size(), time.Since(start), c.ClientIP(), c.GetUint(ContextUserID))
	}
}

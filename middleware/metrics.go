package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialnet/monitoring"
)

// Metrics records request duration per method, route template and status.
func Metrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitoring.RequestDuration.
			WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

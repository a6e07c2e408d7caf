package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// stepGate serializes access to the underlying Scheduler. A Scheduler is
// not safe for concurrent use (spec: callers must not share one across
// goroutines), so step requests that arrive while one is already in flight
// are rejected rather than queued silently behind a lock, the same
// fail-fast posture the teacher's CapConcurrentRequests middleware takes
// for its own downstream-protection use case, specialized here to a
// capacity of exactly one.
func stepGate() gin.HandlerFunc {
	slot := make(chan struct{}, 1)

	return func(c *gin.Context) {
		select {
		case slot <- struct{}{}:
			defer func() { <-slot }()
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "a step is already in flight",
			})
		}
	}
}

package http

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// corsMiddleware lets the browser frontend call the API from the configured origins.
// An empty list or a "*" entry allows every origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return originAllowed(origin, allowed) },
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	})
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(strings.TrimSpace(candidate), origin) {
			return true
		}
	}
	return false
}

package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the widget to post from the sites it is embedded on. With no
// origins configured every origin is accepted.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Accept-Language",
			"X-Requested-With", "Cache-Control",
		},
		ExposeHeaders: []string{
			"Content-Type", "Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}

	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}

	return cors.New(config)
}

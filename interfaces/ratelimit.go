package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"postulaciones/infrastructure"
)

// RateLimit enforces per-IP limits on the public endpoints. Limiter errors
// let the request through.
func RateLimit(limiter infrastructure.RateLimiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		ok, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warn().Err(err).Str("client_ip", ip).Msg("rate limiter unavailable")
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Demasiadas solicitudes. Intente nuevamente en un momento."})
			return
		}
		c.Next()
	}
}

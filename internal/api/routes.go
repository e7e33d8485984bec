package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/meudinheiro/meudinheiro/internal/logger"
)

// NewRouter builds the gin engine with logging, recovery and CORS.
func NewRouter(h *Handler, log zerolog.Logger, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes mounts the API under /api.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")

	api.GET("/health", h.Health)
	api.GET("/imports", h.ImportLog)

	accounts := api.Group("/accounts/:id")
	accounts.POST("/imports", h.Import)
	accounts.GET("/balance", h.Balance)
	accounts.GET("/transactions", h.Transactions)

	api.POST("/rules", h.CreateRule)

	users := api.Group("/users/:user_id")
	users.GET("/accounts", h.Accounts)
	users.GET("/networth", h.NetWorth)
	users.GET("/rules", h.Rules)
}

// requestLogger puts log into each request's context and logs the outcome.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Msg("HTTP request")
	}
}

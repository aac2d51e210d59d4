package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nexuschat/server/internal/adapters/ws"
	"github.com/nexuschat/server/internal/app"
	"github.com/nexuschat/server/internal/config"
	"github.com/nexuschat/server/internal/core"
)

// SetupRouter wires the HTTP surface: the WebSocket endpoint plus the small
// read-only API around it. CRUD for users/messages/rooms lives elsewhere.
func SetupRouter(ctx context.Context, cfg *config.Config, router *app.Router, verifier core.TokenVerifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Int("port", cfg.Port).Msg("router setup")

	ctl := ws.NewController(router, verifier, cfg)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "app": "nexuschat"})
	})

	// GET /api/presence/online — currently connected user ids
	api.GET("/presence/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": router.Registry.OnlineUsers()})
	})

	api.GET("/ws/:user_id", func(c *gin.Context) {
		ctl.HandleChat(ctx, c)
	})

	return r
}

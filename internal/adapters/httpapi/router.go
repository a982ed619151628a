// Package httpapi wires the gin router around the signaling endpoint.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/groupdesk/realtime/internal/adapters/signal"
	"github.com/groupdesk/realtime/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		ctl.Handle(ctx, c)
	})

	// Diagnostic view of live rooms; membership counts only.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"rooms":       ctl.Svc.Rooms.List(),
			"connections": ctl.Svc.Registry.Count(),
		})
	})

	log.Info().Str("module", "adapters.httpapi").Msg("router setup")
	return r
}

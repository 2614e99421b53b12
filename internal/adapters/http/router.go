package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/avolkov/relay/internal/adapters"
	"github.com/avolkov/relay/internal/app"
	"github.com/avolkov/relay/internal/auth"
	"github.com/avolkov/relay/internal/config"
	"github.com/avolkov/relay/internal/domain"
	"github.com/avolkov/relay/internal/store"
)

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, verifier auth.TokenVerifier, users store.UserStore, iceServers []webrtc.ICEServer) *gin.Engine {
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
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Read-only presence view for pollers; the socket gets push updates.
	api.GET("/presence", func(c *gin.Context) {
		c.JSON(http.StatusOK, orch.Presence.Snapshot())
	})

	// Per-user status: the persisted record plus the live presence entry,
	// when the relay currently knows the user.
	api.GET("/users/:id", func(c *gin.Context) {
		id := domain.UserID(c.Param("id"))
		user, err := users.FindByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "user store unavailable"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		resp := gin.H{"user": user}
		if entry, ok := orch.Presence.Get(id); ok {
			resp["presence"] = entry
		}
		c.JSON(http.StatusOK, resp)
	})

	// STUN/TURN list for clients to build their peer connection with once
	// the signaling handshake completes.
	api.GET("/ice", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": iceServers})
	})

	ctl := &adapters.WSController{Orch: orch, Verifier: verifier, Cfg: cfg}
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

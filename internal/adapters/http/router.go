package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Huddle/internal/adapters/rtc"
	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/auth"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/repo"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Orch     *orch.Orchestrator
	Signal   *signal.SignalWSController
	Auth     *auth.Provider
	Messages repo.MessageRepo
	Gatherer prometheus.Gatherer
}

type handlers struct {
	cfg  *config.Config
	deps Deps
	ice  rtc.ClientConfig
}

// CORSMiddleware allows any origin, like the browser clients expect.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Auth.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("HuddleSessions", store))

	h := &handlers{
		cfg:  cfg,
		deps: deps,
		ice:  rtc.NewClientConfig(rtc.Configuration(cfg.ICEServers)),
	}

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", h.health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.Request.RemoteAddr).Msg("ws signal endpoint hit")
		deps.Signal.HandleSignal(ctx, c)
	})

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/logout", h.logout)
	authGroup.GET("/me", h.me)

	api.GET("/messages/:roomId", h.listMessages)
	api.POST("/messages", h.postMessage)

	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:roomId/members", h.roomMembers)

	api.GET("/rtc/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, h.ice)
	})

	return r
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.deps.Orch.Registry.Count(),
		"rooms":       h.deps.Orch.Rooms.Len(),
	})
}

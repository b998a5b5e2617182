// Package http assembles the gin router: static client assets, the
// realtime websocket endpoint, the login handoff, and the app catalog.
package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/adapters"
	"github.com/vibephone/switchboard/internal/appstore"
	"github.com/vibephone/switchboard/internal/config"
	"github.com/vibephone/switchboard/internal/switchboard"
)

// ClientTokenMiddleware tags every browser with a stable token cookie so
// log lines can be correlated across reconnects.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, exch *switchboard.Exchange, apps *appstore.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SwitchboardSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	ws := &adapters.WSController{
		Exchange: exch,
		Opts: adapters.WSOptions{
			ReadLimit:  cfg.ReadLimit,
			SendBuffer: cfg.SendBuffer,
			RateLimit:  cfg.RateLimit,
			RateWindow: cfg.RateWindow,
		},
	}
	api.GET("/ws", ws.HandleWS)

	RegisterLogin(api)
	appstore.RegisterRoutes(api, apps)

	return r
}

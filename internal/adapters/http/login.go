package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vibephone/switchboard/internal/domain"
)

// The login handoff mints a device id for browser clients and remembers it
// in the cookie session. The pair it returns is what the client presents
// in its identify frame; the core never initiates or validates the login.

type loginRequest struct {
	Name string `json:"name" binding:"required"`
}

func RegisterLogin(api *gin.RouterGroup) {
	api.POST("/login", handleLogin)
	api.GET("/session", handleSession)
}

func handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing or invalid name"})
		return
	}
	name := domain.CleanName(req.Name)

	sess := sessions.Default(c)
	deviceID, _ := sess.Get("deviceId").(string)
	if deviceID == "" {
		deviceID = "web-" + uuid.NewString()
	}
	sess.Set("deviceId", deviceID)
	sess.Set("name", name)
	if err := sess.Save(); err != nil {
		log.Error().Str("module", "adapters.http").Err(err).Msg("session save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "session"})
		return
	}

	log.Info().Str("module", "adapters.http").Str("device", deviceID).Msg("login handoff")
	c.JSON(http.StatusOK, gin.H{"ok": true, "deviceId": deviceID, "name": name})
}

func handleSession(c *gin.Context) {
	sess := sessions.Default(c)
	deviceID, _ := sess.Get("deviceId").(string)
	if deviceID == "" {
		c.Status(http.StatusNoContent)
		return
	}
	name, _ := sess.Get("name").(string)
	c.JSON(http.StatusOK, gin.H{"ok": true, "deviceId": deviceID, "name": name})
}

package appstore

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes exposes the catalog over HTTP alongside the websocket
// frames, for clients that install bundles out of band.
func RegisterRoutes(api *gin.RouterGroup, s *Store) {
	api.GET("/apps", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "apps": s.List()})
	})

	api.GET("/apps/:id/manifest", func(c *gin.Context) {
		m, err := s.Manifest(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "manifest": m})
	})

	api.GET("/apps/:id/file/*path", func(c *gin.Context) {
		raw, err := s.File(c.Param("id"), c.Param("path"))
		switch {
		case errors.Is(err, ErrBadPath):
			c.String(http.StatusBadRequest, "bad_path")
		case err != nil:
			c.String(http.StatusNotFound, "not_found")
		default:
			c.Data(http.StatusOK, "text/plain; charset=utf-8", raw)
		}
	})
}

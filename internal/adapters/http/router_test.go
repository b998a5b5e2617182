package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTokenMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ClientTokenMiddleware())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = c.GetString("client_token")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotEmpty(t, seen, "handlers must see the token in context")

	var cookie string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "ct" {
			cookie = ck.Value
		}
	}
	assert.Equal(t, seen, cookie, "context token and cookie must match")

	// A returning client keeps its token.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: "ct", Value: "token-123"})
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "token-123", seen)
}

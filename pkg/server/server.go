// Package server assembles the HTTP surface of the bridge: health check,
// active-session listing and the media-stream WebSocket entry point.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/birddigital/knowlarity-ai-bridge/pkg/bridge"
)

// NewRouter builds the gin engine serving the bridge.
func NewRouter(b *bridge.Bridge) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORS())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Server is running"})
	})

	router.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, b.ActiveSessions())
	})

	// The gateway connects here once per call.
	router.GET("/knowlarity-media-stream", func(c *gin.Context) {
		b.HandleMediaStream(c.Writer, c.Request)
	})

	return router
}

// CORS allows cross-origin requests to the HTTP endpoints.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerHealthRoute() {
	s.Engine.GET(s.Options.HealthEndpoint, s.getHealthHandler())
}

func (s *Server) getHealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.Options.ServiceVersion})
	}
}

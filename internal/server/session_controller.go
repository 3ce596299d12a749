package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mxcd/gin-oidc-auth/pkg/oidc"
	"github.com/rs/zerolog/log"
)

// registerSessionRoutes exposes session checks for reverse proxies.
// The UI check redirects to the login, the API check answers 401.
func (s *Server) registerSessionRoutes() {
	handler := s.Options.OidcHandler
	if s.Options.SessionUiEndpoint != "" {
		s.Engine.GET(s.Options.SessionUiEndpoint, handler.GetUiAuthMiddleware(), s.handleSessionCheck())
	}
	if s.Options.SessionApiEndpoint != "" {
		s.Engine.GET(s.Options.SessionApiEndpoint, handler.GetApiAuthMiddleware(), s.handleSessionCheck())
	}
}

func (s *Server) handleSessionCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, err := s.Options.OidcHandler.SessionStore.GetSessionData(c.Request)
		if err != nil || sessionData == nil {
			log.Debug().Err(err).Msg("session vanished after middleware check")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		setIdentityHeaders(c, sessionData)
		c.JSON(http.StatusOK, gin.H{"status": "authenticated"})
	}
}

func setIdentityHeaders(c *gin.Context, sessionData *oidc.SessionData) {
	c.Header("X-Auth-Subject", sessionData.Sub)
	if sessionData.Username != "" {
		c.Header("X-Auth-Username", sessionData.Username)
	}
	if sessionData.Email != "" {
		c.Header("X-Auth-Email", sessionData.Email)
	}
}

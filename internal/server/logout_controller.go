package server

import (
	"github.com/gin-gonic/gin"
	"github.com/mxcd/gin-oidc-auth/pkg/oidc"
	"github.com/rs/zerolog/log"
)

// registerLogoutRoute takes over the logout path when the handler's own logout route is disabled,
// sending users to LogoutReturnTo instead of the configured post logout redirect.
func (s *Server) registerLogoutRoute() {
	routes := s.Options.OidcHandler.Options.Routes
	if !routes.DisableLogout {
		return
	}
	path := routes.BasePath + routes.Logout
	log.Debug().Str("path", path).Str("returnTo", s.Options.LogoutReturnTo).Msg("registering custom logout route")
	s.Engine.GET(path, s.handleLogout())
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.Options.OidcHandler.Logout(c, &oidc.LogoutParams{ReturnTo: s.Options.LogoutReturnTo})
		if err != nil {
			log.Error().Err(err).Msg("custom logout failed")
		}
	}
}

package oidc

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetUiAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, err := h.SessionStore.GetSessionData(c.Request)
		if err != nil || sessionData == nil || !sessionData.Authenticated {
			h.rememberReturnTo(c)
			if h.shouldAttemptSilentLogin(c) {
				h.cancelSilentLogin(c.Writer)
				h.startLogin(c, true)
				c.Abort()
				return
			}
			c.Redirect(http.StatusFound, h.LoginPath())
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) GetApiAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, err := h.SessionStore.GetSessionData(c.Request)
		if err != nil || sessionData == nil || !sessionData.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

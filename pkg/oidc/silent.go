package oidc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const skipSilentLoginCookieName = "skipSilentLogin"

// errors a provider answers a prompt=none request with when user interaction is needed
var silentLoginErrors = map[string]bool{
	"login_required":       true,
	"interaction_required": true,
	"consent_required":     true,
}

// cancelSilentLogin marks the user agent so no silent login is attempted.
// The cookie shares the session cookie's path.
func (h *Handler) cancelSilentLogin(w http.ResponseWriter) {
	http.SetCookie(w, h.skipSilentLoginCookie("true", 0))
}

// resumeSilentLogin removes the skipSilentLogin marker.
func (h *Handler) resumeSilentLogin(w http.ResponseWriter) {
	http.SetCookie(w, h.skipSilentLoginCookie("", -1))
}

func (h *Handler) silentLoginSkipped(r *http.Request) bool {
	cookie, err := r.Cookie(skipSilentLoginCookieName)
	return err == nil && cookie.Value != ""
}

func (h *Handler) skipSilentLoginCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     skipSilentLoginCookieName,
		Value:    value,
		Path:     h.Options.Session.Path,
		Domain:   h.Options.Session.Domain,
		MaxAge:   maxAge,
		Secure:   h.Options.Session.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// shouldAttemptSilentLogin reports whether an unauthenticated request may try prompt=none.
// Only browser navigations are considered.
func (h *Handler) shouldAttemptSilentLogin(c *gin.Context) bool {
	if !h.Options.AttemptSilentLogin || h.silentLoginSkipped(c.Request) {
		return false
	}
	return c.Request.Method == http.MethodGet && c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEHTML
}

// GetSilentLoginMiddleware attempts a single silent login for unauthenticated
// users on pages that do not require authentication. Otherwise the request continues.
func (h *Handler) GetSilentLoginMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, err := h.SessionStore.GetSessionData(c.Request)
		if err == nil && sessionData != nil && sessionData.Authenticated {
			c.Next()
			return
		}
		if !h.shouldAttemptSilentLogin(c) {
			c.Next()
			return
		}

		log.Debug().Str("path", c.Request.URL.Path).Msg("attempting silent login")
		h.rememberReturnTo(c)
		h.cancelSilentLogin(c.Writer)
		h.startLogin(c, true)
		c.Abort()
	}
}

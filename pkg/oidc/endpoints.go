package oidc

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	stateKey    = "state"
	silentKey   = "silent"
	returnToKey = "returnTo"
)

// RegisterRoutes registers the login, callback, logout and userinfo routes below Routes.BasePath.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	routes := h.Options.Routes
	group := router.Group(routes.BasePath)
	group.GET(routes.Login, h.loginHandler())
	group.GET(routes.Callback, h.callbackHandler())
	if !routes.DisableLogout {
		group.GET(routes.Logout, h.logoutHandler())
	}
	if h.Options.EnableUserInfoEndpoint {
		group.GET("/userinfo", h.GetUiAuthMiddleware(), h.userinfoHandler())
	}
}

// LoginPath is the path of the login route including Routes.BasePath.
func (h *Handler) LoginPath() string {
	return h.Options.Routes.BasePath + h.Options.Routes.Login
}

func (h *Handler) loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.startLogin(c, false)
	}
}

// startLogin stores a fresh state in the session and redirects to the provider.
// A silent login asks the provider not to show any UI.
func (h *Handler) startLogin(c *gin.Context, silent bool) {
	state, err := generateSessionState()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}

	err = h.SessionStore.NewSession(c.Request, c.Writer)
	if err != nil {
		log.Error().Err(err).Msg("failed to create new session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create new session"})
		return
	}

	err = h.SessionStore.SetStringValue(c.Request, c.Writer, stateKey, state)
	if err != nil {
		log.Error().Err(err).Msg("failed to set state in session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set state in session"})
		return
	}

	silentValue := ""
	var authOptions []oauth2.AuthCodeOption
	if silent {
		silentValue = "true"
		authOptions = append(authOptions, oauth2.SetAuthURLParam("prompt", "none"))
	}
	err = h.SessionStore.SetStringValue(c.Request, c.Writer, silentKey, silentValue)
	if err != nil {
		log.Error().Err(err).Msg("failed to set silent flag in session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set state in session"})
		return
	}

	authURL := h.OAuth2Config.AuthCodeURL(state, authOptions...)
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := c.Query("state")
		savedState, err := h.SessionStore.GetStringValue(c.Request, stateKey)
		if err != nil {
			log.Error().Err(err).Msg("failed to get state from session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get state from session"})
			return
		}

		if state == "" || savedState == "" || state != savedState {
			log.Warn().Msg("state mismatch in OIDC callback")
			h.metrics.logins.WithLabelValues("failure").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
			return
		}

		if providerError := c.Query("error"); providerError != "" {
			h.handleProviderError(c, providerError)
			return
		}

		code := c.Query("code")
		if code == "" {
			log.Warn().Msg("no code in OIDC callback")
			h.metrics.logins.WithLabelValues("failure").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "no code provided"})
			return
		}

		ctx := c.Request.Context()
		oauth2Token, err := h.OAuth2Config.Exchange(ctx, code)
		if err != nil {
			log.Error().Err(err).Msg("failed to exchange token")
			h.metrics.logins.WithLabelValues("failure").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to exchange token"})
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			log.Error().Msg("no id_token in oauth2 token")
			h.metrics.logins.WithLabelValues("failure").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no id_token"})
			return
		}

		idToken, err := h.Verifier.Verify(ctx, rawIDToken)
		if err != nil {
			log.Error().Err(err).Msg("failed to verify id_token")
			h.metrics.logins.WithLabelValues("failure").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify token"})
			return
		}

		var claimsMap map[string]interface{}
		if err := idToken.Claims(&claimsMap); err != nil {
			log.Error().Err(err).Msg("failed to parse claims")
			h.metrics.logins.WithLabelValues("failure").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse claims"})
			return
		}

		sessionData := &SessionData{
			Authenticated: true,
			Sub:           idToken.Subject,
			Name:          stringClaim(claimsMap, "name"),
			Username:      stringClaim(claimsMap, "preferred_username"),
			Email:         stringClaim(claimsMap, "email"),
			Claims:        claimsMap,
			IdToken:       rawIDToken,
			AccessToken:   oauth2Token.AccessToken,
			RefreshToken:  oauth2Token.RefreshToken,
			TokenType:     oauth2Token.TokenType,
			Expiry:        oauth2Token.Expiry,
		}

		// read before renewal, which drops the old session's values
		returnTo := h.takeReturnTo(c)

		err = h.SessionStore.RenewSession(c.Request, c.Writer, sessionData)
		if err != nil {
			log.Error().Err(err).Msg("failed to save session")
			h.metrics.logins.WithLabelValues("failure").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
			return
		}
		h.resumeSilentLogin(c.Writer)
		h.metrics.logins.WithLabelValues("success").Inc()
		log.Debug().Str("sub", sessionData.Sub).Msg("user logged in")

		c.Redirect(http.StatusFound, returnTo)
	}
}

// rememberReturnTo saves the current request as the target after login.
// A later unauthenticated request replaces it.
func (h *Handler) rememberReturnTo(c *gin.Context) {
	err := h.SessionStore.SetStringValue(c.Request, c.Writer, returnToKey, c.Request.URL.RequestURI())
	if err != nil {
		log.Error().Err(err).Msg("failed to save return target in session")
	}
}

// takeReturnTo consumes the target after login: the remembered request,
// else a flash set through SessionStore.SetStringFlash, else BaseUrl.
func (h *Handler) takeReturnTo(c *gin.Context) string {
	returnTo, err := h.SessionStore.GetStringValue(c.Request, returnToKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to get return target from session")
	}
	if returnTo != "" {
		if err := h.SessionStore.SetStringValue(c.Request, c.Writer, returnToKey, ""); err != nil {
			log.Error().Err(err).Msg("failed to clear return target in session")
		}
		return returnTo
	}

	flash, err := h.SessionStore.GetStringFlash(c.Request, c.Writer)
	if err != nil {
		log.Error().Err(err).Msg("failed to get string flash")
	}
	if flash != nil && *flash != "" {
		return *flash
	}
	return h.Options.BaseUrl
}

// handleProviderError handles an error response of the authorization endpoint.
// A failed silent login sends the user back to where the attempt started.
func (h *Handler) handleProviderError(c *gin.Context, providerError string) {
	silent, err := h.SessionStore.GetStringValue(c.Request, silentKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to get silent flag from session")
	}

	if silent == "true" && silentLoginErrors[providerError] {
		log.Debug().Str("error", providerError).Msg("silent login not possible")
		h.metrics.logins.WithLabelValues("silent_failure").Inc()
		h.cancelSilentLogin(c.Writer)
		_ = h.SessionStore.SetStringValue(c.Request, c.Writer, stateKey, "")
		c.Redirect(http.StatusFound, h.takeReturnTo(c))
		return
	}

	log.Warn().Str("error", providerError).Str("description", c.Query("error_description")).Msg("provider returned an error in OIDC callback")
	h.metrics.logins.WithLabelValues("failure").Inc()
	c.JSON(http.StatusBadRequest, gin.H{"error": providerError})
}

func (h *Handler) userinfoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, err := h.SessionStore.GetSessionData(c.Request)
		if err != nil || sessionData == nil || !sessionData.Authenticated {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userinfo := *sessionData
		userinfo.IdToken = ""
		userinfo.AccessToken = ""
		userinfo.RefreshToken = ""
		c.JSON(http.StatusOK, userinfo)
	}
}

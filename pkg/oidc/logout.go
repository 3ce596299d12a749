package oidc

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	logoutModeLocal       = "local"
	logoutModeDistributed = "distributed"
	logoutModeAuthok      = "authok"
)

// logoutConfig holds everything needed to compute a logout redirect.
// It is built once in NewHandler and never modified.
type logoutConfig struct {
	baseUrl            string
	postLogoutRedirect string
	clientId           string
	issuer             string
	endSessionEndpoint string
	idpLogout          bool
	authokLogout       bool
}

func newLogoutConfig(options *Options, metadata *ProviderMetadata) (*logoutConfig, error) {
	issuer := strings.TrimSuffix(metadata.Issuer, "/")
	if options.IdpLogout && !isAbsoluteHttpUrl(issuer) {
		return nil, configError("provider issuer %q must be an absolute http(s) URL for idp logout", metadata.Issuer)
	}

	endSessionEndpoint := metadata.EndSessionEndpoint
	if endSessionEndpoint == "" {
		endSessionEndpoint = issuer + "/session/end"
	}

	return &logoutConfig{
		baseUrl:            options.BaseUrl,
		postLogoutRedirect: options.Routes.PostLogoutRedirect,
		clientId:           options.Provider.ClientId,
		issuer:             issuer,
		endSessionEndpoint: endSessionEndpoint,
		idpLogout:          options.IdpLogout,
		authokLogout:       options.AuthokLogout,
	}, nil
}

func (l *logoutConfig) mode() string {
	switch {
	case !l.idpLogout:
		return logoutModeLocal
	case l.authokLogout:
		return logoutModeAuthok
	default:
		return logoutModeDistributed
	}
}

// postLogoutTarget resolves where the user ends up once logout is complete.
// An invalid returnTo is ignored.
func (l *logoutConfig) postLogoutTarget(returnTo string) string {
	if returnTo != "" {
		if isValidReturnTo(returnTo) {
			return joinUrl(l.baseUrl, returnTo)
		}
		log.Warn().Str("returnTo", returnTo).Msg("ignoring invalid logout return_to")
	}
	if l.postLogoutRedirect != "" {
		return joinUrl(l.baseUrl, l.postLogoutRedirect)
	}
	return l.baseUrl
}

// buildUrl returns the URL the browser is redirected to on logout.
func (l *logoutConfig) buildUrl(idToken string, returnTo string) string {
	target := l.postLogoutTarget(returnTo)

	switch l.mode() {
	case logoutModeAuthok:
		return withQuery(l.issuer+"/logout",
			queryParam{"return_to", target},
			queryParam{"client_id", l.clientId},
		)
	case logoutModeDistributed:
		params := []queryParam{{"post_logout_redirect_uri", target}}
		if idToken != "" {
			params = append(params, queryParam{"id_token_hint", idToken})
		}
		return withQuery(l.endSessionEndpoint, params...)
	default:
		return target
	}
}

type queryParam struct {
	key   string
	value string
}

// withQuery appends params to endpoint, keeping their order.
func withQuery(endpoint string, params ...queryParam) string {
	var sb strings.Builder
	sb.WriteString(endpoint)
	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	for _, p := range params {
		sb.WriteString(separator)
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(p.value))
		separator = "&"
	}
	return sb.String()
}

// isValidReturnTo accepts absolute http(s) URLs and root-relative paths.
func isValidReturnTo(target string) bool {
	if strings.HasPrefix(target, "/") {
		return !strings.HasPrefix(target, "//") && !strings.Contains(target, "\\")
	}
	return isAbsoluteHttpUrl(target)
}

// joinUrl appends a root-relative path to base. Absolute targets are returned as is.
func joinUrl(base string, target string) string {
	if !strings.HasPrefix(target, "/") {
		return target
	}
	return strings.TrimSuffix(base, "/") + target
}

func (h *Handler) logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = h.Logout(c, nil)
	}
}

// Logout clears the session, sets the skipSilentLogin cookie and redirects
// to the post logout target, or to the provider when IdpLogout is enabled.
// It can be called from custom routes to override the post logout target.
// On failure a 500 response is written and the session store error is returned.
func (h *Handler) Logout(c *gin.Context, params *LogoutParams) error {
	returnTo := ""
	if params != nil {
		returnTo = params.ReturnTo
	}

	idToken := ""
	sessionData, err := h.SessionStore.GetSessionData(c.Request)
	if err != nil {
		log.Debug().Err(err).Msg("could not read session on logout")
	} else if sessionData != nil {
		idToken = sessionData.IdToken
	}

	redirectUrl := h.logout.buildUrl(idToken, returnTo)

	err = h.SessionStore.Delete(c.Request, c.Writer)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return err
	}
	h.cancelSilentLogin(c.Writer)

	mode := h.logout.mode()
	h.metrics.logouts.WithLabelValues(mode).Inc()
	log.Debug().Str("mode", mode).Msg("user logged out")

	c.Redirect(http.StatusFound, redirectUrl)
	return nil
}

package oidc

import (
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
)

type Options struct {
	// OIDC provider configuration
	Provider *ProviderOptions
	// Session configuration
	Session *SessionOptions
	// Route configuration
	Routes *RouteOptions
	// Origin of the application, e.g. https://app.example.com
	// Default post logout target and base for relative redirect targets
	BaseUrl string
	// Terminate the session at the provider as well (RP-initiated logout)
	IdpLogout bool
	// Use the authok logout endpoint convention instead of end_session_endpoint.
	// Requires IdpLogout.
	AuthokLogout bool
	// Try a prompt=none login once before asking the user to log in
	AttemptSilentLogin bool
	// Enables the /userinfo endpoint
	EnableUserInfoEndpoint bool
	// Registerer for the login/logout counters. Not registered if nil.
	MetricsRegisterer prometheus.Registerer
}

type RouteOptions struct {
	// Prefix for all OIDC routes, e.g. /foo when mounted under a sub path
	BasePath string
	// defaults to /login
	Login string
	// defaults to /callback
	Callback string
	// defaults to /logout
	Logout string
	// Do not register the default logout route.
	// Use Handler.Logout from a custom route instead.
	DisableLogout bool
	// Path (relative to BaseUrl) or absolute URL to send the user to after logout
	PostLogoutRedirect string
}

type Handler struct {
	Options      *Options
	Provider     *oidc.Provider
	OAuth2Config *oauth2.Config
	Verifier     *oidc.IDTokenVerifier
	SessionStore *SessionStore
	logout       *logoutConfig
	metrics      *metrics
}

type SessionStore struct {
	Options *SessionOptions
	store   sessions.Store
	cache   sessionCache
}

type SessionOptions struct {
	// key for signing session cookies
	SecretSigningKey string
	// key for encrypting session cookies
	// must be either 32 or 64 bytes long
	SecretEncryptionKey string
	// name of the session cookie
	Name string
	// domain for the session cookie
	Domain string
	// path for the session cookie
	// defaults to /
	Path string
	// max age of the session cookie in seconds
	// defaults to 86400 (1 day)
	MaxAge int
	Secure bool
	// max entries of the local session cache
	// defaults to 10000
	CacheSize int
	// TTL of local cache entries
	// defaults to MaxAge
	CacheTTL time.Duration
	// stores sessions in redis instead of the local cache if set
	Redis *RedisSessionOptions
}

type RedisSessionOptions struct {
	Host string
	// defaults to 6379
	Port     int
	Password string
	DB       int
	// defaults to oidc-sessions
	KeyPrefix string
	// defaults to 24h
	TTL time.Duration
}

type ProviderOptions struct {
	// URL of the OIDC provider (issuer base URL)
	// For keycloak, use the realm base url, e.g. https://keycloak.example.com/realms/<realm-name>
	Issuer string
	// OIDC client id configured in the provider
	ClientId string
	// OIDC client secret configured in the provider
	ClientSecret string
	// fully qualified redirect URI for OIDC callbacks
	// defaults to BaseUrl + Routes.BasePath + Routes.Callback
	RedirectUri string
	// oidc scopes to request
	// if not set, defaults to openid, profile, email
	Scopes []string
	// Additional scopes to request on top the default ones
	ExtraScopes []string
	// Static provider metadata. Discovery is skipped if set.
	Metadata *ProviderMetadata
}

// ProviderMetadata is the subset of the discovery document the handler uses.
type ProviderMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksUri               string `json:"jwks_uri"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

type SessionData struct {
	Authenticated bool                   `json:"authenticated"`
	Sub           string                 `json:"sub"`
	Name          string                 `json:"name"`
	Username      string                 `json:"username"`
	Email         string                 `json:"email"`
	Claims        map[string]interface{} `json:"claims"`
	IdToken       string                 `json:"idToken,omitempty"`
	AccessToken   string                 `json:"accessToken,omitempty"`
	RefreshToken  string                 `json:"refreshToken,omitempty"`
	TokenType     string                 `json:"tokenType,omitempty"`
	Expiry        time.Time              `json:"expiry"`
}

// LogoutParams are per-call overrides for Handler.Logout.
type LogoutParams struct {
	// Post logout target. Takes precedence over Routes.PostLogoutRedirect and BaseUrl.
	ReturnTo string
}

package oidc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

func NewHandler(options *Options) (*Handler, error) {
	err := validateOptions(options)
	if err != nil {
		return nil, err
	}
	applyDefaults(options)

	ctx := context.Background()
	provider, metadata, err := newProvider(ctx, options.Provider)
	if err != nil {
		return nil, err
	}

	if len(options.Provider.Scopes) == 0 {
		options.Provider.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	options.Provider.Scopes = mergeScopes(options.Provider.Scopes, options.Provider.ExtraScopes)

	if options.Provider.RedirectUri == "" {
		options.Provider.RedirectUri = callbackUrl(options.BaseUrl, options.Routes)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     options.Provider.ClientId,
		ClientSecret: options.Provider.ClientSecret,
		RedirectURL:  options.Provider.RedirectUri,
		Endpoint:     provider.Endpoint(),
		Scopes:       options.Provider.Scopes,
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: options.Provider.ClientId,
	})

	logout, err := newLogoutConfig(options, metadata)
	if err != nil {
		return nil, err
	}

	sessionStore, err := newSessionStore(options.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	metrics, err := newMetrics(options.MetricsRegisterer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	handler := &Handler{
		Options:      options,
		Provider:     provider,
		OAuth2Config: oauth2Config,
		Verifier:     verifier,
		SessionStore: sessionStore,
		logout:       logout,
		metrics:      metrics,
	}

	log.Debug().
		Str("issuer", metadata.Issuer).
		Bool("idpLogout", options.IdpLogout).
		Bool("authokLogout", options.AuthokLogout).
		Msg("oidc handler initialized")

	return handler, nil
}

// newProvider discovers the provider, or builds it from static metadata.
func newProvider(ctx context.Context, options *ProviderOptions) (*oidc.Provider, *ProviderMetadata, error) {
	if options.Metadata != nil {
		metadata := *options.Metadata
		if metadata.Issuer == "" {
			metadata.Issuer = options.Issuer
		}
		providerConfig := &oidc.ProviderConfig{
			IssuerURL:   metadata.Issuer,
			AuthURL:     metadata.AuthorizationEndpoint,
			TokenURL:    metadata.TokenEndpoint,
			UserInfoURL: metadata.UserinfoEndpoint,
			JWKSURL:     metadata.JwksUri,
		}
		return providerConfig.NewProvider(ctx), &metadata, nil
	}

	provider, err := oidc.NewProvider(ctx, options.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	var metadata ProviderMetadata
	if err := provider.Claims(&metadata); err != nil {
		return nil, nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}
	if metadata.Issuer == "" {
		metadata.Issuer = options.Issuer
	}
	return provider, &metadata, nil
}

func applyDefaults(options *Options) {
	if options.Routes == nil {
		options.Routes = &RouteOptions{}
	}
	if options.Routes.Login == "" {
		options.Routes.Login = "/login"
	}
	if options.Routes.Callback == "" {
		options.Routes.Callback = "/callback"
	}
	if options.Routes.Logout == "" {
		options.Routes.Logout = "/logout"
	}
	options.Routes.BasePath = strings.TrimSuffix(options.Routes.BasePath, "/")

	if options.Session.Path == "" {
		options.Session.Path = "/"
	}
	if options.Session.MaxAge == 0 {
		options.Session.MaxAge = 86400
	}
}

func validateOptions(options *Options) error {
	if options == nil {
		return configError("options cannot be nil")
	}
	if options.Provider == nil {
		return configError("provider options cannot be nil")
	}
	if options.Session == nil {
		return configError("session options cannot be nil")
	}

	if options.BaseUrl == "" {
		return configError("base URL cannot be empty")
	}
	if !isAbsoluteHttpUrl(options.BaseUrl) {
		return configError("base URL %q must be an absolute http(s) URL", options.BaseUrl)
	}

	if options.Provider.ClientId == "" {
		return configError("provider client ID cannot be empty")
	}
	if options.Provider.ClientSecret == "" {
		return configError("provider client secret cannot be empty")
	}
	if options.Provider.Issuer == "" {
		return configError("provider issuer cannot be empty")
	}
	if !isAbsoluteHttpUrl(options.Provider.Issuer) {
		return configError("provider issuer %q must be an absolute http(s) URL", options.Provider.Issuer)
	}

	if options.AuthokLogout && !options.IdpLogout {
		return configError("authok logout requires idp logout to be enabled")
	}
	if options.Routes != nil && options.Routes.PostLogoutRedirect != "" && !isValidReturnTo(options.Routes.PostLogoutRedirect) {
		return configError("post logout redirect %q must be a root-relative path or an absolute http(s) URL", options.Routes.PostLogoutRedirect)
	}

	if options.Session.SecretSigningKey == "" {
		return configError("session secret signing key cannot be empty")
	}
	if len(options.Session.SecretEncryptionKey) != 32 && len(options.Session.SecretEncryptionKey) != 64 {
		return configError("session secret encryption key must be 32 or 64 bytes long")
	}
	if options.Session.Name == "" {
		return configError("session name cannot be empty")
	}
	if options.Session.Path != "" && !strings.HasPrefix(options.Session.Path, "/") {
		return configError("session cookie path must start with /")
	}
	if options.Session.Redis != nil && options.Session.Redis.Host == "" {
		return configError("session redis host cannot be empty")
	}

	return nil
}

// callbackUrl joins BaseUrl and the callback route. BasePath is not repeated
// when BaseUrl already ends with it, e.g. http://host/foo with BasePath /foo.
func callbackUrl(baseUrl string, routes *RouteOptions) string {
	base := strings.TrimSuffix(baseUrl, "/")
	if routes.BasePath != "" && !strings.HasSuffix(base, routes.BasePath) {
		base += routes.BasePath
	}
	return base + routes.Callback
}

func isAbsoluteHttpUrl(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

package oidc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestOptions() *Options {
	return &Options{
		BaseUrl: "http://example.org",
		Provider: &ProviderOptions{
			Issuer:       "https://op.example.com",
			ClientId:     "client-id",
			ClientSecret: "client-secret",
		},
		Session: &SessionOptions{
			SecretSigningKey:    "signing-key-at-least-32-bytes!!!",
			SecretEncryptionKey: "01234567890123456789012345678901",
			Name:                "test-session",
			MaxAge:              3600,
		},
	}
}

func TestValidateOptionsNil(t *testing.T) {
	assert.Error(t, validateOptions(nil))
	assert.Error(t, validateOptions(&Options{Session: &SessionOptions{}}))
	assert.Error(t, validateOptions(&Options{Provider: &ProviderOptions{}}))
}

func TestValidateOptionsValid(t *testing.T) {
	assert.NoError(t, validateOptions(validTestOptions()))
}

func TestValidateOptionsReturnsConfigurationError(t *testing.T) {
	opts := validTestOptions()
	opts.Provider.ClientId = ""

	var configErr *ConfigurationError
	require.True(t, errors.As(validateOptions(opts), &configErr))
	assert.Contains(t, configErr.Error(), "invalid oidc configuration")
}

func TestValidateOptionsRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		message string
	}{
		{"missing base url", func(o *Options) { o.BaseUrl = "" }, "base URL"},
		{"relative base url", func(o *Options) { o.BaseUrl = "/app" }, "base URL"},
		{"missing client id", func(o *Options) { o.Provider.ClientId = "" }, "client ID"},
		{"missing client secret", func(o *Options) { o.Provider.ClientSecret = "" }, "client secret"},
		{"missing issuer", func(o *Options) { o.Provider.Issuer = "" }, "issuer"},
		{"malformed issuer with idp logout", func(o *Options) {
			o.IdpLogout = true
			o.Provider.Issuer = "op.example.com"
		}, "issuer"},
		{"authok logout without idp logout", func(o *Options) { o.AuthokLogout = true }, "requires idp logout"},
		{"protocol relative post logout redirect", func(o *Options) {
			o.Routes = &RouteOptions{PostLogoutRedirect: "//evil.example.com"}
		}, "post logout redirect"},
		{"missing signing key", func(o *Options) { o.Session.SecretSigningKey = "" }, "signing key"},
		{"short encryption key", func(o *Options) { o.Session.SecretEncryptionKey = "too-short" }, "32 or 64 bytes"},
		{"missing session name", func(o *Options) { o.Session.Name = "" }, "session name"},
		{"relative cookie path", func(o *Options) { o.Session.Path = "foo" }, "cookie path"},
		{"redis without host", func(o *Options) { o.Session.Redis = &RedisSessionOptions{} }, "redis host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validTestOptions()
			tt.mutate(opts)
			err := validateOptions(opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateOptionsAccepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"authok logout with idp logout", func(o *Options) {
			o.IdpLogout = true
			o.AuthokLogout = true
		}},
		{"64 byte encryption key", func(o *Options) {
			o.Session.SecretEncryptionKey = "0123456789012345678901234567890101234567890123456789012345678901"
		}},
		{"redis with host", func(o *Options) { o.Session.Redis = &RedisSessionOptions{Host: "redis.example.com"} }},
		{"absolute post logout redirect", func(o *Options) {
			o.Routes = &RouteOptions{PostLogoutRedirect: "https://www.example.org/bye"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validTestOptions()
			tt.mutate(opts)
			assert.NoError(t, validateOptions(opts))
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	opts := validTestOptions()
	opts.Routes = &RouteOptions{BasePath: "/foo/"}
	opts.Session.MaxAge = 0
	applyDefaults(opts)

	assert.Equal(t, "/login", opts.Routes.Login)
	assert.Equal(t, "/callback", opts.Routes.Callback)
	assert.Equal(t, "/logout", opts.Routes.Logout)
	assert.Equal(t, "/foo", opts.Routes.BasePath)
	assert.Equal(t, "/", opts.Session.Path)
	assert.Equal(t, 86400, opts.Session.MaxAge)
}

func TestCallbackUrl(t *testing.T) {
	tests := []struct {
		baseUrl  string
		basePath string
		expected string
	}{
		{"http://example.org", "", "http://example.org/callback"},
		{"http://example.org/", "", "http://example.org/callback"},
		{"http://example.org", "/foo", "http://example.org/foo/callback"},
		{"http://localhost:3000/foo", "/foo", "http://localhost:3000/foo/callback"},
		{"http://localhost:3000/app", "/foo", "http://localhost:3000/app/foo/callback"},
	}
	for _, tt := range tests {
		routes := &RouteOptions{BasePath: tt.basePath, Callback: "/callback"}
		assert.Equal(t, tt.expected, callbackUrl(tt.baseUrl, routes), "%s + %s", tt.baseUrl, tt.basePath)
	}
}

func TestNewHandlerWithStaticMetadataDerivesRedirectUri(t *testing.T) {
	opts := validTestOptions()
	opts.Routes = &RouteOptions{BasePath: "/foo"}
	opts.Provider.Metadata = &ProviderMetadata{
		AuthorizationEndpoint: "https://op.example.com/authorize",
		TokenEndpoint:         "https://op.example.com/token",
		JwksUri:               "https://op.example.com/jwks",
	}

	handler, err := NewHandler(opts)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/foo/callback", handler.OAuth2Config.RedirectURL)
	assert.Equal(t, "https://op.example.com", handler.logout.issuer, "issuer should default to Provider.Issuer")
	assert.Equal(t, "/foo/login", handler.LoginPath())
	assert.Equal(t, []string{"openid", "profile", "email"}, handler.OAuth2Config.Scopes)
}

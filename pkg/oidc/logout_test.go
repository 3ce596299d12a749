package oidc

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseUrl  = "http://example.org"
	testIssuer   = "https://op.example.com"
	testLogoutId = "__test_client_id__"
)

func newTestLogoutConfig(t *testing.T, mutate func(o *Options), metadata *ProviderMetadata) *logoutConfig {
	t.Helper()
	options := &Options{
		BaseUrl:  testBaseUrl,
		Provider: &ProviderOptions{Issuer: testIssuer, ClientId: testLogoutId},
		Routes:   &RouteOptions{},
	}
	if mutate != nil {
		mutate(options)
	}
	if metadata == nil {
		metadata = &ProviderMetadata{Issuer: testIssuer}
	}
	config, err := newLogoutConfig(options, metadata)
	require.NoError(t, err)
	return config
}

func TestLogoutUrl(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(o *Options)
		metadata *ProviderMetadata
		idToken  string
		returnTo string
		expected string
	}{
		{
			name:     "local logout redirects to base url",
			idToken:  "T",
			expected: "http://example.org",
		},
		{
			name:     "local logout with post logout redirect",
			mutate:   func(o *Options) { o.Routes.PostLogoutRedirect = "/after-logout-in-auth-config" },
			idToken:  "T",
			expected: "http://example.org/after-logout-in-auth-config",
		},
		{
			name: "return_to overrides post logout redirect",
			mutate: func(o *Options) {
				o.Routes.PostLogoutRedirect = "/after-logout-in-auth-config"
			},
			returnTo: "http://www.another-example.org/logout",
			expected: "http://www.another-example.org/logout",
		},
		{
			name:     "relative return_to is joined onto base url",
			returnTo: "/bye?reason=idle",
			expected: "http://example.org/bye?reason=idle",
		},
		{
			name:     "invalid return_to falls back to post logout redirect",
			mutate:   func(o *Options) { o.Routes.PostLogoutRedirect = "/after" },
			returnTo: "javascript:alert(1)",
			expected: "http://example.org/after",
		},
		{
			name:     "protocol relative return_to falls back to base url",
			returnTo: "//evil.example.com",
			expected: "http://example.org",
		},
		{
			name:     "distributed logout",
			mutate:   func(o *Options) { o.IdpLogout = true },
			idToken:  "T",
			expected: "https://op.example.com/session/end?post_logout_redirect_uri=http%3A%2F%2Fexample.org&id_token_hint=T",
		},
		{
			name: "distributed logout with post logout redirect",
			mutate: func(o *Options) {
				o.IdpLogout = true
				o.Routes.PostLogoutRedirect = "/after"
			},
			idToken:  "T",
			expected: "https://op.example.com/session/end?post_logout_redirect_uri=http%3A%2F%2Fexample.org%2Fafter&id_token_hint=T",
		},
		{
			name:     "distributed logout uses discovered end_session_endpoint",
			mutate:   func(o *Options) { o.IdpLogout = true },
			metadata: &ProviderMetadata{Issuer: testIssuer, EndSessionEndpoint: "https://op.example.com/oidc/logout?ui_locales=en"},
			idToken:  "T",
			expected: "https://op.example.com/oidc/logout?ui_locales=en&post_logout_redirect_uri=http%3A%2F%2Fexample.org&id_token_hint=T",
		},
		{
			name:     "distributed logout without id token omits the hint",
			mutate:   func(o *Options) { o.IdpLogout = true },
			expected: "https://op.example.com/session/end?post_logout_redirect_uri=http%3A%2F%2Fexample.org",
		},
		{
			name: "authok logout",
			mutate: func(o *Options) {
				o.Provider.Issuer = "https://test.eu.authok.com"
				o.IdpLogout = true
				o.AuthokLogout = true
			},
			idToken:  "T",
			expected: "https://op.example.com/logout?return_to=http%3A%2F%2Fexample.org&client_id=__test_client_id__",
		},
		{
			name: "authok logout with return_to",
			mutate: func(o *Options) {
				o.IdpLogout = true
				o.AuthokLogout = true
			},
			returnTo: "/goodbye",
			expected: "https://op.example.com/logout?return_to=http%3A%2F%2Fexample.org%2Fgoodbye&client_id=__test_client_id__",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := newTestLogoutConfig(t, tt.mutate, tt.metadata)
			got := config.buildUrl(tt.idToken, tt.returnTo)
			assert.Equal(t, tt.expected, got)

			parsed, err := url.Parse(got)
			require.NoError(t, err)
			assert.True(t, parsed.IsAbs(), "logout url must be absolute")
		})
	}
}

func TestLogoutMode(t *testing.T) {
	assert.Equal(t, logoutModeLocal, newTestLogoutConfig(t, nil, nil).mode())
	assert.Equal(t, logoutModeDistributed, newTestLogoutConfig(t, func(o *Options) { o.IdpLogout = true }, nil).mode())
	assert.Equal(t, logoutModeAuthok, newTestLogoutConfig(t, func(o *Options) {
		o.IdpLogout = true
		o.AuthokLogout = true
	}, nil).mode())
}

func TestNewLogoutConfigRejectsMalformedIssuer(t *testing.T) {
	options := &Options{
		BaseUrl:   testBaseUrl,
		IdpLogout: true,
		Provider:  &ProviderOptions{Issuer: testIssuer, ClientId: testLogoutId},
		Routes:    &RouteOptions{},
	}
	_, err := newLogoutConfig(options, &ProviderMetadata{Issuer: "not a url"})

	var configErr *ConfigurationError
	assert.True(t, errors.As(err, &configErr), "expected *ConfigurationError, got %v", err)
}

func TestNewLogoutConfigIgnoresIssuerForLocalLogout(t *testing.T) {
	options := &Options{
		BaseUrl:  testBaseUrl,
		Provider: &ProviderOptions{Issuer: testIssuer, ClientId: testLogoutId},
		Routes:   &RouteOptions{},
	}
	_, err := newLogoutConfig(options, &ProviderMetadata{Issuer: "not a url"})
	assert.NoError(t, err)
}

func TestIsValidReturnTo(t *testing.T) {
	valid := []string{"/", "/after", "/a/b?c=d", "http://example.org", "https://www.another-example.org/logout"}
	invalid := []string{"//evil.example.com", "/\\evil.example.com", "javascript:alert(1)", "ftp://example.org", "after", "http://"}

	for _, target := range valid {
		assert.True(t, isValidReturnTo(target), target)
	}
	for _, target := range invalid {
		assert.False(t, isValidReturnTo(target), target)
	}
}

func TestJoinUrl(t *testing.T) {
	assert.Equal(t, "http://example.org/after", joinUrl("http://example.org", "/after"))
	assert.Equal(t, "http://example.org/after", joinUrl("http://example.org/", "/after"))
	assert.Equal(t, "http://localhost:3000/foo/after", joinUrl("http://localhost:3000/foo", "/after"))
	assert.Equal(t, "https://other.example.org", joinUrl("http://example.org", "https://other.example.org"))
}

func TestWithQuery(t *testing.T) {
	assert.Equal(t, "https://op/x?b=1&a=2", withQuery("https://op/x", queryParam{"b", "1"}, queryParam{"a", "2"}))
	assert.Equal(t, "https://op/x?y=z&a=a+b", withQuery("https://op/x?y=z", queryParam{"a", "a b"}))
	assert.Equal(t, "https://op/x", withQuery("https://op/x"))
}

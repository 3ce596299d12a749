package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/mxcd/go-config/config"
	"github.com/mxcd/gin-oidc-auth/internal/server"
	"github.com/mxcd/gin-oidc-auth/internal/util"
	"github.com/mxcd/gin-oidc-auth/pkg/oidc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := util.InitConfig(); err != nil {
		log.Panic().Err(err).Msg("error initializing config")
	}
	config.Print()

	if err := util.InitLogger(); err != nil {
		log.Panic().Err(err).Msg("error initializing logger")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	oidcHandler := initOidcHandler(registry)

	server := initServer(&InitServerOptions{
		OidcHandler: oidcHandler,
		Registry:    registry,
	})

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down server")
		}
		// after in-flight requests are done with their sessions
		if err := oidcHandler.SessionStore.Close(); err != nil {
			log.Error().Err(err).Msg("error closing session store")
		}
	}()

	err := server.Run()
	if err != nil {
		log.Panic().Err(err).Msg("error running server")
	}
	<-shutdownDone
}

type InitServerOptions struct {
	OidcHandler *oidc.Handler
	Registry    *prometheus.Registry
}

func initServer(options *InitServerOptions) *server.Server {
	server, err := server.NewServer(&server.ServerOptions{
		ServiceVersion:     config.Get().String("DEPLOYMENT_IMAGE_TAG"),
		DevMode:            config.Get().Bool("DEV"),
		Port:               config.Get().Int("PORT"),
		HealthEndpoint:     config.Get().String("HEALTH_ENDPOINT"),
		MetricsEndpoint:    config.Get().String("METRICS_ENDPOINT"),
		SessionUiEndpoint:  config.Get().String("SESSION_UI_ENDPOINT"),
		SessionApiEndpoint: config.Get().String("SESSION_API_ENDPOINT"),
		LogoutReturnTo:     config.Get().String("LOGOUT_RETURN_TO"),
		OidcHandler:        options.OidcHandler,
		MetricsGatherer:    options.Registry,
	})
	if err != nil {
		log.Panic().Err(err).Msg("error initializing server")
	}

	err = server.RegisterRoutes()
	if err != nil {
		log.Panic().Err(err).Msg("error registering routes")
	}

	return server
}

func initOidcHandler(registerer prometheus.Registerer) *oidc.Handler {
	var redisOptions *oidc.RedisSessionOptions
	if config.Get().Bool("SESSION_REDIS_ENABLED") {
		redisOptions = &oidc.RedisSessionOptions{
			Host:      config.Get().String("SESSION_REDIS_HOST"),
			Port:      config.Get().Int("SESSION_REDIS_PORT"),
			Password:  config.Get().String("SESSION_REDIS_PASSWORD"),
			DB:        config.Get().Int("SESSION_REDIS_DB"),
			KeyPrefix: config.Get().String("SESSION_REDIS_KEY_PREFIX"),
		}
	}

	oidcHandler, err := oidc.NewHandler(&oidc.Options{
		Provider: &oidc.ProviderOptions{
			Issuer:       config.Get().String("OIDC_ISSUER_BASE_URL"),
			ClientId:     config.Get().String("OIDC_CLIENT_ID"),
			ClientSecret: config.Get().String("OIDC_CLIENT_SECRET"),
			RedirectUri:  config.Get().String("OIDC_REDIRECT_URI"),
			Scopes:       config.Get().StringArray("OIDC_SCOPES"),
		},
		Session: &oidc.SessionOptions{
			SecretSigningKey:    config.Get().String("SESSION_SIGNING_KEY"),
			SecretEncryptionKey: config.Get().String("SESSION_ENCRYPTION_KEY"),
			Name:                config.Get().String("SESSION_NAME"),
			Domain:              config.Get().String("SESSION_DOMAIN"),
			Path:                config.Get().String("SESSION_COOKIE_PATH"),
			MaxAge:              config.Get().Int("SESSION_MAX_AGE"),
			Secure:              config.Get().Bool("SESSION_SECURE"),
			CacheSize:           config.Get().Int("SESSION_CACHE_SIZE"),
			Redis:               redisOptions,
		},
		Routes: &oidc.RouteOptions{
			BasePath:           config.Get().String("ROUTES_BASE_PATH"),
			Login:              config.Get().String("ROUTES_LOGIN"),
			Callback:           config.Get().String("ROUTES_CALLBACK"),
			Logout:             config.Get().String("ROUTES_LOGOUT"),
			DisableLogout:      !config.Get().Bool("ROUTES_LOGOUT_ENABLED"),
			PostLogoutRedirect: config.Get().String("ROUTES_POST_LOGOUT_REDIRECT"),
		},
		BaseUrl:                config.Get().String("BASE_URL"),
		IdpLogout:              config.Get().Bool("OIDC_IDP_LOGOUT"),
		AuthokLogout:           config.Get().Bool("OIDC_AUTHOK_LOGOUT"),
		AttemptSilentLogin:     config.Get().Bool("OIDC_ATTEMPT_SILENT_LOGIN"),
		EnableUserInfoEndpoint: config.Get().Bool("ENABLE_USERINFO_ENDPOINT"),
		MetricsRegisterer:      registerer,
	})
	if err != nil {
		log.Panic().Err(err).Msg("error initializing OIDC handler")
	}
	return oidcHandler
}

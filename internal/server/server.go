package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mxcd/gin-oidc-auth/pkg/oidc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type ServerOptions struct {
	ServiceVersion     string
	DevMode            bool
	Port               int
	HealthEndpoint     string
	MetricsEndpoint    string
	SessionUiEndpoint  string
	SessionApiEndpoint string
	// target of the custom logout route, only used when the default logout route is disabled
	LogoutReturnTo string
	OidcHandler    *oidc.Handler
	// served on MetricsEndpoint; nil disables the endpoint
	MetricsGatherer prometheus.Gatherer
}

type Server struct {
	Options    *ServerOptions
	Engine     *gin.Engine
	HttpServer *http.Server
}

func NewServer(options *ServerOptions) (*Server, error) {
	if options == nil {
		return nil, fmt.Errorf("server options cannot be nil")
	}
	if options.OidcHandler == nil {
		return nil, fmt.Errorf("oidc handler cannot be nil")
	}

	server := &Server{
		Options: options,
	}

	if !server.Options.DevMode {
		log.Info().Msg("Running Gin in production mode")
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	server.Engine = engine
	server.Engine.Use(gin.Recovery(), server.zeroLogger())
	server.HttpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", options.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if server.Options.DevMode {
		log.Info().Msg("Running Gin in development mode")
		log.Warn().Msg("CORS is enabled for localhost")
		config := cors.DefaultConfig()
		config.AllowHeaders = []string{"Authorization", "Content-Type", "X-Requested-With", "Cache-Control"}
		config.AllowOrigins = []string{fmt.Sprintf("http://localhost:%d", options.Port)}
		config.AllowCredentials = true
		server.Engine.Use(cors.New(config))
	}

	return server, nil
}

func (s *Server) RegisterRoutes() error {
	s.registerHealthRoute()
	s.registerMetricsRoute()
	s.Options.OidcHandler.RegisterRoutes(s.Engine)
	s.registerLogoutRoute()
	s.registerSessionRoutes()

	return nil
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.HttpServer.Addr).Str("version", s.Options.ServiceVersion).Msg("starting server")
	if err := s.HttpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.HttpServer.Shutdown(ctx)
}

func (s *Server) zeroLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)

		logger := log.Trace()
		if status >= http.StatusInternalServerError {
			logger = log.Error()
		}

		logger.
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Str("latency", latency.String()).
			Msg("http_request")
	}
}

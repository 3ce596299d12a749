package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerMetricsRoute() {
	if s.Options.MetricsGatherer == nil || s.Options.MetricsEndpoint == "" {
		return
	}
	s.Engine.GET(s.Options.MetricsEndpoint, gin.WrapH(promhttp.HandlerFor(s.Options.MetricsGatherer, promhttp.HandlerOpts{})))
}

package oidc

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	logins  *prometheus.CounterVec
	logouts *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oidc_logins_total",
			Help: "Completed OIDC callbacks by result",
		}, []string{"result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oidc_logouts_total",
			Help: "Logouts by mode (local, distributed, authok)",
		}, []string{"mode"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.logins, err = registerCounterVec(reg, m.logins); err != nil {
		return nil, err
	}
	if m.logouts, err = registerCounterVec(reg, m.logouts); err != nil {
		return nil, err
	}
	return m, nil
}

// registerCounterVec registers c, or returns the collector already registered under its name.
func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

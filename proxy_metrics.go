// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type proxyMetrics struct {
	errors   *prometheus.CounterVec
	unrouted prometheus.Counter
	routers  prometheus.Gauge
	dialer   *dialerMetrics
}

func newProxyMetrics(r prometheus.Registerer, namespace string) *proxyMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &proxyMetrics{
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "proxy_errors_total",
			Namespace: namespace,
			Help:      "Number of upstream errors",
		}, []string{"reason"}),
		unrouted: f.NewCounter(prometheus.CounterOpts{
			Name:      "proxy_unmatched_requests_total",
			Namespace: namespace,
			Help:      "Number of requests not matching any forwarding rule",
		}),
		routers: f.NewGauge(prometheus.GaugeOpts{
			Name:      "proxy_routers",
			Namespace: namespace,
			Help:      "Number of cached upstream routers",
		}),
		dialer: newDialerMetrics(r, namespace),
	}
}

func (m *proxyMetrics) error(reason string) {
	m.errors.WithLabelValues(reason).Inc()
}

// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/exp/slices"
)

type dialerMetrics struct {
	errors *prometheus.CounterVec
	dialed *prometheus.CounterVec
	active *prometheus.GaugeVec
}

func newDialerMetrics(r prometheus.Registerer, namespace string) *dialerMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)
	l := []string{"host"}

	return &dialerMetrics{
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_errors_total",
			Namespace: namespace,
			Help:      "Number of errors dialing connections",
		}, l),
		dialed: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_cx_total",
			Namespace: namespace,
			Help:      "Number of dialed connections",
		}, l),
		active: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "dialer_cx_active",
			Namespace: namespace,
			Help:      "Number of active connections",
		}, l),
	}
}

func (m *dialerMetrics) error(addr string) {
	m.errors.WithLabelValues(addr2Host(addr)).Inc()
}

func (m *dialerMetrics) dial(addr string) {
	host := addr2Host(addr)
	m.dialed.WithLabelValues(host).Inc()
	m.active.WithLabelValues(host).Inc()
}

func (m *dialerMetrics) close(addr string) {
	m.active.WithLabelValues(addr2Host(addr)).Dec()
}

// addr2Host returns the host label for addr, loopback addresses are reported as localhost.
func addr2Host(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "unknown"
	}

	if slices.Contains([]string{"localhost", "127.0.0.1", "::1", "::"}, host) {
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return "localhost"
	}

	return host
}

// trackedConn calls onClose once when the connection is closed.
type trackedConn struct {
	net.Conn
	once    sync.Once
	onClose func()
}

func (c *trackedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.onClose)
	return err
}

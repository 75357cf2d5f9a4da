// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"crypto/tls"
	"net/http"
	"time"
)

type HTTPTransportConfig struct {
	DialConfig

	// TLSHandshakeTimeout specifies the maximum amount of time waiting to
	// wait for a TLS handshake. Zero means no timeout.
	TLSHandshakeTimeout time.Duration

	// InsecureSkipVerify disables verification of the server certificate chain and host name
	// for https destinations.
	InsecureSkipVerify bool

	// MaxIdleConnsPerHost, if non-zero, controls the maximum idle
	// (keep-alive) connections to keep per-host. If zero,
	// DefaultMaxIdleConnsPerHost is used.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle
	// (keep-alive) connection will remain idle before closing
	// itself.
	// Zero means no limit.
	IdleConnTimeout time.Duration

	// ResponseHeaderTimeout, if non-zero, specifies the amount of
	// time to wait for a server's response headers after fully
	// writing the request (including its body, if any). This
	// time does not include the time to read the response body.
	ResponseHeaderTimeout time.Duration

	// ExpectContinueTimeout, if non-zero, specifies the amount of
	// time to wait for a server's first response headers after fully
	// writing the request headers if the request has an
	// "Expect: 100-continue" header.
	ExpectContinueTimeout time.Duration
}

func DefaultHTTPTransportConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		DialConfig:            *DefaultDialConfig(),
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewHTTPTransport returns a transport dedicated to a single network destination.
// TLS is configured only for https destinations.
func NewHTTPTransport(cfg *HTTPTransportConfig, dest *Target) *http.Transport {
	return newHTTPTransport(cfg, dest, nil)
}

func newHTTPTransport(cfg *HTTPTransportConfig, dest *Target, m *dialerMetrics) *http.Transport {
	d := NewDialer(&cfg.DialConfig)
	d.metrics = m

	tr := &http.Transport{
		Proxy:                 nil,
		DialContext:           d.DialContext,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: cfg.ExpectContinueTimeout,
	}

	if dest.Protocol == HTTPSProtocol {
		tr.TLSClientConfig = &tls.Config{
			ServerName:         dest.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // user opt-in for self-signed certificates
			MinVersion:         tls.VersionTLS12,
		}
		tr.ForceAttemptHTTP2 = true
	}

	return tr
}

// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"context"
	"net"
	"time"
)

type DialConfig struct {
	// DialTimeout is the maximum amount of time a dial will wait for
	// connect to complete.
	//
	// With or without a timeout, the operating system may impose
	// its own earlier timeout. For instance, TCP timeouts are
	// often around 3 minutes.
	DialTimeout time.Duration

	// KeepAlive specifies the interval between keep-alive probes.
	// Negative value disables keep-alive probes.
	KeepAlive time.Duration

	// RedirectFunc, if set, can change the address to dial.
	RedirectFunc DialRedirectFunc
}

func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		DialTimeout: 10 * time.Second,
		KeepAlive:   30 * time.Second,
	}
}

type Dialer struct {
	nd       net.Dialer
	redirect DialRedirectFunc
	metrics  *dialerMetrics
}

func NewDialer(cfg *DialConfig) *Dialer {
	return &Dialer{
		nd: net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		},
		redirect: cfg.RedirectFunc,
	}
}

// DialContext dials address or the address returned by the redirect function.
// Metrics are reported for the original address.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dst := address
	if d.redirect != nil {
		dst = d.redirect(address)
	}

	conn, err := d.nd.DialContext(ctx, network, dst)
	if d.metrics == nil {
		return conn, err
	}
	if err != nil {
		d.metrics.error(address)
		return nil, err
	}
	d.metrics.dial(address)

	return &trackedConn{
		Conn:    conn,
		onClose: func() { d.metrics.close(address) },
	}, nil
}

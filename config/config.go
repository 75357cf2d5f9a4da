// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config provides layered json-proxy configuration.
// Layers are merged from the lowest to the highest priority:
// defaults, config file, environment, command line, explicit options.
package config

import (
	"net"
	"strconv"

	"github.com/saucelabs/jsonproxy"
	"github.com/saucelabs/jsonproxy/header"
)

const DefaultPort = 8080

type Server struct {
	Address    string
	Port       int
	Webroot    string
	HTML5Mode  bool
	HTML5Entry string
}

type Proxy struct {
	Gateway     string
	GatewayAuth string
	Forward     []jsonproxy.ForwardSpec
	Headers     header.Headers
}

// Config is a single configuration layer, zero values are unset.
type Config struct {
	Server Server
	Proxy  Proxy
}

func Default() *Config {
	return &Config{
		Server: Server{
			Port:       DefaultPort,
			Webroot:    ".",
			HTML5Entry: jsonproxy.DefaultHTML5Entry,
		},
	}
}

// Merge returns lower overridden by values set in upper.
// Forwarding rules are concatenated, the rule table decides how rules with the same pattern are merged.
// Header rules with the same name are replaced in place.
func Merge(lower, upper *Config) *Config {
	res := *lower
	res.Proxy.Forward = append([]jsonproxy.ForwardSpec(nil), lower.Proxy.Forward...)

	s, u := &res.Server, &upper.Server
	if u.Address != "" {
		s.Address = u.Address
	}
	if u.Port != 0 {
		s.Port = u.Port
	}
	if u.Webroot != "" {
		s.Webroot = u.Webroot
	}
	if u.HTML5Mode {
		s.HTML5Mode = true
	}
	if u.HTML5Entry != "" {
		s.HTML5Entry = u.HTML5Entry
	}

	p, up := &res.Proxy, &upper.Proxy
	if up.Gateway != "" {
		p.Gateway = up.Gateway
	}
	if up.GatewayAuth != "" {
		p.GatewayAuth = up.GatewayAuth
	}
	p.Forward = append(p.Forward, up.Forward...)
	p.Headers = header.Merge(lower.Proxy.Headers, up.Headers)

	return &res
}

// MergeAll merges layers in order.
func MergeAll(layers ...*Config) *Config {
	res := &Config{}
	for _, l := range layers {
		if l != nil {
			res = Merge(res, l)
		}
	}
	return res
}

// Build applies the configuration to the server, static files and proxy configs.
func (c *Config) Build(hc *jsonproxy.HTTPServerConfig, sc *jsonproxy.StaticConfig, pc *jsonproxy.ProxyConfig) error {
	hc.Addr = net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.Port))

	sc.Webroot = c.Server.Webroot
	sc.HTML5Mode = c.Server.HTML5Mode
	if c.Server.HTML5Entry != "" {
		sc.HTML5Entry = c.Server.HTML5Entry
	}

	gw, err := jsonproxy.ParseGateway(c.Proxy.Gateway, c.Proxy.GatewayAuth)
	if err != nil {
		return err
	}
	pc.Gateway = gw
	pc.Forward = c.Proxy.Forward
	pc.Headers = c.Proxy.Headers

	return nil
}

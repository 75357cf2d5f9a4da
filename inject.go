// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"

	"github.com/saucelabs/jsonproxy/header"
)

const (
	ViaHeader           = "Via"
	ForwardedPortHeader = "X-Forwarded-Port"
	ForwardedURLHeader  = "X-Forwarded-Url"
	AuthorizationHeader = "Authorization"
)

// HeaderInjector sets headers of the outbound request.
// Custom headers are applied after the headers set by the proxy
// so that they can override them, gateway headers are applied last.
type HeaderInjector struct {
	Headers header.Headers
	Gateway *Gateway
}

// Inject modifies pr.Out for the route, values of custom headers are computed from pr.In.
func (hi *HeaderInjector) Inject(pr *httputil.ProxyRequest, rt route) {
	out := pr.Out

	out.Host = rt.rule.Target.HostHeader()
	if via := viaValue(pr.In); via != "" {
		out.Header.Set(ViaHeader, via)
	}
	pr.SetXForwarded()
	out.Header.Set(ForwardedPortHeader, forwardedPort(pr.In))

	hi.Headers.ModifyRequest(out, pr.In)
	if h := out.Header.Get("Host"); h != "" {
		out.Host = h
		out.Header.Del("Host")
	}

	if !rt.viaGateway() {
		return
	}
	if out.Header.Get(AuthorizationHeader) == "" {
		if v, ok := hi.Gateway.BasicAuth(); ok {
			out.Header.Set(AuthorizationHeader, v)
		}
	}
	out.Header.Set(ForwardedURLHeader, rt.forwardedURL)
}

// viaValue returns the address of the socket that accepted the request.
func viaValue(in *http.Request) string {
	addr, ok := in.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok || addr == nil {
		return ""
	}
	return "http://" + addr.String()
}

func forwardedPort(in *http.Request) string {
	if _, port, err := net.SplitHostPort(in.Host); err == nil && port != "" {
		return port
	}
	p := HTTPProtocol
	if in.TLS != nil {
		p = HTTPSProtocol
	}
	return strconv.Itoa(defaultPort(p))
}

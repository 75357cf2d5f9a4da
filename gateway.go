// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"encoding/base64"
	"fmt"
	"net/url"
)

// Gateway is a LAN HTTP proxy that forwarded requests are relayed through.
type Gateway struct {
	*Target

	// Auth holds credentials sent as Basic Authorization to the gateway.
	Auth *url.Userinfo
}

// ParseGateway parses [protocol://][user:pass@]host[:port].
// Credentials from auth, if not empty, take precedence over the ones in the URL.
// It returns nil if val is empty.
func ParseGateway(val, auth string) (*Gateway, error) {
	if val == "" {
		return nil, nil //nolint:nilnil // nil means no gateway
	}

	u, err := parseTargetURL(val)
	if err != nil {
		return nil, &InvalidTargetError{Value: RedactGatewayURL(val), Err: err}
	}
	ui := u.User
	u.User = nil

	t, err := ParseTarget(u.String())
	if err != nil {
		return nil, err
	}

	if auth != "" {
		ui, err = ParseUserInfo(auth)
		if err != nil {
			return nil, fmt.Errorf("gateway auth: %w", err)
		}
	}

	return &Gateway{
		Target: t,
		Auth:   ui,
	}, nil
}

// Enabled returns true if requests should be relayed through the gateway.
func (g *Gateway) Enabled() bool {
	return g != nil && g.Target != nil && g.Host != ""
}

// BasicAuth returns the Authorization header value for the gateway credentials.
func (g *Gateway) BasicAuth() (string, bool) {
	if g == nil || g.Auth == nil {
		return "", false
	}
	p, _ := g.Auth.Password()
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(g.Auth.Username()+":"+p)), true
}

func (g *Gateway) String() string {
	if g == nil {
		return ""
	}
	if g.Auth == nil {
		return g.Target.String()
	}
	return g.Protocol + "://" + RedactUserinfo(g.Auth) + "@" + g.Addr()
}

// RedactGatewayURL hides the password in a gateway URL string.
func RedactGatewayURL(val string) string {
	u, err := parseTargetURL(val)
	if err != nil || u.User == nil {
		return val
	}
	return u.Redacted()
}

// route is the outcome of gateway chain resolution for a matched request.
type route struct {
	rule *ForwardRule

	// dest is the network destination, the gateway in gateway mode.
	dest *Target

	// requestURI is the rewritten request URI, absolute in gateway mode.
	requestURI string

	// forwardedURL is the absolute URL of the true target, set in gateway mode only.
	forwardedURL string
}

func resolveRoute(gw *Gateway, rule *ForwardRule, rewritten string) route {
	if !gw.Enabled() {
		return route{
			rule:       rule,
			dest:       rule.Target,
			requestURI: rewritten,
		}
	}

	abs := rule.Target.AbsoluteURL(rewritten)
	return route{
		rule:         rule,
		dest:         gw.Target,
		requestURI:   abs,
		forwardedURL: abs,
	}
}

func (r route) viaGateway() bool {
	return r.forwardedURL != ""
}

// outURL returns the URL of the outgoing request.
// In gateway mode the request line carries the absolute URL verbatim.
func (r route) outURL() (*url.URL, error) {
	u := r.dest.URL()

	if r.viaGateway() {
		u.Opaque = r.requestURI
		return u, nil
	}

	ru, err := url.ParseRequestURI(r.requestURI)
	if err != nil {
		return nil, fmt.Errorf("rewritten path %q: %w", r.requestURI, err)
	}
	u.Path = ru.Path
	u.RawPath = ru.RawPath
	u.RawQuery = ru.RawQuery
	return u, nil
}

// String returns the route in the form used in logs.
func (r route) String() string {
	if r.viaGateway() {
		return r.dest.Addr() + " --> " + r.rule.Target.Addr()
	}
	return r.dest.Addr()
}

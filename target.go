// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/saucelabs/jsonproxy/ruleset"
	"golang.org/x/net/idna"
)

const (
	HTTPProtocol  = "http"
	HTTPSProtocol = "https"
)

// Target is a resolved upstream endpoint.
// It must not be modified after it is created.
type Target struct {
	Protocol string
	Host     string
	Port     int

	// PortSpecified is true if the port was given explicitly,
	// only then it is sent in the Host header.
	PortSpecified bool

	// Template is the rewrite template of the request path,
	// it always contains at least one backreference token.
	Template string
}

// InvalidTargetError is returned when a target string cannot be parsed.
type InvalidTargetError struct {
	Value string
	Err   error
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Value, e.Err)
}

func (e *InvalidTargetError) Unwrap() error {
	return e.Err
}

// ParseTarget parses [protocol://]host[:port][/path] into a Target.
// The protocol defaults to http, the port defaults to 80 for http and 443 for https.
// The path and query, if not root, become the rewrite template.
// If the template has no backreference the whole match token $& is appended
// to its path, so that the matched request path is forwarded.
func ParseTarget(val string) (*Target, error) {
	u, err := parseTargetURL(val)
	if err != nil {
		return nil, &InvalidTargetError{Value: val, Err: err}
	}

	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return nil, &InvalidTargetError{Value: val, Err: err}
	}

	t := &Target{
		Protocol: u.Scheme,
		Host:     host,
	}

	if p := u.Port(); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil || port == 0 {
			return nil, &InvalidTargetError{Value: val, Err: fmt.Errorf("invalid port %q", p)}
		}
		t.Port = int(port)
		t.PortSpecified = true
	} else {
		t.Port = defaultPort(t.Protocol)
	}

	path := u.EscapedPath()
	if path == "/" {
		path = ""
	}
	query := ""
	if u.RawQuery != "" {
		query = "?" + u.RawQuery
	}
	if !ruleset.HasBackreference(path + query) {
		path += ruleset.WholeMatch
	}
	t.Template = path + query

	return t, nil
}

func parseTargetURL(val string) (*url.URL, error) {
	s := strings.TrimSpace(val)
	if s == "" {
		return nil, errors.New("empty value")
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, HTTPProtocol+"://") && !strings.HasPrefix(lower, HTTPSProtocol+"://") {
		if strings.Contains(s, "://") {
			return nil, errors.New("unsupported protocol, expected http or https")
		}
		s = HTTPProtocol + "://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.ToLower(u.Scheme)

	if u.Hostname() == "" {
		return nil, errors.New("missing host")
	}

	return u, nil
}

// hostProfile converts internationalized host names to ASCII.
// It does not apply STD3 rules, development hosts like docker service names may contain underscores.
var hostProfile = idna.New(idna.BidiRule()) //nolint:gochecknoglobals // immutable

func normalizeHost(host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	h, err := hostProfile.ToASCII(strings.ToLower(host))
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	return h, nil
}

func defaultPort(protocol string) int {
	if protocol == HTTPSProtocol {
		return 443
	}
	return 80
}

// Addr returns host:port of the target.
func (t *Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Key identifies the network destination of the target.
func (t *Target) Key() string {
	return t.Protocol + "//" + t.Addr()
}

// HostHeader returns the value of the Host header sent to the target.
func (t *Target) HostHeader() string {
	if t.PortSpecified {
		return t.Addr()
	}
	if strings.Contains(t.Host, ":") {
		return "[" + t.Host + "]"
	}
	return t.Host
}

// AbsoluteURL returns protocol://host:port followed by the request URI.
func (t *Target) AbsoluteURL(requestURI string) string {
	return t.Protocol + "://" + t.Addr() + requestURI
}

// URL returns the URL of the target without path.
func (t *Target) URL() *url.URL {
	return &url.URL{
		Scheme: t.Protocol,
		Host:   t.Addr(),
	}
}

func (t *Target) String() string {
	return t.Protocol + "://" + t.Addr()
}

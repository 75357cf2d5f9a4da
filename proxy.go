// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/saucelabs/jsonproxy/header"
	"github.com/saucelabs/jsonproxy/log"
	"github.com/saucelabs/jsonproxy/middleware"
)

type ProxyConfig struct {
	Forward   []ForwardSpec
	Rules     RuleTableConfig
	Headers   header.Headers
	Gateway   *Gateway
	Transport HTTPTransportConfig
	PromConfig
}

func DefaultProxyConfig() *ProxyConfig {
	return &ProxyConfig{
		Rules:     *DefaultRuleTableConfig(),
		Transport: *DefaultHTTPTransportConfig(),
		PromConfig: PromConfig{
			PromNamespace: "jsonproxy",
		},
	}
}

func (c *ProxyConfig) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	for i := range c.Headers {
		h := &c.Headers[i]
		if h.Action == header.Set && h.Value == nil {
			return fmt.Errorf("header %q: missing value", h.Name)
		}
	}
	return nil
}

type ProxyOpt func(*Proxy)

// WithRouterHook registers fn to be called whenever a router is created.
func WithRouterHook(fn func(*Router)) ProxyOpt {
	return func(p *Proxy) {
		p.routerHooks = append(p.routerHooks, fn)
	}
}

// Proxy forwards requests matching the forwarding rules to their targets,
// directly or through a gateway.
type Proxy struct {
	config   ProxyConfig
	rules    *RuleTable
	injector *HeaderInjector
	routers  *RouterCache
	log      log.Logger
	metrics  *proxyMetrics

	routerHooks []func(*Router)
}

func NewProxy(cfg *ProxyConfig, log log.Logger, opts ...ProxyOpt) (*Proxy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rules, err := NewRuleTable(cfg.Forward, &cfg.Rules)
	if err != nil {
		return nil, err
	}

	p := &Proxy{
		config: *cfg,
		rules:  rules,
		injector: &HeaderInjector{
			Headers: cfg.Headers,
			Gateway: cfg.Gateway,
		},
		log:     log,
		metrics: newProxyMetrics(cfg.PromRegistry, cfg.PromNamespace),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.routers = NewRouterCache(p.newRouter, append([]func(*Router){p.routerCreated}, p.routerHooks...)...)

	p.logConfig()

	return p, nil
}

func (p *Proxy) logConfig() {
	if p.config.Gateway.Enabled() {
		p.log.Infof("forwarding through gateway %s", p.config.Gateway)
	}
	for _, r := range p.rules.Rules() {
		p.log.Infof("forwarding %s", r)
	}
	for i := range p.config.Headers {
		p.log.Infof("forwarding injects header %q", p.config.Headers[i].String())
	}
}

func (p *Proxy) newRouter(dest *Target) *Router {
	tr := newHTTPTransport(&p.config.Transport, dest, p.metrics.dialer)
	return &Router{
		Key:       dest.Key(),
		Dest:      dest,
		Transport: tr,
		Handler: &httputil.ReverseProxy{
			Rewrite:      p.rewrite,
			Transport:    tr,
			ErrorHandler: p.handleError,
			ErrorLog:     stdlog.New(debugWriter{p.log}, "", 0),
		},
	}
}

func (p *Proxy) routerCreated(r *Router) {
	p.log.Infof("router created for %s", r.Key)
	p.metrics.routers.Inc()
}

// Rules returns the forwarding rules in match order.
func (p *Proxy) Rules() *RuleTable {
	return p.rules
}

// Routers returns the router cache of the proxy.
func (p *Proxy) Routers() *RouterCache {
	return p.routers
}

// Close closes idle upstream connections.
func (p *Proxy) Close() {
	p.routers.Close()
}

type dispatchKey struct{}

// dispatch is the state of a single forwarded request.
type dispatch struct {
	route route
	url   *url.URL
	err   *UpstreamConnectionError
}

func dispatchFromContext(ctx context.Context) *dispatch {
	d, _ := ctx.Value(dispatchKey{}).(*dispatch)
	return d
}

// Dispatch forwards the request if it matches a forwarding rule.
// It returns false, without writing to w, if no rule matches.
func (p *Proxy) Dispatch(w http.ResponseWriter, r *http.Request) bool {
	path := r.URL.EscapedPath()
	rule, ok := p.rules.Match(path)
	if !ok {
		p.metrics.unrouted.Inc()
		return false
	}

	start := time.Now()
	d := &dispatch{
		route: resolveRoute(p.config.Gateway, rule, rule.Rewrite(path, r.URL.RawQuery)),
	}

	u, err := d.route.outURL()
	if err != nil {
		p.fail(w, r, d, err)
		return true
	}
	d.url = u

	dw := middleware.NewDelegator(w)
	// The router panics with http.ErrAbortHandler if the response body cannot be copied.
	defer func() {
		if d.err == nil {
			p.log.Infof("%s %s --> %s %d %s %s", r.Method, r.URL.RequestURI(), d.route,
				dw.Status(), humanize.Bytes(uint64(dw.Written())), time.Since(start).Round(time.Millisecond))
		}
	}()

	router := p.routers.Acquire(d.route.dest)
	router.ServeHTTP(dw, r.WithContext(context.WithValue(r.Context(), dispatchKey{}, d)))

	return true
}

// Wrap returns a handler that forwards matching requests and passes other requests to next.
func (p *Proxy) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.Dispatch(w, r) {
			next.ServeHTTP(w, r)
		}
	})
}

// ServeHTTP forwards matching requests and responds with 404 to other requests.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !p.Dispatch(w, r) {
		writeJSONError(w, http.StatusNotFound, "no forwarding rule matches "+r.URL.Path)
	}
}

// RouteLabel returns the pattern of the rule matching r or "none".
// It can be used to label request metrics.
func (p *Proxy) RouteLabel(r *http.Request) string {
	if rule, ok := p.rules.Match(r.URL.EscapedPath()); ok {
		return rule.Pattern.Source
	}
	return "none"
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	d := dispatchFromContext(pr.In.Context())
	u := *d.url
	pr.Out.URL = &u
	p.injector.Inject(pr, d.route)
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	d := dispatchFromContext(r.Context())
	p.fail(w, r, d, err)
}

func (p *Proxy) fail(w http.ResponseWriter, r *http.Request, d *dispatch, err error) {
	d.err = &UpstreamConnectionError{
		Dest: d.route.dest,
		Err:  err,
	}

	reason := d.err.Reason()
	p.metrics.error(reason)
	if reason == "canceled" {
		p.log.Debugf("%s %s - canceled by client", r.Method, d.route.requestURI)
	} else {
		p.log.Warnf("%s %s - error %s", r.Method, d.route.requestURI, errorMessage(err))
	}

	writeJSONError(w, d.err.StatusCode(), errorMessage(err))
}

type debugWriter struct {
	log log.Logger
}

func (w debugWriter) Write(b []byte) (int, error) {
	w.log.Debugf("%s", strings.TrimSuffix(string(b), "\n"))
	return len(b), nil
}

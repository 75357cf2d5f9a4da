// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saucelabs/jsonproxy/internal/version"
)

type server interface {
	Addr() string
}

// APIHandler serves API endpoints.
// It provides health and readiness endpoints, prometheus metrics, the effective configuration
// and, if a proxy is given, its forwarding rules and cached routers.
type APIHandler struct {
	mux    *http.ServeMux
	server server
	proxy  *Proxy
	config string
}

func NewAPIHandler(r prometheus.Gatherer, s server, p *Proxy, config string) *APIHandler {
	m := http.NewServeMux()
	a := &APIHandler{
		mux:    m,
		server: s,
		proxy:  p,
		config: config,
	}
	m.Handle("/metrics", promhttp.HandlerFor(r, promhttp.HandlerOpts{}))
	m.HandleFunc("/healthz", a.healthz)
	m.HandleFunc("/readyz", a.readyz)
	m.HandleFunc("/configz", a.configz)
	m.HandleFunc("/version", a.version)
	if p != nil {
		m.HandleFunc("/routez", a.routez)
	}

	return a
}

func (h *APIHandler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *APIHandler) readyz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if h.server.Addr() != "" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Service Unavailable"))
	}
}

func (h *APIHandler) configz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.config))
}

type ruleInfo struct {
	Pattern  string `json:"pattern"`
	Target   string `json:"target"`
	Template string `json:"template"`
}

// routez lists forwarding rules in match order and the keys of routers created so far.
func (h *APIHandler) routez(w http.ResponseWriter, _ *http.Request) {
	rules := h.proxy.Rules().Rules()
	v := struct {
		Gateway string     `json:"gateway,omitempty"`
		Rules   []ruleInfo `json:"rules"`
		Routers []string   `json:"routers"`
	}{
		Rules:   make([]ruleInfo, 0, len(rules)),
		Routers: h.proxy.Routers().Keys(),
	}
	if gw := h.proxy.config.Gateway; gw.Enabled() {
		v.Gateway = gw.Target.Addr()
	}
	for _, r := range rules {
		v.Rules = append(v.Rules, ruleInfo{
			Pattern:  r.Pattern.Source,
			Target:   r.Target.Addr(),
			Template: r.Target.Template,
		})
	}
	if v.Routers == nil {
		v.Routers = []string{}
	}
	sort.Strings(v.Routers)

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v) //nolint // ignore error
}

func (h *APIHandler) version(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	v := struct {
		Version string `json:"version"`
		Time    string `json:"time"`
		Commit  string `json:"commit"`

		GoArch    string `json:"go_arch"`
		GOOS      string `json:"go_os"`
		GoVersion string `json:"go_version"`
	}{
		Version: version.Version,
		Time:    version.Time,
		Commit:  version.Commit,

		GoArch:    runtime.GOARCH,
		GOOS:      runtime.GOOS,
		GoVersion: runtime.Version(),
	}
	json.NewEncoder(w).Encode(v) //nolint // ignore error
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

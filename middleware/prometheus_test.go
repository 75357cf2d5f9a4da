// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestPrometheusWrap(t *testing.T) {
	h := http.NewServeMux()
	h.HandleFunc("/api/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	h.HandleFunc("/api/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	r := prometheus.NewPedanticRegistry()
	labeler := func(req *http.Request) string {
		if strings.HasPrefix(req.URL.Path, "/api") {
			return "/api"
		}
		return "static"
	}
	s := NewPrometheus(r, "test", WithCustomLabeler("rule", labeler)).Wrap(h)

	var wg sync.WaitGroup
	for range [10]struct{}{} {
		for _, path := range []string{"/api/ok", "/api/missing", "/index.html"} {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
				w := httptest.NewRecorder()
				s.ServeHTTP(w, req)
			}(path)
		}
	}
	wg.Wait()

	expected := `
# HELP test_http_requests_total Total number of HTTP requests processed.
# TYPE test_http_requests_total counter
test_http_requests_total{code="200",method="GET",rule="/api"} 10
test_http_requests_total{code="404",method="GET",rule="/api"} 10
test_http_requests_total{code="404",method="GET",rule="static"} 10
`
	if err := testutil.GatherAndCompare(r, strings.NewReader(expected), "test_http_requests_total"); err != nil {
		t.Fatal(err)
	}

	mfs, err := r.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "test_http_requests_in_flight" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if v := m.GetGauge().GetValue(); v != 0 {
				t.Errorf("in flight gauge %s = %v, want 0", labelsString(m), v)
			}
		}
	}
}

func labelsString(m *dto.Metric) string {
	var sb strings.Builder
	for _, l := range m.GetLabel() {
		sb.WriteString(l.GetName() + "=" + l.GetValue() + " ")
	}
	return sb.String()
}

// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package header

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestScriptResolve(t *testing.T) {
	s, err := NewScript(`req.url === '/pull/15/token' ? 'Bearer 0123456789abcdef' : undefined`)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		url   string
		value string
		ok    bool
	}{
		{"/pull/15/token", "Bearer 0123456789abcdef", true},
		{"/pull/15/token?x=1", "", false},
		{"/pull/16/token", "", false},
	}

	for i := range tests {
		tc := tests[i]
		t.Run(tc.url, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, http.NoBody)
			v, ok := s.Resolve(req)
			if ok != tc.ok || v != tc.value {
				t.Errorf("Resolve() = %q, %v, want %q, %v", v, ok, tc.value, tc.ok)
			}
		})
	}
}

func TestScriptRequestObject(t *testing.T) {
	s, err := NewScript(`[req.method, req.path, req.query, req.host, req.headers['x-user']].join(' ')`)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "http://localhost:8080/api/items?id=1", http.NoBody)
	req.Header.Set("X-User", "johndoe")

	v, ok := s.Resolve(req)
	if !ok {
		t.Fatal("expected value")
	}
	if want := "POST /api/items id=1 localhost:8080 johndoe"; v != want {
		t.Errorf("Resolve() = %q, want %q", v, want)
	}
}

func TestScriptNonStringIsAbsent(t *testing.T) {
	for _, expr := range []string{"undefined", "null", "42", "true", "({})", "req.nope.nope"} {
		s, err := NewScript(expr)
		if err != nil {
			t.Fatalf("%s: %v", expr, err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		if v, ok := s.Resolve(req); ok {
			t.Errorf("%s: expected no value, got %q", expr, v)
		}
	}
}

func TestScriptConcurrentResolve(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, err := NewScript(`req.path.toUpperCase()`)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/abc", http.NoBody)
			if v, ok := s.Resolve(req); !ok || v != "/ABC" {
				t.Errorf("Resolve() = %q, %v", v, ok)
			}
		}()
	}
	wg.Wait()
}

func TestNewScriptError(t *testing.T) {
	for _, expr := range []string{"", "   ", "req.url ===", "}"} {
		if _, err := NewScript(expr); err == nil {
			t.Errorf("%q: expected error", expr)
		}
	}
}

// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gavv/httpexpect/v2"
)

func newWebroot(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"index.html":  "<html>app</html>",
		"app.js":      "console.log('app')",
		"other.html":  "<html>other</html>",
		"css/app.css": "body{}",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newStaticExpect(t *testing.T, h http.Handler) *httpexpect.Expect {
	t.Helper()

	s := httptest.NewServer(h)
	t.Cleanup(s.Close)

	return httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  s.URL,
		Reporter: httpexpect.NewAssertReporter(t),
		Printers: []httpexpect.Printer{
			httpexpect.NewCompactPrinter(t),
		},
	})
}

func TestStatic(t *testing.T) {
	cfg := DefaultStaticConfig()
	cfg.Webroot = newWebroot(t)

	s, err := NewStatic(cfg, new(testLogger))
	if err != nil {
		t.Fatal(err)
	}
	e := newStaticExpect(t, s)

	e.GET("/app.js").Expect().Status(http.StatusOK).Body().IsEqual("console.log('app')")
	e.GET("/css/app.css").Expect().Status(http.StatusOK).Body().IsEqual("body{}")
	e.GET("/").Expect().Status(http.StatusOK).Body().IsEqual("<html>app</html>")
	e.GET("/missing").Expect().Status(http.StatusNotFound)
}

func TestStaticHTML5Mode(t *testing.T) {
	log := new(testLogger)
	cfg := DefaultStaticConfig()
	cfg.Webroot = newWebroot(t)
	cfg.HTML5Mode = true

	s, err := NewStatic(cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	e := newStaticExpect(t, s)

	e.GET("/users/42").Expect().Status(http.StatusOK).Body().IsEqual("<html>app</html>")
	e.GET("/app.js").Expect().Status(http.StatusOK).Body().IsEqual("console.log('app')")

	if n := len(log.Lines("INFO rewriting /users/42 to /index.html")); n != 1 {
		t.Fatalf("expected html5 log line, got %v", log.lines)
	}

	cfg.HTML5Entry = "/other.html"
	s, err = NewStatic(cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	newStaticExpect(t, s).GET("/users/42").Expect().Status(http.StatusOK).Body().IsEqual("<html>other</html>")
}

func TestStaticConfigValidate(t *testing.T) {
	cfg := DefaultStaticConfig()
	cfg.Webroot = filepath.Join(t.TempDir(), "nope")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing webroot")
	}

	cfg.Webroot = t.TempDir()
	cfg.HTML5Mode = true
	cfg.HTML5Entry = "index.html"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for relative entry")
	}
}

func TestAccessLog(t *testing.T) {
	log := new(testLogger)
	h := AccessLog(log).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/app.js", http.NoBody))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", http.NoBody))

	if n := len(log.Lines("INFO GET /app.js")); n != 1 {
		t.Errorf("expected info line, got %v", log.lines)
	}
	if n := len(log.Lines("WARN GET /missing - error 404")); n != 1 {
		t.Errorf("expected warn line, got %v", log.lines)
	}
}

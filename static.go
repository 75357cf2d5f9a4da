// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/saucelabs/jsonproxy/log"
	"github.com/saucelabs/jsonproxy/middleware"
)

const DefaultHTML5Entry = "/index.html"

type StaticConfig struct {
	// Webroot is the directory files are served from.
	Webroot string

	// HTML5Mode serves HTML5Entry instead of responding with 404,
	// this supports client side routing of single page apps.
	HTML5Mode  bool
	HTML5Entry string
}

func DefaultStaticConfig() *StaticConfig {
	return &StaticConfig{
		Webroot:    ".",
		HTML5Entry: DefaultHTML5Entry,
	}
}

func (c *StaticConfig) Validate() error {
	fi, err := os.Stat(c.Webroot)
	if err != nil {
		return fmt.Errorf("webroot: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("webroot: %s is not a directory", c.Webroot)
	}
	if c.HTML5Mode && !strings.HasPrefix(c.HTML5Entry, "/") {
		return fmt.Errorf("html5mode entry %q must start with /", c.HTML5Entry)
	}
	return nil
}

// Static serves files from the webroot.
type Static struct {
	config StaticConfig
	root   http.FileSystem
	files  http.Handler
	log    log.Logger
}

func NewStatic(cfg *StaticConfig, log log.Logger) (*Static, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root := http.Dir(cfg.Webroot)
	s := &Static{
		config: *cfg,
		root:   root,
		files:  http.FileServer(root),
		log:    log,
	}

	log.Infof("hosting local files from %s", cfg.Webroot)
	if cfg.HTML5Mode {
		log.Infof("html5 mode serves %s for missing files", cfg.HTML5Entry)
	}

	return s, nil
}

func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.config.HTML5Mode && !s.exists(r.URL.Path) {
		s.serveEntry(w, r)
		return
	}
	s.files.ServeHTTP(w, r)
}

func (s *Static) exists(p string) bool {
	f, err := s.root.Open(path.Clean("/" + p))
	if err != nil {
		return !errors.Is(err, fs.ErrNotExist)
	}
	f.Close()
	return true
}

func (s *Static) serveEntry(w http.ResponseWriter, r *http.Request) {
	s.log.Infof("rewriting %s to %s", r.URL.RequestURI(), s.config.HTML5Entry)

	f, err := s.root.Open(s.config.HTML5Entry)
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}

	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

// AccessLog returns a middleware logging served files.
func AccessLog(log log.Logger) middleware.Logger {
	return func(e middleware.LogEntry) {
		r := e.Request
		if e.Status >= http.StatusBadRequest {
			log.Warnf("%s %s - error %d", r.Method, r.URL.RequestURI(), e.Status)
			return
		}
		log.Infof("%s %s", r.Method, r.URL.RequestURI())
	}
}

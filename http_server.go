// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/saucelabs/jsonproxy/log"
)

type HTTPServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

func DefaultHTTPServerConfig() *HTTPServerConfig {
	return &HTTPServerConfig{
		Addr:              ":8080",
		ReadHeaderTimeout: 1 * time.Minute,
		IdleTimeout:       1 * time.Hour,
		ShutdownTimeout:   5 * time.Second,
	}
}

func (c *HTTPServerConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("address %q: %w", c.Addr, err)
	}
	return nil
}

type HTTPServer struct {
	config HTTPServerConfig
	log    log.Logger
	srv    *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func NewHTTPServer(cfg *HTTPServerConfig, h http.Handler, log log.Logger) (*HTTPServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &HTTPServer{
		config: *cfg,
		log:    log,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}, nil
}

// Listen opens the listener, it is called by Run if needed.
func (hs *HTTPServer) Listen() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener != nil {
		return nil
	}

	l, err := net.Listen("tcp", hs.config.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	hs.listener = l

	return nil
}

func (hs *HTTPServer) Run(ctx context.Context) error {
	if err := hs.Listen(); err != nil {
		return err
	}

	hs.log.Infof("HTTP server listen address=%s", hs.Addr())

	var wg sync.WaitGroup
	wg.Add(1)

	// handle http shutdown on server context done
	go func() {
		defer wg.Done()

		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), hs.config.ShutdownTimeout)
		defer cancel()
		if err := hs.srv.Shutdown(sctx); err != nil {
			hs.log.Errorf("failed to shutdown server error=%s", err)
		}
	}()

	if err := hs.srv.Serve(hs.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	wg.Wait()
	hs.log.Debugf("server was shutdown gracefully")

	return nil
}

// Addr returns the address the server is listening on or an empty string if the server is not running.
func (hs *HTTPServer) Addr() string {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener == nil {
		return ""
	}
	return hs.listener.Addr().String()
}

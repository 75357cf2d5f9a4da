// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"net/http"
	"sync"

	"golang.org/x/exp/maps"
)

// Router forwards requests to a single network destination.
// It owns the connection pool to that destination.
type Router struct {
	Key       string
	Dest      *Target
	Transport *http.Transport
	Handler   http.Handler
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Handler.ServeHTTP(w, req)
}

// Close closes idle connections held by the router.
func (r *Router) Close() {
	if r.Transport != nil {
		r.Transport.CloseIdleConnections()
	}
}

// RouterFactory constructs a router for a destination.
type RouterFactory func(dest *Target) *Router

// RouterCache maps destinations to routers.
// Routers are created lazily on first use and are never evicted.
type RouterCache struct {
	mu      sync.Mutex
	routers map[string]*Router
	factory RouterFactory
	onNew   []func(*Router)
}

// NewRouterCache returns an empty cache, onNew functions are called
// with the cache lock held whenever factory creates a router.
func NewRouterCache(factory RouterFactory, onNew ...func(*Router)) *RouterCache {
	return &RouterCache{
		routers: make(map[string]*Router),
		factory: factory,
		onNew:   onNew,
	}
}

// Acquire returns the router for dest creating it if needed.
// Concurrent first use of the same destination creates a single router.
func (c *RouterCache) Acquire(dest *Target) *Router {
	key := dest.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.routers[key]; ok {
		return r
	}

	r := c.factory(dest)
	if r.Key == "" {
		r.Key = key
	}
	c.routers[key] = r
	for _, fn := range c.onNew {
		fn(r)
	}

	return r
}

func (c *RouterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.routers)
}

// Keys returns the keys of the cached routers in no particular order.
func (c *RouterCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Keys(c.routers)
}

// Close closes idle connections of all routers, routers stay cached.
func (c *RouterCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.routers {
		r.Close()
	}
}

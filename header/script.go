// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package header

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Script is a header value computed by a JavaScript expression.
// The expression has access to the incoming request as the req object:
//
//	req.method, req.url, req.path, req.query, req.host, req.headers
//
// Header names in req.headers are lower-case.
// If the expression evaluates to anything else than a string, the header is not set.
//
// Example:
//
//	req.url === '/pull/15/token' ? 'Bearer 0123456789abcdef' : undefined
type Script struct {
	src  string
	prog *goja.Program
	pool sync.Pool
}

// NewScript compiles the expression, it is evaluated in a pool of JavaScript runtimes.
func NewScript(expr string) (*Script, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, errors.New("header script: empty expression")
	}

	prog, err := goja.Compile("header", "(function(req) { return ("+expr+"); })", false)
	if err != nil {
		return nil, fmt.Errorf("header script: %w", err)
	}

	s := &Script{
		src:  expr,
		prog: prog,
	}
	if _, err := s.newRuntime(); err != nil {
		return nil, err
	}
	s.pool.New = func() any {
		sr, err := s.newRuntime()
		if err != nil {
			panic(err)
		}
		return sr
	}

	return s, nil
}

type scriptRuntime struct {
	vm *goja.Runtime
	fn goja.Callable
}

func (s *Script) newRuntime() (*scriptRuntime, error) {
	vm := goja.New()
	v, err := vm.RunProgram(s.prog)
	if err != nil {
		return nil, fmt.Errorf("header script: %w", err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errors.New("header script: not a function")
	}
	return &scriptRuntime{vm: vm, fn: fn}, nil
}

func (s *Script) Resolve(req *http.Request) (string, bool) {
	sr := s.pool.Get().(*scriptRuntime) //nolint:forcetypeassert // we know it's a scriptRuntime
	defer s.pool.Put(sr)

	v, err := sr.fn(goja.Undefined(), sr.vm.ToValue(requestObject(req)))
	if err != nil {
		return "", false
	}
	res, ok := v.Export().(string)
	return res, ok
}

func (s *Script) String() string {
	return "{{" + s.src + "}}"
}

func requestObject(req *http.Request) map[string]any {
	headers := make(map[string]any, len(req.Header))
	for k := range req.Header {
		headers[strings.ToLower(k)] = req.Header.Get(k)
	}

	return map[string]any{
		"method":  req.Method,
		"url":     req.URL.RequestURI(),
		"path":    req.URL.Path,
		"query":   req.URL.RawQuery,
		"host":    req.Host,
		"headers": headers,
	}
}

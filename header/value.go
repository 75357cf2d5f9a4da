// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package header

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Value is a header value, it is either static or computed from the request.
// Resolve returns false if the header should not be set for the request.
type Value interface {
	Resolve(req *http.Request) (string, bool)
	String() string
}

// Literal is a static header value.
type Literal string

func (v Literal) Resolve(_ *http.Request) (string, bool) {
	return string(v), true
}

func (v Literal) String() string {
	return string(v)
}

// Func is a header value computed by a Go function.
type Func func(req *http.Request) (string, bool)

func (f Func) Resolve(req *http.Request) (string, bool) {
	return f(req)
}

func (f Func) String() string {
	return "<func>"
}

// ParseValue parses a literal value or a "{{<expression>}}" script value.
func ParseValue(s string) (Value, error) {
	if expr, ok := isTemplateScript(s); ok {
		return NewScript(expr)
	}
	if !httpguts.ValidHeaderFieldValue(s) {
		return nil, errors.New("invalid header value")
	}
	return Literal(s), nil
}

func isTemplateScript(s string) (string, bool) {
	if v, ok := strings.CutPrefix(s, "{{"); ok {
		if v, ok := strings.CutSuffix(v, "}}"); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

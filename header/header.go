// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package header

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/http/httpguts"
)

type Action int

const (
	Remove Action = iota
	RemoveByPrefix
	Empty
	Set
)

// Header is a header rule applied to forwarded requests.
type Header struct {
	Name   string
	Action Action
	Value  Value
}

var headerLineRegex = regexp.MustCompile(`^([^:=\s]+)\s*[:=]\s*(.*?)\r?\n?$`)

// ParseHeader supports the following syntax:
// - "<name>: <value>" or "<name>=<value>" to set a header,
// - "<name>: {{<expression>}}" to set a header to the result of a JavaScript expression,
// - "<name>;" to set a header to empty,
// - "-<name>" to remove a header,
// - "-<name>*" to remove a header by prefix.
func ParseHeader(val string) (Header, error) {
	var h Header

	switch {
	case strings.HasPrefix(val, "-"):
		if strings.HasSuffix(val, "*") {
			h.Name = val[1 : len(val)-1]
			h.Action = RemoveByPrefix
		} else {
			h.Name = val[1:]
			h.Action = Remove
		}
	case strings.HasSuffix(val, ";"):
		h.Name = val[0 : len(val)-1]
		h.Action = Empty
	default:
		m := headerLineRegex.FindStringSubmatch(val)
		if m == nil {
			return Header{}, errors.New("invalid header value")
		}
		v, err := ParseValue(m[2])
		if err != nil {
			return Header{}, err
		}
		h.Name = m[1]
		h.Action = Set
		h.Value = v
	}

	if !httpguts.ValidHeaderFieldName(h.Name) {
		return Header{}, errors.New("invalid header name")
	}

	return h, nil
}

// NewHeader returns a header rule that sets name to v.
func NewHeader(name string, v Value) Header {
	return Header{
		Name:   name,
		Action: Set,
		Value:  v,
	}
}

// Apply modifies the outgoing request out, values are computed from the incoming request in.
// A value that resolves to nothing leaves the header untouched.
func (h *Header) Apply(out, in *http.Request) {
	hh := out.Header
	switch h.Action {
	case Remove:
		hh.Del(h.Name)
	case RemoveByPrefix:
		removeHeadersByPrefix(hh, h.Name)
	case Empty:
		hh.Set(h.Name, "")
	case Set:
		if v, ok := h.Value.Resolve(in); ok {
			hh.Set(h.Name, v)
		}
	}
}

func removeHeadersByPrefix(h http.Header, prefix string) {
	for k := range h {
		if len(k) < len(prefix) {
			continue
		}
		if strings.EqualFold(k[0:len(prefix)], prefix) {
			h.Del(k)
		}
	}
}

func (h *Header) String() string {
	switch h.Action {
	case Remove:
		return "-" + h.Name
	case RemoveByPrefix:
		return "-" + h.Name + "*"
	case Empty:
		return h.Name + ";"
	case Set:
		return h.Name + ": " + h.Value.String()
	default:
		return ""
	}
}

// Headers is an ordered list of header rules.
type Headers []Header

// ModifyRequest applies the rules in order to out.
func (s Headers) ModifyRequest(out, in *http.Request) {
	for i := range s {
		s[i].Apply(out, in)
	}
}

// Merge returns lower with upper rules merged in.
// A rule for a header name already present in lower replaces it in place,
// other rules are appended in order.
func Merge(lower, upper Headers) Headers {
	res := make(Headers, len(lower), len(lower)+len(upper))
	copy(res, lower)

	for _, u := range upper {
		replaced := false
		for i := range res {
			if strings.EqualFold(res[i].Name, u.Name) {
				res[i] = u
				replaced = true
				break
			}
		}
		if !replaced {
			res = append(res, u)
		}
	}

	return res
}

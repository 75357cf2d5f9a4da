// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bind

import (
	"fmt"
	"net/http"

	"github.com/saucelabs/jsonproxy/header"
)

var sensitiveHeaders = []string{ //nolint:gochecknoglobals // immutable
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
}

// RedactHeader quotes the header rule, literal values of credential headers are hidden.
func RedactHeader(h header.Header) string {
	if h.Action == header.Set {
		if _, ok := h.Value.(header.Literal); ok {
			name := http.CanonicalHeaderKey(h.Name)
			for _, s := range sensitiveHeaders {
				if name == s {
					return fmt.Sprintf("%q", h.Name+": xxxxx")
				}
			}
		}
	}
	return fmt.Sprintf("%q", h.String())
}

// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
	"time"
)

type LogEntry struct {
	Request  *http.Request
	Status   int
	Written  int64
	Duration time.Duration
}

// Logger is a middleware that calls the function after each request is served.
type Logger func(e LogEntry)

func (l Logger) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		d := NewDelegator(w)
		h.ServeHTTP(d, r)
		l(LogEntry{
			Request:  r,
			Status:   d.Status(),
			Written:  d.Written(),
			Duration: time.Since(start),
		})
	})
}

// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package middleware

import (
	"net/http"
)

// Delegator is a http.ResponseWriter that records the response status and the number of bytes written.
type Delegator interface {
	http.ResponseWriter

	Status() int
	Written() int64
}

type responseWriterDelegator struct {
	http.ResponseWriter

	status      int
	written     int64
	wroteHeader bool
	observe     func(int)
}

// NewDelegator wraps w, if w is already a Delegator it is returned as is.
func NewDelegator(w http.ResponseWriter) Delegator {
	if d, ok := w.(Delegator); ok {
		return d
	}
	return newDelegator(w, nil)
}

func newDelegator(w http.ResponseWriter, observe func(int)) *responseWriterDelegator {
	return &responseWriterDelegator{
		ResponseWriter: w,
		observe:        observe,
	}
}

func (r *responseWriterDelegator) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseWriterDelegator) Written() int64 {
	return r.written
}

func (r *responseWriterDelegator) WriteHeader(code int) {
	if isInformational(code) {
		r.ResponseWriter.WriteHeader(code)
		return
	}
	if r.observe != nil && !r.wroteHeader {
		r.observe(code)
	}
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// isInformational reports 1xx responses that are followed by the final response.
func isInformational(code int) bool {
	return code >= 100 && code < 200 && code != http.StatusSwitchingProtocols
}

func (r *responseWriterDelegator) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// Flush implements http.Flusher, it is needed for streaming responses.
func (r *responseWriterDelegator) Flush() {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap allows http.ResponseController to access the underlying writer.
func (r *responseWriterDelegator) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

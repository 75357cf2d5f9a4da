// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package jsonproxy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
)

// UpstreamConnectionError is returned when a forwarded request fails
// before a response is received from the upstream.
type UpstreamConnectionError struct {
	// Dest is the network destination, the gateway in gateway mode.
	Dest *Target
	Err  error
}

func (e *UpstreamConnectionError) Error() string {
	if e.Dest == nil {
		return e.Err.Error()
	}
	return e.Dest.Addr() + ": " + e.Err.Error()
}

func (e *UpstreamConnectionError) Unwrap() error {
	return e.Err
}

type statusCoder interface {
	StatusCode() int
}

// StatusCode returns the HTTP status reported to the client.
// It is 500 unless the wrapped error carries an error status.
func (e *UpstreamConnectionError) StatusCode() int {
	var sc statusCoder
	if errors.As(e.Err, &sc) {
		if code := sc.StatusCode(); code >= http.StatusBadRequest {
			return code
		}
	}
	return http.StatusInternalServerError
}

// Reason returns a short label classifying the error.
func (e *UpstreamConnectionError) Reason() string {
	return errorReason(e.Err)
}

func errorReason(err error) string {
	var (
		dnsErr     *net.DNSError
		headerErr  tls.RecordHeaderError
		certErr    *tls.CertificateVerificationError
		netErr     *net.OpError
		timeoutErr interface{ Timeout() bool }
	)

	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &headerErr), errors.As(err, &certErr):
		return "tls"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &timeoutErr) && timeoutErr.Timeout():
		return "timeout"
	case errors.As(err, &netErr):
		return "net_" + netErr.Op
	default:
		return "other"
	}
}

// errorMessage returns the message of the innermost error carrying
// the cause, without the operation details added by net/http.
func errorMessage(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Error()
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) && netErr.Err != nil {
		return netErr.Op + " " + netErr.Net + ": " + netErr.Err.Error()
	}
	return err.Error()
}

// ErrorEnvelope is the body of error responses produced by the proxy.
type ErrorEnvelope struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	b, err := json.Marshal(ErrorEnvelope{Error: code, Message: msg})
	if err != nil {
		http.Error(w, msg, code)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(b)))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	w.Write(b) //nolint:errcheck // client may be gone
}

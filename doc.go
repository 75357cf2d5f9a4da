// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package jsonproxy provides a development HTTP server that serves static files
// and forwards selected request paths to backend services.
// Requests are matched against an ordered rule table, the matching path is rewritten,
// configured headers are injected and the request is sent to the target,
// optionally through a parent HTTP proxy gateway.
// Upstream failures are reported to the client as a JSON error envelope.
package jsonproxy

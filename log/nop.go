// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

// NopLogger is a logger that does nothing.
var NopLogger = nopLogger{} //nolint:gochecknoglobals // nop implementation

var _ Logger = nopLogger{}

type nopLogger struct{}

func (l nopLogger) Errorf(_ string, _ ...any) {}
func (l nopLogger) Warnf(_ string, _ ...any)  {}
func (l nopLogger) Infof(_ string, _ ...any)  {}
func (l nopLogger) Debugf(_ string, _ ...any) {}

// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"os"
)

// Logger is the logger used by the jsonproxy package.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

var (
	DefaultFileFlags = os.O_CREATE | os.O_APPEND | os.O_WRONLY

	DefaultFileMode os.FileMode = 0o600
	DefaultDirMode  os.FileMode = 0o700
)

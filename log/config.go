// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"os"
)

// Config is a configuration for the loggers.
type Config struct {
	File  *os.File
	Level Level
}

func DefaultConfig() *Config {
	return &Config{
		File:  nil,
		Level: InfoLevel,
	}
}

type Level int

// Levels start from 1 to avoid zero value in help printer.
const (
	ErrorLevel Level = 1 + iota
	WarnLevel
	InfoLevel
	DebugLevel
)

func (l Level) String() string {
	if l < ErrorLevel || l > DebugLevel {
		return "unknown"
	}
	return [4]string{"error", "warn", "info", "debug"}[l-1]
}

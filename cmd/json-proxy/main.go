// Copyright 2023 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"os"

	"github.com/saucelabs/jsonproxy/command/jsonproxy"
)

func main() {
	if err := jsonproxy.Command().Execute(); err != nil {
		os.Exit(1)
	}
}

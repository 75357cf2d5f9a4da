// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"strings"
)

// EnvName returns the environment variable bound to the flag by BindAll.
func EnvName(envPrefix, flagName string) string {
	return envReplacer.Replace(strings.ToUpper(envPrefix + "_" + flagName))
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hostinfo

import "github.com/juju/loggo"

var logger = loggo.GetLogger("vix.hostinfo")

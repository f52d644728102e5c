// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

//go:build !linux

package hostinfo

import "github.com/juju/errors"

func memoryInfo() (uint64, uint64, error) {
	return 0, 0, errors.NotSupportedf("host memory query on this platform")
}

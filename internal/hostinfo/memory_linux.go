// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hostinfo

import (
	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

func memoryInfo() (uint64, uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, errors.Annotate(err, "querying host memory")
	}
	unit := uint64(info.Unit)
	total := uint64(info.Totalram) * unit
	free := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit
	return total, free, nil
}

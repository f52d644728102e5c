// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
)

const (
	bytesPerMB = 1024 * 1024
	bytesPerGB = 1024 * 1024 * 1024
)

// AvailableResource is the capacity report consumed by the scheduler.
// Utilisation accounting is not implemented, so VCPUsUsed, CPUInfo and
// SupportedInstances are always zero values.
type AvailableResource struct {
	VCPUs              int
	MemoryMB           uint64
	MemoryMBUsed       uint64
	LocalGB            uint64
	LocalGBUsed        uint64
	HypervisorType     string
	HypervisorVersion  int
	HypervisorHostname string
	VCPUsUsed          int
	CPUInfo            int
	SupportedInstances int
}

// SupportedInstance is an (architecture, hypervisor, mode) triple the
// host can run.
type SupportedInstance struct {
	Arch           string
	HypervisorType string
	VMMode         string
}

var supportedInstances = []SupportedInstance{
	{Arch: "i686", HypervisorType: HypervisorType, VMMode: "hvm"},
	{Arch: "x86_64", HypervisorType: HypervisorType, VMMode: "hvm"},
}

// HostStats is a point in time snapshot of the host capacity. Used and
// free figures always add up to the total.
type HostStats struct {
	MemoryTotalMB        uint64
	MemoryOverheadMB     uint64
	MemoryFreeMB         uint64
	MemoryFreeComputedMB uint64

	DiskTotalGB     uint64
	DiskUsedGB      uint64
	DiskAvailableGB uint64

	HypervisorHostname string
	SupportedInstances []SupportedInstance
	UpdatedAt          time.Time
}

// StatsCache holds the most recent HostStats. Readers always see a
// complete snapshot.
type StatsCache struct {
	stats atomic.Pointer[HostStats]
}

// Load returns the cached snapshot, if any.
func (c *StatsCache) Load() (HostStats, bool) {
	s := c.stats.Load()
	if s == nil {
		return HostStats{}, false
	}
	return *s, true
}

// Store replaces the cached snapshot.
func (c *StatsCache) Store(s HostStats) {
	c.stats.Store(&s)
}

// usage converts a total and a free byte count into whole units and
// derives the used amount, so that used + free == total.
func usage(totalBytes, freeBytes, unit uint64) (total, used, free uint64) {
	total = totalBytes / unit
	free = freeBytes / unit
	if free > total {
		free = total
	}
	return total, total - free, free
}

func (d *Driver) memoryInfoMB() (total, used, free uint64, err error) {
	totalBytes, freeBytes, err := d.host.MemoryInfo()
	if err != nil {
		return 0, 0, 0, errors.Annotate(err, "reading host memory")
	}
	total, used, free = usage(totalBytes, freeBytes, bytesPerMB)
	return total, used, free, nil
}

func (d *Driver) localDiskInfoGB() (total, used, free uint64, err error) {
	dir := d.paths.InstancesDir()
	totalBytes, freeBytes, err := d.host.DiskInfo(dir)
	if err != nil {
		return 0, 0, 0, errors.Annotatef(err, "reading disk usage of %q", dir)
	}
	total, used, free = usage(totalBytes, freeBytes, bytesPerGB)
	return total, used, free, nil
}

// GetAvailableResource reports the capacity of the host for the
// scheduler.
func (d *Driver) GetAvailableResource(ctx context.Context, nodename string) (AvailableResource, error) {
	d.logger.Tracef("reporting resources of node %q", nodename)
	memTotal, memUsed, _, err := d.memoryInfoMB()
	if err != nil {
		return AvailableResource{}, errors.Trace(err)
	}
	diskTotal, diskUsed, _, err := d.localDiskInfoGB()
	if err != nil {
		return AvailableResource{}, errors.Trace(err)
	}
	version, err := d.conn.SoftwareVersion(ctx)
	if err != nil {
		return AvailableResource{}, errors.Annotate(err, "reading hypervisor version")
	}
	hostname, err := d.host.Hostname()
	if err != nil {
		return AvailableResource{}, errors.Trace(err)
	}
	return AvailableResource{
		VCPUs:              d.host.CPUCount(),
		MemoryMB:           memTotal,
		MemoryMBUsed:       memUsed,
		LocalGB:            diskTotal,
		LocalGBUsed:        diskUsed,
		HypervisorType:     HypervisorType,
		HypervisorVersion:  version,
		HypervisorHostname: hostname,
	}, nil
}

// UpdateStats recomputes the host stats snapshot and replaces the
// cached one.
func (d *Driver) UpdateStats(context.Context) (HostStats, error) {
	memTotal, memUsed, memFree, err := d.memoryInfoMB()
	if err != nil {
		return HostStats{}, errors.Trace(err)
	}
	diskTotal, diskUsed, diskFree, err := d.localDiskInfoGB()
	if err != nil {
		return HostStats{}, errors.Trace(err)
	}
	hostname, err := d.host.Hostname()
	if err != nil {
		return HostStats{}, errors.Trace(err)
	}
	stats := HostStats{
		MemoryTotalMB:        memTotal,
		MemoryOverheadMB:     memUsed,
		MemoryFreeMB:         memFree,
		MemoryFreeComputedMB: memFree,
		DiskTotalGB:          diskTotal,
		DiskUsedGB:           diskUsed,
		DiskAvailableGB:      diskFree,
		HypervisorHostname:   hostname,
		SupportedInstances:   append([]SupportedInstance(nil), supportedInstances...),
		UpdatedAt:            d.clock.Now(),
	}
	d.stats.Store(stats)
	d.logger.Debugf("updated host stats: %d/%d MB memory free, %d/%d GB disk free", memFree, memTotal, diskFree, diskTotal)
	return stats, nil
}

// GetHostStats returns the cached host stats, recomputing them first
// when refresh is true or nothing is cached yet.
func (d *Driver) GetHostStats(ctx context.Context, refresh bool) (HostStats, error) {
	if !refresh {
		if stats, ok := d.stats.Load(); ok {
			return stats, nil
		}
	}
	stats, err := d.UpdateStats(ctx)
	return stats, errors.Trace(err)
}

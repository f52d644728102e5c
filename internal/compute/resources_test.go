// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute_test

import (
	"context"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/juju/vixdriver/internal/compute"
)

const (
	totalBytes = uint64(2147483648)
	freeBytes  = uint64(1073741824)
)

type resourcesSuite struct {
	baseSuite
}

var _ = gc.Suite(&resourcesSuite{})

func (s *resourcesSuite) expectHost() {
	s.host.EXPECT().MemoryInfo().Return(totalBytes, freeBytes, nil)
	s.paths.EXPECT().InstancesDir().Return(s.dir)
	s.host.EXPECT().DiskInfo(s.dir).Return(totalBytes, freeBytes, nil)
	s.host.EXPECT().Hostname().Return("fake_hostname", nil)
}

func (s *resourcesSuite) TestGetAvailableResource(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectHost()
	s.host.EXPECT().CPUCount().Return(2)
	s.conn.EXPECT().SoftwareVersion(gomock.Any()).Return(10, nil)

	res, err := s.newDriver(c).GetAvailableResource(context.Background(), "fake_name")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(res, jc.DeepEquals, compute.AvailableResource{
		VCPUs:              2,
		MemoryMB:           2048,
		MemoryMBUsed:       1024,
		LocalGB:            2,
		LocalGBUsed:        1,
		HypervisorType:     "vix",
		HypervisorVersion:  10,
		HypervisorHostname: "fake_hostname",
		VCPUsUsed:          0,
		CPUInfo:            0,
		SupportedInstances: 0,
	})
}

func (s *resourcesSuite) TestGetAvailableResourceVersionError(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.host.EXPECT().MemoryInfo().Return(totalBytes, freeBytes, nil)
	s.paths.EXPECT().InstancesDir().Return(s.dir)
	s.host.EXPECT().DiskInfo(s.dir).Return(totalBytes, freeBytes, nil)
	s.conn.EXPECT().SoftwareVersion(gomock.Any()).Return(0, errors.NotFoundf("descriptor %q", "/etc/vmware/config"))

	_, err := s.newDriver(c).GetAvailableResource(context.Background(), "fake_name")
	c.Check(err, jc.ErrorIs, errors.NotFound)
}

func (s *resourcesSuite) TestUpdateStats(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectHost()

	stats, err := s.newDriver(c).UpdateStats(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stats, jc.DeepEquals, compute.HostStats{
		MemoryTotalMB:        2048,
		MemoryOverheadMB:     1024,
		MemoryFreeMB:         1024,
		MemoryFreeComputedMB: 1024,
		DiskTotalGB:          2,
		DiskUsedGB:           1,
		DiskAvailableGB:      1,
		HypervisorHostname:   "fake_hostname",
		SupportedInstances: []compute.SupportedInstance{
			{Arch: "i686", HypervisorType: "vix", VMMode: "hvm"},
			{Arch: "x86_64", HypervisorType: "vix", VMMode: "hvm"},
		},
		UpdatedAt: epoch,
	})
}

func (s *resourcesSuite) TestUsedPlusFreeIsTotal(c *gc.C) {
	defer s.setupMocks(c).Finish()
	// Free larger than total after rounding must not go negative.
	s.host.EXPECT().MemoryInfo().Return(uint64(3*1024*1024+5), uint64(3*1024*1024+7), nil)
	s.paths.EXPECT().InstancesDir().Return(s.dir)
	s.host.EXPECT().DiskInfo(s.dir).Return(uint64(5*1024*1024*1024+100), uint64(2*1024*1024*1024-1), nil)
	s.host.EXPECT().Hostname().Return("host", nil)

	stats, err := s.newDriver(c).UpdateStats(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stats.MemoryOverheadMB+stats.MemoryFreeMB, gc.Equals, stats.MemoryTotalMB)
	c.Check(stats.MemoryOverheadMB, gc.Equals, uint64(0))
	c.Check(stats.DiskUsedGB+stats.DiskAvailableGB, gc.Equals, stats.DiskTotalGB)
	c.Check(stats.DiskTotalGB, gc.Equals, uint64(5))
	c.Check(stats.DiskAvailableGB, gc.Equals, uint64(1))
}

func (s *resourcesSuite) TestGetHostStatsLazy(c *gc.C) {
	defer s.setupMocks(c).Finish()
	// Computed once; the second call is served from the cache.
	s.expectHost()
	d := s.newDriver(c)

	first, err := d.GetHostStats(context.Background(), false)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(first.MemoryTotalMB, gc.Equals, uint64(2048))

	second, err := d.GetHostStats(context.Background(), false)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(second, jc.DeepEquals, first)
}

func (s *resourcesSuite) TestGetHostStatsRefresh(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectHost()
	s.host.EXPECT().MemoryInfo().Return(totalBytes, uint64(0), nil)
	s.paths.EXPECT().InstancesDir().Return(s.dir)
	s.host.EXPECT().DiskInfo(s.dir).Return(totalBytes, freeBytes, nil)
	s.host.EXPECT().Hostname().Return("fake_hostname", nil)
	d := s.newDriver(c)

	_, err := d.GetHostStats(context.Background(), true)
	c.Assert(err, jc.ErrorIsNil)
	stats, err := d.GetHostStats(context.Background(), true)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stats.MemoryFreeMB, gc.Equals, uint64(0))
	c.Check(stats.MemoryOverheadMB, gc.Equals, uint64(2048))
}

func (s *resourcesSuite) TestStatsCacheSharedBetweenDrivers(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.expectHost()

	cache := &compute.StatsCache{}
	_, ok := cache.Load()
	c.Check(ok, jc.IsFalse)

	d, err := compute.NewDriver(compute.Config{
		Connection: s.conn,
		ImageCache: s.imageCache,
		Paths:      s.paths,
		Host:       s.host,
		Stats:      cache,
		Clock:      s.clock,
	})
	c.Assert(err, jc.ErrorIsNil)
	_, err = d.UpdateStats(context.Background())
	c.Assert(err, jc.ErrorIsNil)

	stats, ok := cache.Load()
	c.Assert(ok, jc.IsTrue)
	c.Check(stats.HypervisorHostname, gc.Equals, "fake_hostname")
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"bytes"
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/juju/vixdriver/internal/compute"
	"github.com/juju/vixdriver/internal/config"
	"github.com/juju/vixdriver/internal/hypervisor"
)

type commandSuite struct {
	testing.IsolationSuite

	driver     *MockDriver
	configPath string
	collectors []prometheus.Collector
}

var _ = gc.Suite(&commandSuite{})

func (s *commandSuite) setupMocks(c *gc.C) *gomock.Controller {
	ctrl := gomock.NewController(c)
	s.driver = NewMockDriver(ctrl)
	s.configPath = ""
	s.collectors = []prometheus.Collector{compute.NewMetricsCollector()}
	return ctrl
}

func (s *commandSuite) run(c *gc.C, args ...string) (string, string, error) {
	a := newApp()
	a.loadConfig = func(path string) (config.Config, error) {
		s.configPath = path
		return config.Config{InstancesPath: "/vms"}, nil
	}
	a.newDriver = func(_ context.Context, cfg config.Config, reg prometheus.Registerer) (Driver, error) {
		c.Check(cfg.InstancesPath, gc.Equals, "/vms")
		for _, collector := range s.collectors {
			c.Assert(reg.Register(collector), jc.ErrorIsNil)
		}
		return s.driver, nil
	}
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(a)
	cmd.SetArgs(append([]string{"--log-config", ""}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (s *commandSuite) TestSpawn(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().Spawn(gomock.Any(), compute.Instance{
		Name:        "web",
		DisplayName: "web",
		ImageRef:    "img-1",
		VCPUs:       2,
		MemoryMB:    1024,
	}, []hypervisor.Network{
		{MAC: "00:50:56:00:00:01", Switch: "vmnet8"},
		{MAC: "00:50:56:00:00:02", Switch: "bridged"},
	}).Return(nil)

	out, _, err := s.run(c, "spawn", "web", "--image", "img-1", "--vcpus", "2", "--memory", "1024",
		"--nic", "00:50:56:00:00:01=vmnet8", "--nic", "00:50:56:00:00:02=bridged")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Equals, "spawned web\n")
	c.Check(s.configPath, gc.Equals, defaultConfigPath)
}

func (s *commandSuite) TestSpawnRequiresImage(c *gc.C) {
	defer s.setupMocks(c).Finish()

	_, _, err := s.run(c, "spawn", "web")
	c.Check(err, gc.ErrorMatches, `required flag\(s\) "image" not set`)
}

func (s *commandSuite) TestSpawnBadNIC(c *gc.C) {
	defer s.setupMocks(c).Finish()

	_, _, err := s.run(c, "spawn", "web", "--image", "img-1", "--nic", "vmnet8")
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *commandSuite) TestPowerActions(c *gc.C) {
	for _, test := range []struct {
		command string
		expect  func(*MockDriverMockRecorder) *gomock.Call
	}{
		{"pause", func(r *MockDriverMockRecorder) *gomock.Call { return r.Pause(gomock.Any(), "web") }},
		{"unpause", func(r *MockDriverMockRecorder) *gomock.Call { return r.Unpause(gomock.Any(), "web") }},
		{"suspend", func(r *MockDriverMockRecorder) *gomock.Call { return r.Suspend(gomock.Any(), "web") }},
		{"resume", func(r *MockDriverMockRecorder) *gomock.Call { return r.Resume(gomock.Any(), "web") }},
		{"power-on", func(r *MockDriverMockRecorder) *gomock.Call { return r.PowerOn(gomock.Any(), "web") }},
		{"power-off", func(r *MockDriverMockRecorder) *gomock.Call { return r.PowerOff(gomock.Any(), "web") }},
	} {
		c.Logf("command %s", test.command)
		ctrl := s.setupMocks(c)
		test.expect(s.driver.EXPECT()).Return(nil)
		_, _, err := s.run(c, test.command, "web")
		c.Check(err, jc.ErrorIsNil)
		ctrl.Finish()
	}
}

func (s *commandSuite) TestActionError(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().Pause(gomock.Any(), "web").Return(errors.NotFoundf("instance %q", "web"))

	_, _, err := s.run(c, "pause", "web")
	c.Check(err, jc.ErrorIs, errors.NotFound)
}

func (s *commandSuite) TestMissingName(c *gc.C) {
	defer s.setupMocks(c).Finish()

	_, _, err := s.run(c, "destroy")
	c.Check(err, gc.ErrorMatches, `accepts 1 arg\(s\), received 0`)
}

func (s *commandSuite) TestDestroy(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().Destroy(gomock.Any(), "web").Return(nil)

	out, _, err := s.run(c, "destroy", "web")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Equals, "destroyed web\n")
}

func (s *commandSuite) TestReboot(c *gc.C) {
	defer s.setupMocks(c).Finish()
	gomock.InOrder(
		s.driver.EXPECT().Reboot(gomock.Any(), "web", compute.RebootSoft).Return(nil),
		s.driver.EXPECT().Reboot(gomock.Any(), "web", compute.RebootHard).Return(nil),
	)

	_, _, err := s.run(c, "reboot", "web")
	c.Assert(err, jc.ErrorIsNil)
	_, _, err = s.run(c, "reboot", "web", "--hard")
	c.Assert(err, jc.ErrorIsNil)
}

func (s *commandSuite) TestList(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().ListInstances(gomock.Any()).Return([]string{"db", "web"}, nil)

	out, _, err := s.run(c, "--config", "/tmp/vix.yaml", "list")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Equals, "db\nweb\n")
	c.Check(s.configPath, gc.Equals, "/tmp/vix.yaml")
}

func (s *commandSuite) TestInfo(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().GetInfo(gomock.Any(), "web").Return(compute.InstanceInfo{
		State:    hypervisor.PoweredOn,
		NumVCPUs: 2,
		MemoryMB: 1024,
	}, nil)

	out, _, err := s.run(c, "info", "web")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Equals, "state: powered-on\nvcpus: 2\nmemory-mb: 1024\n")
}

func (s *commandSuite) TestSnapshot(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().Snapshot(gomock.Any(), "web", "web-export", gomock.Any()).DoAndReturn(
		func(_ context.Context, _, _ string, update compute.UpdateTaskStateFunc) (string, error) {
			c.Check(update(compute.ImagePendingUpload, ""), jc.ErrorIsNil)
			return "new-image", nil
		})

	out, _, err := s.run(c, "snapshot", "web", "web-export")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Equals, "new-image\n")
}

func (s *commandSuite) TestVNC(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().GetVNCConsole(gomock.Any(), "web").Return(compute.VNCConsole{Host: "10.0.0.5", Port: 5901}, nil)

	out, _, err := s.run(c, "vnc", "web")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Equals, "host: 10.0.0.5\nport: 5901\n")
}

func (s *commandSuite) TestResources(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().GetAvailableResource(gomock.Any(), "").Return(compute.AvailableResource{
		VCPUs:              2,
		MemoryMB:           2048,
		MemoryMBUsed:       1024,
		LocalGB:            2,
		LocalGBUsed:        1,
		HypervisorType:     "vix",
		HypervisorVersion:  10,
		HypervisorHostname: "fake_hostname",
	}, nil)

	out, _, err := s.run(c, "resources")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Equals, `vcpus: 2
vcpus-used: 0
memory-mb: 2048
memory-mb-used: 1024
local-gb: 2
local-gb-used: 1
hypervisor-type: vix
hypervisor-version: 10
hypervisor-hostname: fake_hostname
`)
}

func (s *commandSuite) TestStats(c *gc.C) {
	defer s.setupMocks(c).Finish()
	s.driver.EXPECT().GetHostStats(gomock.Any(), true).Return(compute.HostStats{
		MemoryTotalMB:      2048,
		MemoryFreeMB:       1024,
		HypervisorHostname: "fake_hostname",
		SupportedInstances: []compute.SupportedInstance{
			{Arch: "x86_64", HypervisorType: "vix", VMMode: "hvm"},
		},
		UpdatedAt: time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC),
	}, nil)

	out, _, err := s.run(c, "stats", "--refresh")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(out, gc.Matches, `(?s)memory-total-mb: 2048\n.*supported-instances:\n\s+- x86_64/vix/hvm\nupdated-at: "?2026-10-19T09:30:00Z"?\n`)
}

func (s *commandSuite) TestMetrics(c *gc.C) {
	defer s.setupMocks(c).Finish()
	spawns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vix_test_spawns_total",
	}, []string{"result"})
	spawns.WithLabelValues("success").Add(3)
	s.collectors = append(s.collectors, spawns)
	s.driver.EXPECT().ListInstances(gomock.Any()).Return(nil, nil)

	_, stderr, err := s.run(c, "--metrics", "list")
	c.Assert(err, jc.ErrorIsNil)
	// Empty vectors have no samples to print.
	c.Check(stderr, gc.Equals, "vix_test_spawns_total{result=\"success\"} 3\n")
}

func (s *commandSuite) TestConfigError(c *gc.C) {
	a := newApp()
	a.loadConfig = func(string) (config.Config, error) {
		return config.Config{}, errors.NotFoundf("config file %q", "/etc/vix/vix.yaml")
	}
	cmd := newRootCommand(a)
	cmd.SetArgs([]string{"--log-config", "", "list"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	c.Check(err, jc.ErrorIs, errors.NotFound)
}

func (s *commandSuite) TestParseNICs(c *gc.C) {
	networks, err := parseNICs(nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(networks, gc.HasLen, 0)

	for _, bad := range []string{"", "=vmnet1", "00:50:56:00:00:01=", "00:50:56:00:00:01"} {
		_, err := parseNICs([]string{bad})
		c.Check(err, jc.ErrorIs, errors.NotValid, gc.Commentf("nic %q", bad))
	}
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/vixdriver/internal/compute"
	"github.com/juju/vixdriver/internal/config"
	"github.com/juju/vixdriver/internal/hostinfo"
	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/imagecache"
	"github.com/juju/vixdriver/internal/imagecache/s3store"
	"github.com/juju/vixdriver/internal/pathutils"
	"github.com/juju/vixdriver/internal/vmrun"
)

// Driver is the subset of the compute driver the commands call.
type Driver interface {
	Spawn(ctx context.Context, inst compute.Instance, networks []hypervisor.Network) error
	Destroy(ctx context.Context, name string) error
	ListInstances(ctx context.Context) ([]string, error)
	GetInfo(ctx context.Context, name string) (compute.InstanceInfo, error)
	Pause(ctx context.Context, name string) error
	Unpause(ctx context.Context, name string) error
	Suspend(ctx context.Context, name string) error
	Resume(ctx context.Context, name string) error
	PowerOn(ctx context.Context, name string) error
	PowerOff(ctx context.Context, name string) error
	Reboot(ctx context.Context, name string, rebootType compute.RebootType) error
	Snapshot(ctx context.Context, name, exportName string, update compute.UpdateTaskStateFunc) (string, error)
	GetVNCConsole(ctx context.Context, name string) (compute.VNCConsole, error)
	GetAvailableResource(ctx context.Context, nodename string) (compute.AvailableResource, error)
	GetHostStats(ctx context.Context, refresh bool) (compute.HostStats, error)
}

// NewDriverFunc builds a Driver from the configuration, registering its
// collectors with registerer.
type NewDriverFunc func(ctx context.Context, cfg config.Config, registerer prometheus.Registerer) (Driver, error)

// newDriver wires the production collaborators of the compute driver.
func newDriver(ctx context.Context, cfg config.Config, registerer prometheus.Registerer) (Driver, error) {
	client, err := s3store.NewClient(ctx, s3store.ClientConfig{
		Region:   cfg.ImageStore.Region,
		Endpoint: cfg.ImageStore.Endpoint,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	store, err := s3store.New(s3store.Config{
		Client: client,
		Bucket: cfg.ImageStore.Bucket,
		Prefix: cfg.ImageStore.Prefix,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	cacheMetrics := imagecache.NewMetricsCollector()
	computeMetrics := compute.NewMetricsCollector()
	for _, c := range []prometheus.Collector{cacheMetrics, computeMetrics} {
		if err := registerer.Register(c); err != nil {
			return nil, errors.Annotate(err, "registering metrics")
		}
	}

	cache, err := imagecache.NewCache(imagecache.Config{
		Backend:     store,
		CacheDir:    cfg.ImageCachePath,
		QemuImgPath: cfg.QemuImgPath,
		LockTimeout: cfg.LockTimeout,
		Metrics:     cacheMetrics,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	conn, err := vmrun.NewConnection(vmrun.Config{
		VMRunPath:         cfg.VMRunPath,
		HostType:          cfg.HostType,
		ToolsISOPath:      cfg.ToolsISOPath,
		ProductConfigPath: cfg.VMwareConfigPath,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	driver, err := compute.NewDriver(compute.Config{
		Connection: conn,
		ImageCache: cache,
		Paths:      pathutils.NewPaths(cfg.InstancesPath),
		Host:       hostinfo.New(cfg.MyIP),
		Metrics:    computeMetrics,
	})
	return driver, errors.Trace(err)
}

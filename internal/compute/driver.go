// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package compute is the VMware compute driver: it provisions instances
// from cached base images, dispatches power actions, exports instance
// disks as new images and reports host capacity.
//
// The driver keeps no per-instance state. Everything it knows about an
// instance is queried from the hypervisor binding on each call, so
// calls for different instances run fully in parallel.
package compute

import (
	"context"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/pathutils"
)

var logger = loggo.GetLogger("vix.compute")

// HypervisorType is the hypervisor tag reported to the scheduler.
const HypervisorType = "vix"

// Instance is what the driver needs to know about an instance to
// provision it.
type Instance struct {
	Name        string
	DisplayName string
	ImageRef    string
	VCPUs       int
	MemoryMB    int
}

// Config holds the collaborators of a Driver.
type Config struct {
	Connection hypervisor.Connection
	ImageCache ImageCache
	Paths      PathUtils
	Host       HostInfo

	// Stats holds the host stats snapshot. A new one is created when
	// it is nil.
	Stats   *StatsCache
	Metrics *Collector
	Clock   clock.Clock
	Logger  Logger
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Connection == nil {
		return errors.NotValidf("nil Connection")
	}
	if c.ImageCache == nil {
		return errors.NotValidf("nil ImageCache")
	}
	if c.Paths == nil {
		return errors.NotValidf("nil Paths")
	}
	if c.Host == nil {
		return errors.NotValidf("nil Host")
	}
	return nil
}

// Driver implements the compute driver operations.
type Driver struct {
	conn       hypervisor.Connection
	imageCache ImageCache
	paths      PathUtils
	host       HostInfo
	stats      *StatsCache
	metrics    *Collector
	clock      clock.Clock
	logger     Logger

	// placeholders serialises registration of the placeholder VM
	// wrapping each base image.
	placeholders *kmutex.Kmutex
}

// NewDriver returns a Driver using the given collaborators.
func NewDriver(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	d := &Driver{
		conn:       cfg.Connection,
		imageCache: cfg.ImageCache,
		paths:      cfg.Paths,
		host:       cfg.Host,
		stats:      cfg.Stats,
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
		logger:     cfg.Logger,

		placeholders: kmutex.New(),
	}
	if d.stats == nil {
		d.stats = &StatsCache{}
	}
	if d.metrics == nil {
		d.metrics = NewMetricsCollector()
	}
	if d.clock == nil {
		d.clock = clock.WallClock
	}
	if d.logger == nil {
		d.logger = logger
	}
	return d, nil
}

// execVMAction opens the named instance and applies action to it. It
// fails with a not found error, without opening anything, when the
// instance is not registered with the hypervisor.
func execVMAction[T any](ctx context.Context, d *Driver, name string, action func(context.Context, hypervisor.VM) (T, error)) (T, error) {
	var zero T
	if err := pathutils.ValidateInstanceName(name); err != nil {
		return zero, errors.Trace(err)
	}
	vmxPath := d.paths.VMXPath(name)
	exists, err := d.conn.VMExists(ctx, vmxPath)
	if err != nil {
		return zero, errors.Trace(err)
	}
	if !exists {
		return zero, errors.NotFoundf("instance %q", name)
	}
	vm, err := d.conn.OpenVM(ctx, vmxPath)
	if err != nil {
		return zero, errors.Trace(err)
	}
	defer func() {
		if err := vm.Close(); err != nil {
			d.logger.Warningf("closing handle of instance %q: %v", name, err)
		}
	}()
	return action(ctx, vm)
}

func (d *Driver) exec(ctx context.Context, operation, name string, action func(context.Context, hypervisor.VM) error) error {
	_, err := execVMAction(ctx, d, name, func(ctx context.Context, vm hypervisor.VM) (struct{}, error) {
		return struct{}{}, action(ctx, vm)
	})
	d.metrics.observe(operation, err)
	return err
}

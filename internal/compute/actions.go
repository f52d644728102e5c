// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/pathutils"
	"github.com/juju/vixdriver/internal/vmx"
)

// RebootType selects how an instance is restarted.
type RebootType string

const (
	// RebootSoft asks the guest to restart.
	RebootSoft RebootType = "soft"
	// RebootHard power cycles the instance.
	RebootHard RebootType = "hard"
)

// InstanceInfo is the live state of an instance.
type InstanceInfo struct {
	State    hypervisor.PowerState
	NumVCPUs int
	MemoryMB int
}

// VNCConsole is where the remote display of an instance listens.
type VNCConsole struct {
	Host string
	Port int
}

// Pause freezes the instance in memory.
func (d *Driver) Pause(ctx context.Context, name string) error {
	return d.exec(ctx, "pause", name, func(ctx context.Context, vm hypervisor.VM) error {
		return vm.Pause(ctx)
	})
}

// Unpause continues a paused instance.
func (d *Driver) Unpause(ctx context.Context, name string) error {
	return d.exec(ctx, "unpause", name, func(ctx context.Context, vm hypervisor.VM) error {
		return vm.Unpause(ctx)
	})
}

// Suspend saves the instance state to disk and stops it.
func (d *Driver) Suspend(ctx context.Context, name string) error {
	return d.exec(ctx, "suspend", name, func(ctx context.Context, vm hypervisor.VM) error {
		return vm.Suspend(ctx)
	})
}

// Resume brings a suspended instance back by powering it on.
func (d *Driver) Resume(ctx context.Context, name string) error {
	return d.exec(ctx, "resume", name, func(ctx context.Context, vm hypervisor.VM) error {
		return vm.PowerOn(ctx)
	})
}

// PowerOn starts the instance.
func (d *Driver) PowerOn(ctx context.Context, name string) error {
	return d.exec(ctx, "power-on", name, func(ctx context.Context, vm hypervisor.VM) error {
		return vm.PowerOn(ctx)
	})
}

// PowerOff stops the instance without a guest shutdown.
func (d *Driver) PowerOff(ctx context.Context, name string) error {
	return d.exec(ctx, "power-off", name, func(ctx context.Context, vm hypervisor.VM) error {
		return vm.PowerOff(ctx)
	})
}

// Reboot restarts the instance.
func (d *Driver) Reboot(ctx context.Context, name string, rebootType RebootType) error {
	return d.exec(ctx, "reboot", name, func(ctx context.Context, vm hypervisor.VM) error {
		return vm.Reset(ctx, rebootType == RebootHard)
	})
}

// Destroy removes the instance and every file it owns. Destroying an
// instance that does not exist is not an error. When no descriptor is
// registered, the files left behind by a failed spawn are removed.
func (d *Driver) Destroy(ctx context.Context, name string) error {
	err := d.destroy(ctx, name)
	d.metrics.observe("destroy", err)
	if err == nil {
		d.logger.Infof("destroyed instance %q", name)
	}
	return errors.Trace(err)
}

func (d *Driver) destroy(ctx context.Context, name string) error {
	if err := pathutils.ValidateInstanceName(name); err != nil {
		return errors.Trace(err)
	}
	vmxPath := d.paths.VMXPath(name)
	exists, err := d.conn.VMExists(ctx, vmxPath)
	if err != nil {
		return errors.Trace(err)
	}
	if !exists {
		return errors.Trace(d.paths.RemoveInstanceDir(name))
	}
	d.logger.Debugf("deleting instance %q at %q", name, vmxPath)
	return errors.Trace(d.conn.UnregisterVMAndDeleteFiles(ctx, vmxPath, true))
}

// deleteExistingInstance unregisters the named instance and deletes its
// files if it is registered.
func (d *Driver) deleteExistingInstance(ctx context.Context, name string, deleteDisks bool) error {
	if err := pathutils.ValidateInstanceName(name); err != nil {
		return errors.Trace(err)
	}
	vmxPath := d.paths.VMXPath(name)
	exists, err := d.conn.VMExists(ctx, vmxPath)
	if err != nil {
		return errors.Trace(err)
	}
	if !exists {
		return nil
	}
	d.logger.Debugf("deleting instance %q at %q", name, vmxPath)
	return errors.Trace(d.conn.UnregisterVMAndDeleteFiles(ctx, vmxPath, deleteDisks))
}

// GetInfo returns the live power state of the instance together with
// its configured size.
func (d *Driver) GetInfo(ctx context.Context, name string) (InstanceInfo, error) {
	info, err := execVMAction(ctx, d, name, func(ctx context.Context, vm hypervisor.VM) (InstanceInfo, error) {
		state, err := vm.PowerState(ctx)
		if err != nil {
			return InstanceInfo{}, err
		}
		return InstanceInfo{State: state}, nil
	})
	if err != nil {
		return InstanceInfo{}, err
	}
	// The descriptor may be mid-rewrite; its sizing is informational.
	if f, err := vmx.Read(d.paths.VMXPath(name)); err == nil {
		info.NumVCPUs = intValue(f, "numvcpus")
		info.MemoryMB = intValue(f, "memsize")
	} else {
		d.logger.Debugf("reading descriptor of %q: %v", name, err)
	}
	return info, nil
}

func intValue(f *vmx.File, key string) int {
	raw, _ := f.Get(key)
	n, _ := strconv.Atoi(raw)
	return n
}

// GetVNCConsole returns where the remote display of the instance can be
// reached.
func (d *Driver) GetVNCConsole(ctx context.Context, name string) (VNCConsole, error) {
	port, err := execVMAction(ctx, d, name, func(ctx context.Context, vm hypervisor.VM) (int, error) {
		enabled, port, err := vm.VNCSettings(ctx)
		if err != nil {
			return 0, err
		}
		if !enabled {
			return 0, errors.Annotatef(VNCNotEnabled, "instance %q", name)
		}
		return port, nil
	})
	if err != nil {
		return VNCConsole{}, err
	}
	return VNCConsole{Host: d.host.IPAddr(), Port: port}, nil
}

// GetConsoleOutput returns the serial console log of the instance. The
// hypervisor keeps none, so it is always empty.
func (d *Driver) GetConsoleOutput(context.Context, string) (string, error) {
	return "", nil
}

// GetHostIPAddr returns the address consoles are reached on.
func (d *Driver) GetHostIPAddr() string {
	return d.host.IPAddr()
}

// ListInstances returns the names of the running instances owned by the
// driver. VMs outside the instances directory are ignored.
func (d *Driver) ListInstances(ctx context.Context) ([]string, error) {
	paths, err := d.conn.ListRunningVMs(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	names := set.NewStrings()
	for _, path := range paths {
		if name, ok := d.paths.InstanceName(path); ok {
			names.Add(name)
		} else {
			d.logger.Tracef("ignoring VM %q outside %q", path, filepath.Clean(d.paths.InstancesDir()))
		}
	}
	return names.SortedValues(), nil
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package vmrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/vmx"
)

// VM is a hypervisor.VM backed by vmrun.
type VM struct {
	conn    *Connection
	vmxPath string

	mu           sync.Mutex
	closed       bool
	lastSnapshot string
}

var _ hypervisor.VM = (*VM)(nil)

// Close is part of the hypervisor.VM interface.
func (vm *VM) Close() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.closed = true
	return nil
}

func (vm *VM) run(ctx context.Context, args ...string) error {
	vm.mu.Lock()
	closed := vm.closed
	vm.mu.Unlock()
	if closed {
		return errors.Errorf("VM handle for %q is closed", vm.vmxPath)
	}
	_, err := vm.conn.vmrun(ctx, args...)
	return errors.Trace(err)
}

// PowerState is part of the hypervisor.VM interface. vmrun cannot tell
// a paused VM from a running one, so both are reported as powered on.
func (vm *VM) PowerState(ctx context.Context) (hypervisor.PowerState, error) {
	running, err := vm.conn.isRunning(ctx, vm.vmxPath)
	if err != nil {
		return hypervisor.Unknown, errors.Trace(err)
	}
	if running {
		return hypervisor.PoweredOn, nil
	}
	suspendFile := strings.TrimSuffix(vm.vmxPath, filepath.Ext(vm.vmxPath)) + ".vmss"
	if _, err := os.Stat(suspendFile); err == nil {
		return hypervisor.Suspended, nil
	}
	return hypervisor.PoweredOff, nil
}

// PowerOn is part of the hypervisor.VM interface.
func (vm *VM) PowerOn(ctx context.Context) error {
	return vm.run(ctx, "start", vm.vmxPath, "nogui")
}

// PowerOff is part of the hypervisor.VM interface.
func (vm *VM) PowerOff(ctx context.Context) error {
	return vm.run(ctx, "stop", vm.vmxPath, "hard")
}

// Pause is part of the hypervisor.VM interface.
func (vm *VM) Pause(ctx context.Context) error {
	return vm.run(ctx, "pause", vm.vmxPath)
}

// Unpause is part of the hypervisor.VM interface.
func (vm *VM) Unpause(ctx context.Context) error {
	return vm.run(ctx, "unpause", vm.vmxPath)
}

// Suspend is part of the hypervisor.VM interface.
func (vm *VM) Suspend(ctx context.Context) error {
	return vm.run(ctx, "suspend", vm.vmxPath)
}

// Reset is part of the hypervisor.VM interface.
func (vm *VM) Reset(ctx context.Context, hard bool) error {
	mode := "soft"
	if hard {
		mode = "hard"
	}
	return vm.run(ctx, "reset", vm.vmxPath, mode)
}

// CreateSnapshot is part of the hypervisor.VM interface.
func (vm *VM) CreateSnapshot(ctx context.Context, name string) error {
	if err := vm.run(ctx, "snapshot", vm.vmxPath, name); err != nil {
		return errors.Trace(err)
	}
	vm.mu.Lock()
	vm.lastSnapshot = name
	vm.mu.Unlock()
	return nil
}

// RemoveSnapshot is part of the hypervisor.VM interface. Without a
// snapshot taken through this handle the newest listed one is removed.
func (vm *VM) RemoveSnapshot(ctx context.Context) error {
	vm.mu.Lock()
	name := vm.lastSnapshot
	vm.mu.Unlock()
	if name == "" {
		names, err := vm.conn.listSnapshots(ctx, vm.vmxPath)
		if err != nil {
			return errors.Trace(err)
		}
		if len(names) == 0 {
			return errors.NotFoundf("snapshot of %q", vm.vmxPath)
		}
		name = names[len(names)-1]
	}
	if err := vm.run(ctx, "deleteSnapshot", vm.vmxPath, name); err != nil {
		return errors.Trace(err)
	}
	vm.mu.Lock()
	vm.lastSnapshot = ""
	vm.mu.Unlock()
	return nil
}

// VNCSettings is part of the hypervisor.VM interface.
func (vm *VM) VNCSettings(context.Context) (bool, int, error) {
	f, err := vmx.Read(vm.vmxPath)
	if err != nil {
		return false, 0, errors.Trace(err)
	}
	enabled, _ := f.Get("RemoteDisplay.vnc.enabled")
	if !parseBool(enabled) {
		return false, 0, nil
	}
	raw, ok := f.Get("RemoteDisplay.vnc.port")
	if !ok {
		return true, 0, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return false, 0, errors.NotValidf("VNC port %q in %q", raw, vm.vmxPath)
	}
	return true, port, nil
}

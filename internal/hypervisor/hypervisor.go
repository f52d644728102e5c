// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hypervisor defines the contract between the compute driver and
// the binding that talks to the local VMware hypervisor. The driver only
// ever sees these types; the vmrun package provides the implementation
// used in production.
package hypervisor

import (
	"context"
)

// HostType identifies the flavour of hosted VMware product the binding
// is connected to. Not every product supports every operation.
type HostType string

const (
	// HostWorkstation is VMware Workstation.
	HostWorkstation HostType = "ws"
	// HostPlayer is VMware Player, which lacks cloning and snapshots.
	HostPlayer HostType = "player"
	// HostFusion is VMware Fusion.
	HostFusion HostType = "fusion"
)

// SupportsLinkedClones reports whether the product can create linked
// (copy-on-write) clones.
func (t HostType) SupportsLinkedClones() bool {
	return t != HostPlayer
}

// SupportsSnapshots reports whether the product can take and remove
// snapshots.
func (t HostType) SupportsSnapshots() bool {
	return t != HostPlayer
}

// Validate checks that the host type is one we know about.
func (t HostType) Validate() bool {
	switch t {
	case HostWorkstation, HostPlayer, HostFusion:
		return true
	}
	return false
}

// PowerState is the live power state of a virtual machine as reported
// by the hypervisor.
type PowerState string

const (
	PoweredOn  PowerState = "powered-on"
	PoweredOff PowerState = "powered-off"
	Suspended  PowerState = "suspended"
	Paused     PowerState = "paused"
	Unknown    PowerState = "unknown"
)

// Network describes a single virtual NIC: its MAC address and the
// virtual switch it is attached to.
type Network struct {
	MAC    string
	Switch string
}

// Descriptor is the complete configuration record for a virtual
// machine. It is built fresh for every create or update and handed to
// the binding by value.
type Descriptor struct {
	// VMXPath is where the descriptor lives on disk and doubles as the
	// machine's identity towards the hypervisor.
	VMXPath string

	DisplayName string
	GuestOS     string
	NumVCPUs    int
	MemoryMB    int

	// DiskPaths is only honoured on create; an update keeps the
	// disks that are already attached.
	DiskPaths  []string
	ISOPaths   []string
	FloppyPath string
	Networks   []Network

	BootOrder        string
	NestedHypervisor bool

	VNCEnabled bool
	VNCPort    int
}

// Connection is the per-host entry point of the hypervisor binding.
// Every method may block for an arbitrary amount of time.
type Connection interface {
	// HostType returns the product the binding is connected to.
	HostType(ctx context.Context) (HostType, error)

	// SoftwareVersion returns the major version of the product.
	SoftwareVersion(ctx context.Context) (int, error)

	// ToolsISOPath returns the directory holding the guest tools ISOs.
	ToolsISOPath(ctx context.Context) (string, error)

	// ListRunningVMs returns the descriptor paths of every running VM.
	ListRunningVMs(ctx context.Context) ([]string, error)

	// VMExists reports whether a VM is registered at the given
	// descriptor path.
	VMExists(ctx context.Context, vmxPath string) (bool, error)

	// CreateVM writes and registers a new VM from the descriptor.
	CreateVM(ctx context.Context, desc Descriptor) error

	// UpdateVM rewrites the configuration of an already registered VM.
	UpdateVM(ctx context.Context, desc Descriptor) error

	// CloneVM clones the VM at srcVMXPath into destVMXPath. A linked
	// clone stores only the delta against the source disk.
	CloneVM(ctx context.Context, srcVMXPath, destVMXPath string, linked bool) error

	// UnregisterVMAndDeleteFiles removes the VM from the hypervisor and
	// deletes its files, including the disks when deleteDisks is true.
	UnregisterVMAndDeleteFiles(ctx context.Context, vmxPath string, deleteDisks bool) error

	// OpenVM returns a handle to the VM. The handle must be closed.
	OpenVM(ctx context.Context, vmxPath string) (VM, error)
}

// VM is an open handle to a single virtual machine.
type VM interface {
	// Close releases the handle.
	Close() error

	PowerState(ctx context.Context) (PowerState, error)
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error
	Suspend(ctx context.Context) error

	// Reset restarts the guest, either through the guest tools or,
	// when hard is true, by power cycling the VM.
	Reset(ctx context.Context, hard bool) error

	CreateSnapshot(ctx context.Context, name string) error

	// RemoveSnapshot removes the most recently created snapshot.
	RemoveSnapshot(ctx context.Context) error

	// VNCSettings returns whether remote display is enabled and the
	// port it listens on.
	VNCSettings(ctx context.Context) (bool, int, error)
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"

	"github.com/juju/errors"
	"github.com/kr/pretty"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/imagecache"
)

// instanceMedia are the resolved files attached to an instance besides
// its root disk.
type instanceMedia struct {
	ISOPaths   []string
	FloppyPath string
}

// buildDescriptor maps an instance and its image onto the descriptor
// submitted to the hypervisor. Remote display is always enabled.
func buildDescriptor(
	inst Instance,
	vmxPath string,
	info imagecache.ImageInfo,
	disks []string,
	media instanceMedia,
	networks []hypervisor.Network,
	vncPort int,
) hypervisor.Descriptor {
	if networks == nil {
		networks = []hypervisor.Network{}
	}
	return hypervisor.Descriptor{
		VMXPath:          vmxPath,
		DisplayName:      inst.DisplayName,
		GuestOS:          info.GuestOS,
		NumVCPUs:         inst.VCPUs,
		MemoryMB:         inst.MemoryMB,
		DiskPaths:        disks,
		ISOPaths:         media.ISOPaths,
		FloppyPath:       media.FloppyPath,
		Networks:         networks,
		BootOrder:        info.BootOrder,
		NestedHypervisor: info.NestedHypervisor,
		VNCEnabled:       true,
		VNCPort:          vncPort,
	}
}

// submitDescriptor creates the VM, or updates it when it was already
// registered by the provisioning step.
func (d *Driver) submitDescriptor(ctx context.Context, desc hypervisor.Descriptor, update bool) error {
	d.logger.Tracef("submitting descriptor (update=%v): %# v", update, pretty.Formatter(desc))
	if update {
		return errors.Annotatef(d.conn.UpdateVM(ctx, desc), "updating VM %q", desc.VMXPath)
	}
	return errors.Annotatef(d.conn.CreateVM(ctx, desc), "creating VM %q", desc.VMXPath)
}

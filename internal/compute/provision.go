// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/juju/errors"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/imagecache"
	"github.com/juju/vixdriver/internal/vmx"
)

// DiskMode is how an instance root disk was derived from its base.
type DiskMode string

const (
	// LinkedClone disks store only their delta against the base image,
	// which must stay in place for the lifetime of the instance.
	LinkedClone DiskMode = "linked-clone"
	// IndependentCopy disks are full copies of the base image.
	IndependentCopy DiskMode = "independent-copy"
)

const (
	// rootDiskKey is the descriptor entry naming the root disk file.
	rootDiskKey = "scsi0:0.fileName"
	// lineageKey is the snapshot metadata entry naming the disk a
	// linked clone descends from.
	lineageKey = "sentinel0"

	placeholderVCPUs    = 1
	placeholderMemoryMB = 512
)

// ProvisionedDisk is the root disk produced for an instance.
type ProvisionedDisk struct {
	// SourcePath is the cached base image the disk was derived from.
	SourcePath string

	// SourceIdentity is the name the clone metadata records as the
	// disk's parent. It is the base image file name, fixed when the
	// clone is made.
	SourceIdentity string

	TargetPath string
	Mode       DiskMode
}

// provisionRootDisk materialises the root disk of an instance from the
// cached base image, either as a linked clone or as a full copy. On
// failure nothing is rolled back; the caller tears the instance down.
func (d *Driver) provisionRootDisk(ctx context.Context, info imagecache.ImageInfo, basePath, rootPath, vmxPath string) (ProvisionedDisk, error) {
	if info.LinkedClone {
		disk, err := d.cloneVMDK(ctx, info, basePath, rootPath, vmxPath)
		return disk, errors.Annotate(err, "cloning root disk")
	}
	if err := d.paths.Copy(basePath, rootPath); err != nil {
		return ProvisionedDisk{}, errors.Annotate(err, "copying root disk")
	}
	return ProvisionedDisk{
		SourcePath:     basePath,
		SourceIdentity: filepath.Base(basePath),
		TargetPath:     rootPath,
		Mode:           IndependentCopy,
	}, nil
}

// cloneVMDK creates a linked clone of the base image at vmxPath. The
// base is wrapped in a placeholder VM next to it, which the hypervisor
// clones; the clone's disk is then renamed to rootPath and the clone's
// descriptor and lineage metadata are rewritten to match.
func (d *Driver) cloneVMDK(ctx context.Context, info imagecache.ImageInfo, basePath, rootPath, vmxPath string) (ProvisionedDisk, error) {
	disk := ProvisionedDisk{
		SourcePath:     basePath,
		SourceIdentity: filepath.Base(basePath),
		TargetPath:     rootPath,
		Mode:           LinkedClone,
	}

	placeholder := trimExt(basePath) + ".vmx"
	if err := d.ensurePlaceholder(ctx, info, placeholder, basePath); err != nil {
		return ProvisionedDisk{}, errors.Trace(err)
	}

	if err := d.conn.CloneVM(ctx, placeholder, vmxPath, true); err != nil {
		return ProvisionedDisk{}, errors.Trace(err)
	}

	cloneDisk, err := vmx.GetValue(vmxPath, rootDiskKey)
	if err != nil {
		return ProvisionedDisk{}, errors.Annotate(err, "finding clone disk")
	}
	if !filepath.IsAbs(cloneDisk) {
		cloneDisk = filepath.Join(filepath.Dir(vmxPath), cloneDisk)
	}
	if err := d.paths.Rename(cloneDisk, rootPath); err != nil {
		return ProvisionedDisk{}, errors.Trace(err)
	}
	if err := vmx.SetValue(vmxPath, rootDiskKey, filepath.Base(rootPath)); err != nil {
		return ProvisionedDisk{}, errors.Trace(err)
	}
	if err := vmx.SetValue(trimExt(vmxPath)+".vmsd", lineageKey, disk.SourceIdentity); err != nil {
		return ProvisionedDisk{}, errors.Trace(err)
	}
	return disk, nil
}

// ensurePlaceholder registers the placeholder VM wrapping basePath if
// it does not exist yet. Spawns sharing a base image register it once.
func (d *Driver) ensurePlaceholder(ctx context.Context, info imagecache.ImageInfo, placeholder, basePath string) error {
	d.placeholders.Lock(placeholder)
	defer d.placeholders.Unlock(placeholder)

	exists, err := d.conn.VMExists(ctx, placeholder)
	if err != nil {
		return errors.Trace(err)
	}
	if exists {
		return nil
	}
	d.logger.Debugf("registering base image placeholder %q", placeholder)
	err = d.conn.CreateVM(ctx, hypervisor.Descriptor{
		VMXPath:     placeholder,
		DisplayName: trimExt(filepath.Base(basePath)),
		GuestOS:     info.GuestOS,
		NumVCPUs:    placeholderVCPUs,
		MemoryMB:    placeholderMemoryMB,
		DiskPaths:   []string{basePath},
	})
	return errors.Annotatef(err, "creating placeholder %q", placeholder)
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

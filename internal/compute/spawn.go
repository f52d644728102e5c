// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"
	"path/filepath"

	"github.com/juju/errors"
	"golang.org/x/sync/errgroup"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/imagecache"
	"github.com/juju/vixdriver/internal/pathutils"
)

// Spawn creates the instance from its image and powers it on. An
// instance already registered under the same name is deleted first.
//
// A failed spawn is not rolled back: the instance directory and any
// registration are left behind for Destroy to clean up.
func (d *Driver) Spawn(ctx context.Context, inst Instance, networks []hypervisor.Network) (err error) {
	defer func() { d.metrics.observe("spawn", err) }()

	if err := pathutils.ValidateInstanceName(inst.Name); err != nil {
		return errors.Trace(err)
	}
	info, err := d.imageCache.ImageInfo(ctx, inst.ImageRef)
	if err != nil {
		return errors.Trace(err)
	}
	if err := d.checkHostCompatibility(ctx, info.LinkedClone); err != nil {
		return errors.Trace(err)
	}
	if err := d.deleteExistingInstance(ctx, inst.Name, true); err != nil {
		return errors.Annotatef(err, "deleting existing instance %q", inst.Name)
	}
	if err := d.paths.CreateInstanceDir(inst.Name); err != nil {
		return errors.Trace(err)
	}

	basePath, err := d.imageCache.CachedImage(ctx, inst.ImageRef)
	if err != nil {
		return errors.Trace(err)
	}
	rootPath := d.paths.RootVMDKPath(inst.Name)
	vmxPath := d.paths.VMXPath(inst.Name)
	disk, err := d.provisionRootDisk(ctx, info, basePath, rootPath, vmxPath)
	if err != nil {
		return errors.Trace(err)
	}

	media, err := d.resolveMedia(ctx, inst.Name, info)
	if err != nil {
		return errors.Trace(err)
	}
	vncPort, err := d.host.FreePort()
	if err != nil {
		return errors.Trace(err)
	}

	// A linked clone is registered by the clone itself and keeps the
	// disk the clone attached.
	update := disk.Mode == LinkedClone
	var disks []string
	if !update {
		disks = []string{disk.TargetPath}
	}
	desc := buildDescriptor(inst, vmxPath, info, disks, media, networks, vncPort)
	if err := d.submitDescriptor(ctx, desc, update); err != nil {
		return errors.Trace(err)
	}

	vm, err := d.conn.OpenVM(ctx, vmxPath)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := vm.Close(); err != nil {
			d.logger.Warningf("closing handle of instance %q: %v", inst.Name, err)
		}
	}()
	if err := vm.PowerOn(ctx); err != nil {
		return errors.Annotatef(err, "powering on instance %q", inst.Name)
	}
	d.logger.Infof("spawned instance %q from image %q (%s)", inst.Name, inst.ImageRef, disk.Mode)
	return nil
}

// checkHostCompatibility fails when a linked clone is needed and the
// hypervisor cannot make one.
func (d *Driver) checkHostCompatibility(ctx context.Context, linkedClone bool) error {
	if !linkedClone {
		return nil
	}
	hostType, err := d.conn.HostType(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if !hostType.SupportsLinkedClones() {
		return Unsupported("linked clones on VMware " + string(hostType))
	}
	return nil
}

// resolveMedia fetches the floppy and the removable media declared by
// the image. The guest tools ISO always comes first, followed by the
// image ISOs in declaration order.
func (d *Driver) resolveMedia(ctx context.Context, name string, info imagecache.ImageInfo) (instanceMedia, error) {
	var media instanceMedia
	if info.FloppyImageID != "" {
		src, err := d.imageCache.CachedImage(ctx, info.FloppyImageID)
		if err != nil {
			return instanceMedia{}, errors.Annotate(err, "fetching floppy image")
		}
		media.FloppyPath = d.paths.FloppyPath(name)
		if err := d.paths.Copy(src, media.FloppyPath); err != nil {
			return instanceMedia{}, errors.Annotate(err, "copying floppy image")
		}
	}

	toolsDir, err := d.conn.ToolsISOPath(ctx)
	if err != nil {
		return instanceMedia{}, errors.Trace(err)
	}
	isos := make([]string, len(info.ISOImageIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range info.ISOImageIDs {
		g.Go(func() error {
			path, err := d.imageCache.CachedImage(gctx, id)
			if err != nil {
				return errors.Annotatef(err, "fetching ISO image %q", id)
			}
			isos[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return instanceMedia{}, errors.Trace(err)
	}
	media.ISOPaths = append([]string{filepath.Join(toolsDir, info.ToolsISO+".iso")}, isos...)
	return media, nil
}

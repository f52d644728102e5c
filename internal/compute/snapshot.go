// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"

	"github.com/juju/errors"

	"github.com/juju/vixdriver/internal/hypervisor"
)

// TaskState is a progress marker reported while an image is exported.
type TaskState string

const (
	ImagePendingUpload TaskState = "image_pending_upload"
	ImageUploading     TaskState = "image_uploading"
)

// UpdateTaskStateFunc reports export progress. expected is the state
// the task is believed to be in, or empty when unknown. Returning an
// error aborts the export.
type UpdateTaskStateFunc func(state, expected TaskState) error

// exportSnapshotName names the transient snapshot taken while an
// instance disk is exported.
const exportSnapshotName = "vix image export"

// Snapshot publishes the root disk of a running instance as a new image
// called exportName and returns the id of the new image. The disk is
// frozen under a transient snapshot for the duration of the upload; the
// snapshot is removed whether or not the upload succeeds.
func (d *Driver) Snapshot(ctx context.Context, name, exportName string, updateTaskState UpdateTaskStateFunc) (imageID string, err error) {
	defer func() { d.metrics.observe("snapshot", err) }()

	hostType, err := d.conn.HostType(ctx)
	if err != nil {
		return "", errors.Trace(err)
	}
	if !hostType.SupportsSnapshots() {
		return "", Unsupported("snapshots on VMware " + string(hostType))
	}
	if updateTaskState == nil {
		updateTaskState = func(TaskState, TaskState) error { return nil }
	}

	return execVMAction(ctx, d, name, func(ctx context.Context, vm hypervisor.VM) (_ string, err error) {
		if err := updateTaskState(ImagePendingUpload, ""); err != nil {
			return "", errors.Trace(err)
		}
		if err := vm.CreateSnapshot(ctx, exportSnapshotName); err != nil {
			return "", errors.Annotatef(err, "snapshotting instance %q", name)
		}
		defer func() {
			removeErr := vm.RemoveSnapshot(context.WithoutCancel(ctx))
			if removeErr == nil {
				return
			}
			if err == nil {
				err = errors.Annotatef(removeErr, "removing snapshot of instance %q", name)
				return
			}
			d.logger.Warningf("removing snapshot of instance %q after failed export: %v", name, removeErr)
		}()

		if err := updateTaskState(ImageUploading, ImagePendingUpload); err != nil {
			return "", errors.Trace(err)
		}
		rootPath := d.paths.RootVMDKPath(name)
		id, err := d.imageCache.SaveImage(ctx, exportName, rootPath)
		if err != nil {
			return "", errors.Annotatef(err, "exporting instance %q", name)
		}
		d.logger.Infof("exported instance %q as image %q (%s)", name, exportName, id)
		return id, nil
	})
}

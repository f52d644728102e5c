// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"
)

// The operations below are permanent capability gaps of the driver.
// They always fail with an UnsupportedError and never retry.

// AttachVolume attaches a block storage volume to an instance.
func (d *Driver) AttachVolume(_ context.Context, name, mountpoint string) error {
	return d.unsupported("attach volume")
}

// DetachVolume detaches a block storage volume from an instance.
func (d *Driver) DetachVolume(_ context.Context, name, mountpoint string) error {
	return d.unsupported("detach volume")
}

// GetVolumeConnector returns the connector describing how volumes reach
// an instance.
func (d *Driver) GetVolumeConnector(_ context.Context, name string) (map[string]string, error) {
	return nil, d.unsupported("volume connector")
}

// LiveMigration moves a running instance to another host.
func (d *Driver) LiveMigration(_ context.Context, name, destHost string) error {
	return d.unsupported("live migration")
}

// PreLiveMigration prepares the destination of a live migration.
func (d *Driver) PreLiveMigration(_ context.Context, name string) error {
	return d.unsupported("pre live migration")
}

// PostLiveMigrationAtDestination completes a live migration.
func (d *Driver) PostLiveMigrationAtDestination(_ context.Context, name string) error {
	return d.unsupported("post live migration at destination")
}

// CheckCanLiveMigrateDestination checks the destination of a live
// migration.
func (d *Driver) CheckCanLiveMigrateDestination(_ context.Context, name string) error {
	return d.unsupported("check can live migrate destination")
}

// CheckCanLiveMigrateDestinationCleanup cleans up after the destination
// check.
func (d *Driver) CheckCanLiveMigrateDestinationCleanup(context.Context) error {
	return d.unsupported("check can live migrate destination cleanup")
}

// CheckCanLiveMigrateSource checks the source of a live migration.
func (d *Driver) CheckCanLiveMigrateSource(_ context.Context, name string) error {
	return d.unsupported("check can live migrate source")
}

func (d *Driver) unsupported(operation string) error {
	err := Unsupported(operation)
	d.metrics.observe(operation, err)
	return err
}

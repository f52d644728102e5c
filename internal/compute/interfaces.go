// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"context"

	"github.com/juju/vixdriver/internal/imagecache"
)

// Logger represents the logging methods called.
type Logger interface {
	Errorf(message string, args ...any)
	Warningf(message string, args ...any)
	Infof(message string, args ...any)
	Debugf(message string, args ...any)
	Tracef(message string, args ...any)
}

// ImageCache is the base image store used by the driver.
type ImageCache interface {
	// CachedImage returns the local path of a ready base image,
	// fetching it first if needed.
	CachedImage(ctx context.Context, id string) (string, error)

	// ImageInfo returns the interpreted metadata of an image.
	ImageInfo(ctx context.Context, id string) (imagecache.ImageInfo, error)

	// SaveImage publishes the disk at path as a new image and returns
	// its id.
	SaveImage(ctx context.Context, name, path string) (string, error)
}

// PathUtils lays out instance files and moves them around.
type PathUtils interface {
	InstancesDir() string
	VMXPath(name string) string
	RootVMDKPath(name string) string
	FloppyPath(name string) string

	// InstanceName maps a descriptor path back to its instance.
	InstanceName(vmxPath string) (string, bool)

	CreateInstanceDir(name string) error
	RemoveInstanceDir(name string) error
	Copy(src, dst string) error
	Rename(src, dst string) error
}

// HostInfo reports the resources of the local machine.
type HostInfo interface {
	// MemoryInfo returns total and free memory in bytes.
	MemoryInfo() (uint64, uint64, error)

	// DiskInfo returns total and free space in bytes of the filesystem
	// holding dir.
	DiskInfo(dir string) (uint64, uint64, error)

	CPUCount() int
	FreePort() (int, error)
	Hostname() (string, error)
	IPAddr() string
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pathutils maps instance names onto the files each instance
// owns below the instances directory. Every mapping is a pure function
// of the name and the configured root, so no locking is needed.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/utils/v4/fs"
)

var logger = loggo.GetLogger("vix.pathutils")

// ReservedPrefix marks directories below the instances directory that
// belong to the driver rather than to an instance, such as the base
// image cache.
const ReservedPrefix = "_"

// ValidateInstanceName checks that name can be used as a single path
// element without escaping or aliasing another instance's directory.
func ValidateInstanceName(name string) error {
	switch {
	case name == "":
		return errors.NotValidf("empty instance name")
	case name == "." || name == "..":
		return errors.NotValidf("instance name %q", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return errors.NotValidf("instance name %q containing a path separator", name)
	case strings.HasPrefix(name, ReservedPrefix), strings.HasPrefix(name, "."):
		return errors.NotValidf("instance name %q with reserved prefix", name)
	}
	return nil
}

// Paths lays out instance files below a single root directory.
type Paths struct {
	instancesDir string
}

// NewPaths returns a Paths rooted at instancesDir.
func NewPaths(instancesDir string) *Paths {
	return &Paths{instancesDir: filepath.Clean(instancesDir)}
}

// InstancesDir returns the root directory for all instances.
func (p *Paths) InstancesDir() string {
	return p.instancesDir
}

// InstanceDir returns the directory owned by the named instance.
func (p *Paths) InstanceDir(name string) string {
	return filepath.Join(p.instancesDir, name)
}

// VMXPath returns the path of the instance descriptor.
func (p *Paths) VMXPath(name string) string {
	return filepath.Join(p.InstanceDir(name), name+".vmx")
}

// RootVMDKPath returns the path of the instance root disk.
func (p *Paths) RootVMDKPath(name string) string {
	return filepath.Join(p.InstanceDir(name), name+".vmdk")
}

// FloppyPath returns the path of the instance floppy image.
func (p *Paths) FloppyPath(name string) string {
	return filepath.Join(p.InstanceDir(name), name+".flp")
}

// InstanceName returns the instance owning the given descriptor path,
// or false if the path is not an instance descriptor below the root.
func (p *Paths) InstanceName(vmxPath string) (string, bool) {
	vmxPath = filepath.Clean(vmxPath)
	dir := filepath.Dir(vmxPath)
	name := filepath.Base(dir)
	if filepath.Dir(dir) != p.instancesDir || filepath.Base(vmxPath) != name+".vmx" {
		return "", false
	}
	if ValidateInstanceName(name) != nil {
		return "", false
	}
	return name, true
}

// CreateInstanceDir creates the instance directory. It is not an error
// for it to exist already.
func (p *Paths) CreateInstanceDir(name string) error {
	if err := ValidateInstanceName(name); err != nil {
		return errors.Trace(err)
	}
	dir := p.InstanceDir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Annotatef(err, "creating instance directory %q", dir)
	}
	return nil
}

// RemoveInstanceDir removes the instance directory and everything in
// it. It is not an error for it to be missing.
func (p *Paths) RemoveInstanceDir(name string) error {
	if err := ValidateInstanceName(name); err != nil {
		return errors.Trace(err)
	}
	dir := p.InstanceDir(name)
	logger.Debugf("removing instance directory %q", dir)
	if err := os.RemoveAll(dir); err != nil {
		return errors.Annotatef(err, "removing instance directory %q", dir)
	}
	return nil
}

// Copy makes an independent copy of the file at src in dst, replacing
// anything already at dst.
func (p *Paths) Copy(src, dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.Annotatef(err, "removing %q", dst)
	}
	logger.Debugf("copying %q to %q", src, dst)
	return errors.Annotatef(fs.Copy(src, dst), "copying %q to %q", src, dst)
}

// Rename moves src to dst. Both must live on the same filesystem.
func (p *Paths) Rename(src, dst string) error {
	return errors.Annotatef(os.Rename(src, dst), "renaming %q to %q", src, dst)
}

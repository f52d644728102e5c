// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package vmrun implements the hypervisor binding on top of the vmrun
// command line tool shipped with VMware Workstation, Player and Fusion.
//
// Descriptors are written directly with the vmx package; vmrun is only
// used for the operations that need the hypervisor itself: power
// control, snapshots, cloning and (un)registration.
package vmrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/retry"
	"github.com/juju/utils/v4"
	"github.com/juju/version/v2"
	"github.com/kr/pretty"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/vmx"
)

var logger = loggo.GetLogger("vix.vmrun")

const (
	// DefaultProductConfigPath is where VMware records the installed
	// product version on Linux hosts.
	DefaultProductConfigPath = "/etc/vmware/config"

	// baseSnapshotName is the snapshot linked clones are taken from.
	baseSnapshotName = "vix-base"
)

// RunFunc runs command with args and returns its combined output.
type RunFunc func(ctx context.Context, command string, args ...string) (string, error)

// Config holds the settings of a Connection.
type Config struct {
	// VMRunPath is the vmrun executable, looked up in $PATH if it is
	// not absolute.
	VMRunPath string
	HostType  hypervisor.HostType

	ToolsISOPath      string
	ProductConfigPath string

	// Run defaults to executing the command on the local host.
	Run RunFunc

	// DeleteAttempts and DeleteDelay bound the retries of a VM deletion
	// while the hypervisor still holds the VM lock files.
	DeleteAttempts int
	DeleteDelay    time.Duration
	Clock          clock.Clock
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.VMRunPath == "" {
		return errors.NotValidf("empty VMRunPath")
	}
	if !c.HostType.Validate() {
		return errors.NotValidf("host type %q", c.HostType)
	}
	if c.DeleteAttempts < 0 {
		return errors.NotValidf("negative DeleteAttempts")
	}
	return nil
}

// Connection is a hypervisor.Connection driving vmrun.
type Connection struct {
	cfg Config

	// snapshots serialises snapshot creation per source VM.
	snapshots *kmutex.Kmutex
}

var _ hypervisor.Connection = (*Connection)(nil)

// NewConnection returns a Connection using the given configuration.
func NewConnection(cfg Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.Run == nil {
		cfg.Run = runCommand
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.ProductConfigPath == "" {
		cfg.ProductConfigPath = DefaultProductConfigPath
	}
	if cfg.DeleteAttempts == 0 {
		cfg.DeleteAttempts = 5
	}
	if cfg.DeleteDelay == 0 {
		cfg.DeleteDelay = time.Second
	}
	return &Connection{
		cfg:       cfg,
		snapshots: kmutex.New(),
	}, nil
}

func runCommand(ctx context.Context, command string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Trace(err)
	}
	return utils.RunCommand(command, args...)
}

// vmrun runs a vmrun sub-command against the configured host type.
func (c *Connection) vmrun(ctx context.Context, args ...string) (string, error) {
	args = append([]string{"-T", string(c.cfg.HostType)}, args...)
	logger.Tracef("%s %v", c.cfg.VMRunPath, args)
	output, err := c.cfg.Run(ctx, c.cfg.VMRunPath, args...)
	logger.Tracef("output: %v", output)
	if err != nil {
		// vmrun reports failures on stdout as "Error: <reason>".
		if msg := errorMessage(output); msg != "" {
			return output, errors.Annotatef(err, "vmrun %s: %s", args[2], msg)
		}
		return output, errors.Annotatef(err, "vmrun %s", args[2])
	}
	return output, nil
}

func errorMessage(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if msg, ok := strings.CutPrefix(strings.TrimSpace(line), "Error: "); ok {
			return msg
		}
	}
	return ""
}

// HostType is part of the hypervisor.Connection interface.
func (c *Connection) HostType(context.Context) (hypervisor.HostType, error) {
	return c.cfg.HostType, nil
}

// SoftwareVersion is part of the hypervisor.Connection interface. It
// reports the major version of the installed product.
func (c *Connection) SoftwareVersion(context.Context) (int, error) {
	raw, err := vmx.GetValue(c.cfg.ProductConfigPath, "product.version")
	if err != nil {
		return 0, errors.Annotate(err, "reading product version")
	}
	v, err := parseProductVersion(raw)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return v.Major, nil
}

func parseProductVersion(raw string) (version.Number, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") == 1 {
		raw += ".0"
	}
	v, err := version.Parse(raw)
	if err != nil {
		return version.Zero, errors.NotValidf("product version %q", raw)
	}
	return v, nil
}

// ToolsISOPath is part of the hypervisor.Connection interface.
func (c *Connection) ToolsISOPath(context.Context) (string, error) {
	return c.cfg.ToolsISOPath, nil
}

// ListRunningVMs is part of the hypervisor.Connection interface.
func (c *Connection) ListRunningVMs(ctx context.Context) ([]string, error) {
	output, err := c.vmrun(ctx, "list")
	if err != nil {
		return nil, errors.Trace(err)
	}
	paths := set.NewStrings()
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Total running VMs") {
			continue
		}
		paths.Add(filepath.Clean(line))
	}
	return paths.SortedValues(), nil
}

func (c *Connection) isRunning(ctx context.Context, vmxPath string) (bool, error) {
	running, err := c.ListRunningVMs(ctx)
	if err != nil {
		return false, errors.Trace(err)
	}
	return set.NewStrings(running...).Contains(filepath.Clean(vmxPath)), nil
}

// VMExists is part of the hypervisor.Connection interface.
func (c *Connection) VMExists(_ context.Context, vmxPath string) (bool, error) {
	fi, err := os.Stat(vmxPath)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Trace(err)
	}
	return fi.Mode().IsRegular(), nil
}

// CreateVM is part of the hypervisor.Connection interface.
func (c *Connection) CreateVM(ctx context.Context, desc hypervisor.Descriptor) error {
	logger.Tracef("creating VM: %# v", pretty.Formatter(desc))
	if err := os.MkdirAll(filepath.Dir(desc.VMXPath), 0755); err != nil {
		return errors.Trace(err)
	}
	f := vmx.New()
	writeBase(f)
	applyDescriptor(f, desc, true)
	if err := vmx.Write(desc.VMXPath, f); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.register(ctx, desc.VMXPath))
}

// UpdateVM is part of the hypervisor.Connection interface.
func (c *Connection) UpdateVM(_ context.Context, desc hypervisor.Descriptor) error {
	logger.Tracef("updating VM: %# v", pretty.Formatter(desc))
	f, err := vmx.Read(desc.VMXPath)
	if err != nil {
		return errors.Trace(err)
	}
	applyDescriptor(f, desc, false)
	return errors.Trace(vmx.Write(desc.VMXPath, f))
}

// register makes Workstation aware of the VM; the other products pick
// up descriptors when they are opened.
func (c *Connection) register(ctx context.Context, vmxPath string) error {
	if c.cfg.HostType != hypervisor.HostWorkstation {
		return nil
	}
	_, err := c.vmrun(ctx, "register", vmxPath)
	return errors.Trace(err)
}

// CloneVM is part of the hypervisor.Connection interface.
func (c *Connection) CloneVM(ctx context.Context, srcVMXPath, destVMXPath string, linked bool) error {
	if linked && !c.cfg.HostType.SupportsLinkedClones() {
		return errors.NotSupportedf("linked clones on %q", c.cfg.HostType)
	}
	name := strings.TrimSuffix(filepath.Base(destVMXPath), filepath.Ext(destVMXPath))
	args := []string{"clone", srcVMXPath, destVMXPath}
	if linked {
		if err := c.ensureSnapshot(ctx, srcVMXPath, baseSnapshotName); err != nil {
			return errors.Trace(err)
		}
		args = append(args, "linked", "-snapshot="+baseSnapshotName)
	} else {
		args = append(args, "full")
	}
	args = append(args, "-cloneName="+name)
	_, err := c.vmrun(ctx, args...)
	return errors.Trace(err)
}

func (c *Connection) ensureSnapshot(ctx context.Context, vmxPath, name string) error {
	key := filepath.Clean(vmxPath)
	c.snapshots.Lock(key)
	defer c.snapshots.Unlock(key)

	snapshots, err := c.listSnapshots(ctx, vmxPath)
	if err != nil {
		return errors.Trace(err)
	}
	if set.NewStrings(snapshots...).Contains(name) {
		return nil
	}
	_, err = c.vmrun(ctx, "snapshot", vmxPath, name)
	return errors.Trace(err)
}

func (c *Connection) listSnapshots(ctx context.Context, vmxPath string) ([]string, error) {
	output, err := c.vmrun(ctx, "listSnapshots", vmxPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var names []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Total snapshots") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

// UnregisterVMAndDeleteFiles is part of the hypervisor.Connection
// interface. A running VM is powered off first.
func (c *Connection) UnregisterVMAndDeleteFiles(ctx context.Context, vmxPath string, deleteDisks bool) error {
	running, err := c.isRunning(ctx, vmxPath)
	if err != nil {
		return errors.Trace(err)
	}
	if running {
		if _, err := c.vmrun(ctx, "stop", vmxPath, "hard"); err != nil {
			return errors.Trace(err)
		}
	}

	if deleteDisks {
		// deleteVM fails while the stopped VM still holds its lock
		// files, which can take a moment to be released.
		err := retry.Call(retry.CallArgs{
			Func: func() error {
				_, err := c.vmrun(ctx, "deleteVM", vmxPath)
				return err
			},
			NotifyFunc: func(err error, attempt int) {
				logger.Debugf("deleting %q (attempt %d): %v", vmxPath, attempt, err)
			},
			Attempts: c.cfg.DeleteAttempts,
			Delay:    c.cfg.DeleteDelay,
			Clock:    c.cfg.Clock,
			Stop:     ctx.Done(),
		})
		if err != nil {
			return errors.Trace(retry.LastError(err))
		}
		return nil
	}

	if c.cfg.HostType == hypervisor.HostWorkstation {
		if _, err := c.vmrun(ctx, "unregister", vmxPath); err != nil {
			logger.Warningf("unregistering %q: %v", vmxPath, err)
		}
	}
	return errors.Trace(removeVMFiles(vmxPath))
}

// removeVMFiles deletes everything the VM owns except its disks.
func removeVMFiles(vmxPath string) error {
	base := strings.TrimSuffix(vmxPath, filepath.Ext(vmxPath))
	for _, ext := range []string{".vmx", ".vmxf", ".vmsd", ".vmss", ".nvram"} {
		if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
			return errors.Trace(err)
		}
	}
	logs, _ := filepath.Glob(filepath.Join(filepath.Dir(vmxPath), "vmware*.log"))
	for _, path := range logs {
		_ = os.Remove(path)
	}
	return nil
}

// OpenVM is part of the hypervisor.Connection interface.
func (c *Connection) OpenVM(ctx context.Context, vmxPath string) (hypervisor.VM, error) {
	exists, err := c.VMExists(ctx, vmxPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !exists {
		return nil, errors.NotFoundf("VM %q", vmxPath)
	}
	return &VM{conn: c, vmxPath: vmxPath}, nil
}

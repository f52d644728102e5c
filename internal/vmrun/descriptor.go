// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package vmrun

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/vixdriver/internal/hypervisor"
	"github.com/juju/vixdriver/internal/vmx"
)

const (
	hardwareVersion = "10"

	// maxCDROMs is the number of SATA ports used for removable media.
	maxCDROMs = 30
)

// Connection types vmrun understands by name; anything else is taken
// as the name of a custom virtual switch such as vmnet8.
var namedConnectionTypes = map[string]bool{
	"bridged":  true,
	"nat":      true,
	"hostonly": true,
}

// writeBase fills in the entries every new descriptor carries and the
// driver never changes afterwards.
func writeBase(f *vmx.File) {
	f.Set("config.version", "8")
	f.Set("virtualHW.version", hardwareVersion)
	f.Set("pciBridge0.present", "TRUE")
	f.Set("scsi0.present", "TRUE")
	f.Set("scsi0.virtualDev", "lsilogic")
	f.Set("tools.syncTime", "TRUE")
	f.Set("msg.autoAnswer", "TRUE")
}

// applyDescriptor writes desc into f. Disks are only attached when
// withDisks is true; an update keeps whatever is already attached.
func applyDescriptor(f *vmx.File, desc hypervisor.Descriptor, withDisks bool) {
	f.Set("displayName", desc.DisplayName)
	f.Set("guestOS", desc.GuestOS)
	f.Set("numvcpus", strconv.Itoa(desc.NumVCPUs))
	f.Set("memsize", strconv.Itoa(desc.MemoryMB))
	if desc.BootOrder != "" {
		f.Set("bios.bootOrder", desc.BootOrder)
	} else {
		f.Delete("bios.bootOrder")
	}
	f.Set("vhv.enable", boolValue(desc.NestedHypervisor))

	if withDisks {
		deletePrefix(f, "scsi0:")
		for i, path := range desc.DiskPaths {
			prefix := fmt.Sprintf("scsi0:%d.", i)
			f.Set(prefix+"present", "TRUE")
			f.Set(prefix+"fileName", path)
		}
	}

	deletePrefix(f, "sata0")
	if n := len(desc.ISOPaths); n > 0 {
		if n > maxCDROMs {
			n = maxCDROMs
		}
		f.Set("sata0.present", "TRUE")
		for i, path := range desc.ISOPaths[:n] {
			prefix := fmt.Sprintf("sata0:%d.", i)
			f.Set(prefix+"present", "TRUE")
			f.Set(prefix+"deviceType", "cdrom-image")
			f.Set(prefix+"fileName", path)
		}
	}

	deletePrefix(f, "floppy0.")
	if desc.FloppyPath != "" {
		f.Set("floppy0.present", "TRUE")
		f.Set("floppy0.fileType", "file")
		f.Set("floppy0.fileName", desc.FloppyPath)
	} else {
		f.Set("floppy0.present", "FALSE")
	}

	deletePrefix(f, "ethernet")
	for i, nic := range desc.Networks {
		prefix := fmt.Sprintf("ethernet%d.", i)
		f.Set(prefix+"present", "TRUE")
		f.Set(prefix+"virtualDev", "e1000")
		if namedConnectionTypes[nic.Switch] {
			f.Set(prefix+"connectionType", nic.Switch)
		} else {
			f.Set(prefix+"connectionType", "custom")
			f.Set(prefix+"vnet", nic.Switch)
		}
		if nic.MAC != "" {
			f.Set(prefix+"addressType", "static")
			f.Set(prefix+"address", nic.MAC)
		} else {
			f.Set(prefix+"addressType", "generated")
		}
	}

	f.Set("RemoteDisplay.vnc.enabled", boolValue(desc.VNCEnabled))
	if desc.VNCEnabled {
		f.Set("RemoteDisplay.vnc.port", strconv.Itoa(desc.VNCPort))
	} else {
		f.Delete("RemoteDisplay.vnc.port")
	}
}

func deletePrefix(f *vmx.File, prefix string) {
	prefix = strings.ToLower(prefix)
	for _, key := range f.Keys() {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			f.Delete(key)
		}
	}
}

func boolValue(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

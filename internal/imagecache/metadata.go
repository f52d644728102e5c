// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package imagecache

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Image properties understood by the driver.
const (
	PropGuestOS          = "vix_guest_os"
	PropBootOrder        = "vix_boot_order"
	PropNestedHypervisor = "vix_nested_hypervisor"
	PropLinkedClone      = "vix_linked_clone"
	PropISOImageIDs      = "vix_iso_image_ids"
	PropFloppyImageID    = "vix_floppy_image_id"
	PropToolsISO         = "vix_tools_iso"
)

const (
	// FormatVMDK is the only disk format the hypervisor can boot, and
	// the format of every image in the cache.
	FormatVMDK = "vmdk"

	defaultGuestOS   = "otherlinux-64"
	defaultBootOrder = "hdd,cdrom,floppy"
)

// Metadata is what the image backend records about an image.
type Metadata struct {
	ID              string
	Name            string
	DiskFormat      string
	ContainerFormat string
	Size            int64
	// Checksum is the hex encoded MD5 of the image contents, if known.
	Checksum   string
	Properties map[string]string
}

// ImageInfo is the image metadata interpreted for the driver.
type ImageInfo struct {
	Metadata

	GuestOS          string
	BootOrder        string
	NestedHypervisor bool

	// LinkedClone requests that instances are created as copy-on-write
	// clones of the cached image rather than independent copies.
	LinkedClone bool

	// ISOImageIDs lists further images to attach as CD-ROMs, in order.
	ISOImageIDs   []string
	FloppyImageID string

	// ToolsISO names the guest tools ISO flavour, without extension.
	ToolsISO string
}

// ParseImageInfo interprets the backend metadata of an image.
func ParseImageInfo(meta Metadata) (ImageInfo, error) {
	info := ImageInfo{
		Metadata:      meta,
		GuestOS:       property(meta, PropGuestOS, defaultGuestOS),
		BootOrder:     property(meta, PropBootOrder, defaultBootOrder),
		FloppyImageID: property(meta, PropFloppyImageID, ""),
		ISOImageIDs:   splitIDs(property(meta, PropISOImageIDs, "")),
	}
	var err error
	if info.NestedHypervisor, err = boolProperty(meta, PropNestedHypervisor); err != nil {
		return ImageInfo{}, errors.Trace(err)
	}
	if info.LinkedClone, err = boolProperty(meta, PropLinkedClone); err != nil {
		return ImageInfo{}, errors.Trace(err)
	}
	info.ToolsISO = property(meta, PropToolsISO, toolsFlavour(info.GuestOS))
	return info, nil
}

func property(meta Metadata, key, defaultValue string) string {
	if v := strings.TrimSpace(meta.Properties[key]); v != "" {
		return v
	}
	return defaultValue
}

func boolProperty(meta Metadata, key string) (bool, error) {
	v := property(meta, key, "false")
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, errors.NotValidf("image %q property %s=%q", meta.ID, key, v)
	}
	return b, nil
}

func splitIDs(value string) []string {
	var ids []string
	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func toolsFlavour(guestOS string) string {
	guestOS = strings.ToLower(guestOS)
	switch {
	case strings.HasPrefix(guestOS, "win"):
		return "windows"
	case strings.HasPrefix(guestOS, "darwin"):
		return "darwin"
	case strings.HasPrefix(guestOS, "freebsd"):
		return "freebsd"
	case strings.HasPrefix(guestOS, "solaris"):
		return "solaris"
	}
	return "linux"
}

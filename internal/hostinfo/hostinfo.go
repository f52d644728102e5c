// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hostinfo reports the resources of the machine the driver
// runs on.
package hostinfo

import (
	"net"
	"os"
	"runtime"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

// Host answers telemetry questions about the local machine.
type Host struct {
	myIP string

	// interfaceAddrs is replaced in tests.
	interfaceAddrs func() ([]net.Addr, error)
}

// New returns a Host. When myIP is not empty it is reported as the
// host address instead of probing the network interfaces.
func New(myIP string) *Host {
	return &Host{
		myIP:           myIP,
		interfaceAddrs: net.InterfaceAddrs,
	}
}

// MemoryInfo returns the total and free memory of the host in bytes.
func (h *Host) MemoryInfo() (uint64, uint64, error) {
	return memoryInfo()
}

// DiskInfo returns the total size and the space available to
// unprivileged users, in bytes, of the filesystem holding dir.
func (h *Host) DiskInfo(dir string) (uint64, uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, 0, errors.Annotatef(err, "querying filesystem of %q", dir)
	}
	bsize := uint64(st.Bsize)
	return uint64(st.Blocks) * bsize, uint64(st.Bavail) * bsize, nil
}

// CPUCount returns the number of logical CPUs.
func (h *Host) CPUCount() int {
	return runtime.NumCPU()
}

// FreePort asks the kernel for a currently unused TCP port.
func (h *Host) FreePort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, errors.Annotate(err, "finding a free port")
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Hostname returns the host name reported by the kernel.
func (h *Host) Hostname() (string, error) {
	name, err := os.Hostname()
	return name, errors.Trace(err)
}

// IPAddr returns the address remote consoles should connect to.
func (h *Host) IPAddr() string {
	if h.myIP != "" {
		return h.myIP
	}
	addrs, err := h.interfaceAddrs()
	if err != nil {
		logger.Warningf("cannot list interface addresses: %v", err)
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.IsLinkLocalUnicast() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

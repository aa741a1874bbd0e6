//go:build linux

package sizeguard

import (
	"os"

	"golang.org/x/sys/unix"
)

const meminfoPath = "/proc/meminfo"

// availableMemory prefers MemAvailable, which counts reclaimable page cache.
// Kernels older than 3.14 lack it; fall back to free + buffer RAM.
func availableMemory() (uint64, error) {
	if f, err := os.Open(meminfoPath); err == nil {
		defer f.Close()

		if avail, parseErr := parseMemAvailable(f); parseErr == nil {
			return avail, nil
		}
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}

	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}

	return (uint64(info.Freeram) + uint64(info.Bufferram)) * unit, nil //nolint:unconvert // field widths differ per arch
}

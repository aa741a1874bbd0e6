//go:build darwin || freebsd

package sizeguard

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// availableMemory counts free pages. Neither kernel exposes a MemAvailable
// equivalent through sysctl, so this undercounts reclaimable cache.
func availableMemory() (uint64, error) {
	key := "vm.page_free_count"
	if runtime.GOOS == "freebsd" {
		key = "vm.stats.vm.v_free_count"
	}

	pages, err := unix.SysctlUint32(key)
	if err != nil {
		return 0, err
	}

	return uint64(pages) * uint64(unix.Getpagesize()), nil
}

//go:build !linux && !darwin && !freebsd

package sizeguard

func availableMemory() (uint64, error) {
	return 0, ErrUnsupported
}

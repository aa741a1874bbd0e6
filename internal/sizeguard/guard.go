// Package sizeguard bounds how many bytes may be buffered in memory at once,
// as a fraction of the memory currently available to the system. The
// ceiling is recomputed on every call; nothing is cached.
package sizeguard

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// DefaultFraction is the share of available memory a single buffer may use.
const DefaultFraction = 0.2

var (
	// ErrInvalidFraction is returned for fractions outside (0, 1].
	ErrInvalidFraction = errors.New("sizeguard: fraction must be in (0, 1]")

	// ErrUnsupported is returned where available memory cannot be queried.
	ErrUnsupported = errors.New("sizeguard: available memory query unsupported on this platform")
)

// MemoryReader reports currently available system memory in bytes.
type MemoryReader interface {
	AvailableMemory() (uint64, error)
}

// MemoryFunc adapts a function to MemoryReader.
type MemoryFunc func() (uint64, error)

// AvailableMemory calls f.
func (f MemoryFunc) AvailableMemory() (uint64, error) { return f() }

// StaticMemory always reports the same amount. Useful in tests.
type StaticMemory uint64

// AvailableMemory returns m.
func (m StaticMemory) AvailableMemory() (uint64, error) { return uint64(m), nil }

// SystemMemory reads available memory from the operating system.
func SystemMemory() MemoryReader {
	return MemoryFunc(availableMemory)
}

// Guard computes buffer ceilings.
type Guard struct {
	mem    MemoryReader
	logger *slog.Logger
}

// New returns a Guard over mem, or over SystemMemory when mem is nil.
func New(mem MemoryReader, logger *slog.Logger) *Guard {
	if mem == nil {
		mem = SystemMemory()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{mem: mem, logger: logger}
}

// MaxSafeBytes returns floor(available * fraction).
func (g *Guard) MaxSafeBytes(fraction float64) (int64, error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidFraction, fraction)
	}

	avail, err := g.mem.AvailableMemory()
	if err != nil {
		return 0, fmt.Errorf("sizeguard: reading available memory: %w", err)
	}

	limit := uint64(math.Floor(float64(avail) * fraction))
	if fraction == 1 {
		limit = avail
	}

	if limit > math.MaxInt64 {
		limit = math.MaxInt64
	}

	g.logger.Debug("computed buffer ceiling",
		slog.Uint64("available_bytes", avail),
		slog.Float64("fraction", fraction),
		slog.Uint64("limit_bytes", limit),
	)

	return int64(limit), nil //nolint:gosec // clamped above
}

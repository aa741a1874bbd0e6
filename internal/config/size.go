package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize reads a byte count such as move.max_buffer. SI ("512MB") and
// IEC ("512MiB") suffixes are accepted case-insensitively; a bare number is
// bytes. Empty means 0, which callers treat as "no cap".
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("buffer size %q: must be non-negative", s)
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("buffer size %q: %w", s, err)
	}

	if n > math.MaxInt64 {
		return 0, fmt.Errorf("buffer size %q: out of range", s)
	}

	return int64(n), nil
}

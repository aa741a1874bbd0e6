package sizeguard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errNoMemAvailable = errors.New("sizeguard: MemAvailable not reported")

// parseMemAvailable extracts the MemAvailable line of /proc/meminfo, which
// the kernel reports in kibibytes.
func parseMemAvailable(r io.Reader) (uint64, error) {
	sc := bufio.NewScanner(r)

	for sc.Scan() {
		rest, ok := strings.CutPrefix(sc.Text(), "MemAvailable:")
		if !ok {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return 0, fmt.Errorf("sizeguard: malformed MemAvailable line %q", sc.Text())
		}

		kib, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("sizeguard: parsing MemAvailable: %w", err)
		}

		return kib * 1024, nil
	}

	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("sizeguard: reading meminfo: %w", err)
	}

	return 0, errNoMemAvailable
}

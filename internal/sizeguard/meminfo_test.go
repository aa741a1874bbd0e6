package sizeguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMeminfo = `MemTotal:       16303428 kB
MemFree:         1023456 kB
MemAvailable:    9876543 kB
Buffers:          123456 kB
`

func TestParseMemAvailable(t *testing.T) {
	got, err := parseMemAvailable(strings.NewReader(sampleMeminfo))
	require.NoError(t, err)
	assert.Equal(t, uint64(9876543*1024), got)
}

func TestParseMemAvailable_Missing(t *testing.T) {
	_, err := parseMemAvailable(strings.NewReader("MemTotal: 1 kB\n"))
	assert.ErrorIs(t, err, errNoMemAvailable)
}

func TestParseMemAvailable_Malformed(t *testing.T) {
	_, err := parseMemAvailable(strings.NewReader("MemAvailable: lots kB\n"))
	assert.Error(t, err)

	_, err = parseMemAvailable(strings.NewReader("MemAvailable:\n"))
	assert.Error(t, err)
}

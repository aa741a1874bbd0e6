package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"a.json", JSON},
		{"dir/B.CSV", CSV},
		{"book.xlsx", XLSX},
		{"neuron.swc", SWC},
		{"legacy.xls", Unknown},
		{"noext", Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatOf(tt.name), tt.name)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", JSON.ContentType())
	assert.Equal(t, "text/csv", CSV.ContentType())
	assert.Equal(t, "text/plain", SWC.ContentType())
	assert.Equal(t, "application/octet-stream", Unknown.ContentType())
	assert.Equal(t, "xlsx", XLSX.String())
}

func TestJSONRoundTrip(t *testing.T) {
	in := map[string]any{"test_time": "2026-10-18T09:30:00.123456"}

	data, err := EncodeJSON(in)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"test_time\": \"2026-10-18T09:30:00.123456\"\n}", string(data))

	var out map[string]any
	require.NoError(t, DecodeJSON(data, &out))
	assert.Equal(t, in, out)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	var out map[string]any
	err := DecodeJSON([]byte("{"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formats: decoding json")
}

func TestEncodeJSON_Unsupported(t *testing.T) {
	_, err := EncodeJSON(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}

func TestDecodeTable_Dispatch(t *testing.T) {
	tbl, err := DecodeTable("a.csv", []byte("x\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, tbl.Columns)

	_, err = DecodeTable("a.json", []byte("{}"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

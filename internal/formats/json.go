package formats

import (
	"encoding/json"
	"fmt"
)

// EncodeJSON renders v with four-space indentation.
func EncodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("formats: encoding json: %w", err)
	}

	return data, nil
}

// DecodeJSON parses data into v.
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("formats: decoding json: %w", err)
	}

	return nil
}

// Package jsonutil handles loosely-typed JSON values from chart click
// payloads and similar callers that send a string where a number is meant,
// or the other way around.
package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleValue decodes a raw JSON scalar into a string, float64, or bool.
// Null and empty input decode to the empty string.
func FlexibleValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal, nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal, nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return boolVal, nil
	}

	return nil, fmt.Errorf("value must be a string, number, or boolean, got %s", string(raw))
}

// FlexibleString decodes a raw JSON scalar into its string form, rendering
// numbers and booleans as text.
func FlexibleString(raw json.RawMessage) (string, error) {
	value, err := FlexibleValue(raw)
	if err != nil {
		return "", err
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), nil
		}
		return fmt.Sprintf("%g", v), nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

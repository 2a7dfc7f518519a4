// Package jsonutil decodes JSON produced by language models, which does not
// always respect the types a prompt asked for.
package jsonutil

import (
	"bytes"
	"encoding/json"
)

// FlexibleString decodes from any JSON scalar. Numbers keep their literal
// text, so a column named 2024 round-trips as "2024" rather than "2024.0".
// null decodes to the empty string.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	*f = FlexibleString(FlexibleStringValue(data))
	return nil
}

// FlexibleStringValue converts raw JSON to a string. Objects and arrays fall
// back to their compact raw text.
func FlexibleStringValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return string(trimmed)
	}

	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return string(trimmed)
		}
		return buf.String()
	}
}

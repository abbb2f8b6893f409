// Package jsonutil decodes loosely-typed JSON produced by language models.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, accepting
// numbers and booleans where a string was expected. Null or empty input
// yields "".
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// StringList decodes either a JSON array of scalars or a single scalar.
// A comma-separated string is split into its trimmed parts.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*l = nil
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return err
		}
		out := make([]string, 0, len(raws))
		for _, r := range raws {
			if s := FlexibleStringValue(r); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}

	value := FlexibleStringValue(data)
	if strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("expected string or array, got object")
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

// FlexibleInt decodes an integer sent either as a JSON number or as a
// numeric string. An empty string decodes as zero.
type FlexibleInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexibleInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*n = 0
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		trimmed = strings.TrimSpace(s)
		if trimmed == "" {
			*n = 0
			return nil
		}
	}

	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return fmt.Errorf("expected integer, got %s", string(data))
	}
	*n = FlexibleInt(v)
	return nil
}

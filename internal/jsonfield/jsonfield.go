// Package jsonfield holds lenient JSON field types for loosely typed web
// form bodies.
package jsonfield

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// String decodes any JSON value into text. Falsy values (null, false, 0 and
// "") decode to the empty string, so they read as missing. Strings keep their
// value, numbers keep their literal, true becomes "true", and objects and
// arrays keep their compacted JSON text.
type String string

func (s *String) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		*s = ""
		return nil
	}

	switch raw[0] {
	case '"':
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		*s = String(v)
	case 'n', 'f':
		*s = ""
	case 't':
		*s = "true"
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return err
		}
		*s = String(buf.String())
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return fmt.Errorf("jsonfield: invalid value %s", raw)
		}
		if f == 0 {
			*s = ""
			return nil
		}
		*s = String(raw)
	}
	return nil
}

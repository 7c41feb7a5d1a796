package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNotCanonical is returned when a record holds a value with no canonical
// JSON form (NaN/Inf floats, unsupported types).
var ErrNotCanonical = errors.New("value has no canonical JSON form")

// CanonicalPayload renders the record as deterministic JSON with the
// signature fields nulled. The bytes are a pure function of the record's
// JSON form, so a record signed in process verifies after any number of
// decode/encode round trips.
func CanonicalPayload(record *Record) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: encode audit record: %v", ErrNotCanonical, err)
	}
	var generic map[string]any
	if err := decodeGeneric(raw, &generic); err != nil {
		return nil, fmt.Errorf("normalize audit record: %w", err)
	}
	generic["signature"] = nil
	generic["signature_algorithm"] = nil
	generic["verification_url"] = nil
	return MarshalCanonical(generic)
}

// MarshalCanonical encodes v as compact JSON with object keys sorted at
// every nesting level and without HTML escaping.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch value := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if value {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeJSONString(buf, value)
	case json.Number:
		buf.WriteString(value.String())
	case map[string]any:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, value[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range value {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// Anything outside the decoded-JSON vocabulary is normalized
		// through one encode/decode round trip first.
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotCanonical, err)
		}
		var generic any
		if err := decodeGeneric(raw, &generic); err != nil {
			return fmt.Errorf("normalize canonical value: %w", err)
		}
		return writeCanonical(buf, generic)
	}
	return nil
}

// decodeGeneric parses raw keeping numbers as literals, so re-encoding
// never reformats them.
func decodeGeneric(raw []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(target)
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates with a newline the canonical form must not carry.
	buf.Truncate(buf.Len() - 1)
	return nil
}

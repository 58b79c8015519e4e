package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON writes settings as JSON objects whose keys keep insertion order:
//
//	{"categories":{"Rent":50},"limits":{"Car":{"percent":10,"limit":400}},"version":3}
func (s Settings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"categories":{`)
	for i, c := range s.Categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, c.Name, c.Percent); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"limits":{`)
	for i, c := range s.Limits {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, c.Name, c.LimitEntry); err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(&buf, `},"version":%d}`, s.Version)
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the format written by MarshalJSON. Missing collections
// and a missing version are accepted; unknown keys are ignored. A repeated
// category key overwrites the earlier value in place.
func (s *Settings) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	if tok == nil {
		*s = Settings{}
		return nil
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("settings must be a JSON object, got %v", tok)
	}

	var out Settings
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read settings key: %w", err)
		}
		key, _ := keyTok.(string)

		switch key {
		case "categories":
			err = decodeOrdered(dec, func(name string, raw json.RawMessage) error {
				var percent float64
				if err := json.Unmarshal(raw, &percent); err != nil {
					return fmt.Errorf("category %q: %w", name, err)
				}
				out.SetFlat(name, percent)
				return nil
			})
		case "limits":
			err = decodeOrdered(dec, func(name string, raw json.RawMessage) error {
				var entry LimitEntry
				if err := json.Unmarshal(raw, &entry); err != nil {
					return fmt.Errorf("limit %q: %w", name, err)
				}
				out.SetLimit(name, entry)
				return nil
			})
		case "version":
			var v *int64
			err = dec.Decode(&v)
			if v != nil {
				out.Version = *v
			}
		default:
			var skip json.RawMessage
			err = dec.Decode(&skip)
		}
		if err != nil {
			return fmt.Errorf("failed to decode settings %s: %w", key, err)
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	*s = out
	return nil
}

func writeMember(buf *bytes.Buffer, name string, value any) error {
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// decodeOrdered walks a JSON object member by member. A null object is
// treated as empty.
func decodeOrdered(dec *json.Decoder, fn func(name string, raw json.RawMessage) error) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(name, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

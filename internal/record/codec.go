package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"

	"github.com/openkcm/memory-match/internal/serviceerr"
)

// Format names a wire encoding for SaveRecord.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown save format")

// ParseFormat resolves a configured format name. An empty name selects JSON.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Marshal encodes a valid record.
func Marshal(format Format, r SaveRecord) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		b, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshaling json: %w", err)
		}
		return b, nil
	case FormatYAML:
		b, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshaling yaml: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Unmarshal decodes and validates a record. Missing fields, type mismatches
// and inconsistent contents all yield an error matching
// serviceerr.ErrCorruptSave.
func Unmarshal(format Format, data []byte) (SaveRecord, error) {
	raw := map[string]any{}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return SaveRecord{}, errors.Join(serviceerr.ErrCorruptSave, fmt.Errorf("unmarshaling json: %w", err))
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return SaveRecord{}, errors.Join(serviceerr.ErrCorruptSave, fmt.Errorf("unmarshaling yaml: %w", err))
		}
	default:
		return SaveRecord{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	r, err := fromMap(raw)
	if err != nil {
		return SaveRecord{}, errors.Join(serviceerr.ErrCorruptSave, err)
	}

	if err := r.Validate(); err != nil {
		return SaveRecord{}, err
	}

	return r, nil
}

// fromMap requires every SaveRecord field to be present in raw.
func fromMap(raw map[string]any) (SaveRecord, error) {
	var r SaveRecord

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &r,
		ErrorUnset: true,
		DecodeHook: integralFloatHook,
	})
	if err != nil {
		return SaveRecord{}, fmt.Errorf("creating decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return SaveRecord{}, fmt.Errorf("decoding record: %w", err)
	}

	return r, nil
}

// integralFloatHook lets whole floats into int fields and rejects the rest.
// YAML decodes every number with a fraction or exponent as float64.
func integralFloatHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}

	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}

	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("%v is not an integer", f)
	}

	return int64(f), nil
}

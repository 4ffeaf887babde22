// Package settings describes the watchface settings record and the
// configuration page layouts it is exchanged with.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotObject is returned when a settings document is valid JSON but not an object.
var ErrNotObject = errors.New("settings record is not a JSON object")

// Record is the full set of watchface options, keyed by field name.
// Values are strings or JSON primitives; the bridge never interprets them.
type Record map[string]any

// Encode serializes a record to its stored text form.
func Encode(r Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings record: %w", err)
	}
	return string(data), nil
}

// Decode parses the stored text form of a record.
func Decode(text string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, fmt.Errorf("failed to decode settings record: %w", err)
	}
	if r == nil {
		return nil, ErrNotObject
	}
	return r, nil
}

// FieldText returns the text a configuration page receives for field.
// Missing fields read as "undefined", matching what a page script sees.
func (r Record) FieldText(field string) string {
	v, ok := r[field]
	if !ok {
		return "undefined"
	}
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return numberText(val)
	case json.Number:
		return val.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// numberText formats f the way a page script prints a number: plain
// decimals in [1e-6, 1e21), exponent form like 1e+21 or 1.5e-7 outside.
func numberText(f float64) string {
	abs := math.Abs(f)
	if abs == 0 {
		return "0"
	}
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

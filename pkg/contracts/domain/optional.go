package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Optional is a float64 that may be absent. It replaces NaN as the marker for
// missing cells and empty aggregates.
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a present value. Non-finite inputs are stored as absent.
func Some(v float64) Optional {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Optional{}
	}
	return Optional{Value: v, Valid: true}
}

// None returns an absent value.
func None() Optional {
	return Optional{}
}

// Round rounds a present value to the given number of decimal places.
func (o Optional) Round(places int) Optional {
	if !o.Valid {
		return o
	}
	p := math.Pow(10, float64(places))
	return Some(math.Round(o.Value*p) / p)
}

// Or returns the value, or fallback when absent.
func (o Optional) Or(fallback float64) float64 {
	if !o.Valid {
		return fallback
	}
	return o.Value
}

// String formats a present value with two decimals and an absent one as "n/a".
func (o Optional) String() string {
	if !o.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(o.Value, 'f', 2, 64)
}

// MarshalJSON encodes absent values as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON accepts a number or null.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

package validation

import (
	"bytes"
	"math"
	"strconv"
)

// Number accepts a JSON number or a numeric string. Mobile clients submit the
// aggregate as stringified JSON inside a multipart form, so numeric fields
// arrive in both shapes. Unmarshaling never fails; Set and Valid record what
// was seen so the validator can report absence and invalidity separately.
type Number struct {
	Value float64
	Set   bool
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	n.Set = true

	// JSON null counts as absent
	if bytes.Equal(data, []byte("null")) {
		n.Set = false
		return nil
	}

	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	n.Value = v
	n.Valid = true
	return nil
}

// IntValue returns the value truncated to an int.
func (n Number) IntValue() int {
	return int(n.Value)
}

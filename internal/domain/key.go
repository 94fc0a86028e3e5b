package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MachineKey is the canonical comparison key for an ATM identifier.
// Build it with NormalizeKey; raw identifiers must never be compared directly.
type MachineKey string

// String returns the key as text.
func (k MachineKey) String() string {
	return string(k)
}

// NormalizeKey canonicalizes a numeric or textual machine identifier.
// Numbers are printed in their shortest form (1001.0 -> "1001") and
// surrounding whitespace is trimmed.
func NormalizeKey(v any) MachineKey {
	var s string
	switch t := v.(type) {
	case nil:
		s = ""
	case string:
		s = t
	case MachineKey:
		s = string(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		s = strconv.Itoa(t)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	case int64:
		s = strconv.FormatInt(t, 10)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprintf("%v", t)
	}

	return MachineKey(strings.TrimSpace(s))
}

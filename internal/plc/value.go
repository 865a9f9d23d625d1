package plc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mode is the declared data type of a writable point.
type Mode string

// Supported point modes, matching the controller's BOOL, INT, DINT and REAL.
const (
	ModeBool  Mode = "bool"
	ModeInt16 Mode = "int16"
	ModeInt32 Mode = "int32"
	ModeFloat Mode = "float"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeBool, ModeInt16, ModeInt32, ModeFloat:
		return true
	}
	return false
}

// ParseValue converts an operator-entered string into the Go type that the
// controller expects for mode.
func ParseValue(mode Mode, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch mode {
	case ModeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %q", ErrInvalidValue, mode, raw)
		}
		return b, nil
	case ModeInt16:
		n, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %q", ErrInvalidValue, mode, raw)
		}
		return int16(n), nil
	case ModeInt32:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %q", ErrInvalidValue, mode, raw)
		}
		return int32(n), nil
	case ModeFloat:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w %s: %q", ErrInvalidValue, mode, raw)
		}
		return float32(f), nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidValue, mode)
	}
}

// ToBool reports v as a bool. Only real booleans qualify.
func ToBool(v any) (value, ok bool) {
	b, ok := v.(bool)
	return b, ok
}

// ToFloat converts any numeric controller value to float64. Booleans map
// to 0 and 1.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int8:
		return float64(n), true
	case uint8:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// ToInt converts an integral controller value to int64. Floats qualify
// only when they hold a whole number.
func ToInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case uint8:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case float32:
		return wholeFloat(float64(n))
	case float64:
		return wholeFloat(n)
	default:
		return 0, false
	}
}

func wholeFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// FormatValue renders a controller value for display and MQTT payloads.
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case []byte:
		return strings.TrimRight(string(n), "\x00")
	default:
		return fmt.Sprint(v)
	}
}

// Package types converts raw driver values into display values.
package types

import (
	"fmt"
	"strconv"
)

// ToDisplayString renders an identifier value read from a driver as text.
// MySQL returns []byte for VARCHAR columns, MongoDB may hand back any BSON
// scalar. Nil renders as the empty string.
func ToDisplayString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

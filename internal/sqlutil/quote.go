// Package sqlutil provides SQL text helpers for the MySQL backend of GoPurge.
package sqlutil

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// MaxIdentifierLength is MySQL's limit for table, column and index names.
const MaxIdentifierLength = 64

const indexPrefix = "idx_gopurge_"

// QuoteIdentifier quotes a MySQL identifier (table name, column name) with backticks.
// Existing backticks are doubled.
// Example: "orders" -> "`orders`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex restricts identifiers to alphanumerics and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is a valid MySQL identifier.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes a MySQL identifier after validating it.
// Returns an error if the identifier contains invalid characters.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}

// IndexName returns the name GoPurge gives an index it creates on column.
// Names that would exceed MaxIdentifierLength are truncated and suffixed
// with a hash of the full column name so they stay distinct.
func IndexName(column string) string {
	name := indexPrefix + column
	if len(name) <= MaxIdentifierLength {
		return name
	}

	h := fnv.New32a()
	h.Write([]byte(column))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	keep := MaxIdentifierLength - len(indexPrefix) - len(suffix)
	return indexPrefix + column[:keep] + suffix
}

// RegexpMatchType returns the REGEXP_LIKE match_type argument:
// 'i' for case-insensitive, 'c' for case-sensitive.
func RegexpMatchType(caseInsensitive bool) string {
	if caseInsensitive {
		return "i"
	}
	return "c"
}

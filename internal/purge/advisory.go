package purge

import "strings"

// PatternAdvisories returns notes about a pattern the engine cannot serve
// efficiently from the identifier index. An empty result means the
// pattern is fine.
func PatternAdvisories(pattern string, caseInsensitive bool) []string {
	var notes []string
	if strings.HasPrefix(pattern, ".*") || strings.HasPrefix(pattern, "^.*") {
		notes = append(notes, "pattern starts with a wildcard; the index cannot narrow the scan. Prefer fixed leading text, e.g. \"TEST-ORDER-CONTAINER\" instead of \"^.*TEST.*\"")
	}
	if caseInsensitive {
		notes = append(notes, "case-insensitive matching cannot use the index efficiently; consider --case-sensitive if the identifier case is known")
	}
	return notes
}

package util

import "strings"

// SanitizePostgresText drops invalid UTF-8 and NUL bytes, which text
// columns reject.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// CollapseWhitespace trims s and folds every run of whitespace into one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package jsonschema

import "regexp"

// Format checks are regex-based. Formats outside this table pass silently.
var formats = map[string]*regexp.Regexp{
	"date-time": regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`),
	"date":      regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	"time":      regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`),
	"email":     regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
	"uri":       regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`),
	"uuid":      regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`),
	"ipv4":      regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`),
	"ipv6":      regexp.MustCompile(`(?i)^([0-9a-f]{1,4}:){7}[0-9a-f]{1,4}$`),
}

// CheckFormat reports whether s satisfies the named format. Unknown format
// names always pass.
func CheckFormat(name, s string) bool {
	re, ok := formats[name]
	if !ok {
		return true
	}
	return re.MatchString(s)
}

// KnownFormat reports whether the format name has an attached check.
func KnownFormat(name string) bool {
	_, ok := formats[name]
	return ok
}

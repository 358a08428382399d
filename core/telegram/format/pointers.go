package format

import "strings"

// DerefString safely dereferences a *string and returns a default value if nil.
func DerefString(s *string, defaultVal string) string {
	if s != nil {
		return *s
	}
	return defaultVal
}

// Handle renders a Telegram username as "@name", or fallback when absent.
func Handle(s *string, fallback string) string {
	name := strings.TrimPrefix(strings.TrimSpace(DerefString(s, "")), "@")
	if name == "" {
		return fallback
	}
	return "@" + name
}

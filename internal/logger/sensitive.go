// sensitive.go
package logger

import (
	"regexp"
)

// SensitiveDataPatterns match values that must not reach log output
var SensitiveDataPatterns = []*regexp.Regexp{
	// Auth tokens (Bearer, JWT)
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),

	// OAuth and API credentials in query strings or key/value text
	regexp.MustCompile(`(?i)((access_token|refresh_token|client_secret|api[_-]?key|password)[\s:=]+)([^;,&\s]{5,})`),

	// Private keys embedded in credential files
	regexp.MustCompile(`(?s)(-----BEGIN [A-Z ]*PRIVATE KEY-----).*?(-----END [A-Z ]*PRIVATE KEY-----)`),
}

// RedactSensitiveData replaces sensitive information with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range SensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "$1[REDACTED]")
	}
	return input
}

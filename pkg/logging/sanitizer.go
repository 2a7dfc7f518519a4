// Package logging redacts credentials from values before they are logged.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a statement to log.
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

// redaction replaces every match of pattern with replacement.
type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordRule = redaction{
		regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`),
		"${1}=" + RedactedText,
	}

	// OAuth client secrets in form bodies or JSON.
	clientSecretRule = redaction{
		regexp.MustCompile(`(?i)("?client_secret"?\s*[=:]\s*"?)[^"&\s,}]+`),
		"${1}" + RedactedText,
	}

	// Any bearer or basic Authorization value, JWT or opaque.
	authHeaderRule = redaction{
		regexp.MustCompile(`(?i)\b(Bearer|Basic)\s+[A-Za-z0-9\-_.~+/]+=*`),
		"${1} " + RedactedText,
	}

	// Workspace personal access tokens.
	patRule = redaction{
		regexp.MustCompile(`\bdapi[0-9a-f]{32}(-\d+)?\b`),
		RedactedText,
	}

	apiKeyRule = redaction{
		regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`),
		"${1}=" + RedactedText,
	}

	// user:pass@host
	connStringRule = redaction{
		regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`),
		"://" + RedactedText + "@" + RedactedText,
	}
)

func apply(s string, rules ...redaction) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// SanitizeConnectionString removes credentials from a connection string.
func SanitizeConnectionString(connStr string) string {
	return apply(connStr, passwordRule, connStringRule)
}

// SanitizeError renders err with tokens, secrets and passwords removed.
// Warehouse and serving endpoint errors often echo request headers or bodies.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return apply(err.Error(), passwordRule, clientSecretRule, authHeaderRule, patRule, apiKeyRule, connStringRule)
}

// SanitizeQuery truncates a SQL statement for logging and redacts credentials.
func SanitizeQuery(query string) string {
	return apply(TruncateString(query, MaxQueryLogLength), passwordRule, patRule, apiKeyRule)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

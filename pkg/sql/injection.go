package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a value that libinjection flagged.
type InjectionCheckResult struct {
	Field       string // Which input carried the value (catalog, schema, table, column)
	Value       string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckForInjection runs libinjection over a value that will be spliced into a
// statement. Returns nil when the value is clean.
//
// Example:
//
//	CheckForInjection("table", "orders")              // nil
//	CheckForInjection("table", "x' OR '1'='1")         // Fingerprint "s&sos" (or similar)
func CheckForInjection(field, value string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Field:       field,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}

// Package sql builds the warehouse statements issued by the catalog layer.
// Identifiers are validated before they are quoted, and string literals are
// escaped, so no caller input reaches a statement unchecked.
package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_\-]*$`)

// ValidateIdentifier checks a catalog, schema, table or column name.
// The error wraps apperrors.ErrInvalidIdentifier.
func ValidateIdentifier(field, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %s %q", apperrors.ErrInvalidIdentifier, field, name)
	}
	if result := CheckForInjection(field, name); result != nil {
		return fmt.Errorf("%w: %s %q (fingerprint %s)", apperrors.ErrInvalidIdentifier, field, name, result.Fingerprint)
	}
	return nil
}

// TableRef names a table by its three-level namespace.
type TableRef struct {
	Catalog string
	Schema  string
	Table   string
}

// Validate checks every part of the reference.
func (r TableRef) Validate() error {
	if err := ValidateIdentifier("catalog", r.Catalog); err != nil {
		return err
	}
	if err := ValidateIdentifier("schema", r.Schema); err != nil {
		return err
	}
	return ValidateIdentifier("table", r.Table)
}

// FullName returns "catalog.schema.table" without quoting.
func (r TableRef) FullName() string {
	return r.Catalog + "." + r.Schema + "." + r.Table
}

// Quoted returns the backtick-quoted three-part name.
func (r TableRef) Quoted() string {
	return QuoteIdentifier(r.Catalog) + "." + QuoteIdentifier(r.Schema) + "." + QuoteIdentifier(r.Table)
}

// QuoteIdentifier wraps a name in backticks, doubling embedded backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// EscapeLiteral prepares text for a single-quoted string literal.
// Single quotes are doubled; backslashes are doubled because the warehouse
// treats them as escape characters inside literals.
func EscapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// QuoteLiteral returns s as a complete single-quoted literal.
func QuoteLiteral(s string) string {
	return "'" + EscapeLiteral(s) + "'"
}

// Package prompts builds the LLM prompts used to draft table and column descriptions.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// MaxSampleValues caps the distinct sample values listed per column.
const MaxSampleValues = 5

// OtherTable is a sibling table and its current description.
type OtherTable struct {
	Table       string  `json:"table"`
	Description *string `json:"description"`
}

// ColumnContext is a column with its description and sample values, for the table prompt.
type ColumnContext struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Description  *string  `json:"description"`
	SampleValues []string `json:"sample_values"`
}

// DescribedColumn is a column that already has a usable description.
type DescribedColumn struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
}

// MissingColumn is a column that needs a description.
type MissingColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TablePromptInput is everything the table prompt needs.
type TablePromptInput struct {
	Catalog     string
	Schema      string
	Table       string
	OtherTables []OtherTable
	Columns     []ColumnContext
}

// ColumnPromptInput is everything the column prompt needs.
type ColumnPromptInput struct {
	Catalog          string
	Schema           string
	Table            string
	TableDescription *string
	DescribedColumns []DescribedColumn
	MissingColumns   []MissingColumn
	// SampleValues maps each missing column to its distinct sample values.
	SampleValues map[string][]string
}

// SampleValues collects up to MaxSampleValues distinct non-null values of a
// column, rendered as text, in row order.
func SampleValues(rows []map[string]any, column string) []string {
	values := []string{}
	seen := make(map[string]bool)
	for _, row := range rows {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
		if len(values) >= MaxSampleValues {
			break
		}
	}
	return values
}

// EntityHint guesses what a single row represents from the table name,
// e.g. "customer_orders" -> "customer order".
func EntityHint(table string) string {
	words := strings.FieldsFunc(strings.ToLower(table), func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(words) == 0 {
		return ""
	}
	words[len(words)-1] = inflection.Singular(words[len(words)-1])
	return strings.Join(words, " ")
}

// BuildTablePrompt asks for {"table_description": "..."}.
func (t *Templates) BuildTablePrompt(in TablePromptInput) string {
	var prompt strings.Builder

	prompt.WriteString("You are enriching metadata for a Databricks table.\n\n")
	prompt.WriteString(fmt.Sprintf("Current Table: %s\n", in.Table))
	prompt.WriteString(fmt.Sprintf("Schema: %s\n", in.Schema))
	prompt.WriteString(fmt.Sprintf("Catalog: %s\n", in.Catalog))
	if hint := EntityHint(in.Table); hint != "" {
		prompt.WriteString(fmt.Sprintf("Each row likely represents one %s.\n", hint))
	}
	prompt.WriteString("\n")

	prompt.WriteString("Other tables in the schema with descriptions:\n")
	prompt.WriteString(indentJSON(nonNil(in.OtherTables)))
	prompt.WriteString("\n\n")

	prompt.WriteString("Columns (with existing descriptions and sample values):\n")
	prompt.WriteString(indentJSON(nonNil(in.Columns)))
	prompt.WriteString("\n\n")

	prompt.WriteString("Task:\n")
	prompt.WriteString(strings.TrimSpace(t.TableTask))
	prompt.WriteString("\n\n")

	prompt.WriteString("Return ONLY a JSON object in this exact format:\n")
	prompt.WriteString(`{"table_description": "your description here"}`)
	prompt.WriteString("\n\n")
	prompt.WriteString("Do not include any other text, markdown, or explanation. Only the JSON object.\n")

	return prompt.String()
}

// BuildColumnPrompt asks for {"columns": [{"name": ..., "description": ...}]}.
func (t *Templates) BuildColumnPrompt(in ColumnPromptInput) string {
	var prompt strings.Builder

	prompt.WriteString("You are enriching metadata for columns of a Databricks table.\n\n")
	prompt.WriteString(fmt.Sprintf("Table: %s\n", in.Table))
	prompt.WriteString(fmt.Sprintf("Schema: %s\n", in.Schema))
	prompt.WriteString(fmt.Sprintf("Catalog: %s\n\n", in.Catalog))

	prompt.WriteString("Table description:\n")
	if in.TableDescription != nil && strings.TrimSpace(*in.TableDescription) != "" {
		prompt.WriteString(*in.TableDescription)
	} else {
		prompt.WriteString("No description")
	}
	prompt.WriteString("\n\n")

	prompt.WriteString("Other columns with descriptions:\n")
	prompt.WriteString(indentJSON(nonNil(in.DescribedColumns)))
	prompt.WriteString("\n\n")

	prompt.WriteString("Columns needing descriptions:\n")
	prompt.WriteString(indentJSON(nonNil(in.MissingColumns)))
	prompt.WriteString("\n\n")

	samples := in.SampleValues
	if samples == nil {
		samples = map[string][]string{}
	}
	prompt.WriteString("Sample values for missing columns:\n")
	prompt.WriteString(indentJSON(samples))
	prompt.WriteString("\n\n")

	prompt.WriteString("Task:\n")
	prompt.WriteString(strings.TrimSpace(t.ColumnTask))
	prompt.WriteString("\n\n")

	prompt.WriteString("Return ONLY a JSON object in this exact format:\n")
	prompt.WriteString(`{"columns": [{"name": "col1", "description": "..."}, {"name": "col2", "description": "..."}]}`)
	prompt.WriteString("\n\n")
	prompt.WriteString("Do not include any other text, markdown, or explanation. Only the JSON object.\n")

	return prompt.String()
}

// indentJSON renders v with two-space indentation. Prompt inputs are plain
// data, so a marshal failure only happens on programmer error.
func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package models

import (
	"encoding/json"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/jsonutil"
)

// Table is one entry from SHOW TABLES.
type Table struct {
	Name     string `json:"name"`
	Catalog  string `json:"catalog"`
	Schema   string `json:"schema"`
	FullName string `json:"full_name"`
}

// Column is one row of DESCRIBE TABLE.
// Description is nil when the warehouse reports no comment.
type Column struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
}

// ColumnStatus is a Column plus whether its description needs drafting.
type ColumnStatus struct {
	Column
	IsMissing bool `json:"is_missing"`
}

// TableMetadata is what the enrichment prompts are built from.
type TableMetadata struct {
	TableName  string           `json:"table_name"`
	FullName   string           `json:"full_name"`
	Columns    []Column         `json:"columns"`
	SampleData []map[string]any `json:"sample_data"`
}

// DescribedTable is a sibling table and its comment, used as prompt context.
type DescribedTable struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// TablePreview is the response shape of a row preview.
type TablePreview struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ColumnSuggestion is one drafted column description.
type ColumnSuggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UnmarshalJSON accepts non-string scalars for either field, since suggestions
// are decoded from model output.
func (c *ColumnSuggestion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        jsonutil.FlexibleString `json:"name"`
		Description jsonutil.FlexibleString `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Name = string(raw.Name)
	c.Description = string(raw.Description)
	return nil
}

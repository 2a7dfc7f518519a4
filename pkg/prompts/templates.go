package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Templates holds the replaceable parts of the prompts.
// The context sections and JSON contract are fixed; only the instructions vary.
type Templates struct {
	SystemMessage string `yaml:"system_message"`
	TableTask     string `yaml:"table_task"`
	ColumnTask    string `yaml:"column_task"`
}

// DefaultTemplates returns the built-in instructions.
func DefaultTemplates() *Templates {
	return &Templates{
		SystemMessage: "You are a data steward who writes clear, accurate documentation for lakehouse tables. " +
			"You answer only with the JSON requested.",
		TableTask: "Suggest a clear and elaborate description for this table summarizing its purpose and content.\n" +
			"Make sure it is consistent with the style followed by other tables in the dataset.",
		ColumnTask: "Suggest clear, concise descriptions for each missing column.\n" +
			"Keep descriptions consistent with the style of existing ones.",
	}
}

// LoadTemplates reads a YAML override file. Keys that are absent or empty keep
// their built-in value. An empty path returns the defaults.
//
// Example file:
//
//	table_task: |
//	  Describe the table in two sentences for a finance audience.
//	column_task: |
//	  Describe each column in under 15 words.
func LoadTemplates(path string) (*Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if override.SystemMessage != "" {
		t.SystemMessage = override.SystemMessage
	}
	if override.TableTask != "" {
		t.TableTask = override.TableTask
	}
	if override.ColumnTask != "" {
		t.ColumnTask = override.ColumnTask
	}
	return t, nil
}

// Package tools holds the static catalog of tools attached to outgoing provider requests.
package tools

import "slices"

// InputSchema is the JSON-schema-like description of a tool's arguments.
type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// ToolSpec describes a callable tool. The field names serialize to the Anthropic tool shape.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

var builtin = []ToolSpec{
	{
		Name:        "executeSQL",
		Description: "Run a SQL query for immediate results without adding it to the transformation pipeline. Use for exploratory queries, data inspection, or when users want to see results right away.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]any{
				"sql": map[string]any{
					"type":        "string",
					"description": "The complete DuckDB-compatible SQL query. CRITICAL: Use proper SQL syntax only - no English phrases! Use: = (not 'equals'), < (not 'less than'), > (not 'greater than'), BETWEEN x AND y (not 'IS BETWEEN' or 'is around'), LIKE '%pattern%' (not 'contains'), IS NULL/IS NOT NULL only. Example: WHERE age BETWEEN 20 AND 30 (correct), NOT WHERE age IS BETWEEN 20 AND 30 (wrong)",
				},
			},
			Required: []string{"sql"},
		},
	},
	{
		Name:        "addTransformation",
		Description: "Add a SQL transformation step to the data pipeline. Use when users want to filter, transform, or process data as part of their workflow.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]any{
				"sql": map[string]any{
					"type":        "string",
					"description": "The SQL query for the transformation. Use 'previous_step' to reference the output of the last transformation, or reference other transformation outputs by their alias names.",
				},
				"outputAlias": map[string]any{
					"type":        "string",
					"description": "A meaningful name for this transformation step using underscores (e.g., 'filtered_data', 'high_value_orders', 'aggregated_results')",
				},
			},
			Required: []string{"sql", "outputAlias"},
		},
	},
}

// Builtin returns the process-wide tool catalog.
// The returned slice may be reordered by callers; the specs themselves are read-only.
func Builtin() []ToolSpec {
	return slices.Clone(builtin)
}

// Names returns the tool names in catalog order.
func Names(specs []ToolSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names
}

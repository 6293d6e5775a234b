// Package builtin provides the standard node types available to YAML
// workflows, each described by metadata with a JSON schema for its config.
package builtin

// Metadata describes a node type.
type Metadata struct {
	Type         string         `json:"type"`
	Category     string         `json:"category"`
	Description  string         `json:"description"`
	ConfigSchema map[string]any `json:"configSchema"`
	Examples     []Example      `json:"examples,omitempty"`
}

// Example shows one way to configure a node type.
type Example struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
}

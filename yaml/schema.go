// Package yaml loads workflow graph definitions from YAML.
package yaml

import (
	"fmt"
	"time"
)

// Definition is a complete workflow graph described in YAML.
type Definition struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Metadata    map[string]any   `yaml:"metadata,omitempty"`
	Start       string           `yaml:"start"`
	MaxSteps    int              `yaml:"max_steps,omitempty"`
	Nodes       []NodeDefinition `yaml:"nodes"`
	Connections []Connection     `yaml:"connections,omitempty"`
}

// NodeDefinition describes one node of the graph.
type NodeDefinition struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Description string         `yaml:"description,omitempty"`
	Config      map[string]any `yaml:"config,omitempty"`
	Retry       *RetryConfig   `yaml:"retry,omitempty"`
}

// Connection routes one node's outcome to another node.
type Connection struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Outcome string `yaml:"outcome,omitempty"`
}

// RetryConfig describes a node's retry policy in YAML.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Delay       string `yaml:"delay"`
	Backoff     string `yaml:"backoff,omitempty"`
}

// Validate checks the definition for structural problems: missing names,
// an unknown start node, or connections referencing undefined nodes.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if d.Start == "" {
		return fmt.Errorf("start node is required")
	}
	if len(d.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}

	names := make(map[string]bool, len(d.Nodes))
	for _, node := range d.Nodes {
		if node.Name == "" {
			return fmt.Errorf("node name is required")
		}
		if node.Type == "" {
			return fmt.Errorf("node %q: type is required", node.Name)
		}
		if names[node.Name] {
			return fmt.Errorf("duplicate node name %q", node.Name)
		}
		names[node.Name] = true

		if node.Retry != nil {
			if err := node.Retry.Validate(); err != nil {
				return fmt.Errorf("node %q: %w", node.Name, err)
			}
		}
	}

	if !names[d.Start] {
		return fmt.Errorf("start node %q not defined", d.Start)
	}

	for _, conn := range d.Connections {
		if !names[conn.From] {
			return fmt.Errorf("connection from undefined node %q", conn.From)
		}
		if !names[conn.To] {
			return fmt.Errorf("connection to undefined node %q", conn.To)
		}
	}

	return nil
}

// Validate checks the retry configuration.
func (rc *RetryConfig) Validate() error {
	if rc.MaxAttempts <= 0 {
		return fmt.Errorf("retry max_attempts must be positive")
	}
	if rc.Delay == "" {
		return fmt.Errorf("retry delay is required")
	}
	if _, err := time.ParseDuration(rc.Delay); err != nil {
		return fmt.Errorf("invalid retry delay: %w", err)
	}
	switch rc.Backoff {
	case "", "fixed", "linear", "exponential":
	default:
		return fmt.Errorf("unknown backoff strategy %q", rc.Backoff)
	}
	return nil
}

// ParsedDelay returns the retry delay as a duration. Validate first.
func (rc *RetryConfig) ParsedDelay() (time.Duration, error) {
	return time.ParseDuration(rc.Delay)
}

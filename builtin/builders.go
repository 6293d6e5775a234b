package builtin

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/ohler55/ojg/jp"

	"github.com/flumehq/flume"
	"github.com/flumehq/flume/builtin/script"
	"github.com/flumehq/flume/yaml"
)

// EchoBuilder builds nodes that write a fixed message into the state.
type EchoBuilder struct{}

func (b *EchoBuilder) Metadata() Metadata {
	return Metadata{
		Type:        "echo",
		Category:    "core",
		Description: "Writes a message into the state",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Message to write",
				},
				"output": map[string]any{
					"type":        "string",
					"description": "State key to write to",
					"default":     "message",
				},
			},
		},
		Examples: []Example{
			{
				Name:   "Simple echo",
				Config: map[string]any{"message": "hello"},
			},
		},
	}
}

func (b *EchoBuilder) Build(def *yaml.NodeDefinition) (flume.Node, error) {
	message, _ := def.Config["message"].(string)
	output := "message"
	if out, ok := def.Config["output"].(string); ok && out != "" {
		output = out
	}

	return flume.NewNode(def.Name).
		WithPost(func(ctx context.Context, state flume.Context, prep, exec any) (flume.Outcome, error) {
			state.Set(output, message)
			return flume.OutcomeDefault, nil
		}), nil
}

// DelayBuilder builds nodes that pause for a configured duration.
type DelayBuilder struct{}

func (b *DelayBuilder) Metadata() Metadata {
	return Metadata{
		Type:        "delay",
		Category:    "core",
		Description: "Pauses execution for a duration",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"duration": map[string]any{
					"type":        "string",
					"description": "How long to pause, e.g. '1s' or '500ms'",
					"default":     "1s",
				},
			},
		},
		Examples: []Example{
			{
				Name:   "Half second pause",
				Config: map[string]any{"duration": "500ms"},
			},
		},
	}
}

func (b *DelayBuilder) Build(def *yaml.NodeDefinition) (flume.Node, error) {
	duration := time.Second
	if s, ok := def.Config["duration"].(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return flume.Node{}, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		duration = d
	}

	return flume.NewNode(def.Name).
		WithExec(func(ctx context.Context, prep any) (any, error) {
			timer := time.NewTimer(duration)
			defer timer.Stop()
			select {
			case <-timer.C:
				return prep, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}), nil
}

// RouterBuilder builds nodes that pick an outcome from a state value.
type RouterBuilder struct{}

func (b *RouterBuilder) Metadata() Metadata {
	return Metadata{
		Type:        "router",
		Category:    "core",
		Description: "Selects an outcome from a JSONPath value in the state",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "JSONPath into the state, e.g. '$.review.status'",
				},
				"routes": map[string]any{
					"type":        "object",
					"description": "Maps extracted values to outcomes",
				},
				"fallback": map[string]any{
					"type":        "string",
					"description": "Outcome when the path matches nothing or no route applies",
					"default":     "default",
				},
			},
			"required": []any{"path"},
		},
		Examples: []Example{
			{
				Name: "Route on review status",
				Config: map[string]any{
					"path":   "$.review.status",
					"routes": map[string]any{"passed": "publish", "failed": "revise"},
				},
			},
		},
	}
}

func (b *RouterBuilder) Build(def *yaml.NodeDefinition) (flume.Node, error) {
	path, _ := def.Config["path"].(string)
	expr, err := jp.ParseString(path)
	if err != nil {
		return flume.Node{}, fmt.Errorf("invalid path %q: %w", path, err)
	}

	routes := map[string]string{}
	if raw, ok := def.Config["routes"].(map[string]any); ok {
		for value, outcome := range raw {
			if s, ok := outcome.(string); ok {
				routes[value] = s
			}
		}
	}
	fallbackOutcome := "default"
	if fb, ok := def.Config["fallback"].(string); ok && fb != "" {
		fallbackOutcome = fb
	}

	return flume.NewNode(def.Name).
		WithPost(func(ctx context.Context, state flume.Context, prep, exec any) (flume.Outcome, error) {
			matches := expr.Get(map[string]any(state))
			if len(matches) == 0 {
				return flume.Outcome(fallbackOutcome), nil
			}
			value := fmt.Sprintf("%v", matches[0])
			if outcome, ok := routes[value]; ok {
				return flume.Outcome(outcome), nil
			}
			if len(routes) == 0 {
				// No route table: the extracted value is the outcome.
				return flume.Outcome(value), nil
			}
			return flume.Outcome(fallbackOutcome), nil
		}), nil
}

// TemplateBuilder builds nodes that render a text template over the state.
type TemplateBuilder struct{}

func (b *TemplateBuilder) Metadata() Metadata {
	return Metadata{
		Type:        "template",
		Category:    "data",
		Description: "Renders a Go text template over the state",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template": map[string]any{
					"type":        "string",
					"description": "Template source; the state is the template data",
				},
				"output": map[string]any{
					"type":        "string",
					"description": "State key for the rendered text",
					"default":     "rendered",
				},
			},
			"required": []any{"template"},
		},
		Examples: []Example{
			{
				Name:   "Greeting",
				Config: map[string]any{"template": "Hello, {{.name}}!", "output": "greeting"},
			},
		},
	}
}

func (b *TemplateBuilder) Build(def *yaml.NodeDefinition) (flume.Node, error) {
	source, _ := def.Config["template"].(string)
	tmpl, err := template.New(def.Name).Parse(source)
	if err != nil {
		return flume.Node{}, fmt.Errorf("parse template: %w", err)
	}
	output := "rendered"
	if out, ok := def.Config["output"].(string); ok && out != "" {
		output = out
	}

	return flume.NewNode(def.Name).
		WithExec(func(ctx context.Context, prep any) (any, error) {
			state, ok := prep.(flume.Context)
			if !ok {
				return nil, fmt.Errorf("template %q: unexpected prep result %T", def.Name, prep)
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, map[string]any(state)); err != nil {
				return nil, fmt.Errorf("render template: %w", err)
			}
			return buf.String(), nil
		}).
		WithPost(func(ctx context.Context, state flume.Context, prep, exec any) (flume.Outcome, error) {
			state.Set(output, exec)
			return flume.OutcomeDefault, nil
		}), nil
}

// ScriptBuilder builds nodes that run a sandboxed Lua script against the
// state. The script sees the state as a global `state` table; a returned
// table is merged into the state.
type ScriptBuilder struct{}

func (b *ScriptBuilder) Metadata() Metadata {
	return Metadata{
		Type:        "script",
		Category:    "data",
		Description: "Runs a sandboxed Lua script over the state",
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "Lua source; return a table to merge into the state",
				},
			},
			"required": []any{"source"},
		},
		Examples: []Example{
			{
				Name:   "Compute a total",
				Config: map[string]any{"source": "return {total = state.price * state.quantity}"},
			},
		},
	}
}

func (b *ScriptBuilder) Build(def *yaml.NodeDefinition) (flume.Node, error) {
	source, _ := def.Config["source"].(string)
	if source == "" {
		return flume.Node{}, fmt.Errorf("script source is required")
	}

	return flume.NewNode(def.Name).
		WithExec(func(ctx context.Context, prep any) (any, error) {
			state, ok := prep.(flume.Context)
			if !ok {
				return nil, fmt.Errorf("script %q: unexpected prep result %T", def.Name, prep)
			}
			return script.Run(source, map[string]any(state))
		}).
		WithPost(func(ctx context.Context, state flume.Context, prep, exec any) (flume.Outcome, error) {
			if result, ok := exec.(map[string]any); ok {
				for k, v := range result {
					state.Set(k, v)
				}
			}
			return flume.OutcomeDefault, nil
		}), nil
}

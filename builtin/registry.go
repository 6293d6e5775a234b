package builtin

import (
	"fmt"
	"sort"

	"github.com/flumehq/flume"
	"github.com/flumehq/flume/yaml"
)

// Builder creates nodes of one type and describes that type.
type Builder interface {
	Metadata() Metadata
	Build(def *yaml.NodeDefinition) (flume.Node, error)
}

// Registry holds the available node builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under its metadata type.
func (r *Registry) Register(builder Builder) {
	r.builders[builder.Metadata().Type] = builder
}

// Get returns the builder for a node type.
func (r *Registry) Get(nodeType string) (Builder, bool) {
	builder, ok := r.builders[nodeType]
	return builder, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Install wires every registered builder into the loader, with the node's
// config validated against the builder's schema before building.
func (r *Registry) Install(loader *yaml.Loader) {
	for nodeType, builder := range r.builders {
		b := builder
		loader.Register(nodeType, func(def *yaml.NodeDefinition) (flume.Node, error) {
			meta := b.Metadata()
			if err := ValidateConfig(&meta, def.Config); err != nil {
				return flume.Node{}, fmt.Errorf("node %q config: %w", def.Name, err)
			}
			return b.Build(def)
		})
	}
}

// RegisterAll installs the standard node types into the loader and returns
// the registry describing them.
func RegisterAll(loader *yaml.Loader) *Registry {
	registry := NewRegistry()
	registry.Register(&EchoBuilder{})
	registry.Register(&DelayBuilder{})
	registry.Register(&RouterBuilder{})
	registry.Register(&TemplateBuilder{})
	registry.Register(&ScriptBuilder{})
	registry.Install(loader)
	return registry
}

package yaml

import (
	"fmt"
	"io"
	"os"

	goyaml "github.com/goccy/go-yaml"
)

// Parser decodes workflow definitions from YAML.
type Parser struct{}

// NewParser creates a parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a workflow definition from r.
func (p *Parser) Parse(r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes decodes a workflow definition from raw YAML.
func (p *Parser) ParseBytes(data []byte) (*Definition, error) {
	var def Definition
	if err := goyaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &def, nil
}

// ParseString decodes a workflow definition from a YAML string.
func (p *Parser) ParseString(s string) (*Definition, error) {
	return p.ParseBytes([]byte(s))
}

// ParseFile reads a workflow definition from a YAML file.
func (p *Parser) ParseFile(filename string) (*Definition, error) {
	data, err := os.ReadFile(filename) // #nosec G304 - callers pass workflow paths
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.ParseBytes(data)
}

// Marshal encodes a definition back to YAML.
func (p *Parser) Marshal(def *Definition) ([]byte, error) {
	data, err := goyaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return data, nil
}

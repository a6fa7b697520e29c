package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Var is one default template variable.
type Var struct {
	Key   string
	Value any
}

// Vars is a key-ordered mapping; YAML decoding keeps author order.
type Vars []Var

// UnmarshalYAML decodes a mapping node preserving key order.
func (v *Vars) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*v = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("default_vars: expected mapping, got %s", node.Tag)
	}
	out := make(Vars, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("default_vars.%s: %w", node.Content[i].Value, err)
		}
		out = out.set(node.Content[i].Value, value)
	}
	*v = out
	return nil
}

// MarshalYAML encodes Vars as an ordered mapping.
func (v Vars) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range v {
		var val yaml.Node
		if err := val.Encode(kv.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: kv.Key}, &val)
	}
	return node, nil
}

func (v Vars) set(key string, value any) Vars {
	for i := range v {
		if v[i].Key == key {
			v[i].Value = value
			return v
		}
	}
	return append(v, Var{Key: key, Value: value})
}

// Map returns a fresh map copy of the variables.
func (v Vars) Map() map[string]any {
	m := make(map[string]any, len(v))
	for _, kv := range v {
		m[kv.Key] = kv.Value
	}
	return m
}

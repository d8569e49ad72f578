package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// SNAPSHOT — Flat key-value persistence of a Schema
// ============================================================================
// Document shape (YAML, or JSON when the path ends in .json):
//
//	rows: 1000
//	columns:
//	  gender:
//	    type: text
//	    sample: female, male
//	  math score:
//	    type: integer
//	    sample: 72, 69, 90
//
// Column order is preserved. There is no compatibility contract across
// versions; a snapshot is a convenience for re-asking without re-uploading.
// ============================================================================

type snapshot struct {
	Rows    int       `yaml:"rows" json:"rows"`
	Columns columnMap `yaml:"columns" json:"columns"`
}

type columnEntry struct {
	Type   string `yaml:"type" json:"type"`
	Sample string `yaml:"sample" json:"sample"`
}

// columnMap is an ordered name → entry mapping.
type columnMap []ColumnDescriptor

// MarshalYAML emits the columns as a mapping in dataset order.
func (m columnMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range m {
		var value yaml.Node
		if err := value.Encode(columnEntry{Type: string(c.Type), Sample: c.Sample()}); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name},
			&value)
	}
	return node, nil
}

// UnmarshalYAML reads a mapping in document order. JSON input decodes here
// too, since yaml.v3 accepts JSON documents.
func (m *columnMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: columns must be a mapping", node.Line)
	}
	out := make(columnMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var entry columnEntry
		if err := node.Content[i+1].Decode(&entry); err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		typ, err := ParseType(entry.Type)
		if err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		out = append(out, ColumnDescriptor{Name: name, Type: typ, Samples: splitSample(entry.Sample)})
	}
	*m = out
	return nil
}

// MarshalJSON emits the columns as an object in dataset order.
func (m columnMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(columnEntry{Type: string(c.Type), Sample: c.Sample()})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func splitSample(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ", ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Marshal encodes s as YAML, or as indented JSON when asJSON is set.
func (s *Schema) Marshal(asJSON bool) ([]byte, error) {
	doc := snapshot{Rows: s.Rows, Columns: columnMap(s.Columns)}
	if asJSON {
		return json.MarshalIndent(doc, "", "  ")
	}
	return yaml.Marshal(doc)
}

// Unmarshal decodes a YAML or JSON snapshot.
func Unmarshal(data []byte) (*Schema, error) {
	var doc snapshot
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return New(doc.Columns, doc.Rows)
}

// Save writes s to path, creating parent directories as needed.
func (s *Schema) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create schema directory: %w", err)
		}
	}

	data, err := s.Marshal(isJSON(path))
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return Unmarshal(data)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

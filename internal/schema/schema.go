// Package schema maps attribute names to the small integer identifiers
// carried by highlights, and records which attributes are indexed and
// displayed.
package schema

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrSchemaDiffer is returned when a schema does not match the one a database
// was created with.
var ErrSchemaDiffer = errors.New("schema differs from the database schema")

// ErrSchemaMissing is returned when a database has no schema yet.
var ErrSchemaMissing = errors.New("database has no schema")

// SchemaAttr identifies one attribute of the schema. Ids are assigned by
// declaration order.
type SchemaAttr uint16

// Attribute is one declared attribute.
type Attribute struct {
	Name      string `yaml:"name" json:"name"`
	Displayed bool   `yaml:"displayed" json:"displayed"`
	Indexed   bool   `yaml:"indexed" json:"indexed"`
	Ranked    bool   `yaml:"ranked" json:"ranked"`
}

// Schema is an ordered attribute declaration list plus the identifier
// attribute holding each document's id.
type Schema struct {
	Identifier string      `yaml:"identifier" json:"identifier"`
	Attributes []Attribute `yaml:"attributes" json:"attributes"`
}

// Load reads and parses the schema file at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML schema.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) validate() error {
	if len(s.Attributes) == 0 {
		return errors.New("schema declares no attributes")
	}
	if len(s.Attributes) > 1<<16 {
		return fmt.Errorf("schema declares %d attributes, at most %d are supported", len(s.Attributes), 1<<16)
	}
	seen := make(map[string]struct{}, len(s.Attributes))
	for _, attr := range s.Attributes {
		if attr.Name == "" {
			return errors.New("schema attribute with empty name")
		}
		if _, dup := seen[attr.Name]; dup {
			return fmt.Errorf("duplicate schema attribute %q", attr.Name)
		}
		seen[attr.Name] = struct{}{}
	}
	if s.Identifier == "" {
		return errors.New("schema has no identifier attribute")
	}
	if _, ok := seen[s.Identifier]; !ok {
		return fmt.Errorf("identifier %q is not a declared attribute", s.Identifier)
	}
	return nil
}

// Attribute returns the id of the named attribute.
func (s *Schema) Attribute(name string) (SchemaAttr, bool) {
	for i, attr := range s.Attributes {
		if attr.Name == name {
			return SchemaAttr(i), true
		}
	}
	return 0, false
}

// Name returns the name of attr.
func (s *Schema) Name(attr SchemaAttr) (string, bool) {
	if int(attr) >= len(s.Attributes) {
		return "", false
	}
	return s.Attributes[attr].Name, true
}

// IndexedAttributes returns the names of the attributes to index, in order.
func (s *Schema) IndexedAttributes() []string {
	var names []string
	for _, attr := range s.Attributes {
		if attr.Indexed {
			names = append(names, attr.Name)
		}
	}
	return names
}

// DisplayedAttributes returns the names of the attributes to display, in order.
func (s *Schema) DisplayedAttributes() []string {
	var names []string
	for _, attr := range s.Attributes {
		if attr.Displayed {
			names = append(names, attr.Name)
		}
	}
	return names
}

// Equal reports whether two schemas declare the same identifier and the same
// attributes in the same order with the same flags.
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || s.Identifier != other.Identifier || len(s.Attributes) != len(other.Attributes) {
		return false
	}
	for i := range s.Attributes {
		if s.Attributes[i] != other.Attributes[i] {
			return false
		}
	}
	return true
}

// Marshal serializes the schema for persistence alongside the documents it
// describes.
func (s *Schema) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

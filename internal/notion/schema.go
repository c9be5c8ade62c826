package notion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PropertyType identifies a database property type. Types the filter
// compiler has no special handling for are folded into TypeOther.
type PropertyType string

const (
	TypeTitle       PropertyType = "title"
	TypeRichText    PropertyType = "rich_text"
	TypeNumber      PropertyType = "number"
	TypeSelect      PropertyType = "select"
	TypeMultiSelect PropertyType = "multi_select"
	TypeDate        PropertyType = "date"
	TypeCheckbox    PropertyType = "checkbox"
	TypeStatus      PropertyType = "status"
	TypeOther       PropertyType = "other"
)

// ParsePropertyType maps an API type string to a PropertyType.
func ParsePropertyType(s string) PropertyType {
	switch PropertyType(s) {
	case TypeTitle, TypeRichText, TypeNumber, TypeSelect,
		TypeMultiSelect, TypeDate, TypeCheckbox, TypeStatus:
		return PropertyType(s)
	default:
		return TypeOther
	}
}

// Property describes a single queryable database property.
type Property struct {
	Name    string
	Type    PropertyType
	Options []string // option names for select/multi_select/status, in API order
}

// Schema is an ordered property_name -> property mapping for one database.
// Order matters: case-insensitive resolution picks the first match in
// declaration order. A Schema is read-only once built.
type Schema struct {
	props []Property
	index map[string]int
}

// NewSchema builds a schema from properties in the given order.
func NewSchema(props ...Property) *Schema {
	s := &Schema{index: make(map[string]int, len(props))}
	for _, p := range props {
		s.Add(p)
	}
	return s
}

// Add appends a property, replacing any earlier property of the same name.
func (s *Schema) Add(p Property) {
	if i, ok := s.index[p.Name]; ok {
		s.props[i] = p
		return
	}
	s.index[p.Name] = len(s.props)
	s.props = append(s.props, p)
}

// Properties returns all properties in declaration order.
func (s *Schema) Properties() []Property {
	return s.props
}

// Len returns the number of properties.
func (s *Schema) Len() int {
	return len(s.props)
}

// Get looks up a property by exact name.
func (s *Schema) Get(name string) (Property, bool) {
	i, ok := s.index[name]
	if !ok {
		return Property{}, false
	}
	return s.props[i], true
}

// Resolve looks up a property by exact name first, then by the first
// case-insensitive match in declaration order.
func (s *Schema) Resolve(name string) (Property, bool) {
	if p, ok := s.Get(name); ok {
		return p, true
	}
	for _, p := range s.props {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Property{}, false
}

// rawProperty is the wire shape of one entry in a database's "properties"
// object, reduced to what the schema needs.
type rawProperty struct {
	Type        string         `json:"type"`
	Select      *rawOptionList `json:"select"`
	MultiSelect *rawOptionList `json:"multi_select"`
	Status      *rawOptionList `json:"status"`
}

type rawOptionList struct {
	Options []struct {
		Name string `json:"name"`
	} `json:"options"`
}

// ParseSchema decodes a database's "properties" JSON object into a Schema.
// encoding/json maps do not preserve member order, so the object is walked
// with a token decoder to keep the API's declaration order.
func ParseSchema(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("properties: expected object, got %v", tok)
	}

	schema := NewSchema()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode properties: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("properties: expected member name, got %v", keyTok)
		}

		var raw rawProperty
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode property %q: %w", name, err)
		}

		schema.Add(Property{
			Name:    name,
			Type:    ParsePropertyType(raw.Type),
			Options: raw.optionNames(),
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	return schema, nil
}

func (r rawProperty) optionNames() []string {
	var list *rawOptionList
	switch {
	case r.Select != nil:
		list = r.Select
	case r.MultiSelect != nil:
		list = r.MultiSelect
	case r.Status != nil:
		list = r.Status
	default:
		return nil
	}

	names := make([]string, 0, len(list.Options))
	for _, opt := range list.Options {
		names = append(names, opt.Name)
	}
	return names
}

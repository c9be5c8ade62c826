package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vertexcover-io/notion-cli/internal/notion"
)

// UnknownPropertyError reports a condition column that matched no schema
// property, neither exactly nor case-insensitively.
type UnknownPropertyError struct {
	Name string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("property %q not found", e.Name)
}

// UnsupportedOperatorError reports an operator that has no meaning for the
// resolved property type.
type UnsupportedOperatorError struct {
	Type     notion.PropertyType
	Operator Operator
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %q not supported for %s properties", e.Operator, e.Type)
}

// InvalidValueError reports a condition value that cannot be converted for
// the resolved property type.
type InvalidValueError struct {
	Reason string
}

func (e *InvalidValueError) Error() string {
	return e.Reason
}

// dateFormats are tried in order when normalizing date values. Values that
// match none of them pass through unchanged so relative terms like "today"
// reach the backend as written.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Converter compiles parsed filter nodes into the API filter tree using a
// database's property schema. Safe for concurrent use.
type Converter struct {
	schema *notion.Schema
}

// NewConverter creates a converter for the given schema.
func NewConverter(schema *notion.Schema) *Converter {
	return &Converter{schema: schema}
}

// Convert compiles node into a notion.Filter. A nil node yields a nil
// filter. The first type or resolution error aborts the conversion.
func (c *Converter) Convert(node Node) (notion.Filter, error) {
	switch n := node.(type) {
	case nil:
		return nil, nil
	case *Condition:
		return c.convertCondition(n)
	case *Group:
		return c.convertGroup(n)
	default:
		return nil, fmt.Errorf("unknown filter node type %T", node)
	}
}

func (c *Converter) convertGroup(g *Group) (notion.Filter, error) {
	children := make([]notion.Filter, 0, len(g.Children))
	for _, child := range g.Children {
		converted, err := c.Convert(child)
		if err != nil {
			return nil, err
		}
		children = append(children, converted)
	}

	switch g.Operator {
	case LogicAnd:
		return notion.And(children...), nil
	case LogicOr:
		return notion.Or(children...), nil
	case LogicNot:
		inner := notion.Or(children...)
		if len(children) == 1 {
			inner = children[0]
		}
		return negate(inner), nil
	default:
		return nil, fmt.Errorf("unknown logical operator: %s", g.Operator)
	}
}

// negate applies De Morgan's laws to push a NOT through composite nodes:
// NOT(and) becomes or-of-negations and NOT(or) becomes and-of-negations.
// Atomic leaf conditions are returned unchanged; inverting a leaf would
// need a per-operator inverse table that is intentionally not implemented.
func negate(f notion.Filter) notion.Filter {
	if children, ok := f.Conjunction(); ok {
		inverted := make([]notion.Filter, len(children))
		for i, child := range children {
			inverted[i] = negate(child)
		}
		return notion.Or(inverted...)
	}
	if children, ok := f.Disjunction(); ok {
		inverted := make([]notion.Filter, len(children))
		for i, child := range children {
			inverted[i] = negate(child)
		}
		return notion.And(inverted...)
	}
	return f
}

func (c *Converter) convertCondition(cond *Condition) (notion.Filter, error) {
	prop, ok := c.schema.Resolve(cond.Column)
	if !ok {
		return nil, &UnknownPropertyError{Name: cond.Column}
	}

	switch prop.Type {
	case notion.TypeTitle:
		return textCondition(prop, "title", cond.Operator, cond.Value)
	case notion.TypeRichText, notion.TypeOther:
		return textCondition(prop, "rich_text", cond.Operator, cond.Value)
	case notion.TypeNumber:
		return numberCondition(prop, cond.Operator, cond.Value)
	case notion.TypeSelect:
		return optionCondition(prop, "select", cond.Operator, cond.Value)
	case notion.TypeStatus:
		return optionCondition(prop, "status", cond.Operator, cond.Value)
	case notion.TypeMultiSelect:
		return multiSelectCondition(prop, cond.Operator, cond.Value)
	case notion.TypeDate:
		return dateCondition(prop, cond.Operator, cond.Value)
	case notion.TypeCheckbox:
		return checkboxCondition(prop, cond.Operator, cond.Value)
	default:
		return nil, fmt.Errorf("unknown property type: %s", prop.Type)
	}
}

// leaf builds the single-condition filter form.
func leaf(property, typeKey, predicate string, value any) notion.Filter {
	return notion.Filter{
		"property": property,
		typeKey:    notion.Filter{predicate: value},
	}
}

func textCondition(prop notion.Property, typeKey string, op Operator, value string) (notion.Filter, error) {
	switch op {
	case OpEq:
		return leaf(prop.Name, typeKey, "equals", value), nil
	case OpNotEq:
		return leaf(prop.Name, typeKey, "does_not_equal", value), nil
	case OpContains, OpIn:
		return leaf(prop.Name, typeKey, "contains", value), nil
	case OpNotContains, OpNotIn:
		return leaf(prop.Name, typeKey, "does_not_contain", value), nil
	default:
		return nil, &UnsupportedOperatorError{Type: prop.Type, Operator: op}
	}
}

func numberCondition(prop notion.Property, op Operator, value string) (notion.Filter, error) {
	num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, &InvalidValueError{Reason: fmt.Sprintf("invalid number value: %s", value)}
	}

	switch op {
	case OpEq:
		return leaf(prop.Name, "number", "equals", num), nil
	case OpNotEq:
		return leaf(prop.Name, "number", "does_not_equal", num), nil
	case OpGt:
		return leaf(prop.Name, "number", "greater_than", num), nil
	case OpLt:
		return leaf(prop.Name, "number", "less_than", num), nil
	case OpGte:
		return leaf(prop.Name, "number", "greater_than_or_equal_to", num), nil
	case OpLte:
		return leaf(prop.Name, "number", "less_than_or_equal_to", num), nil
	default:
		return nil, &UnsupportedOperatorError{Type: prop.Type, Operator: op}
	}
}

// optionCondition covers select and status properties, whose values are a
// single option name: "contains" degrades to equality, and the in/not in
// operators expand comma-separated operands into or/and combinations.
func optionCondition(prop notion.Property, typeKey string, op Operator, value string) (notion.Filter, error) {
	switch op {
	case OpEq, OpContains:
		return leaf(prop.Name, typeKey, "equals", value), nil
	case OpNotEq:
		return leaf(prop.Name, typeKey, "does_not_equal", value), nil
	case OpIn:
		return expandValues(prop.Name, typeKey, "equals", value, notion.Or), nil
	case OpNotIn:
		return expandValues(prop.Name, typeKey, "does_not_equal", value, notion.And), nil
	default:
		return nil, &UnsupportedOperatorError{Type: prop.Type, Operator: op}
	}
}

func multiSelectCondition(prop notion.Property, op Operator, value string) (notion.Filter, error) {
	switch op {
	case OpEq, OpContains:
		return leaf(prop.Name, "multi_select", "contains", value), nil
	case OpNotEq, OpNotContains:
		return leaf(prop.Name, "multi_select", "does_not_contain", value), nil
	case OpIn:
		return expandValues(prop.Name, "multi_select", "contains", value, notion.Or), nil
	case OpNotIn:
		return expandValues(prop.Name, "multi_select", "does_not_contain", value, notion.And), nil
	default:
		return nil, &UnsupportedOperatorError{Type: prop.Type, Operator: op}
	}
}

func dateCondition(prop notion.Property, op Operator, value string) (notion.Filter, error) {
	date := normalizeDate(value)

	switch op {
	case OpEq:
		return leaf(prop.Name, "date", "equals", date), nil
	case OpNotEq:
		return leaf(prop.Name, "date", "does_not_equal", date), nil
	case OpGt:
		return leaf(prop.Name, "date", "after", date), nil
	case OpLt:
		return leaf(prop.Name, "date", "before", date), nil
	case OpGte:
		return leaf(prop.Name, "date", "on_or_after", date), nil
	case OpLte:
		return leaf(prop.Name, "date", "on_or_before", date), nil
	default:
		return nil, &UnsupportedOperatorError{Type: prop.Type, Operator: op}
	}
}

func checkboxCondition(prop notion.Property, op Operator, value string) (notion.Filter, error) {
	checked := notion.Truthy(value)

	switch op {
	case OpEq:
		return leaf(prop.Name, "checkbox", "equals", checked), nil
	case OpNotEq:
		return leaf(prop.Name, "checkbox", "does_not_equal", checked), nil
	default:
		return nil, &UnsupportedOperatorError{Type: prop.Type, Operator: op}
	}
}

// expandValues splits a comma-separated operand and combines the per-value
// leaves. A single value collapses to the plain leaf form.
func expandValues(property, typeKey, predicate, value string, combine func(...notion.Filter) notion.Filter) notion.Filter {
	values := splitValues(value)
	if len(values) == 1 {
		return leaf(property, typeKey, predicate, values[0])
	}

	leaves := make([]notion.Filter, len(values))
	for i, v := range values {
		leaves[i] = leaf(property, typeKey, predicate, v)
	}
	return combine(leaves...)
}

// splitValues splits on commas, trimming whitespace and surrounding quote
// characters from each value.
func splitValues(value string) []string {
	parts := strings.Split(value, ",")
	values := make([]string, len(parts))
	for i, p := range parts {
		values[i] = strings.Trim(strings.TrimSpace(p), "'\"")
	}
	return values
}

// normalizeDate re-emits a recognized date as YYYY-MM-DD. Unrecognized
// values pass through unchanged.
func normalizeDate(value string) string {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}

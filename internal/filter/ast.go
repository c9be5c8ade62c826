package filter

import (
	"strings"
)

// Operator is a comparison operator in a filter expression.
type Operator string

const (
	OpEq          Operator = "="
	OpNotEq       Operator = "!="
	OpContains    Operator = "~"
	OpNotContains Operator = "!~"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not in"
	OpGt          Operator = ">"
	OpLt          Operator = "<"
	OpGte         Operator = ">="
	OpLte         Operator = "<="
)

// LogicalOp combines conditions in a group.
type LogicalOp string

const (
	LogicAnd LogicalOp = "AND"
	LogicOr  LogicalOp = "OR"
	LogicNot LogicalOp = "NOT"
)

// Node is a parsed filter expression: either a single *Condition or a
// *Group of nodes. Nodes are immutable once parsed.
type Node interface {
	// String renders the node as a filter expression that parses back to
	// a structurally equal node.
	String() string

	node()
}

// Condition is a single column/operator/value test. Column and Value are the
// raw text as written; the schema converter resolves and types them later.
type Condition struct {
	Column   string
	Operator Operator
	Value    string
}

func (c *Condition) node() {}

func (c *Condition) String() string {
	return quoteColumn(c.Column) + " " + string(c.Operator) + " " + quoteValue(c.Value)
}

// Group is a logical combination of child nodes. A NOT group negates the
// disjunction of its children.
type Group struct {
	Operator LogicalOp
	Children []Node
}

func (g *Group) node() {}

func (g *Group) String() string {
	parts := make([]string, len(g.Children))
	for i, child := range g.Children {
		parts[i] = child.String()
	}
	return string(g.Operator) + "(" + strings.Join(parts, ", ") + ")"
}

func isBareword(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

func quoteColumn(s string) string {
	if isBareword(s) {
		return s
	}
	return quote(s)
}

func quoteValue(s string) string {
	if s == "" || strings.ContainsAny(s, ",()'\"") ||
		strings.TrimSpace(s) != s {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors. All are deterministic functions of the input text.
var (
	ErrEmptyColumn       = errors.New("empty column name")
	ErrEmptyValue        = errors.New("empty value")
	ErrUnterminatedQuote = errors.New("unterminated quoted string")
	ErrMalformedFunction = errors.New("malformed function call")
	ErrUnexpectedEnd     = errors.New("unexpected end of expression")
	ErrTooDeep           = errors.New("expression nested too deeply")
)

// maxDepth bounds logical function nesting. Filter expressions are untrusted
// input and the parser and converter both recurse over them.
const maxDepth = 32

// operators in longest-match-first order, so that "not in" wins over "in"
// and the two-character symbols win over their one-character prefixes.
var operators = []Operator{
	OpNotIn, OpGte, OpLte, OpNotEq, OpNotContains,
	OpIn, OpEq, OpContains, OpGt, OpLt,
}

// logicalOps are the recognized function names, matched case-insensitively.
var logicalOps = map[string]LogicalOp{
	"AND": LogicAnd,
	"OR":  LogicOr,
	"NOT": LogicNot,
}

// Parse parses a filter expression into a Node. Blank input yields a nil
// node and no error. Multiple top-level comma-separated conditions are
// normalized into a single AND group.
func Parse(text string) (Node, error) {
	c := &cursor{text: strings.TrimSpace(text)}
	if c.text == "" {
		return nil, nil
	}
	return c.parseExpression()
}

// cursor is per-call parser state; a fresh one is allocated for every Parse.
type cursor struct {
	text string
	pos  int
}

func (c *cursor) parseExpression() (Node, error) {
	var nodes []Node

	for c.pos < len(c.text) {
		c.skipWhitespace()
		if c.pos >= len(c.text) {
			break
		}

		var (
			node Node
			err  error
		)
		if c.peekFunction() {
			node, err = c.parseFunction(0)
		} else {
			node, err = c.parseCondition()
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)

		c.skipWhitespace()
		if c.pos < len(c.text) && c.text[c.pos] == ',' {
			c.pos++
			continue
		}
		break
	}

	if len(nodes) > 1 {
		return &Group{Operator: LogicAnd, Children: nodes}, nil
	}
	return nodes[0], nil
}

func (c *cursor) parseFunction(depth int) (Node, error) {
	if depth >= maxDepth {
		return nil, ErrTooDeep
	}

	name := c.readFunctionName()
	op := logicalOps[strings.ToUpper(name)]

	c.skipWhitespace()
	if c.pos >= len(c.text) || c.text[c.pos] != '(' {
		return nil, fmt.Errorf("%w: expected '(' after %s", ErrMalformedFunction, name)
	}
	c.pos++

	var children []Node
	for c.pos < len(c.text) {
		c.skipWhitespace()
		if c.pos >= len(c.text) {
			return nil, ErrUnexpectedEnd
		}
		if c.text[c.pos] == ')' {
			c.pos++
			return &Group{Operator: op, Children: children}, nil
		}

		var (
			child Node
			err   error
		)
		if c.peekFunction() {
			child, err = c.parseFunction(depth + 1)
		} else {
			child, err = c.parseCondition()
		}
		if err != nil {
			return nil, err
		}
		children = append(children, child)

		c.skipWhitespace()
		switch {
		case c.pos < len(c.text) && c.text[c.pos] == ',':
			c.pos++
		case c.pos < len(c.text) && c.text[c.pos] == ')':
			c.pos++
			return &Group{Operator: op, Children: children}, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or ')' in %s", ErrMalformedFunction, name)
		}
	}

	return nil, ErrUnexpectedEnd
}

func (c *cursor) parseCondition() (Node, error) {
	column, err := c.readColumn()
	if err != nil {
		return nil, err
	}

	c.skipWhitespace()
	op, ok := c.readOperator()
	if !ok {
		op = OpEq
	}

	c.skipWhitespace()
	value, err := c.readValue()
	if err != nil {
		return nil, err
	}

	return &Condition{Column: column, Operator: op, Value: value}, nil
}

func (c *cursor) readColumn() (string, error) {
	if c.pos < len(c.text) && isQuote(c.text[c.pos]) {
		return c.readQuotedString()
	}

	start := c.pos
	for c.pos < len(c.text) {
		if _, _, ok := c.operatorAt(c.pos); ok {
			break
		}
		if ch := c.text[c.pos]; ch == ',' || ch == '(' || ch == ')' {
			break
		}
		c.pos++
	}

	column := strings.TrimSpace(c.text[start:c.pos])
	if column == "" {
		return "", ErrEmptyColumn
	}
	return column, nil
}

func (c *cursor) readOperator() (Operator, bool) {
	op, length, ok := c.operatorAt(c.pos)
	if !ok {
		return "", false
	}
	c.pos += length
	return op, true
}

// operatorAt reports the operator starting at pos, if any. A match counts
// only when followed by whitespace, a quote, or end of input; the symbolic
// operators additionally accept any following character, while the word
// operators must not continue into an identifier (a column named "admin"
// does not contain the operator "in").
func (c *cursor) operatorAt(pos int) (Operator, int, bool) {
	rest := c.text[pos:]
	for _, op := range operators {
		if !strings.HasPrefix(rest, string(op)) {
			continue
		}
		end := pos + len(op)
		if end >= len(c.text) {
			return op, len(op), true
		}
		next := c.text[end]
		if next == ' ' || next == '\t' || isQuote(next) {
			return op, len(op), true
		}
		if op != OpIn && op != OpNotIn {
			return op, len(op), true
		}
	}
	return "", 0, false
}

func (c *cursor) readValue() (string, error) {
	c.skipWhitespace()
	if c.pos >= len(c.text) {
		return "", fmt.Errorf("%w: expected value", ErrUnexpectedEnd)
	}

	if isQuote(c.text[c.pos]) {
		return c.readQuotedString()
	}

	// Bare values may contain balanced parentheses; an unbalanced ')' or a
	// comma at depth zero ends the value.
	start := c.pos
	parenDepth := 0
	for c.pos < len(c.text) {
		switch c.text[c.pos] {
		case '(':
			parenDepth++
		case ')':
			if parenDepth == 0 {
				goto done
			}
			parenDepth--
		case ',':
			if parenDepth == 0 {
				goto done
			}
		}
		c.pos++
	}
done:

	value := strings.TrimSpace(c.text[start:c.pos])
	if value == "" {
		return "", ErrEmptyValue
	}
	return value, nil
}

// readQuotedString reads a single- or double-quoted string. A backslash
// keeps the following character from terminating the string; the escape
// sequence itself is preserved in the value.
func (c *cursor) readQuotedString() (string, error) {
	quoteChar := c.text[c.pos]
	c.pos++

	start := c.pos
	for c.pos < len(c.text) {
		switch {
		case c.text[c.pos] == quoteChar:
			value := c.text[start:c.pos]
			c.pos++
			return value, nil
		case c.text[c.pos] == '\\' && c.pos+1 < len(c.text):
			c.pos += 2
		default:
			c.pos++
		}
	}
	return "", ErrUnterminatedQuote
}

func (c *cursor) readFunctionName() string {
	start := c.pos
	for c.pos < len(c.text) {
		ch := c.text[c.pos]
		if !isIdentChar(ch) {
			break
		}
		c.pos++
	}
	return c.text[start:c.pos]
}

// peekFunction reports whether a logical function call starts at the current
// position, without consuming input.
func (c *cursor) peekFunction() bool {
	saved := c.pos
	defer func() { c.pos = saved }()

	name := c.readFunctionName()
	c.skipWhitespace()

	_, known := logicalOps[strings.ToUpper(name)]
	return known && c.pos < len(c.text) && c.text[c.pos] == '('
}

func (c *cursor) skipWhitespace() {
	for c.pos < len(c.text) && (c.text[c.pos] == ' ' || c.text[c.pos] == '\t') {
		c.pos++
	}
}

func isQuote(ch byte) bool {
	return ch == '\'' || ch == '"'
}

func isIdentChar(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z')
}

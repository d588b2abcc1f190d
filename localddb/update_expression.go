package localddb

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// The update expression support covers the SET clause with value
// placeholders, document paths and if_not_exists operands. REMOVE, ADD,
// DELETE, arithmetic and list_append are rejected.

type updateExpression struct {
	actions []setAction
}

type setAction struct {
	path    []string
	operand operand
}

type operandKind int

const (
	operandValue operandKind = iota
	operandPath
	operandIfNotExists
)

type operand struct {
	kind     operandKind
	token    string
	path     []string
	fallback *operand
}

func parseUpdateExpression(raw string, names map[string]string) (*updateExpression, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 4 || !strings.EqualFold(trimmed[:4], "set ") {
		return nil, validationError("update expression must be a single SET clause, got %q", raw)
	}

	var expr updateExpression
	for _, assignment := range splitTopLevel(trimmed[4:], ',') {
		lhs, rhs, found := strings.Cut(assignment, "=")
		if !found {
			return nil, validationError("invalid SET action %q", strings.TrimSpace(assignment))
		}
		path, err := splitPath(strings.TrimSpace(lhs), names)
		if err != nil {
			return nil, err
		}
		op, err := parseOperand(rhs, names)
		if err != nil {
			return nil, err
		}
		expr.actions = append(expr.actions, setAction{path: path, operand: op})
	}
	if len(expr.actions) == 0 {
		return nil, validationError("update expression has no SET actions")
	}
	return &expr, nil
}

func parseOperand(raw string, names map[string]string) (operand, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return operand{}, validationError("empty operand in update expression")
	}
	if strings.HasPrefix(raw, ":") {
		return operand{kind: operandValue, token: raw}, nil
	}
	if n := len("if_not_exists("); len(raw) > n && strings.EqualFold(raw[:n], "if_not_exists(") && strings.HasSuffix(raw, ")") {
		args := splitTopLevel(raw[n:len(raw)-1], ',')
		if len(args) != 2 {
			return operand{}, validationError("if_not_exists takes a path and a value, got %q", raw)
		}
		path, err := splitPath(strings.TrimSpace(args[0]), names)
		if err != nil {
			return operand{}, err
		}
		fallback, err := parseOperand(args[1], names)
		if err != nil {
			return operand{}, err
		}
		return operand{kind: operandIfNotExists, path: path, fallback: &fallback}, nil
	}
	path, err := splitPath(raw, names)
	if err != nil {
		return operand{}, err
	}
	return operand{kind: operandPath, path: path}, nil
}

// apply runs the assignments against item, mutating and returning it. All
// operands resolve against the pre-update image before anything is written,
// so no assignment observes another one from the same expression. Callers
// pass a private copy.
func (u *updateExpression) apply(item map[string]types.AttributeValue, values map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	resolved := make([]types.AttributeValue, len(u.actions))
	for i, a := range u.actions {
		v, err := a.operand.eval(item, values)
		if err != nil {
			return nil, err
		}
		resolved[i] = v
	}
	for i, a := range u.actions {
		if err := setAttr(item, a.path, resolved[i]); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (o operand) eval(item map[string]types.AttributeValue, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	switch o.kind {
	case operandValue:
		v, ok := values[o.token]
		if !ok {
			return nil, validationError("An expression attribute value used in expression is not defined; attribute value: %s", o.token)
		}
		return v, nil
	case operandPath:
		v := getAttr(item, o.path)
		if v == nil {
			return nil, validationError("The provided expression refers to an attribute that does not exist in the item")
		}
		return v, nil
	default:
		if v := getAttr(item, o.path); v != nil {
			return v, nil
		}
		return o.fallback.eval(item, values)
	}
}

// splitTopLevel splits on sep, ignoring separators nested inside
// parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

package expr

import (
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MissingValueError reports a condition expression referencing a value
// token the caller never supplied.
type MissingValueError struct {
	Token      string
	Expression string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("condition references %s but no value was supplied for it (expression %q)", e.Token, e.Expression)
}

// Condition is a caller-supplied boolean expression together with the
// placeholder maps it references. Values holds only the subset of the
// caller's mapping the expression actually uses.
type Condition struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

const (
	namePathPattern   = `#[A-Za-z0-9_]+(?:\.#[A-Za-z0-9_]+)*`
	valueTokenPattern = `:[A-Za-z0-9_]+`
	comparatorPattern = `(?:<>|<=|>=|=|<|>)`
)

var (
	reComparison = regexp.MustCompile(`(` + namePathPattern + `)\s*` + comparatorPattern + `\s*(` + valueTokenPattern + `)`)
	reSize       = regexp.MustCompile(`size\s*\(\s*(` + namePathPattern + `)\s*\)\s*` + comparatorPattern + `\s*(` + valueTokenPattern + `)`)
	reCall       = regexp.MustCompile(`(?:begins_with|attribute_exists|attribute_not_exists|attribute_type|contains)\s*\(\s*(` + namePathPattern + `)(?:\s*,\s*(` + valueTokenPattern + `))?\s*\)`)
	reNameToken  = regexp.MustCompile(`#[A-Za-z0-9_]+`)
)

// ParseCondition extracts the attribute-name and attribute-value
// placeholders referenced by a raw condition expression. Supported forms
// are binary comparisons between a (possibly dotted) attribute chain and a
// value token, size() comparisons, and the begins_with, attribute_exists,
// attribute_not_exists, attribute_type and contains calls. Each dotted
// chain is decomposed into its segments and every segment or token is
// registered once no matter how often it appears. Referencing a token
// absent from values fails with *MissingValueError.
func ParseCondition(raw string, values map[string]types.AttributeValue) (Condition, error) {
	if raw == "" {
		return Condition{}, nil
	}
	cond := Condition{
		Expression: raw,
		Names:      make(map[string]string),
		Values:     make(map[string]types.AttributeValue),
	}

	for _, re := range []*regexp.Regexp{reComparison, reSize, reCall} {
		for _, match := range re.FindAllStringSubmatch(raw, -1) {
			cond.registerNamePath(match[1])
			if match[2] == "" {
				continue
			}
			if err := cond.registerValue(match[2], values); err != nil {
				return Condition{}, err
			}
		}
	}
	return cond, nil
}

func (c *Condition) registerNamePath(chain string) {
	for _, token := range reNameToken.FindAllString(chain, -1) {
		c.Names[token] = token[1:]
	}
}

func (c *Condition) registerValue(token string, supplied map[string]types.AttributeValue) error {
	v, ok := supplied[token]
	if !ok {
		return &MissingValueError{Token: token, Expression: c.Expression}
	}
	c.Values[token] = v
	return nil
}

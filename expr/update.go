// Package expr compiles nested records into DynamoDB SET-only update
// expressions and extracts the placeholders referenced by caller-supplied
// condition expressions.
package expr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/asayed18/tynamo/document"
)

// ErrNoAssignments is returned when a compilation selects no leaves at all:
// an empty SET clause is invalid on the wire, so the caller has to guard
// against constructing a no-op write.
var ErrNoAssignments = errors.New("update expression has no assignments")

// Compiled is one update expression with its placeholder maps. Every #name
// used in Update has an entry in Names and every :value placeholder has an
// entry in Values; value placeholders are numbered :value0, :value1, ... in
// traversal order across the whole compilation.
type Compiled struct {
	Update string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// CompileUpdate walks the record depth-first and emits one SET assignment
// per qualifying leaf. Identity attributes never produce assignments and
// are not descended into. Null leaves are no-op signals and are skipped.
// Leaves on insert-only paths compile to if_not_exists so a present value
// survives. Sibling keys are visited in sorted order, making the output
// deterministic for a given record and policy.
func CompileUpdate(doc document.Document, identityNames []string, policy Policy) (Compiled, error) {
	st := &compiler{
		names:    make(map[string]string),
		literals: make(map[string]string),
		values:   make(map[string]types.AttributeValue),
	}
	identity := make(map[string]struct{}, len(identityNames))
	for _, name := range identityNames {
		identity[name] = struct{}{}
	}

	st.walk(doc, "", identity, policy)

	if len(st.assignments) == 0 {
		return Compiled{}, ErrNoAssignments
	}
	return Compiled{
		Update: "SET " + strings.Join(st.assignments, ", "),
		Names:  st.names,
		Values: st.values,
	}, nil
}

type compiler struct {
	assignments []string
	names       map[string]string // placeholder -> literal segment
	literals    map[string]string // literal segment -> placeholder
	values      map[string]types.AttributeValue
	counter     int
}

func (c *compiler) walk(doc document.Document, prefix document.Path, identity map[string]struct{}, policy Policy) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		if prefix == "" {
			if _, isIdentity := identity[name]; isIdentity {
				continue
			}
		}
		path := prefix.Child(name)
		v := doc[name]

		if child, ok := v.MapValue(); ok {
			// inclusion is evaluated per leaf, so always descend
			c.walk(child, path, identity, policy)
			continue
		}
		if v.IsNull() || !policy.Allows(path) {
			continue
		}

		namePath := c.registerNamePath(path)
		valuePh := fmt.Sprintf(":value%d", c.counter)
		c.counter++
		c.values[valuePh] = v.AttributeValue()

		if policy.IsInsertOnly(path) {
			c.assignments = append(c.assignments, fmt.Sprintf("%s = if_not_exists(%s, %s)", namePath, namePath, valuePh))
		} else {
			c.assignments = append(c.assignments, fmt.Sprintf("%s = %s", namePath, valuePh))
		}
	}
}

// registerNamePath registers each segment of the path and returns the
// dot-joined chain of #-prefixed placeholders.
func (c *compiler) registerNamePath(path document.Path) string {
	segments := path.Segments()
	placeholders := make([]string, len(segments))
	for i, seg := range segments {
		placeholders[i] = c.registerName(seg)
	}
	return strings.Join(placeholders, ".")
}

func (c *compiler) registerName(segment string) string {
	if ph, ok := c.literals[segment]; ok {
		return ph
	}
	ph := RegisterName(c.names, segment)
	c.literals[segment] = ph
	return ph
}

// RegisterName returns the #placeholder bound to literal in names, adding a
// binding when none exists yet. Reusing an existing binding keeps the
// placeholder set minimal when several clauses reference the same attribute.
func RegisterName(names map[string]string, literal string) string {
	for ph, l := range names {
		if l == literal {
			return ph
		}
	}
	base := "#" + sanitizeSegment(literal)
	ph := base
	// distinct literals can sanitize to the same placeholder; probe a
	// numeric suffix until free
	for n := 2; ; n++ {
		if _, taken := names[ph]; !taken {
			break
		}
		ph = fmt.Sprintf("%s_%d", base, n)
	}
	names[ph] = literal
	return ph
}

func sanitizeSegment(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

package localddb

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// evalCondition evaluates a condition expression against an item. A nil
// item stands for an absent record: existence checks and comparisons see no
// attributes. Supported grammar: AND/OR/NOT, parentheses, the six
// comparators, size(), begins_with, contains, attribute_type and the
// attribute existence checks. BETWEEN and IN are not supported.
func evalCondition(expr string, names map[string]string, values, item map[string]types.AttributeValue) (bool, error) {
	p := &condParser{input: expr, names: names, values: values, item: item}
	result, err := p.parseOr()
	if err != nil {
		return false, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return false, validationError("unexpected token near %q in condition expression", p.input[p.pos:])
	}
	return result, nil
}

type condParser struct {
	input  string
	pos    int
	names  map[string]string
	values map[string]types.AttributeValue
	item   map[string]types.AttributeValue
}

func (p *condParser) parseOr() (bool, error) {
	result, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.consumeKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		result = result || right
	}
	return result, nil
}

func (p *condParser) parseAnd() (bool, error) {
	result, err := p.parseUnary()
	if err != nil {
		return false, err
	}
	for p.consumeKeyword("AND") {
		right, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		result = result && right
	}
	return result, nil
}

func (p *condParser) parseUnary() (bool, error) {
	if p.consumeKeyword("NOT") {
		v, err := p.parseUnary()
		return !v, err
	}
	return p.parsePrimary()
}

func (p *condParser) parsePrimary() (bool, error) {
	p.skipSpace()
	if p.consumeByte('(') {
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if err := p.expectByte(')'); err != nil {
			return false, err
		}
		return v, nil
	}

	if fn, ok := p.peekBoolFunction(); ok {
		return p.parseBoolFunction(fn)
	}

	left, err := p.parseValueOperand()
	if err != nil {
		return false, err
	}
	if p.consumeKeyword("BETWEEN") || p.consumeKeyword("IN") {
		return false, validationError("BETWEEN and IN are not supported in condition expressions")
	}
	op, err := p.parseComparator()
	if err != nil {
		return false, err
	}
	right, err := p.parseValueOperand()
	if err != nil {
		return false, err
	}
	return compareAttributeValues(left, right, op)
}

var boolFunctions = []string{
	"attribute_not_exists", "attribute_exists", "attribute_type", "begins_with", "contains",
}

// peekBoolFunction reports whether a boolean function call starts at the
// cursor, without consuming anything. Whitespace may separate the name from
// its parenthesis; the SDK expression builder emits calls that way.
func (p *condParser) peekBoolFunction() (string, bool) {
	p.skipSpace()
	rest := p.input[p.pos:]
	for _, fn := range boolFunctions {
		if len(rest) > len(fn) && strings.EqualFold(rest[:len(fn)], fn) && nextNonSpaceIs(rest[len(fn):], '(') {
			return fn, true
		}
	}
	return "", false
}

// nextNonSpaceIs reports whether the first non-whitespace byte of s is c.
func nextNonSpaceIs(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n':
			continue
		}
		return s[i] == c
	}
	return false
}

func (p *condParser) parseBoolFunction(fn string) (bool, error) {
	p.pos += len(fn)
	if err := p.expectByte('('); err != nil {
		return false, err
	}
	path, err := p.parsePathArg()
	if err != nil {
		return false, err
	}
	target := getAttr(p.item, path)

	switch fn {
	case "attribute_exists":
		return target != nil, p.expectByte(')')
	case "attribute_not_exists":
		return target == nil, p.expectByte(')')
	}

	if err := p.expectByte(','); err != nil {
		return false, err
	}
	arg, err := p.parseValueOperand()
	if err != nil {
		return false, err
	}
	if err := p.expectByte(')'); err != nil {
		return false, err
	}
	if target == nil || arg == nil {
		return false, nil
	}

	switch fn {
	case "begins_with":
		return beginsWith(target, arg), nil
	case "contains":
		return containsValue(target, arg), nil
	default:
		s, ok := arg.(*types.AttributeValueMemberS)
		if !ok {
			return false, validationError("attribute_type requires a string type name")
		}
		return typeTag(target) == s.Value, nil
	}
}

// parseValueOperand resolves :tokens, size() calls and document paths to an
// attribute value. A missing document path yields nil, which makes any
// comparison on it false.
func (p *condParser) parseValueOperand() (types.AttributeValue, error) {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == ':' {
		tok := p.readToken()
		v, ok := p.values[tok]
		if !ok {
			return nil, validationError("An expression attribute value used in expression is not defined; attribute value: %s", tok)
		}
		return v, nil
	}
	if rest := p.input[p.pos:]; len(rest) > 4 && strings.EqualFold(rest[:4], "size") && nextNonSpaceIs(rest[4:], '(') {
		p.pos += len("size")
		if err := p.expectByte('('); err != nil {
			return nil, err
		}
		path, err := p.parsePathArg()
		if err != nil {
			return nil, err
		}
		if err := p.expectByte(')'); err != nil {
			return nil, err
		}
		return sizeOf(getAttr(p.item, path)), nil
	}
	path, err := p.parsePathArg()
	if err != nil {
		return nil, err
	}
	return getAttr(p.item, path), nil
}

func (p *condParser) parsePathArg() ([]string, error) {
	tok := p.readToken()
	if tok == "" {
		return nil, validationError("expected a document path in condition expression at offset %d", p.pos)
	}
	return splitPath(tok, p.names)
}

func (p *condParser) parseComparator() (string, error) {
	p.skipSpace()
	for _, op := range []string{"<>", "<=", ">=", "=", "<", ">"} {
		if strings.HasPrefix(p.input[p.pos:], op) {
			p.pos += len(op)
			return op, nil
		}
	}
	return "", validationError("expected a comparator in condition expression at offset %d", p.pos)
}

func (p *condParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n') {
		p.pos++
	}
}

func (p *condParser) consumeByte(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *condParser) expectByte(c byte) error {
	if !p.consumeByte(c) {
		return validationError("expected %q in condition expression at offset %d", string(c), p.pos)
	}
	return nil
}

// consumeKeyword consumes kw case-insensitively when it ends on a word
// boundary, so a path like NOTES never reads as NOT.
func (p *condParser) consumeKeyword(kw string) bool {
	p.skipSpace()
	end := p.pos + len(kw)
	if end > len(p.input) || !strings.EqualFold(p.input[p.pos:end], kw) {
		return false
	}
	if end < len(p.input) && isTokenByte(p.input[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *condParser) readToken() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && (isTokenByte(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	return p.input[start:p.pos]
}

func isTokenByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '#', c == ':':
		return true
	}
	return false
}

func compareAttributeValues(l, r types.AttributeValue, op string) (bool, error) {
	if l == nil || r == nil {
		return false, nil
	}
	switch op {
	case "=":
		return attributeValuesDeepEqual(l, r), nil
	case "<>":
		return !attributeValuesDeepEqual(l, r), nil
	}
	switch lv := l.(type) {
	case *types.AttributeValueMemberS:
		rv, ok := r.(*types.AttributeValueMemberS)
		if !ok {
			return false, nil
		}
		return orderingHolds(strings.Compare(lv.Value, rv.Value), op), nil
	case *types.AttributeValueMemberN:
		rv, ok := r.(*types.AttributeValueMemberN)
		if !ok {
			return false, nil
		}
		cmp, err := compareNumbers(lv.Value, rv.Value)
		if err != nil {
			return false, err
		}
		return orderingHolds(cmp, op), nil
	case *types.AttributeValueMemberB:
		rv, ok := r.(*types.AttributeValueMemberB)
		if !ok {
			return false, nil
		}
		return orderingHolds(bytes.Compare(lv.Value, rv.Value), op), nil
	}
	return false, nil
}

func orderingHolds(cmp int, op string) bool {
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	default:
		return cmp >= 0
	}
}

func compareNumbers(a, b string) (int, error) {
	fa, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, validationError("invalid number %q in comparison", a)
	}
	fb, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, validationError("invalid number %q in comparison", b)
	}
	switch {
	case fa < fb:
		return -1, nil
	case fa > fb:
		return 1, nil
	default:
		return 0, nil
	}
}

func attributeValuesDeepEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		// numbers compare by value, so 1 and 1.0 are the same
		cmp, err := compareNumbers(av.Value, bv.Value)
		return err == nil && cmp == 0
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && stringSetsEqual(av.Value, bv.Value)
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && stringSetsEqual(av.Value, bv.Value)
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for _, m := range av.Value {
			found := false
			for _, o := range bv.Value {
				if bytes.Equal(m, o) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			o, ok := bv.Value[k]
			if !ok || !attributeValuesDeepEqual(v, o) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i, v := range av.Value {
			if !attributeValuesDeepEqual(v, bv.Value[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func stringSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	members := make(map[string]struct{}, len(a))
	for _, m := range a {
		members[m] = struct{}{}
	}
	for _, m := range b {
		if _, ok := members[m]; !ok {
			return false
		}
	}
	return true
}

func beginsWith(target, prefix types.AttributeValue) bool {
	switch tv := target.(type) {
	case *types.AttributeValueMemberS:
		pv, ok := prefix.(*types.AttributeValueMemberS)
		return ok && strings.HasPrefix(tv.Value, pv.Value)
	case *types.AttributeValueMemberB:
		pv, ok := prefix.(*types.AttributeValueMemberB)
		return ok && bytes.HasPrefix(tv.Value, pv.Value)
	}
	return false
}

func containsValue(target, member types.AttributeValue) bool {
	switch tv := target.(type) {
	case *types.AttributeValueMemberS:
		mv, ok := member.(*types.AttributeValueMemberS)
		return ok && strings.Contains(tv.Value, mv.Value)
	case *types.AttributeValueMemberSS:
		mv, ok := member.(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		for _, s := range tv.Value {
			if s == mv.Value {
				return true
			}
		}
	case *types.AttributeValueMemberNS:
		mv, ok := member.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		for _, n := range tv.Value {
			if cmp, err := compareNumbers(n, mv.Value); err == nil && cmp == 0 {
				return true
			}
		}
	case *types.AttributeValueMemberBS:
		mv, ok := member.(*types.AttributeValueMemberB)
		if !ok {
			return false
		}
		for _, b := range tv.Value {
			if bytes.Equal(b, mv.Value) {
				return true
			}
		}
	case *types.AttributeValueMemberL:
		for _, e := range tv.Value {
			if attributeValuesDeepEqual(e, member) {
				return true
			}
		}
	}
	return false
}

func typeTag(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberSS:
		return "SS"
	case *types.AttributeValueMemberNS:
		return "NS"
	case *types.AttributeValueMemberBS:
		return "BS"
	case *types.AttributeValueMemberM:
		return "M"
	case *types.AttributeValueMemberL:
		return "L"
	}
	return ""
}

func sizeOf(av types.AttributeValue) types.AttributeValue {
	var n int
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		n = len(v.Value)
	case *types.AttributeValueMemberB:
		n = len(v.Value)
	case *types.AttributeValueMemberSS:
		n = len(v.Value)
	case *types.AttributeValueMemberNS:
		n = len(v.Value)
	case *types.AttributeValueMemberBS:
		n = len(v.Value)
	case *types.AttributeValueMemberL:
		n = len(v.Value)
	case *types.AttributeValueMemberM:
		n = len(v.Value)
	default:
		return nil
	}
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

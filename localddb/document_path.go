package localddb

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// resolveName maps a #placeholder to its literal attribute name; raw names
// pass through.
func resolveName(tok string, names map[string]string) (string, error) {
	if !strings.HasPrefix(tok, "#") {
		return tok, nil
	}
	literal, ok := names[tok]
	if !ok {
		return "", validationError("An expression attribute name used in the document path is not defined; attribute name: %s", tok)
	}
	return literal, nil
}

// splitPath resolves a dotted document path into literal segments.
func splitPath(raw string, names map[string]string) ([]string, error) {
	parts := strings.Split(raw, ".")
	segs := make([]string, len(parts))
	for i, p := range parts {
		seg, err := resolveName(strings.TrimSpace(p), names)
		if err != nil {
			return nil, err
		}
		segs[i] = seg
	}
	return segs, nil
}

// getAttr walks item along segs. A missing hop or a non-map intermediate
// yields nil.
func getAttr(item map[string]types.AttributeValue, segs []string) types.AttributeValue {
	cur := item
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return nil
		}
		if i == len(segs)-1 {
			return v
		}
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			return nil
		}
		cur = m.Value
	}
	return nil
}

// copyItem deep-copies the map and list structure of an item. Scalar
// members are shared; nothing mutates them in place.
func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = copyAV(v)
	}
	return out
}

func copyAV(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: copyItem(v.Value)}
	case *types.AttributeValueMemberL:
		elems := make([]types.AttributeValue, len(v.Value))
		for i, e := range v.Value {
			elems[i] = copyAV(e)
		}
		return &types.AttributeValueMemberL{Value: elems}
	default:
		return av
	}
}

// setAttr assigns v at segs. Every intermediate must already exist and be a
// map; the service rejects assignments through missing or scalar parents
// rather than creating them.
func setAttr(item map[string]types.AttributeValue, segs []string, v types.AttributeValue) error {
	cur := item
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			return errInvalidDocumentPath()
		}
		m, ok := next.(*types.AttributeValueMemberM)
		if !ok {
			return errInvalidDocumentPath()
		}
		cur = m.Value
	}
	cur[segs[len(segs)-1]] = v
	return nil
}

package document

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AttributeValue converts the value to its wire representation.
func (v Value) AttributeValue() types.AttributeValue {
	switch v.kind {
	case KindNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case KindString:
		return &types.AttributeValueMemberS{Value: v.val.(string)}
	case KindNumber:
		return &types.AttributeValueMemberN{Value: v.val.(string)}
	case KindBool:
		return &types.AttributeValueMemberBOOL{Value: v.val.(bool)}
	case KindBinary:
		return &types.AttributeValueMemberB{Value: v.val.([]byte)}
	case KindStringSet:
		return &types.AttributeValueMemberSS{Value: v.val.([]string)}
	case KindNumberSet:
		return &types.AttributeValueMemberNS{Value: v.val.([]string)}
	case KindBinarySet:
		return &types.AttributeValueMemberBS{Value: v.val.([][]byte)}
	case KindList:
		elems := v.val.([]Value)
		out := make([]types.AttributeValue, len(elems))
		for i, e := range elems {
			out[i] = e.AttributeValue()
		}
		return &types.AttributeValueMemberL{Value: out}
	case KindMap:
		return &types.AttributeValueMemberM{Value: v.val.(Document).Item()}
	default:
		panic(fmt.Sprintf("unsupported value kind %s", v.kind))
	}
}

// FromAttributeValue converts a wire attribute value into a Value.
func FromAttributeValue(av types.AttributeValue) (Value, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		return Null(), nil
	case *types.AttributeValueMemberS:
		return String(v.Value), nil
	case *types.AttributeValueMemberN:
		return NumberString(v.Value), nil
	case *types.AttributeValueMemberBOOL:
		return Bool(v.Value), nil
	case *types.AttributeValueMemberB:
		return Binary(v.Value), nil
	case *types.AttributeValueMemberSS:
		return StringSet(v.Value...), nil
	case *types.AttributeValueMemberNS:
		return NumberSet(v.Value...), nil
	case *types.AttributeValueMemberBS:
		return BinarySet(v.Value...), nil
	case *types.AttributeValueMemberL:
		elems := make([]Value, len(v.Value))
		for i, e := range v.Value {
			elem, err := FromAttributeValue(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = elem
		}
		return Value{kind: KindList, val: elems}, nil
	case *types.AttributeValueMemberM:
		child, err := FromItem(v.Value)
		if err != nil {
			return Value{}, err
		}
		return Map(child), nil
	default:
		return Value{}, fmt.Errorf("unsupported attribute value type %T", av)
	}
}

// Item converts the document to a wire attribute map.
func (d Document) Item() map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(d))
	for k, v := range d {
		out[k] = v.AttributeValue()
	}
	return out
}

// FromItem converts a wire attribute map into a document.
func FromItem(item map[string]types.AttributeValue) (Document, error) {
	out := make(Document, len(item))
	for k, av := range item {
		v, err := FromAttributeValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// FromGo converts an arbitrary Go value via the standard attributevalue
// marshaller, so struct tags and custom marshallers apply.
func FromGo(v any) (Value, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("failed to marshal value: %w", err)
	}
	return FromAttributeValue(av)
}

// FromStruct converts a struct (or map) into a document, honoring
// dynamodbav struct tags.
func FromStruct(v any) (Document, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal struct: %w", err)
	}
	return FromItem(item)
}

// Unmarshal decodes the document into out via the standard attributevalue
// unmarshaller.
func (d Document) Unmarshal(out any) error {
	if err := attributevalue.UnmarshalMap(d.Item(), out); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return nil
}

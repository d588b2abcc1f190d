package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type PrimaryKeyDefinition struct {
	PartitionKey KeyDef
	SortKey      KeyDef // zero value means the table has no sort key
}

func (k PrimaryKeyDefinition) HasSortKey() bool {
	return k.SortKey.Name != ""
}

// AttributeNames lists the attribute names that make up the key schema.
// These attributes are immutable and never the target of an update.
func (k PrimaryKeyDefinition) AttributeNames() []string {
	if !k.HasSortKey() {
		return []string{k.PartitionKey.Name}
	}
	return []string{k.PartitionKey.Name, k.SortKey.Name}
}

type KeyDef struct {
	Name string
	Kind KeyKind
}

type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
	KeyKindB KeyKind = "B"
)

// Identity addresses exactly one record: a partition key value plus a
// sort key value when the table defines one.
type Identity struct {
	Definition     PrimaryKeyDefinition
	PartitionValue any
	SortValue      any
}

// DDB marshals the identity into the wire key map, checking each value
// against the declared key kind.
func (id Identity) DDB() (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(id.PartitionValue)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal partition key of type %T with value %v: %w", id.PartitionValue, id.PartitionValue, err)
	}
	if err := attributeMatchesDefinition(id.Definition.PartitionKey.Kind, pk); err != nil {
		return nil, fmt.Errorf("partition key kind does not match value: %w", err)
	}
	if !id.Definition.HasSortKey() {
		return map[string]types.AttributeValue{
			id.Definition.PartitionKey.Name: pk,
		}, nil
	}
	if id.SortValue == nil {
		return nil, fmt.Errorf("sort key %q is required but got nil", id.Definition.SortKey.Name)
	}
	sk, err := attributevalue.Marshal(id.SortValue)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sort key of type %T with value %v: %w", id.SortValue, id.SortValue, err)
	}
	if err := attributeMatchesDefinition(id.Definition.SortKey.Kind, sk); err != nil {
		return nil, fmt.Errorf("sort key %q kind does not match value: %w", id.Definition.SortKey.Name, err)
	}
	return map[string]types.AttributeValue{
		id.Definition.PartitionKey.Name: pk,
		id.Definition.SortKey.Name:      sk,
	}, nil
}

func attributeMatchesDefinition(want KeyKind, v types.AttributeValue) error {
	var got KeyKind
	switch v.(type) {
	case *types.AttributeValueMemberS:
		got = KeyKindS
	case *types.AttributeValueMemberN:
		got = KeyKindN
	case *types.AttributeValueMemberB:
		got = KeyKindB
	default:
		return fmt.Errorf("unexpected key attribute type %T", v)
	}
	if got != want {
		return fmt.Errorf("got KeyKind %q want %q", got, want)
	}
	return nil
}

func keyValueFromAV(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return v.Value
	default:
		panic(fmt.Sprintf("unsupported attribute value %T for dynamodb keys", v))
	}
}

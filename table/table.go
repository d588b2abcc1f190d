package table

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Definition describes a DynamoDB table: its name, key schema and
// optional time-to-live attribute.
type Definition struct {
	Name          string
	Keys          PrimaryKeyDefinition
	TimeToLiveKey string
}

// Identity builds the identity addressing a single record in this table.
// The variadic sort argument is required iff the table has a sort key;
// validation happens when the identity is marshalled.
func (d Definition) Identity(partition any, sort ...any) Identity {
	id := Identity{
		Definition:     d.Keys,
		PartitionValue: partition,
	}
	if len(sort) > 0 {
		id.SortValue = sort[0]
	}
	return id
}

// ExtractIdentity pulls the identity values out of a stored item.
func (d Definition) ExtractIdentity(item map[string]types.AttributeValue) (Identity, error) {
	return d.Keys.ExtractIdentity(item)
}

func (k PrimaryKeyDefinition) ExtractIdentity(item map[string]types.AttributeValue) (Identity, error) {
	part, ok := item[k.PartitionKey.Name]
	if !ok {
		return Identity{}, fmt.Errorf("partition key %q not found", k.PartitionKey.Name)
	}
	if err := attributeMatchesDefinition(k.PartitionKey.Kind, part); err != nil {
		return Identity{}, fmt.Errorf("partition key %q kind does not match definition: %w", k.PartitionKey.Name, err)
	}
	id := Identity{
		Definition:     k,
		PartitionValue: keyValueFromAV(part),
	}
	if !k.HasSortKey() {
		return id, nil
	}
	sort, ok := item[k.SortKey.Name]
	if !ok {
		return Identity{}, fmt.Errorf("sort key %q not found on item", k.SortKey.Name)
	}
	if err := attributeMatchesDefinition(k.SortKey.Kind, sort); err != nil {
		return Identity{}, fmt.Errorf("sort key %q kind does not match definition: %w", k.SortKey.Name, err)
	}
	id.SortValue = keyValueFromAV(sort)
	return id, nil
}

package localddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// UpdateItem applies a SET update expression to the stored item, or to a
// fresh item carrying only the key when nothing is stored yet. The
// condition expression is checked first: its failure wins over any
// document-path fault in the update expression, and the pre-image rides on
// the failure when requested. Path faults then surface as validation
// errors, exactly like the service orders them.
func (s *Store) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Key == nil {
		return nil, fmt.Errorf("key is required")
	}
	if params.UpdateExpression == nil {
		return nil, fmt.Errorf("update expression is required")
	}

	def, err := s.getTable(params.TableName)
	if err != nil {
		return nil, err
	}
	id, err := def.ExtractIdentity(params.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to extract identity: %w", err)
	}
	key, err := encodeStorageKey(def.Name, id)
	if err != nil {
		return nil, err
	}

	parsed, err := parseUpdateExpression(*params.UpdateExpression, params.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}

	var oldItem, newItem map[string]types.AttributeValue
	err = s.update(func(txn *badger.Txn) error {
		oldItem, newItem = nil, nil
		entry, err := txn.Get(key)
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err == nil {
			if err := entry.Value(func(val []byte) error {
				oldItem, err = deserializeItem(val)
				return err
			}); err != nil {
				return err
			}
		}

		if params.ConditionExpression != nil {
			ok, err := evalCondition(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, oldItem)
			if err != nil {
				return err
			}
			if !ok {
				return conditionFailedError(oldItem, params.ReturnValuesOnConditionCheckFailure)
			}
		}

		base := copyItem(oldItem)
		if base == nil {
			base = make(map[string]types.AttributeValue, len(params.Key))
		}
		for k, v := range params.Key {
			base[k] = v
		}

		newItem, err = parsed.apply(base, params.ExpressionAttributeValues)
		if err != nil {
			return err
		}

		itemBytes, err := serializeItem(newItem)
		if err != nil {
			return err
		}
		return txn.Set(key, itemBytes)
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.UpdateItemOutput{}
	switch params.ReturnValues {
	case "", types.ReturnValueNone:
	case types.ReturnValueAllOld:
		if oldItem != nil {
			out.Attributes = oldItem
		}
	case types.ReturnValueAllNew:
		out.Attributes = newItem
	default:
		return nil, validationError("ReturnValues %s is not supported", params.ReturnValues)
	}
	return out, nil
}

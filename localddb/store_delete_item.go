package localddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// DeleteItem removes an item by its key. Deleting an absent item succeeds,
// but a condition expression is still evaluated against the absent state.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if params.Key == nil {
		return nil, fmt.Errorf("key is required")
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

	var oldItem map[string]types.AttributeValue
	err = s.update(func(txn *badger.Txn) error {
		oldItem = nil
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

		if oldItem == nil {
			return nil
		}
		return txn.Delete(key)
	})
	if err != nil {
		return nil, err
	}

	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && oldItem != nil {
		out.Attributes = oldItem
	}
	return out, nil
}

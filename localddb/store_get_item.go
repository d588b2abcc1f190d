package localddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

// GetItem retrieves a single item by its key. A missing item yields an
// empty output, not an error, matching the service.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
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

	var item map[string]types.AttributeValue
	err = s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			item, err = deserializeItem(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return &dynamodb.GetItemOutput{}, nil
	}

	item, err = projectItem(params.ProjectionExpression, params.ExpressionAttributeNames, item)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

package localddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

const maxBatchGetKeys = 100

// BatchGetItem fetches up to 100 keys in one snapshot. Missing keys are
// skipped. UnprocessedKeys is always empty, as the local store processes
// every key.
func (s *Store) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if len(params.RequestItems) == 0 {
		return nil, fmt.Errorf("request items is required")
	}

	count := 0
	for _, keysAndAttrs := range params.RequestItems {
		count += len(keysAndAttrs.Keys)
	}
	if count > maxBatchGetKeys {
		return nil, validationError("Too many items requested for the BatchGetItem call")
	}

	response := &dynamodb.BatchGetItemOutput{
		Responses: make(map[string][]map[string]types.AttributeValue),
	}
	seen := make(map[string]struct{}, count)

	err := s.db.View(func(txn *badger.Txn) error {
		for tableName, keysAndAttrs := range params.RequestItems {
			def, err := s.getTable(&tableName)
			if err != nil {
				return err
			}
			for _, keyAttrs := range keysAndAttrs.Keys {
				id, err := def.ExtractIdentity(keyAttrs)
				if err != nil {
					return fmt.Errorf("failed to extract identity: %w", err)
				}
				key, err := encodeStorageKey(def.Name, id)
				if err != nil {
					return err
				}
				if _, dup := seen[string(key)]; dup {
					return validationError("Provided list of item keys contains duplicates")
				}
				seen[string(key)] = struct{}{}

				entry, err := txn.Get(key)
				if err == badger.ErrKeyNotFound {
					continue
				}
				if err != nil {
					return err
				}

				var item map[string]types.AttributeValue
				if err := entry.Value(func(val []byte) error {
					item, err = deserializeItem(val)
					return err
				}); err != nil {
					return err
				}

				item, err = projectItem(keysAndAttrs.ProjectionExpression, keysAndAttrs.ExpressionAttributeNames, item)
				if err != nil {
					return err
				}
				response.Responses[tableName] = append(response.Responses[tableName], item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return response, nil
}

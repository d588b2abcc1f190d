package localddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

const maxBatchWriteRequests = 25

// BatchWriteItem applies up to 25 puts and deletes in one transaction.
// Size and duplicate-key violations fail the whole call with a validation
// error. UnprocessedItems is always empty: a local store has no throughput
// limits to push requests back.
func (s *Store) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("params is required")
	}
	if len(params.RequestItems) == 0 {
		return nil, fmt.Errorf("request items is required")
	}

	count := 0
	for _, reqs := range params.RequestItems {
		count += len(reqs)
	}
	if count > maxBatchWriteRequests {
		return nil, validationError("Too many items requested for the BatchWriteItem call")
	}

	type plannedWrite struct {
		key    []byte
		value  []byte // nil means delete
		delete bool
	}
	var writes []plannedWrite
	seen := make(map[string]struct{}, count)

	for tableName, reqs := range params.RequestItems {
		def, err := s.getTable(&tableName)
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			var w plannedWrite
			switch {
			case req.PutRequest != nil:
				id, err := def.ExtractIdentity(req.PutRequest.Item)
				if err != nil {
					return nil, fmt.Errorf("failed to extract identity: %w", err)
				}
				w.key, err = encodeStorageKey(def.Name, id)
				if err != nil {
					return nil, err
				}
				w.value, err = serializeItem(req.PutRequest.Item)
				if err != nil {
					return nil, err
				}
			case req.DeleteRequest != nil:
				id, err := def.ExtractIdentity(req.DeleteRequest.Key)
				if err != nil {
					return nil, fmt.Errorf("failed to extract identity: %w", err)
				}
				w.key, err = encodeStorageKey(def.Name, id)
				if err != nil {
					return nil, err
				}
				w.delete = true
			default:
				return nil, fmt.Errorf("empty write request, must be put or delete")
			}
			if _, dup := seen[string(w.key)]; dup {
				return nil, validationError("Provided list of item keys contains duplicates")
			}
			seen[string(w.key)] = struct{}{}
			writes = append(writes, w)
		}
	}

	err := s.update(func(txn *badger.Txn) error {
		for _, w := range writes {
			if w.delete {
				if err := txn.Delete(w.key); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(w.key, w.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: make(map[string][]types.WriteRequest),
	}, nil
}

package tynamo

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asayed18/tynamo/document"
	"github.com/asayed18/tynamo/table"
)

const (
	maxBatchWriteSize = 25
	maxBatchReadSize  = 100
)

// BatchWrite stores every record, splitting the input into groups of up to
// 25 write requests and dispatching the groups concurrently. The first
// group that fails aborts the aggregate call; groups that already landed
// stay written. Two records sharing an identity are rejected up front.
func (c *Client) BatchWrite(ctx context.Context, docs []document.Document) error {
	reqs := make([]types.WriteRequest, 0, len(docs))
	for _, d := range docs {
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: d.Item()}})
	}
	return c.batchWrite(ctx, reqs)
}

// BatchDelete removes the records stored under ids, with the same grouping
// and failure semantics as BatchWrite. Absent identities are no-ops.
func (c *Client) BatchDelete(ctx context.Context, ids []table.Identity) error {
	reqs := make([]types.WriteRequest, 0, len(ids))
	for _, id := range ids {
		key, err := id.DDB()
		if err != nil {
			return err
		}
		reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}
	return c.batchWrite(ctx, reqs)
}

func (c *Client) batchWrite(ctx context.Context, reqs []types.WriteRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	keys, err := c.writeRequestKeys(reqs)
	if err != nil {
		return err
	}
	if err := checkDuplicateKeys(keys); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	groups := 0
	for start := 0; start < len(reqs); start += maxBatchWriteSize {
		group := reqs[start:min(start+maxBatchWriteSize, len(reqs))]
		groups++
		g.Go(func() error {
			return c.writeGroup(gctx, group)
		})
	}
	c.log.Debug("dispatched batch write",
		zap.Int("requests", len(reqs)), zap.Int("groups", groups))
	return g.Wait()
}

func (c *Client) writeGroup(ctx context.Context, reqs []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{c.table.Name: reqs}
	for attempt := 0; ; attempt++ {
		res, err := c.ddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("failed to write batch group: %w", err)
		}
		unprocessed := countRequests(res.UnprocessedItems)
		if unprocessed == 0 {
			return nil
		}
		if attempt >= c.batchRetries {
			return fmt.Errorf("batch group has %d unprocessed writes after %d retries", unprocessed, c.batchRetries)
		}
		c.log.Debug("retrying unprocessed batch writes",
			zap.Int("unprocessed", unprocessed), zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
		pending = res.UnprocessedItems
	}
}

// BatchRead fetches the records stored under ids, splitting the input into
// groups of up to 100 keys and dispatching the groups concurrently. Absent
// identities are simply missing from the result, which carries no ordering
// guarantee. WithProjection narrows every returned record. The first group
// that fails aborts the aggregate call.
func (c *Client) BatchRead(ctx context.Context, ids []table.Identity, opts ...ReadOption) ([]document.Document, error) {
	var o readOpts
	for _, opt := range opts {
		opt(&o)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var projExpr *string
	var projNames map[string]string
	if len(o.projection) > 0 {
		built, err := buildProjectionExpression(o.projection)
		if err != nil {
			return nil, err
		}
		projExpr = built.Projection()
		projNames = built.Names()
	}
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		key, err := id.DDB()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := checkDuplicateKeys(keys); err != nil {
		return nil, err
	}

	var groups [][]map[string]types.AttributeValue
	for start := 0; start < len(keys); start += maxBatchReadSize {
		groups = append(groups, keys[start:min(start+maxBatchReadSize, len(keys))])
	}
	c.log.Debug("dispatched batch read",
		zap.Int("keys", len(keys)), zap.Int("groups", len(groups)))

	results := make([][]document.Document, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			docs, err := c.readGroup(gctx, group, !o.eventuallyConsistent, projExpr, projNames)
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]document.Document, 0, len(ids))
	for _, docs := range results {
		out = append(out, docs...)
	}
	return out, nil
}

func (c *Client) readGroup(ctx context.Context, keys []map[string]types.AttributeValue, consistent bool, projExpr *string, projNames map[string]string) ([]document.Document, error) {
	var out []document.Document
	pending := map[string]types.KeysAndAttributes{
		c.table.Name: {
			Keys:                     keys,
			ConsistentRead:           aws.Bool(consistent),
			ProjectionExpression:     projExpr,
			ExpressionAttributeNames: projNames,
		},
	}
	for attempt := 0; ; attempt++ {
		res, err := c.ddb.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
		if err != nil {
			return nil, fmt.Errorf("failed to read batch group: %w", err)
		}
		for _, item := range res.Responses[c.table.Name] {
			d, err := document.FromItem(item)
			if err != nil {
				return nil, fmt.Errorf("failed to decode record: %w", err)
			}
			out = append(out, d)
		}
		remaining, ok := res.UnprocessedKeys[c.table.Name]
		if !ok || len(remaining.Keys) == 0 {
			return out, nil
		}
		if attempt >= c.batchRetries {
			return nil, fmt.Errorf("batch group has %d unprocessed keys after %d retries", len(remaining.Keys), c.batchRetries)
		}
		c.log.Debug("retrying unprocessed batch reads",
			zap.Int("unprocessed", len(remaining.Keys)), zap.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
		pending = res.UnprocessedKeys
	}
}

func (c *Client) writeRequestKeys(reqs []types.WriteRequest) ([]map[string]types.AttributeValue, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(reqs))
	for _, r := range reqs {
		switch {
		case r.PutRequest != nil:
			id, err := c.table.ExtractIdentity(r.PutRequest.Item)
			if err != nil {
				return nil, err
			}
			key, err := id.DDB()
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		case r.DeleteRequest != nil:
			keys = append(keys, r.DeleteRequest.Key)
		}
	}
	return keys, nil
}

func checkDuplicateKeys(keys []map[string]types.AttributeValue) error {
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			if keysEqual(keys[i], keys[j]) {
				return fmt.Errorf("duplicate record identity at positions %d and %d", i, j)
			}
		}
	}
	return nil
}

func keysEqual(a, b map[string]types.AttributeValue) bool {
	if len(a) != len(b) {
		return false
	}
	for name, av := range a {
		other, ok := b[name]
		if !ok || !attributeValuesEqual(av, other) {
			return false
		}
	}
	return true
}

// attributeValuesEqual compares key attribute values, which are always of
// type S, N or B.
func attributeValuesEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	}
	return false
}

func countRequests(m map[string][]types.WriteRequest) int {
	n := 0
	for _, reqs := range m {
		n += len(reqs)
	}
	return n
}

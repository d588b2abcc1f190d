package tynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/asayed18/tynamo/document"
	"github.com/asayed18/tynamo/table"
)

// ErrAlreadyExists is returned by Create when the record's identity is
// already taken.
var ErrAlreadyExists = errors.New("record already exists")

// Create inserts doc as a new record. It never replaces: when the identity
// is already taken the call fails with ErrAlreadyExists and the stored
// record is untouched.
func (c *Client) Create(ctx context.Context, doc document.Document) error {
	cond := expression.AttributeNotExists(expression.Name(c.table.Keys.PartitionKey.Name))
	built, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build create condition: %w", err)
	}
	_, err = c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 &c.table.Name,
		Item:                      doc.Item(),
		ConditionExpression:       built.Condition(),
		ExpressionAttributeNames:  built.Names(),
		ExpressionAttributeValues: built.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w in table %q", ErrAlreadyExists, c.table.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	c.log.Debug("record created", zap.String("table", c.table.Name))
	return nil
}

// Put unconditionally replaces whatever is stored under doc's identity.
func (c *Client) Put(ctx context.Context, doc document.Document) error {
	if _, err := c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &c.table.Name,
		Item:      doc.Item(),
	}); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// Delete removes the record stored under id. Deleting an absent identity is
// a no-op.
func (c *Client) Delete(ctx context.Context, id table.Identity) error {
	key, err := id.DDB()
	if err != nil {
		return err
	}
	if _, err := c.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &c.table.Name,
		Key:       key,
	}); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (c *Client) insert(ctx context.Context, doc document.Document) error {
	if _, err := c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &c.table.Name,
		Item:      doc.Item(),
	}); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

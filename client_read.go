package tynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/asayed18/tynamo/document"
	"github.com/asayed18/tynamo/table"
)

// ErrNotFound is returned by Read when no record is stored under the
// requested identity.
var ErrNotFound = errors.New("record not found")

// Read fetches the record stored under id. Reads are strongly consistent
// unless WithEventualConsistency is given; WithProjection narrows the
// result to the named paths.
func (c *Client) Read(ctx context.Context, id table.Identity, opts ...ReadOption) (document.Document, error) {
	var o readOpts
	for _, opt := range opts {
		opt(&o)
	}
	key, err := id.DDB()
	if err != nil {
		return nil, err
	}

	in := &dynamodb.GetItemInput{
		TableName:      &c.table.Name,
		Key:            key,
		ConsistentRead: aws.Bool(!o.eventuallyConsistent),
	}
	if len(o.projection) > 0 {
		built, err := buildProjectionExpression(o.projection)
		if err != nil {
			return nil, err
		}
		in.ProjectionExpression = built.Projection()
		in.ExpressionAttributeNames = built.Names()
	}

	res, err := c.ddb.GetItem(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	if len(res.Item) == 0 {
		return nil, fmt.Errorf("%w: partition key %v", ErrNotFound, id.PartitionValue)
	}
	return document.FromItem(res.Item)
}

// ReadInto fetches the record stored under id and unmarshals it into out, a
// pointer to a struct using dynamodbav tags.
func (c *Client) ReadInto(ctx context.Context, id table.Identity, out any, opts ...ReadOption) error {
	d, err := c.Read(ctx, id, opts...)
	if err != nil {
		return err
	}
	return d.Unmarshal(out)
}

func buildProjectionExpression(paths []document.Path) (expression.Expression, error) {
	var proj expression.ProjectionBuilder
	for _, p := range paths {
		proj = proj.AddNames(expression.Name(string(p)))
	}
	built, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build projection expression: %w", err)
	}
	return built, nil
}

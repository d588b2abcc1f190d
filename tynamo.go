// Package tynamo is a client-side layer over DynamoDB offering
// identity-based CRUD, batched reads and writes, and partial updates of
// arbitrarily nested records compiled into SET-only update expressions.
// When a partial update collides with the stored record's shape, the client
// reconciles automatically: structural conflicts resolve by read-merge-
// replace, writes against absent identities resolve by insert, and failed
// caller preconditions surface as explicit no-ops instead of errors.
package tynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/asayed18/tynamo/document"
	"github.com/asayed18/tynamo/table"
)

// Client reads and writes records of one table through a DynamoAPI gateway.
type Client struct {
	ddb        DynamoAPI
	table      table.Definition
	log        *zap.Logger
	classifier Classifier

	batchRetries int
	backoff      BackoffFunc
}

// New builds a client for the given table on top of an existing gateway.
func New(ddb DynamoAPI, tbl table.Definition, opts ...Option) *Client {
	c := &Client{
		ddb:          ddb,
		table:        tbl,
		log:          zap.NewNop(),
		classifier:   DynamoClassifier{},
		batchRetries: defaultBatchRetries,
		backoff:      DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithDefaultConfig builds a client connected to the real service using
// the ambient AWS configuration (environment, shared config files, IMDS).
func NewWithDefaultConfig(ctx context.Context, tbl table.Definition, opts ...Option) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return New(dynamodb.NewFromConfig(cfg), tbl, opts...), nil
}

// Table returns the table definition the client operates on.
func (c *Client) Table() table.Definition {
	return c.table
}

func (c *Client) identityOf(doc document.Document) (table.Identity, error) {
	item := make(Item, 2)
	for _, name := range c.table.Keys.AttributeNames() {
		v, ok := doc[name]
		if !ok {
			return table.Identity{}, fmt.Errorf("record is missing key attribute %q", name)
		}
		item[name] = v.AttributeValue()
	}
	return c.table.ExtractIdentity(item)
}

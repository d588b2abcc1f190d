package tynamo

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/asayed18/tynamo/document"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the diagnostic sink. Recoverable write failures (shape
// conflicts resolved by merge, precondition rejections, first-write inserts)
// are reported at Warn; successful operations at Debug. Defaults to a nop
// logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithClassifier replaces the failure classifier, letting alternate storage
// engines plug in their own failure vocabulary.
func WithClassifier(cl Classifier) Option {
	return func(c *Client) {
		c.classifier = cl
	}
}

// WithBatchRetries sets how often a batch group retries its unprocessed
// items before giving up.
func WithBatchRetries(n int) Option {
	return func(c *Client) {
		c.batchRetries = n
	}
}

// WithBatchBackoff sets the backoff between batch retry attempts.
// See [ExponentialBackoff].
func WithBatchBackoff(fn BackoffFunc) Option {
	return func(c *Client) {
		c.backoff = fn
	}
}

// UpdateOption configures a single Update or Upsert call.
type UpdateOption func(*updateOpts)

type updateOpts struct {
	condition       string
	conditionValues map[string]types.AttributeValue
	expiry          *time.Time
}

// WithCondition guards the write with a caller-supplied condition
// expression using #name and :token placeholders, e.g.
//
//	WithCondition("#meta.#version = :v", map[string]types.AttributeValue{
//		":v": &types.AttributeValueMemberN{Value: "3"},
//	})
//
// A record that exists but fails the condition rejects the write as an
// explicit no-op.
func WithCondition(expression string, values map[string]types.AttributeValue) UpdateOption {
	return func(o *updateOpts) {
		o.condition = expression
		o.conditionValues = values
	}
}

// WithExpiry refreshes the table's time-to-live attribute as part of the
// update. The table definition must name a TimeToLiveKey.
func WithExpiry(expiry time.Time) UpdateOption {
	return func(o *updateOpts) {
		o.expiry = &expiry
	}
}

// ReadOption configures Read and BatchRead calls.
type ReadOption func(*readOpts)

type readOpts struct {
	eventuallyConsistent bool
	projection           []document.Path
}

// WithEventualConsistency enables eventually consistent reads. By default
// reads are strongly consistent, so a reconciling read observes the write
// it conflicted with.
func WithEventualConsistency() ReadOption {
	return func(o *readOpts) {
		o.eventuallyConsistent = true
	}
}

// WithProjection limits which attributes a Read returns. Dotted paths
// select nested positions.
func WithProjection(paths ...document.Path) ReadOption {
	return func(o *readOpts) {
		o.projection = paths
	}
}

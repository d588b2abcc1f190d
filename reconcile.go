package tynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/asayed18/tynamo/document"
	"github.com/asayed18/tynamo/expr"
)

// Outcome is the terminal state of a reconciled write. Callers only ever
// observe an applied outcome, a rejected no-op, or a returned error.
type Outcome int

const (
	// OutcomeFailed accompanies a non-nil error.
	OutcomeFailed Outcome = iota
	// OutcomeApplied: the conditional write landed directly.
	OutcomeApplied
	// OutcomeAppliedMerge: a shape conflict was resolved by reading the
	// stored record, merging the incoming one in, and replacing it.
	OutcomeAppliedMerge
	// OutcomeAppliedInsert: the record did not exist and the full incoming
	// record was inserted.
	OutcomeAppliedInsert
	// OutcomeRejectedPrecondition: the record exists but failed the
	// caller-supplied condition. Nothing was written.
	OutcomeRejectedPrecondition
	// OutcomeRejectedNotFound: Update targeted an identity that does not
	// exist. Nothing was written.
	OutcomeRejectedNotFound
)

// Applied reports whether the write landed, on any path.
func (o Outcome) Applied() bool {
	switch o {
	case OutcomeApplied, OutcomeAppliedMerge, OutcomeAppliedInsert:
		return true
	}
	return false
}

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAppliedMerge:
		return "applied via merge"
	case OutcomeAppliedInsert:
		return "applied via insert"
	case OutcomeRejectedPrecondition:
		return "rejected: precondition false"
	case OutcomeRejectedNotFound:
		return "rejected: not found"
	default:
		return "failed"
	}
}

// Update writes the records's qualifying leaves to an existing record.
// An identity that does not exist rejects the write as a no-op; it never
// inserts. Repeating the same call against the resulting state reaches the
// same state.
func (c *Client) Update(ctx context.Context, doc document.Document, policy expr.Policy, opts ...UpdateOption) (Outcome, error) {
	return c.reconcile(ctx, doc, policy, false, opts)
}

// Upsert writes the record's qualifying leaves, inserting the full record
// when the identity does not exist yet (first-write semantics). A record
// that exists but fails the caller condition rejects the write as a no-op.
func (c *Client) Upsert(ctx context.Context, doc document.Document, policy expr.Policy, opts ...UpdateOption) (Outcome, error) {
	return c.reconcile(ctx, doc, policy, true, opts)
}

func (c *Client) reconcile(ctx context.Context, doc document.Document, policy expr.Policy, insertOnMissing bool, opts []UpdateOption) (Outcome, error) {
	var o updateOpts
	for _, opt := range opts {
		opt(&o)
	}

	if o.expiry != nil {
		if c.table.TimeToLiveKey == "" {
			return OutcomeFailed, fmt.Errorf("table %q has no time-to-live attribute", c.table.Name)
		}
		doc = doc.Clone()
		doc[c.table.TimeToLiveKey] = document.Number(o.expiry.Unix())
	}

	id, err := c.identityOf(doc)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to resolve record identity: %w", err)
	}
	key, err := id.DDB()
	if err != nil {
		return OutcomeFailed, err
	}

	compiled, err := expr.CompileUpdate(doc, c.table.Keys.AttributeNames(), policy)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to compile update expression: %w", err)
	}
	cond, err := expr.ParseCondition(o.condition, o.conditionValues)
	if err != nil {
		return OutcomeFailed, err
	}

	names, values := compiled.Names, compiled.Values
	if err := mergeExpressionNames(names, cond.Names); err != nil {
		return OutcomeFailed, err
	}
	if err := mergeExpressionValues(values, cond.Values); err != nil {
		return OutcomeFailed, err
	}

	// guard so a missing identity fails the condition instead of creating a
	// partial record out of the update's assignments
	guard := fmt.Sprintf("attribute_exists(%s)", expr.RegisterName(names, c.table.Keys.PartitionKey.Name))
	if cond.Expression != "" {
		guard = fmt.Sprintf("%s AND (%s)", guard, cond.Expression)
	}

	_, err = c.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           &c.table.Name,
		Key:                                 key,
		UpdateExpression:                    &compiled.Update,
		ConditionExpression:                 &guard,
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		c.log.Debug("update applied", zap.String("table", c.table.Name))
		return OutcomeApplied, nil
	}

	switch c.classifier.Classify(err) {
	case CategorySchemaMismatch:
		return c.recoverShapeConflict(ctx, key, doc, policy, insertOnMissing, err)
	case CategoryConditionCheckFailed:
		return c.recoverConditionFailure(ctx, key, doc, insertOnMissing, err)
	default:
		return OutcomeFailed, fmt.Errorf("failed to update item: %w", err)
	}
}

// recoverShapeConflict re-reads the stored record, merges the incoming one
// into it and replaces the whole record. The replacement is deliberately
// unconditional: a concurrent writer on the same identity loses to it, an
// accepted weakening confined to this rare path. A shape conflict also
// implies any caller condition already passed, so it is not re-checked.
func (c *Client) recoverShapeConflict(ctx context.Context, key Item, doc document.Document, policy expr.Policy, insertOnMissing bool, cause error) (Outcome, error) {
	c.log.Warn("update conflicts with stored record shape, recovering via merge",
		zap.String("table", c.table.Name), zap.Error(cause))

	res, err := c.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &c.table.Name,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to read record for merge: %w", err)
	}
	if len(res.Item) == 0 {
		return c.applyInsertBranch(ctx, doc, insertOnMissing)
	}

	current, err := document.FromItem(res.Item)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to decode stored record: %w", err)
	}

	merged := document.Merge(current, doc, document.MergeOptions{
		Skip: func(p document.Path) bool {
			return c.isIdentityAttribute(p) || !policy.Allows(p)
		},
		KeepExisting: policy.IsInsertOnly,
	})

	if _, err := c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &c.table.Name,
		Item:      merged.Item(),
	}); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to write merged record: %w", err)
	}
	c.log.Info("record replaced with merge result", zap.String("table", c.table.Name))
	return OutcomeAppliedMerge, nil
}

func (c *Client) recoverConditionFailure(ctx context.Context, key Item, doc document.Document, insertOnMissing bool, cause error) (Outcome, error) {
	exists, err := c.conditionFailureEvidence(ctx, key, cause)
	if err != nil {
		return OutcomeFailed, err
	}
	if exists {
		c.log.Warn("write rejected: record failed precondition", zap.String("table", c.table.Name))
		return OutcomeRejectedPrecondition, nil
	}
	return c.applyInsertBranch(ctx, doc, insertOnMissing)
}

func (c *Client) applyInsertBranch(ctx context.Context, doc document.Document, insertOnMissing bool) (Outcome, error) {
	if !insertOnMissing {
		c.log.Warn("update rejected: record does not exist", zap.String("table", c.table.Name))
		return OutcomeRejectedNotFound, nil
	}
	if err := c.insert(ctx, doc); err != nil {
		return OutcomeFailed, err
	}
	c.log.Info("record inserted on first write", zap.String("table", c.table.Name))
	return OutcomeAppliedInsert, nil
}

// conditionFailureEvidence reports whether the record existed when the
// conditional write was rejected. The pre-image attached to the failure is
// the evidence; a classifier whose engine supplies none falls back to a
// consistent read.
func (c *Client) conditionFailureEvidence(ctx context.Context, key Item, cause error) (bool, error) {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(cause, &ccf) {
		return len(ccf.Item) > 0, nil
	}
	res, err := c.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &c.table.Name,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to read record after condition failure: %w", err)
	}
	return len(res.Item) > 0, nil
}

func (c *Client) isIdentityAttribute(p document.Path) bool {
	for _, name := range c.table.Keys.AttributeNames() {
		if string(p) == name {
			return true
		}
	}
	return false
}

func mergeExpressionNames(dst, src map[string]string) error {
	for ph, literal := range src {
		if existing, ok := dst[ph]; ok && existing != literal {
			return fmt.Errorf("condition name %s refers to %q but the update expression binds it to %q", ph, literal, existing)
		}
		dst[ph] = literal
	}
	return nil
}

func mergeExpressionValues(dst, src map[string]types.AttributeValue) error {
	for token, v := range src {
		if _, ok := dst[token]; ok {
			return fmt.Errorf("condition value %s collides with an update expression value placeholder", token)
		}
		dst[token] = v
	}
	return nil
}

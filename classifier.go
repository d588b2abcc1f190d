package tynamo

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// Category buckets a storage failure by how the client recovers from it.
type Category int

const (
	// CategoryUnclassified failures are propagated to the caller unchanged.
	CategoryUnclassified Category = iota
	// CategorySchemaMismatch: an update path traverses a position that is
	// absent or not a map. Recovered by read-merge-replace.
	CategorySchemaMismatch
	// CategoryConditionCheckFailed: the conditional write was rejected.
	// Recovered by insert when the record did not exist, otherwise
	// surfaced as an explicit no-op.
	CategoryConditionCheckFailed
)

func (c Category) String() string {
	switch c {
	case CategorySchemaMismatch:
		return "SchemaMismatch"
	case CategoryConditionCheckFailed:
		return "ConditionCheckFailed"
	default:
		return "Unclassified"
	}
}

// Classifier maps a storage-engine failure to a Category. It is injected so
// engines with a different failure vocabulary can drive the same recovery
// protocols.
type Classifier interface {
	Classify(err error) Category
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(err error) Category

func (f ClassifierFunc) Classify(err error) Category {
	return f(err)
}

// DynamoClassifier understands the DynamoDB failure vocabulary: typed
// conditional-check failures, and ValidationExceptions whose message marks
// an update path that is invalid against the stored record's shape.
type DynamoClassifier struct{}

var _ Classifier = DynamoClassifier{}

func (DynamoClassifier) Classify(err error) Category {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return CategoryConditionCheckFailed
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" && isDocumentPathFault(apiErr.ErrorMessage()) {
		return CategorySchemaMismatch
	}
	return CategoryUnclassified
}

func isDocumentPathFault(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "document path") || strings.Contains(m, "invalid for update")
}

package localddb

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// validationError builds the generic ValidationException the SDK surfaces
// for request-level faults, which is not modeled as a typed error.
func validationError(format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    "ValidationException",
		Message: fmt.Sprintf(format, args...),
	}
}

// errInvalidDocumentPath mirrors the fault DynamoDB raises when a SET
// assignment targets a path whose parent is missing or not a map.
func errInvalidDocumentPath() error {
	return validationError("The document path provided in the update expression is invalid for update")
}

// conditionFailedError builds the typed condition failure, attaching the
// item pre-image when the caller asked for it.
func conditionFailedError(oldItem map[string]types.AttributeValue, rv types.ReturnValuesOnConditionCheckFailure) error {
	e := &types.ConditionalCheckFailedException{
		Message: ptrStr("The conditional request failed"),
	}
	if rv == types.ReturnValuesOnConditionCheckFailureAllOld && oldItem != nil {
		e.Item = oldItem
	}
	return e
}

func ptrStr(s string) *string {
	return &s
}

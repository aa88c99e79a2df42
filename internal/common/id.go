package common

import (
	"github.com/google/uuid"
)

// NewBatchID generates a unique batch run ID with the "batch_" prefix
func NewBatchID() string {
	return "batch_" + uuid.New().String()
}

// NewInvocationID generates a unique invocation ID with the "inv_" prefix
func NewInvocationID() string {
	return "inv_" + uuid.New().String()
}

package models

import (
	"time"

	"github.com/ternarybob/daybook/internal/common"
)

// InvocationState tracks what a trigger acknowledgement actually means.
// Accepted only says the batch was admitted for execution; completion is a
// separate, later transition.
type InvocationState string

const (
	InvocationAccepted  InvocationState = "accepted"
	InvocationCompleted InvocationState = "completed"
	InvocationFailed    InvocationState = "failed"
)

// Invocation is the controller's record of one trigger. It is returned to
// the caller immediately on acceptance, before any worker has run.
type Invocation struct {
	ID           string              `json:"id"`
	State        InvocationState     `json:"state"`
	BatchID      string              `json:"batch_id"`
	BusinessDate common.BusinessDate `json:"business_date"`
	AcceptedAt   time.Time           `json:"accepted_at"`
	CompletedAt  time.Time           `json:"completed_at,omitempty"`
	Err          string              `json:"error,omitempty"`
}

// NewInvocation builds an accepted invocation for a batch.
func NewInvocation(batchID string, businessDate common.BusinessDate) *Invocation {
	return &Invocation{
		ID:           common.NewInvocationID(),
		State:        InvocationAccepted,
		BatchID:      batchID,
		BusinessDate: businessDate,
		AcceptedAt:   time.Now().UTC(),
	}
}

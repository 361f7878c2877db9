// Package app implements the statement conversion API: quota enforcement,
// PDF extraction, export artifacts and Stripe payment reconciliation.
package app

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction marks extraction service/transport failures. Malformed
	// model output is not an extraction error; see ParseStatementResponse.
	ErrExtraction = errors.New("extraction service failure")

	// ErrEmailTaken is returned when registering an already-known email.
	ErrEmailTaken = errors.New("email already registered")
)

// QuotaError is returned when an upload would exceed the plan's page limit.
type QuotaError struct {
	Limit     int
	Used      int
	Requested int
}

func (e QuotaError) Error() string {
	return fmt.Sprintf("page quota exceeded: used %d of %d, requested %d more", e.Used, e.Limit, e.Requested)
}

// Deficit is how many pages over the limit the request would land.
func (e QuotaError) Deficit() int {
	return e.Used + e.Requested - e.Limit
}

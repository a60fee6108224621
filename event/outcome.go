package event

import (
	"fmt"
	"time"
)

/* Outcome is the result of exactly one delivery attempt, reported by a
 * worker back to the store. The store applies it only while the event is
 * still in_flight; a late or duplicate report is rejected there.
 */
type Outcome struct {
	// Status is the state the event transitions to: Delivered, Pending
	// (retry scheduled), Expired or Failed.
	Status Status

	// NextRetryAt must be set when Status is Pending and nil otherwise.
	NextRetryAt *time.Time

	// ResponseStatus is the HTTP status of the attempt, nil when the
	// request never produced a response (connection error, timeout,
	// malformed URL).
	ResponseStatus *int

	// ResponseBody is the captured response body, already truncated.
	ResponseBody string
}

// Validate checks the outcome is one of the legal in_flight transitions
func (o Outcome) Validate() error {
	switch o.Status {
	case Delivered, Expired, Failed:
		if o.NextRetryAt != nil {
			return fmt.Errorf("next_retry_at must be nil for %s outcome", o.Status)
		}
	case Pending:
		if o.NextRetryAt == nil {
			return fmt.Errorf("retry outcome requires next_retry_at")
		}
	default:
		return fmt.Errorf("invalid outcome status: %s", o.Status)
	}
	return nil
}

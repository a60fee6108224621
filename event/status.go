package event

import "fmt"

/* Status represents the current state of an event's delivery
 * Follows the lifecycle: Pending -> InFlight -> Delivered/Pending/Failed/Expired
 * Delivered, Failed and Expired are absorbing: once reached, no further
 * transitions occur
 */
type Status int

const (
	Pending Status = iota + 1
	InFlight
	Delivered
	Failed
	Expired
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in_flight"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "pending":
		return Pending
	case "in_flight":
		return InFlight
	case "delivered":
		return Delivered
	case "failed":
		return Failed
	case "expired":
		return Expired
	default:
		return Pending
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Pending || s > Expired {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}

// IsTerminal returns true if the status is an absorbing state
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Failed || s == Expired
}

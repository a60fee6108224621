package event

import "time"

/* Event represents a single outbound webhook notification in the system
 * Uses value semantics as it represents data, not behavior
 */
type Event struct {
	ID             string
	VendorID       string
	EventType      string
	Payload        []byte
	TargetURL      string
	Status         Status
	Attempts       int
	MaxAttempts    int
	NextRetryAt    *time.Time
	LastAttemptAt  *time.Time
	ResponseStatus *int
	ResponseBody   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultMaxAttempts is the delivery attempt ceiling used when the
// producer does not specify one.
const DefaultMaxAttempts = 3

// MaxResponseBodyBytes caps how much of a vendor response is persisted
// per attempt. Longer bodies are truncated before storage.
const MaxResponseBodyBytes = 1000

// TruncateResponseBody trims a response body to MaxResponseBodyBytes.
func TruncateResponseBody(body string) string {
	if len(body) > MaxResponseBodyBytes {
		return body[:MaxResponseBodyBytes]
	}
	return body
}

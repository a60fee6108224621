package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

/* Service represents the producer- and dashboard-facing business logic
 * Uses pointer semantics as it's an API, not data
 *
 * The claim/outcome side of the state machine is intentionally not here:
 * those transitions belong to the dispatcher and workers, which talk to
 * the Claimer interface directly.
 */

// UseCase defines the operations exposed to producers and status queries
type UseCase interface {
	Enqueue(ctx context.Context, vendorID, eventType string, payload []byte, targetURL string, maxAttempts int) (string, error)
	Get(ctx context.Context, id string) (Event, error)
	ListByVendor(ctx context.Context, vendorID string, statusFilter Status, limit int) ([]Event, error)
}

// ListLimit caps how many events a single vendor query returns
const ListLimit = 100

type Service struct {
	Repo Repository
}

// NewService creates a new event service with dependency injection
func NewService(repo Repository) *Service {
	return &Service{
		Repo: repo,
	}
}

// Enqueue accepts a new event for delivery and stores it as pending.
// The target URL is not validated here: a malformed URL is detected by the
// worker before any network call and terminates the event as failed.
func (s *Service) Enqueue(ctx context.Context, vendorID, eventType string, payload []byte, targetURL string, maxAttempts int) (string, error) {
	if vendorID == "" {
		return "", fmt.Errorf("vendor_id is required")
	}
	if eventType == "" {
		return "", fmt.Errorf("event_type is required")
	}
	if targetURL == "" {
		return "", fmt.Errorf("target_url is required")
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	now := time.Now().UTC()
	e := Event{
		ID:          uuid.New().String(),
		VendorID:    vendorID,
		EventType:   eventType,
		Payload:     payload,
		TargetURL:   targetURL,
		Status:      Pending,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := s.Repo.Enqueue(ctx, e)
	if err != nil {
		return "", fmt.Errorf("enqueueing event: %w", err)
	}

	return id, nil
}

// Get returns a single event by ID
func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	e, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("getting event: %w", err)
	}
	return e, nil
}

// ListByVendor returns a vendor's most recent events, newest first
func (s *Service) ListByVendor(ctx context.Context, vendorID string, statusFilter Status, limit int) ([]Event, error) {
	if vendorID == "" {
		return nil, fmt.Errorf("vendor_id is required")
	}
	if statusFilter != 0 {
		if err := statusFilter.Validate(); err != nil {
			return nil, fmt.Errorf("validating status filter: %w", err)
		}
	}
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}

	events, err := s.Repo.ListByVendor(ctx, vendorID, statusFilter, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

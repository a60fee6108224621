package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/marcelsud/webhook-courier/event"
)

// Repository is a testify mock of event.Repository
type Repository struct {
	mock.Mock
}

// NewRepository creates a mock repository that fails the test on
// unexpected calls and verifies expectations on cleanup
func NewRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *Repository {
	m := &Repository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Repository) Get(ctx context.Context, id string) (event.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(event.Event), args.Error(1)
}

func (m *Repository) ListByVendor(ctx context.Context, vendorID string, statusFilter event.Status, limit int) ([]event.Event, error) {
	args := m.Called(ctx, vendorID, statusFilter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Event), args.Error(1)
}

func (m *Repository) Enqueue(ctx context.Context, e event.Event) (string, error) {
	args := m.Called(ctx, e)
	return args.String(0), args.Error(1)
}

func (m *Repository) Claim(ctx context.Context, limit int, now time.Time) ([]event.Event, error) {
	args := m.Called(ctx, limit, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Event), args.Error(1)
}

func (m *Repository) RecordOutcome(ctx context.Context, id string, outcome event.Outcome, now time.Time) error {
	args := m.Called(ctx, id, outcome, now)
	return args.Error(0)
}

func (m *Repository) ReleaseStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	args := m.Called(ctx, olderThan, now)
	return args.Int(0), args.Error(1)
}

func (m *Repository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *Repository) QueueDepth(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Repository) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

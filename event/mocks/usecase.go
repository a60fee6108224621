package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/marcelsud/webhook-courier/event"
)

// UseCase is a testify mock of event.UseCase
type UseCase struct {
	mock.Mock
}

// NewUseCase creates a mock use case that fails the test on unexpected
// calls and verifies expectations on cleanup
func NewUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *UseCase {
	m := &UseCase{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *UseCase) Enqueue(ctx context.Context, vendorID, eventType string, payload []byte, targetURL string, maxAttempts int) (string, error) {
	args := m.Called(ctx, vendorID, eventType, payload, targetURL, maxAttempts)
	return args.String(0), args.Error(1)
}

func (m *UseCase) Get(ctx context.Context, id string) (event.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(event.Event), args.Error(1)
}

func (m *UseCase) ListByVendor(ctx context.Context, vendorID string, statusFilter event.Status, limit int) ([]event.Event, error) {
	args := m.Called(ctx, vendorID, statusFilter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]event.Event), args.Error(1)
}

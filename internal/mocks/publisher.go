package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// PublisherMock doubles the event publisher so emitter tests can assert on
// routing keys without a broker.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	return m.Called(ctx, routingKey, event).Error(0)
}

func (m *PublisherMock) Close() error {
	return m.Called().Error(0)
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ms-marketplace/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error { return nil }

func TestPublishJSON_Marshals(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "marketplace.order.settled", "o1", mock.MatchedBy(func(v []byte) bool {
		var decoded map[string]string
		return json.Unmarshal(v, &decoded) == nil && decoded["orderId"] == "o1"
	})).Return(nil)

	PublishJSON(context.Background(), pub, logger.NewDiscard(), "marketplace.order.settled", "o1", map[string]string{"orderId": "o1"})
	pub.AssertExpectations(t)
}

func TestPublishJSON_SwallowsErrors(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	assert.NotPanics(t, func() {
		PublishJSON(context.Background(), pub, logger.NewDiscard(), "t", "k", struct{}{})
	})
	assert.NotPanics(t, func() {
		PublishJSON(context.Background(), nil, logger.NewDiscard(), "t", "k", struct{}{})
	})
}

func TestPublishJSON_UnmarshalableEvent(t *testing.T) {
	pub := new(MockPublisher)
	PublishJSON(context.Background(), pub, logger.NewDiscard(), "t", "k", make(chan int))
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	require.NoError(t, p.Publish(context.Background(), "t", "k", nil))
	require.NoError(t, p.Close())
}

func TestEnsureTopicsExist_NoBrokers(t *testing.T) {
	assert.Error(t, EnsureTopicsExist(nil, []string{"t"}, logger.NewDiscard()))
}

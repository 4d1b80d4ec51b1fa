package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	body, err := Encode(domain.EventOrderCancelled, domain.OrderStatusChangedEvent{
		OrderID:   7,
		ProductID: 3,
		Status:    domain.StatusCancelled,
		Restocked: 2,
	}, now)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "order.cancelled", decoded["pattern"])
	assert.Equal(t, "2025-01-02T03:04:05Z", decoded["occurredAt"])

	data := decoded["data"].(map[string]any)
	assert.Equal(t, float64(7), data["orderId"])
	assert.Equal(t, "cancelled", data["status"])
	assert.Equal(t, float64(2), data["restocked"])
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, err := Encode("bad", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "order.created", nil))
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated        = "order.created"
	EventOrderConfirmed      = "order.confirmed"
	EventOrderCancelled      = "order.cancelled"
	EventProductStockChanged = "product.stock_changed"
)

type OrderCreatedEvent struct {
	EventID   string          `json:"eventId"`
	OrderID   uint64          `json:"orderId"`
	ProductID uint64          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	EventID    string      `json:"eventId"`
	OrderID    uint64      `json:"orderId"`
	ProductID  uint64      `json:"productId"`
	Status     OrderStatus `json:"status"`
	Restocked  int         `json:"restocked"`
	OccurredAt time.Time   `json:"occurredAt"`
}

type StockChangedEvent struct {
	EventID       string    `json:"eventId"`
	ProductID     uint64    `json:"productId"`
	PreviousStock int       `json:"previousStock"`
	NewStock      int       `json:"newStock"`
	OccurredAt    time.Time `json:"occurredAt"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type OrderAction string

const (
	ActionConfirm OrderAction = "confirm"
	ActionCancel  OrderAction = "cancel"
)

type transitionKey struct {
	from   OrderStatus
	action OrderAction
}

// transitions lists every permitted (status, action) pair. Pairs missing from
// the table are rejected with ErrInvalidTransition.
var transitions = map[transitionKey]OrderStatus{
	{StatusPending, ActionConfirm}:   StatusConfirmed,
	{StatusPending, ActionCancel}:    StatusCancelled,
	{StatusConfirmed, ActionConfirm}: StatusConfirmed,
	{StatusConfirmed, ActionCancel}:  StatusCancelled,
	{StatusCancelled, ActionCancel}:  StatusCancelled,
}

// NextStatus resolves the status an order moves to when action is applied.
func NextStatus(current OrderStatus, action OrderAction) (OrderStatus, error) {
	next, ok := transitions[transitionKey{current, action}]
	if !ok {
		return current, &TransitionError{From: current, Action: action}
	}
	return next, nil
}

// Order is a ledger entry. ProductName and Price are captured when the order
// is placed and stay untouched if the product is edited or deleted later.
type Order struct {
	ID            uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID     uint64          `json:"productId" gorm:"not null;index"`
	ProductName   string          `json:"productName" gorm:"size:255;not null"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	CustomerPhone string          `json:"customerPhone" gorm:"size:32;not null;index"`
	Status        OrderStatus     `json:"status" gorm:"size:16;not null;default:'pending';index"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"not null;index"`
}

// LineTotal is quantity x unit price rounded to cents.
func LineTotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

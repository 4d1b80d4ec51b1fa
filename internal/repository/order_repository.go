package repository

import (
	"context"
	"time"

	"storefront/internal/domain"
)

type OrderRepository interface {
	// CreateWithStockDebit inserts the order and debits the product's stock in
	// one transaction. It fails with *domain.NotFoundError or
	// *domain.InsufficientStockError without touching either table.
	CreateWithStockDebit(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter, now time.Time) ([]domain.Order, error)
	Stats(ctx context.Context) (*domain.OrderStats, error)
	// ApplyAction moves the order through the status transition table and
	// returns the updated order plus the quantity returned to stock.
	ApplyAction(ctx context.Context, id uint64, action domain.OrderAction) (*domain.Order, int, error)
}

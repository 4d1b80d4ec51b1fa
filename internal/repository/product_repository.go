package repository

import (
	"context"

	"storefront/internal/domain"
)

// StockFunc computes a new stock figure from the current one.
type StockFunc func(current int) int

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
	Delete(ctx context.Context, id uint64) error
	AdjustStock(ctx context.Context, id uint64, fn StockFunc) (previous, next int, err error)
}

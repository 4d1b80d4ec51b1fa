// Package cart stages a shopper's selections locally and turns them into
// orders at checkout.
package cart

import (
	"context"
	"sync"

	"storefront/internal/domain"
)

// ProductSource loads the product catalogue.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Snapshot is the last fetched copy of the catalogue. The cart validates
// quantities against it and checkout applies optimistic stock deltas to it.
type Snapshot struct {
	mu       sync.RWMutex
	products map[uint64]domain.Product
	order    []uint64
}

func NewSnapshot(products ...domain.Product) *Snapshot {
	s := &Snapshot{}
	s.replace(products)
	return s
}

// Refresh replaces the snapshot with a fresh fetch. On error the previous
// snapshot is kept.
func (s *Snapshot) Refresh(ctx context.Context, src ProductSource) error {
	products, err := src.ListProducts(ctx)
	if err != nil {
		return err
	}
	s.replace(products)
	return nil
}

func (s *Snapshot) replace(products []domain.Product) {
	byID := make(map[uint64]domain.Product, len(products))
	order := make([]uint64, 0, len(products))
	for _, p := range products {
		if _, dup := byID[p.ID]; !dup {
			order = append(order, p.ID)
		}
		byID[p.ID] = p
	}

	s.mu.Lock()
	s.products = byID
	s.order = order
	s.mu.Unlock()
}

func (s *Snapshot) Lookup(id uint64) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// Products returns the catalogue in fetch order.
func (s *Snapshot) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}

// ApplyStockDelta adjusts the cached stock of one product, flooring at zero.
// Unknown ids are ignored.
func (s *Snapshot) ApplyStockDelta(id uint64, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return
	}
	p.Stock = domain.ClampStock(p.Stock + delta)
	s.products[id] = p
}

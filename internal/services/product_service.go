package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain"
	rabbit "storefront/internal/infra/rabbitmq"
	"storefront/internal/infra/storage"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Stock       int
	Image       []byte
	Gallery     [][]byte
}

// StockChange is either an absolute Set or a Delta subtracted from the
// current stock. Negative deltas restock.
type StockChange struct {
	Set   *int
	Delta int
}

type StockResult struct {
	PreviousStock int `json:"previousStock"`
	NewStock      int `json:"newStock"`
}

type ProductService struct {
	repo   repository.ProductRepository
	images storage.ImageStore
	cache  ProductCache
	events *eventBus
	logger *zap.Logger
	sf     singleflight.Group
}

func NewProductService(r repository.ProductRepository, images storage.ImageStore, pub rabbit.PublisherInterface, logger *zap.Logger) *ProductService {
	return &ProductService{
		repo:   r,
		images: images,
		events: &eventBus{publisher: pub, logger: logger},
		logger: logger,
	}
}

func (s *ProductService) SetCache(c ProductCache) {
	s.cache = c
}

// ListProducts returns every product, newest first. Concurrent cache misses
// share one database query.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if s.cache != nil {
		var cached []domain.Product
		found, err := s.cache.Get(ctx, productsCacheKey, &cached)
		if err != nil {
			s.logger.Warn("product cache read failed", zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	v, err, _ := s.sf.Do(productsCacheKey, func() (any, error) {
		// The flight outlives any single caller.
		fctx := context.WithoutCancel(ctx)
		gen := productsGeneration.Load()
		products, err := s.repo.FindAll(fctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && productsGeneration.Load() == gen {
			if err := s.cache.Set(fctx, productsCacheKey, products); err != nil {
				s.logger.Warn("product cache write failed", zap.Error(err))
			}
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uint64) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	p := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		Discount:    in.Discount,
		Stock:       in.Stock,
	}
	if err := s.attachImages(ctx, p, in); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	invalidateProducts(ctx, s.cache, s.logger)

	s.logger.Info("product created", zap.Uint64("productId", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateProduct overwrites the editable fields. The main image and gallery are
// only replaced when new files are uploaded.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint64, in ProductInput) (*domain.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = in.Category
	p.Price = in.Price
	p.Discount = in.Discount
	p.Stock = in.Stock
	if err := s.attachImages(ctx, p, in); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	invalidateProducts(ctx, s.cache, s.logger)

	s.logger.Info("product updated", zap.Uint64("productId", id))
	return p, nil
}

// DeleteProduct removes the product. Orders that reference it keep their
// snapshot fields.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	invalidateProducts(ctx, s.cache, s.logger)
	s.logger.Info("product deleted", zap.Uint64("productId", id))
	return nil
}

// UpdateStock is the administrative stock correction. The result floors at
// zero, including a negative absolute value, and is unrelated to order debits.
func (s *ProductService) UpdateStock(ctx context.Context, id uint64, change StockChange) (*StockResult, error) {
	prev, next, err := s.repo.AdjustStock(ctx, id, func(current int) int {
		if change.Set != nil {
			return *change.Set
		}
		return current - change.Delta
	})
	if err != nil {
		return nil, err
	}

	if prev != next {
		invalidateProducts(ctx, s.cache, s.logger)
		s.events.publish(domain.EventProductStockChanged, domain.StockChangedEvent{
			EventID:       uuid.NewString(),
			ProductID:     id,
			PreviousStock: prev,
			NewStock:      next,
			OccurredAt:    time.Now().UTC(),
		})
	}

	s.logger.Info("stock corrected",
		zap.Uint64("productId", id),
		zap.Int("previousStock", prev),
		zap.Int("newStock", next))
	return &StockResult{PreviousStock: prev, NewStock: next}, nil
}

// WarmupCache loads the product listing into the cache.
func (s *ProductService) WarmupCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	products, err := s.repo.FindAll(ctx)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, productsCacheKey, products)
}

// Drain blocks until queued events are published.
func (s *ProductService) Drain() {
	s.events.wait()
}

func (s *ProductService) attachImages(ctx context.Context, p *domain.Product, in ProductInput) error {
	if len(in.Image) > 0 {
		url, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return err
		}
		p.Image = url
	}

	if len(in.Gallery) > 0 {
		gallery := make([]string, 0, len(in.Gallery))
		for _, data := range in.Gallery {
			url, err := s.saveImage(ctx, data)
			if err != nil {
				return err
			}
			gallery = append(gallery, url)
		}
		p.Gallery = gallery
	}
	return nil
}

func (s *ProductService) saveImage(ctx context.Context, data []byte) (string, error) {
	url, err := s.images.Save(ctx, data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return "", domain.NewValidationError("image", err.Error())
		}
		return "", domain.NewStorageError("save image", err)
	}
	return url, nil
}

func validateProductInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("name", "is required")
	}
	if in.Price.IsNegative() {
		return domain.NewValidationError("price", "must not be negative")
	}
	if in.Discount.IsNegative() {
		return domain.NewValidationError("discount", "must not be negative")
	}
	if in.Stock < 0 {
		return domain.NewValidationError("stock", "must not be negative")
	}
	return nil
}

package mysql

import (
	"context"
	"errors"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"gorm.io/gorm"
)

const maxStockAttempts = 5

var errStockContention = errors.New("stock kept changing during update")

type productRepo struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return domain.NewStorageError("create product", err)
	}
	return nil
}

// editable lists the columns an admin edit may overwrite.
var editable = []string{"name", "description", "category", "price", "discount", "stock", "image", "gallery"}

func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Product{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
			return domain.NewStorageError("find product", err)
		}
		if count == 0 {
			return &domain.NotFoundError{Resource: "product", ID: product.ID}
		}

		if err := tx.Model(&domain.Product{ID: product.ID}).Select(editable).Updates(product).Error; err != nil {
			return domain.NewStorageError("update product", err)
		}
		return nil
	})
}

func (r *productRepo) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Resource: "product", ID: id}
		}
		return nil, domain.NewStorageError("find product", err)
	}
	return &p, nil
}

func (r *productRepo) FindAll(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, domain.NewStorageError("list products", err)
	}
	return out, nil
}

func (r *productRepo) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Product{}, id)
	if res.Error != nil {
		return domain.NewStorageError("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.NotFoundError{Resource: "product", ID: id}
	}
	return nil
}

// AdjustStock applies fn to the current stock and writes the clamped result
// only if nobody changed the stock in between.
func (r *productRepo) AdjustStock(ctx context.Context, id uint64, fn repository.StockFunc) (int, int, error) {
	db := r.db.WithContext(ctx)

	for attempt := 0; attempt < maxStockAttempts; attempt++ {
		var p domain.Product
		if err := db.Select("id", "stock").First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, 0, &domain.NotFoundError{Resource: "product", ID: id}
			}
			return 0, 0, domain.NewStorageError("find product", err)
		}

		next := domain.ClampStock(fn(p.Stock))
		if next == p.Stock {
			return p.Stock, next, nil
		}

		res := db.Model(&domain.Product{}).
			Where("id = ? AND stock = ?", id, p.Stock).
			UpdateColumn("stock", next)
		if res.Error != nil {
			return 0, 0, domain.NewStorageError("update stock", res.Error)
		}
		if res.RowsAffected == 1 {
			return p.Stock, next, nil
		}
	}
	return 0, 0, domain.NewStorageError("update stock", errStockContention)
}
